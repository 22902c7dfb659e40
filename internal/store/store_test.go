package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"hospital-dispatch/internal/db"
	"hospital-dispatch/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	conn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	// The in-memory database disappears if the pool opens a second
	// connection.
	conn.SetMaxOpenConns(1)
	if err := db.Init(conn, db.DriverSQLite); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return New(conn, db.DriverSQLite)
}

func admitTicket(t *testing.T, s *Store, name string, priority int) *models.Ticket {
	t.Helper()
	ctx := context.Background()
	patient := &models.Patient{Name: name, Age: 40, Symptoms: "test symptoms"}
	if err := s.CreatePatient(ctx, patient); err != nil {
		t.Fatalf("create patient: %v", err)
	}
	ticket := &models.Ticket{
		PatientID:     patient.ID,
		Status:        models.StatusTriageDone,
		Urgency:       models.UrgencyNormal,
		PriorityScore: priority,
	}
	if err := s.CreateTicket(ctx, ticket); err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}

func seedDoctor(t *testing.T, s *Store, name string, maxPatients int) *models.Doctor {
	t.Helper()
	seeded, err := s.SeedDoctors(context.Background(), []*models.Doctor{
		{Name: name, Specialty: "General Medicine", MaxPatients: maxPatients},
	})
	if err != nil {
		t.Fatalf("seed doctors: %v", err)
	}
	if !seeded {
		t.Fatal("expected seeding into empty table")
	}
	doctors, err := s.ListDoctors(context.Background())
	if err != nil {
		t.Fatalf("list doctors: %v", err)
	}
	return doctors[len(doctors)-1]
}

func TestGetTicket_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetTicket(context.Background(), 12345); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateAndGetTicket(t *testing.T) {
	s := newTestStore(t)
	created := admitTicket(t, s, "John", 25)

	got, err := s.GetTicket(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get ticket: %v", err)
	}
	if got.PriorityScore != 25 {
		t.Errorf("expected priority 25, got %d", got.PriorityScore)
	}
	if got.Status != models.StatusTriageDone {
		t.Errorf("expected triage_done, got %s", got.Status)
	}
	if got.DoctorID != nil {
		t.Errorf("expected unassigned ticket, got doctor %d", *got.DoctorID)
	}
}

func TestAssignTicket_ConditionalCommit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ticket := admitTicket(t, s, "John", 25)
	doctor := seedDoctor(t, s, "Dr. Alice", 5)

	if err := s.AssignTicket(ctx, ticket.ID, doctor.ID); err != nil {
		t.Fatalf("first assignment should succeed: %v", err)
	}

	got, err := s.GetTicket(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("get ticket: %v", err)
	}
	if got.DoctorID == nil || *got.DoctorID != doctor.ID {
		t.Fatalf("expected doctor %d, got %v", doctor.ID, got.DoctorID)
	}
	if got.Status != models.StatusAssigned {
		t.Errorf("expected assigned status, got %s", got.Status)
	}

	// Second commit must conflict, never overwrite.
	if err := s.AssignTicket(ctx, ticket.ID, doctor.ID+1); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
	got, _ = s.GetTicket(ctx, ticket.ID)
	if *got.DoctorID != doctor.ID {
		t.Errorf("doctor_id overwritten to %d", *got.DoctorID)
	}
}

func TestUpdateTriage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	patient := &models.Patient{Name: "Jane"}
	if err := s.CreatePatient(ctx, patient); err != nil {
		t.Fatalf("create patient: %v", err)
	}
	ticket := &models.Ticket{PatientID: patient.ID, Status: models.StatusCreated, Urgency: models.UrgencyNormal, PriorityScore: 50}
	if err := s.CreateTicket(ctx, ticket); err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	if err := s.UpdateTriage(ctx, ticket.ID, models.UrgencyCritical, 5); err != nil {
		t.Fatalf("update triage: %v", err)
	}
	got, _ := s.GetTicket(ctx, ticket.ID)
	if got.Urgency != models.UrgencyCritical || got.PriorityScore != 5 {
		t.Errorf("expected critical/5, got %s/%d", got.Urgency, got.PriorityScore)
	}
	if got.Status != models.StatusTriageDone {
		t.Errorf("expected triage_done, got %s", got.Status)
	}

	if err := s.UpdateTriage(ctx, 9999, models.UrgencyNormal, 50); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing ticket, got %v", err)
	}
}

func TestActiveTicketCount_ExcludesTerminalStatuses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	doctor := seedDoctor(t, s, "Dr. Alice", 5)

	active := admitTicket(t, s, "P1", 10)
	discharged := admitTicket(t, s, "P2", 10)

	if err := s.AssignTicket(ctx, active.ID, doctor.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := s.AssignTicket(ctx, discharged.ID, doctor.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}
	// Mark one terminal directly; discharge flow is out of engine scope.
	if _, err := s.db.ExecContext(ctx, "UPDATE tickets SET status = 'discharged' WHERE id = ?", discharged.ID); err != nil {
		t.Fatalf("discharge: %v", err)
	}

	count, err := s.ActiveTicketCount(ctx, doctor.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 active ticket, got %d", count)
	}
}

func TestSeedDoctors_OnlyWhenEmpty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seeded, err := s.SeedDoctors(ctx, []*models.Doctor{{Name: "Dr. Alice"}, {Name: "Dr. Bob"}})
	if err != nil || !seeded {
		t.Fatalf("expected initial seed, seeded=%v err=%v", seeded, err)
	}

	seeded, err = s.SeedDoctors(ctx, []*models.Doctor{{Name: "Dr. Clara"}})
	if err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if seeded {
		t.Error("expected reseed to be skipped")
	}

	doctors, err := s.ListDoctors(ctx)
	if err != nil {
		t.Fatalf("list doctors: %v", err)
	}
	if len(doctors) != 2 {
		t.Fatalf("expected 2 doctors, got %d", len(doctors))
	}
	// Ascending id order is part of the contract.
	if doctors[0].ID >= doctors[1].ID {
		t.Errorf("expected ascending id order, got %d then %d", doctors[0].ID, doctors[1].ID)
	}
}

func TestListUnassignedTickets(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	doctor := seedDoctor(t, s, "Dr. Alice", 5)

	pending := admitTicket(t, s, "P1", 10)
	assigned := admitTicket(t, s, "P2", 20)
	if err := s.AssignTicket(ctx, assigned.ID, doctor.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	tickets, err := s.ListUnassignedTickets(ctx)
	if err != nil {
		t.Fatalf("list unassigned: %v", err)
	}
	if len(tickets) != 1 || tickets[0].ID != pending.ID {
		t.Errorf("expected only ticket %d, got %+v", pending.ID, tickets)
	}
}

func TestListDoctorTickets_IncludesPatientName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	doctor := seedDoctor(t, s, "Dr. Alice", 5)
	ticket := admitTicket(t, s, "John Smith", 10)
	if err := s.AssignTicket(ctx, ticket.ID, doctor.ID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	summaries, err := s.ListDoctorTickets(ctx, doctor.ID)
	if err != nil {
		t.Fatalf("list doctor tickets: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	if summaries[0].PatientName != "John Smith" {
		t.Errorf("expected patient name, got %q", summaries[0].PatientName)
	}
	if summaries[0].Status != models.StatusAssigned {
		t.Errorf("expected assigned, got %s", summaries[0].Status)
	}
}

func TestAppendAgentLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ticket := admitTicket(t, s, "John", 10)

	entry := &models.AgentLog{
		TicketID:         ticket.ID,
		AgentName:        "allocator",
		Stage:            "allocation",
		StructuredOutput: `{"doctor_id":1}`,
		RawMessage:       "Assigned to doctor Dr. Alice",
	}
	if err := s.AppendAgentLog(ctx, entry); err != nil {
		t.Fatalf("append log: %v", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM agent_logs WHERE ticket_id = ?", ticket.ID).Scan(&count); err != nil {
		t.Fatalf("count logs: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 log entry, got %d", count)
	}
}
