// Package store implements the SQL-backed persistence layer shared by
// intake, the allocation engine, and the API handlers.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"hospital-dispatch/internal/db"
	"hospital-dispatch/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a conditional update matched no rows,
	// e.g. assigning a ticket that already has a doctor.
	ErrConflict = errors.New("conflicting update")
)

// Store issues queries against the backing database. The statement builder
// carries the placeholder format of the configured driver.
type Store struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

func New(conn *sql.DB, driver string) *Store {
	var format sq.PlaceholderFormat = sq.Question
	if driver == db.DriverPostgres {
		format = sq.Dollar
	}
	return &Store{
		db: conn,
		sb: sq.StatementBuilder.PlaceholderFormat(format),
	}
}

// Ping verifies the database is reachable. The engine refuses to start if
// this fails.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) CreatePatient(ctx context.Context, p *models.Patient) error {
	now := time.Now().UTC()
	query, args, err := s.sb.Insert("patients").
		Columns("name", "age", "symptoms", "created_at").
		Values(p.Name, p.Age, p.Symptoms, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return err
	}
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&p.ID); err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	p.CreatedAt = now
	return nil
}

func (s *Store) GetPatient(ctx context.Context, id int64) (*models.Patient, error) {
	query, args, err := s.sb.Select("id", "name", "age", "symptoms", "created_at").
		From("patients").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var p models.Patient
	err = s.db.QueryRowContext(ctx, query, args...).
		Scan(&p.ID, &p.Name, &p.Age, &p.Symptoms, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select patient: %w", err)
	}
	return &p, nil
}

func (s *Store) CreateTicket(ctx context.Context, t *models.Ticket) error {
	now := time.Now().UTC()
	query, args, err := s.sb.Insert("tickets").
		Columns("patient_id", "status", "urgency", "priority_score", "created_at", "updated_at").
		Values(t.PatientID, t.Status, t.Urgency, t.PriorityScore, now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return err
	}
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&t.ID); err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

const ticketColumns = "id, patient_id, doctor_id, status, urgency, priority_score, created_at, updated_at"

func scanTicket(row sq.RowScanner) (*models.Ticket, error) {
	var t models.Ticket
	var doctorID sql.NullInt64
	err := row.Scan(&t.ID, &t.PatientID, &doctorID, &t.Status, &t.Urgency,
		&t.PriorityScore, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if doctorID.Valid {
		t.DoctorID = &doctorID.Int64
	}
	return &t, nil
}

func (s *Store) GetTicket(ctx context.Context, id int64) (*models.Ticket, error) {
	query, args, err := s.sb.Select(ticketColumns).
		From("tickets").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	t, err := scanTicket(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select ticket: %w", err)
	}
	return t, nil
}

// UpdateTriage records the classification outcome and advances the ticket
// to triage_done.
func (s *Store) UpdateTriage(ctx context.Context, ticketID int64, urgency models.Urgency, priorityScore int) error {
	query, args, err := s.sb.Update("tickets").
		Set("urgency", urgency).
		Set("priority_score", priorityScore).
		Set("status", models.StatusTriageDone).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": ticketID}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update triage: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignTicket commits the allocation decision. The doctor_id IS NULL guard
// makes the update conditional: if another writer got there first, no row
// matches and ErrConflict is returned. This is the linearization point for
// the whole allocation pipeline.
func (s *Store) AssignTicket(ctx context.Context, ticketID, doctorID int64) error {
	query, args, err := s.sb.Update("tickets").
		Set("doctor_id", doctorID).
		Set("status", models.StatusAssigned).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": ticketID}).
		Where("doctor_id IS NULL").
		ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("assign ticket: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	return nil
}

// ListDoctors returns all doctors in ascending id order. The allocation
// engine depends on this order being deterministic.
func (s *Store) ListDoctors(ctx context.Context) ([]*models.Doctor, error) {
	query, args, err := s.sb.Select("id", "name", "specialty", "max_patients", "pushover_user", "created_at").
		From("doctors").
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select doctors: %w", err)
	}
	defer rows.Close()

	var doctors []*models.Doctor
	for rows.Next() {
		var d models.Doctor
		if err := rows.Scan(&d.ID, &d.Name, &d.Specialty, &d.MaxPatients, &d.PushoverUser, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan doctor: %w", err)
		}
		doctors = append(doctors, &d)
	}
	return doctors, rows.Err()
}

func (s *Store) GetDoctor(ctx context.Context, id int64) (*models.Doctor, error) {
	query, args, err := s.sb.Select("id", "name", "specialty", "max_patients", "pushover_user", "created_at").
		From("doctors").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var d models.Doctor
	err = s.db.QueryRowContext(ctx, query, args...).
		Scan(&d.ID, &d.Name, &d.Specialty, &d.MaxPatients, &d.PushoverUser, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select doctor: %w", err)
	}
	return &d, nil
}

// SeedDoctors inserts the given doctors only when the table is empty.
func (s *Store) SeedDoctors(ctx context.Context, doctors []*models.Doctor) (bool, error) {
	var count int64
	query, args, err := s.sb.Select("COUNT(*)").From("doctors").ToSql()
	if err != nil {
		return false, err
	}
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("count doctors: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, d := range doctors {
		query, args, err := s.sb.Insert("doctors").
			Columns("name", "specialty", "max_patients", "pushover_user", "created_at").
			Values(d.Name, d.Specialty, d.Capacity(), d.PushoverUser, now).
			ToSql()
		if err != nil {
			return false, err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return false, fmt.Errorf("seed doctor %s: %w", d.Name, err)
		}
	}
	return true, tx.Commit()
}

// ActiveTicketCount returns the doctor's current load: assigned tickets
// that have not reached a terminal status.
func (s *Store) ActiveTicketCount(ctx context.Context, doctorID int64) (int64, error) {
	query, args, err := s.sb.Select("COUNT(*)").
		From("tickets").
		Where(sq.Eq{"doctor_id": doctorID}).
		Where(sq.NotEq{"status": []models.TicketStatus{models.StatusDischarged, models.StatusCancelled}}).
		ToSql()
	if err != nil {
		return 0, err
	}
	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active tickets: %w", err)
	}
	return count, nil
}

// TicketSummary is the doctor-dashboard row: ticket state plus the patient
// name resolved in one query.
type TicketSummary struct {
	ID          int64
	Status      models.TicketStatus
	Urgency     models.Urgency
	PatientName string
}

func (s *Store) ListDoctorTickets(ctx context.Context, doctorID int64) ([]TicketSummary, error) {
	query, args, err := s.sb.Select("t.id", "t.status", "t.urgency", "p.name").
		From("tickets t").
		Join("patients p ON p.id = t.patient_id").
		Where(sq.Eq{"t.doctor_id": doctorID}).
		OrderBy("t.id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select doctor tickets: %w", err)
	}
	defer rows.Close()

	var summaries []TicketSummary
	for rows.Next() {
		var ts TicketSummary
		if err := rows.Scan(&ts.ID, &ts.Status, &ts.Urgency, &ts.PatientName); err != nil {
			return nil, fmt.Errorf("scan ticket summary: %w", err)
		}
		summaries = append(summaries, ts)
	}
	return summaries, rows.Err()
}

// ListUnassignedTickets returns triaged tickets with no doctor, oldest
// first. Used to rebuild the queue at startup and by the sweeper.
func (s *Store) ListUnassignedTickets(ctx context.Context) ([]*models.Ticket, error) {
	query, args, err := s.sb.Select(ticketColumns).
		From("tickets").
		Where(sq.Eq{"status": models.StatusTriageDone}).
		Where("doctor_id IS NULL").
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select unassigned tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// AppendAgentLog writes one audit-trail entry. Entries are write-once; the
// engine never reads them back.
func (s *Store) AppendAgentLog(ctx context.Context, entry *models.AgentLog) error {
	query, args, err := s.sb.Insert("agent_logs").
		Columns("ticket_id", "agent_name", "stage", "structured_output", "raw_message", "created_at").
		Values(entry.TicketID, entry.AgentName, entry.Stage, entry.StructuredOutput, entry.RawMessage, time.Now().UTC()).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert agent log: %w", err)
	}
	return nil
}
