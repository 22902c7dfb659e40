package intake

import (
	"context"
	"errors"
	"testing"

	"hospital-dispatch/internal/models"
	"hospital-dispatch/internal/triage"
)

type MockDataStore struct {
	CreatePatientFunc  func(ctx context.Context, p *models.Patient) error
	CreateTicketFunc   func(ctx context.Context, t *models.Ticket) error
	UpdateTriageFunc   func(ctx context.Context, ticketID int64, urgency models.Urgency, priorityScore int) error
	AppendAgentLogFunc func(ctx context.Context, entry *models.AgentLog) error
}

func (m *MockDataStore) CreatePatient(ctx context.Context, p *models.Patient) error {
	return m.CreatePatientFunc(ctx, p)
}

func (m *MockDataStore) CreateTicket(ctx context.Context, t *models.Ticket) error {
	return m.CreateTicketFunc(ctx, t)
}

func (m *MockDataStore) UpdateTriage(ctx context.Context, ticketID int64, urgency models.Urgency, priorityScore int) error {
	return m.UpdateTriageFunc(ctx, ticketID, urgency, priorityScore)
}

func (m *MockDataStore) AppendAgentLog(ctx context.Context, entry *models.AgentLog) error {
	if m.AppendAgentLogFunc != nil {
		return m.AppendAgentLogFunc(ctx, entry)
	}
	return nil
}

type MockQueue struct {
	pushes []queuedTicket
}

type queuedTicket struct {
	priority int
	ticketID int64
}

func (m *MockQueue) Push(priority int, ticketID int64) {
	m.pushes = append(m.pushes, queuedTicket{priority, ticketID})
}

// stubAgent returns fixed output regardless of prompt.
type stubAgent struct {
	out string
	err error
}

func (s *stubAgent) Send(ctx context.Context, prompt string) (string, error) {
	return s.out, s.err
}

func setupService(t *testing.T, triageAgent triage.Agent) (*Service, *MockDataStore, *MockQueue, *[]models.AgentLog) {
	t.Helper()
	var logs []models.AgentLog
	mockDB := &MockDataStore{
		CreatePatientFunc: func(ctx context.Context, p *models.Patient) error {
			p.ID = 1
			return nil
		},
		CreateTicketFunc: func(ctx context.Context, tk *models.Ticket) error {
			tk.ID = 10
			return nil
		},
		UpdateTriageFunc: func(ctx context.Context, ticketID int64, urgency models.Urgency, priorityScore int) error {
			return nil
		},
		AppendAgentLogFunc: func(ctx context.Context, entry *models.AgentLog) error {
			logs = append(logs, *entry)
			return nil
		},
	}
	q := &MockQueue{}
	svc := NewService(mockDB, q, &triage.MockAgent{Role: "reception"}, triageAgent)
	return svc, mockDB, q, &logs
}

func TestSubmit_EnqueuesAtTriagedPriority(t *testing.T) {
	svc, _, q, logs := setupService(t, &stubAgent{out: `{"urgency":"critical","score":95}`})

	ticketID, err := svc.Submit(context.Background(), "John", 40, "chest pain")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if ticketID != 10 {
		t.Errorf("Expected ticket 10, got %d", ticketID)
	}
	if len(q.pushes) != 1 {
		t.Fatalf("Expected 1 enqueue, got %d", len(q.pushes))
	}
	if q.pushes[0].priority != 5 {
		t.Errorf("Expected priority 5 (100-95), got %d", q.pushes[0].priority)
	}
	if len(*logs) != 2 {
		t.Errorf("Expected reception and triage logs, got %d entries", len(*logs))
	}
}

func TestSubmit_MalformedTriageFallsBackToDefaults(t *testing.T) {
	var gotUrgency models.Urgency
	var gotPriority int
	svc, mockDB, q, _ := setupService(t, &stubAgent{out: "this is not JSON"})
	mockDB.UpdateTriageFunc = func(ctx context.Context, ticketID int64, urgency models.Urgency, priorityScore int) error {
		gotUrgency = urgency
		gotPriority = priorityScore
		return nil
	}

	if _, err := svc.Submit(context.Background(), "patient X", 0, "unclear"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if gotUrgency != models.UrgencyNormal {
		t.Errorf("Expected normal urgency, got %s", gotUrgency)
	}
	if gotPriority != 50 {
		t.Errorf("Expected priority 50, got %d", gotPriority)
	}
	if q.pushes[0].priority != 50 {
		t.Errorf("Expected enqueue at 50, got %d", q.pushes[0].priority)
	}
}

func TestSubmit_TriageAgentErrorStillAdmits(t *testing.T) {
	svc, _, q, _ := setupService(t, &stubAgent{err: errors.New("api down")})

	ticketID, err := svc.Submit(context.Background(), "Jane", 25, "cough")
	if err != nil {
		t.Fatalf("Expected classification to be advisory, got %v", err)
	}
	if ticketID != 10 {
		t.Errorf("Expected ticket 10, got %d", ticketID)
	}
	if len(q.pushes) != 1 || q.pushes[0].priority != 50 {
		t.Errorf("Expected enqueue at default priority, got %+v", q.pushes)
	}
}

func TestSubmit_StorageErrorAbortsAdmission(t *testing.T) {
	svc, mockDB, q, _ := setupService(t, &stubAgent{out: `{"urgency":"normal","score":60}`})
	mockDB.CreateTicketFunc = func(ctx context.Context, tk *models.Ticket) error {
		return errors.New("disk full")
	}

	if _, err := svc.Submit(context.Background(), "Bob", 50, "fever"); err == nil {
		t.Fatal("Expected error when ticket creation fails")
	}
	if len(q.pushes) != 0 {
		t.Errorf("Expected nothing enqueued, got %d", len(q.pushes))
	}
}

func TestSubmit_MockAgentsEndToEnd(t *testing.T) {
	svc, _, q, _ := setupService(t, &triage.MockAgent{Role: "triage"})

	if _, err := svc.Submit(context.Background(), "Amy", 33, "severe bleeding"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	// Mock triage classifies "bleeding" as critical with score 95.
	if q.pushes[0].priority != 5 {
		t.Errorf("Expected priority 5, got %d", q.pushes[0].priority)
	}
}
