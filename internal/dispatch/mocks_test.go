package dispatch

import (
	"context"
	"sync"

	"hospital-dispatch/internal/models"
)

type MockDataStore struct {
	PingFunc              func(ctx context.Context) error
	GetTicketFunc         func(ctx context.Context, id int64) (*models.Ticket, error)
	ListDoctorsFunc       func(ctx context.Context) ([]*models.Doctor, error)
	ActiveTicketCountFunc func(ctx context.Context, doctorID int64) (int64, error)
	AssignTicketFunc      func(ctx context.Context, ticketID, doctorID int64) error
	AppendAgentLogFunc    func(ctx context.Context, entry *models.AgentLog) error
}

func (m *MockDataStore) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func (m *MockDataStore) GetTicket(ctx context.Context, id int64) (*models.Ticket, error) {
	return m.GetTicketFunc(ctx, id)
}

func (m *MockDataStore) ListDoctors(ctx context.Context) ([]*models.Doctor, error) {
	return m.ListDoctorsFunc(ctx)
}

func (m *MockDataStore) ActiveTicketCount(ctx context.Context, doctorID int64) (int64, error) {
	return m.ActiveTicketCountFunc(ctx, doctorID)
}

func (m *MockDataStore) AssignTicket(ctx context.Context, ticketID, doctorID int64) error {
	return m.AssignTicketFunc(ctx, ticketID, doctorID)
}

func (m *MockDataStore) AppendAgentLog(ctx context.Context, entry *models.AgentLog) error {
	if m.AppendAgentLogFunc != nil {
		return m.AppendAgentLogFunc(ctx, entry)
	}
	return nil
}

type notification struct {
	DoctorID int64
	TicketID int64
}

type MockNotifier struct {
	mu    sync.Mutex
	calls []notification
	ch    chan notification
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{ch: make(chan notification, 16)}
}

func (m *MockNotifier) NotifyAssigned(ctx context.Context, doctor *models.Doctor, ticketID int64) {
	m.mu.Lock()
	m.calls = append(m.calls, notification{DoctorID: doctor.ID, TicketID: ticketID})
	m.mu.Unlock()
	select {
	case m.ch <- notification{DoctorID: doctor.ID, TicketID: ticketID}:
	default:
	}
}

func (m *MockNotifier) Calls() []notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]notification, len(m.calls))
	copy(out, m.calls)
	return out
}
