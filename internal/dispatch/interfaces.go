package dispatch

import (
	"context"

	"hospital-dispatch/internal/models"
)

// DataStore defines the persistence operations the engine needs.
type DataStore interface {
	Ping(ctx context.Context) error
	GetTicket(ctx context.Context, id int64) (*models.Ticket, error)
	ListDoctors(ctx context.Context) ([]*models.Doctor, error)
	ActiveTicketCount(ctx context.Context, doctorID int64) (int64, error)
	AssignTicket(ctx context.Context, ticketID, doctorID int64) error
	AppendAgentLog(ctx context.Context, entry *models.AgentLog) error
}

// TicketQueue is the pending-ticket source the engine drains.
type TicketQueue interface {
	Push(priority int, ticketID int64)
	Pop() (int64, bool)
	Wake() <-chan struct{}
}

// Notifier announces committed assignments. Implementations never return
// errors; delivery is best-effort.
type Notifier interface {
	NotifyAssigned(ctx context.Context, doctor *models.Doctor, ticketID int64)
}
