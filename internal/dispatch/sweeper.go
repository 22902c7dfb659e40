package dispatch

import (
	"context"
	"fmt"
	"log"

	"hospital-dispatch/internal/models"
)

// SweepStore lists tickets that finished triage but never got a doctor.
type SweepStore interface {
	ListUnassignedTickets(ctx context.Context) ([]*models.Ticket, error)
}

// PendingQueue is the queue surface the sweeper needs: push plus a
// membership check to avoid duplicate entries.
type PendingQueue interface {
	Push(priority int, ticketID int64)
	Contains(ticketID int64) bool
}

// Sweep re-enqueues triaged, unassigned tickets that are missing from the
// queue. It runs once at startup to rebuild the queue after a restart, and
// periodically to recover tickets dropped by transient read failures.
func Sweep(ctx context.Context, db SweepStore, q PendingQueue) (int, error) {
	tickets, err := db.ListUnassignedTickets(ctx)
	if err != nil {
		return 0, fmt.Errorf("sweep: %w", err)
	}

	requeued := 0
	for _, t := range tickets {
		if q.Contains(t.ID) {
			continue
		}
		q.Push(t.PriorityScore, t.ID)
		requeued++
	}
	if requeued > 0 {
		log.Printf("sweep re-enqueued %d unassigned tickets", requeued)
	}
	return requeued, nil
}
