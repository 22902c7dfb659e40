package dispatch

import (
	"context"
	"errors"
	"testing"

	"hospital-dispatch/internal/models"
	"hospital-dispatch/internal/queue"
)

type MockSweepStore struct {
	ListUnassignedTicketsFunc func(ctx context.Context) ([]*models.Ticket, error)
}

func (m *MockSweepStore) ListUnassignedTickets(ctx context.Context) ([]*models.Ticket, error) {
	return m.ListUnassignedTicketsFunc(ctx)
}

func TestSweep_RequeuesOnlyMissingTickets(t *testing.T) {
	mockDB := &MockSweepStore{
		ListUnassignedTicketsFunc: func(ctx context.Context) ([]*models.Ticket, error) {
			return []*models.Ticket{
				{ID: 1, Status: models.StatusTriageDone, PriorityScore: 10},
				{ID: 2, Status: models.StatusTriageDone, PriorityScore: 20},
			}, nil
		},
	}

	q := queue.New()
	q.Push(10, 1) // already queued

	requeued, err := Sweep(context.Background(), mockDB, q)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if requeued != 1 {
		t.Errorf("Expected 1 requeued, got %d", requeued)
	}
	if q.Len() != 2 {
		t.Errorf("Expected 2 queued tickets, got %d", q.Len())
	}
	if !q.Contains(2) {
		t.Error("Expected ticket 2 to be queued")
	}
}

func TestSweep_PropagatesStoreError(t *testing.T) {
	mockDB := &MockSweepStore{
		ListUnassignedTicketsFunc: func(ctx context.Context) ([]*models.Ticket, error) {
			return nil, errors.New("db gone")
		},
	}

	if _, err := Sweep(context.Background(), mockDB, queue.New()); err == nil {
		t.Fatal("Expected error from store to propagate")
	}
}
