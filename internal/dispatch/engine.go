// Package dispatch contains the allocation engine: the background loop
// that matches queued tickets to doctors with spare capacity.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"hospital-dispatch/internal/models"
	"hospital-dispatch/internal/store"
)

// Config carries the loop tunables. The values are deployment knobs, not
// semantics; defaults match the long-standing behavior.
type Config struct {
	// IdlePoll is how long the engine sleeps after finding the queue
	// empty. An enqueue wakes it earlier.
	IdlePoll time.Duration
	// Cooldown is the pause after a saturation requeue, bounding retry
	// storms when every doctor is full.
	Cooldown time.Duration
	// Yield is the pause after each completed iteration.
	Yield time.Duration
	// RequeuePenalty is added to a ticket's priority when it is requeued
	// for lack of capacity, so other tickets get a turn.
	RequeuePenalty int
}

// DefaultConfig returns the baseline tunables.
func DefaultConfig() Config {
	return Config{
		IdlePoll:       500 * time.Millisecond,
		Cooldown:       2 * time.Second,
		Yield:          300 * time.Millisecond,
		RequeuePenalty: 5,
	}
}

// Engine runs the allocation loop. One instance per process; all state
// lives in the queue and the store.
type Engine struct {
	db       DataStore
	queue    TicketQueue
	notifier Notifier
	capacity *CapacityIndex
	cfg      Config
}

func NewEngine(db DataStore, queue TicketQueue, notifier Notifier, cfg Config) *Engine {
	if cfg.IdlePoll <= 0 {
		cfg.IdlePoll = DefaultConfig().IdlePoll
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultConfig().Cooldown
	}
	if cfg.Yield <= 0 {
		cfg.Yield = DefaultConfig().Yield
	}
	if cfg.RequeuePenalty == 0 {
		cfg.RequeuePenalty = DefaultConfig().RequeuePenalty
	}
	return &Engine{
		db:       db,
		queue:    queue,
		notifier: notifier,
		capacity: NewCapacityIndex(db),
		cfg:      cfg,
	}
}

// Run executes the loop until the context is cancelled. The only fatal
// condition is storage being unreachable at startup; every per-ticket
// failure is absorbed by that iteration.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.db.Ping(ctx); err != nil {
		return fmt.Errorf("allocation engine: storage unreachable: %w", err)
	}
	log.Println("allocation engine started")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ticketID, ok := e.queue.Pop()
		if !ok {
			e.idle(ctx)
			continue
		}
		log.Printf("popped ticket %d for allocation", ticketID)
		e.allocate(ctx, ticketID)
	}
}

// allocate performs one matching attempt for a popped ticket. Every exit
// path is terminal handling for this iteration.
func (e *Engine) allocate(ctx context.Context, ticketID int64) {
	ticket, err := e.db.GetTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("ticket %d no longer exists, dropping queue entry", ticketID)
		} else {
			// Transient read failure: drop the entry and let the
			// sweeper re-enqueue the ticket if it is still pending.
			log.Printf("failed to fetch ticket %d: %v", ticketID, err)
		}
		e.pause(ctx, e.cfg.Yield)
		return
	}

	// Stale queue entry: the ticket was already assigned by a prior
	// cycle, or left the workflow entirely. Skipping is a no-op, not an
	// error, and must produce no duplicate log or notification.
	if ticket.Assigned() {
		log.Printf("ticket %d already assigned, skipping", ticket.ID)
		e.pause(ctx, e.cfg.Yield)
		return
	}
	if ticket.Status.Terminal() {
		log.Printf("ticket %d is %s, skipping", ticket.ID, ticket.Status)
		e.pause(ctx, e.cfg.Yield)
		return
	}

	doctor, err := e.capacity.FindAvailableDoctor(ctx)
	if err != nil {
		log.Printf("capacity query failed for ticket %d: %v", ticket.ID, err)
		e.queue.Push(ticket.PriorityScore, ticket.ID)
		e.pause(ctx, e.cfg.Cooldown)
		return
	}
	if doctor == nil {
		// Everyone saturated: de-prioritize slightly and retry later.
		log.Printf("no doctors available, requeueing ticket %d", ticket.ID)
		e.queue.Push(ticket.PriorityScore+e.cfg.RequeuePenalty, ticket.ID)
		e.pause(ctx, e.cfg.Cooldown)
		return
	}

	// The conditional commit is the authoritative decision. A conflict
	// means another writer assigned the ticket against a stale capacity
	// read; requeue at the original priority and let the re-fetch check
	// discard the entry if nothing is left to do.
	if err := e.db.AssignTicket(ctx, ticket.ID, doctor.ID); err != nil {
		log.Printf("assignment commit failed for ticket %d: %v", ticket.ID, err)
		e.queue.Push(ticket.PriorityScore, ticket.ID)
		e.pause(ctx, e.cfg.Yield)
		return
	}

	e.appendAllocationLog(ctx, ticket.ID, doctor.ID, doctor.Name)
	log.Printf("ticket %d assigned to doctor %s (id %d)", ticket.ID, doctor.Name, doctor.ID)

	e.notifier.NotifyAssigned(ctx, doctor, ticket.ID)

	e.pause(ctx, e.cfg.Yield)
}

// appendAllocationLog records the decision in the audit trail. Logging
// failure must not undo the assignment, but the write is always attempted
// on the success path.
func (e *Engine) appendAllocationLog(ctx context.Context, ticketID, doctorID int64, doctorName string) {
	structured, _ := json.Marshal(struct {
		DoctorID int64 `json:"doctor_id"`
	}{doctorID})

	err := e.db.AppendAgentLog(ctx, &models.AgentLog{
		TicketID:         ticketID,
		AgentName:        "allocator",
		Stage:            "allocation",
		StructuredOutput: string(structured),
		RawMessage:       fmt.Sprintf("Assigned to doctor %s", doctorName),
	})
	if err != nil {
		log.Printf("failed to append allocation log for ticket %d: %v", ticketID, err)
	}
}

// idle waits out the poll interval, returning early on an enqueue.
func (e *Engine) idle(ctx context.Context) {
	t := time.NewTimer(e.cfg.IdlePoll)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-e.queue.Wake():
	case <-t.C:
	}
}

func (e *Engine) pause(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
