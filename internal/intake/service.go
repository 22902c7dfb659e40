// Package intake runs the patient admission workflow: record creation,
// reception and triage agents, and the handoff to the allocation queue.
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"hospital-dispatch/internal/models"
	"hospital-dispatch/internal/triage"
)

// DataStore is the persistence surface intake needs.
type DataStore interface {
	CreatePatient(ctx context.Context, p *models.Patient) error
	CreateTicket(ctx context.Context, t *models.Ticket) error
	UpdateTriage(ctx context.Context, ticketID int64, urgency models.Urgency, priorityScore int) error
	AppendAgentLog(ctx context.Context, entry *models.AgentLog) error
}

// Queue receives the triaged ticket for allocation.
type Queue interface {
	Push(priority int, ticketID int64)
}

// Service orchestrates one admission end to end. Submit returns once the
// ticket is queued, not once it is assigned.
type Service struct {
	db        DataStore
	queue     Queue
	reception triage.Agent
	triage    triage.Agent
}

func NewService(db DataStore, queue Queue, reception, triageAgent triage.Agent) *Service {
	return &Service{
		db:        db,
		queue:     queue,
		reception: reception,
		triage:    triageAgent,
	}
}

// Submit creates the patient and ticket records, runs reception and triage,
// and enqueues the ticket at its triaged priority. Agent failures degrade
// to defaults; storage failures abort the admission.
func (s *Service) Submit(ctx context.Context, name string, age int, symptoms string) (int64, error) {
	patient := &models.Patient{Name: name, Age: age, Symptoms: symptoms}
	if err := s.db.CreatePatient(ctx, patient); err != nil {
		return 0, fmt.Errorf("create patient: %w", err)
	}

	ticket := &models.Ticket{
		PatientID:     patient.ID,
		Status:        models.StatusCreated,
		Urgency:       models.UrgencyNormal,
		PriorityScore: 50,
	}
	if err := s.db.CreateTicket(ctx, ticket); err != nil {
		return 0, fmt.Errorf("create ticket: %w", err)
	}

	receptionPrompt := fmt.Sprintf("Register patient: %s, age %d, symptoms: %s", name, age, symptoms)
	receptionOut, err := s.reception.Send(ctx, receptionPrompt)
	if err != nil {
		log.Printf("reception agent failed for ticket %d: %v", ticket.ID, err)
		receptionOut = ""
	}
	s.appendLog(ctx, ticket.ID, "reception", "reception", receptionOut, receptionOut)
	log.Printf("reception completed for %s (ticket %d)", name, ticket.ID)

	triagePrompt := fmt.Sprintf("Patient info: %s. Symptoms: %s. Return JSON {urgency, score, recommended_tests}", receptionOut, symptoms)
	triageOut, err := s.triage.Send(ctx, triagePrompt)
	if err != nil {
		log.Printf("triage agent failed for ticket %d: %v", ticket.ID, err)
		triageOut = ""
	}
	result := triage.ParseResult(triageOut)
	priority := result.Priority()

	if err := s.db.UpdateTriage(ctx, ticket.ID, result.Urgency, priority); err != nil {
		return 0, fmt.Errorf("persist triage: %w", err)
	}

	structured, _ := json.Marshal(struct {
		Urgency          models.Urgency `json:"urgency"`
		Score            int            `json:"score"`
		RecommendedTests []string       `json:"recommended_tests"`
		Fallback         bool           `json:"fallback,omitempty"`
	}{result.Urgency, result.Score, result.RecommendedTests, result.Fallback})
	s.appendLog(ctx, ticket.ID, "triage", "triage", string(structured), triageOut)
	log.Printf("triage done for ticket %d: urgency=%s priority=%d", ticket.ID, result.Urgency, priority)

	s.queue.Push(priority, ticket.ID)
	log.Printf("ticket %d added to queue with priority %d", ticket.ID, priority)
	return ticket.ID, nil
}

// appendLog writes an audit entry; failures are logged, never fatal to the
// admission.
func (s *Service) appendLog(ctx context.Context, ticketID int64, agent, stage, structured, raw string) {
	err := s.db.AppendAgentLog(ctx, &models.AgentLog{
		TicketID:         ticketID,
		AgentName:        agent,
		Stage:            stage,
		StructuredOutput: structured,
		RawMessage:       raw,
	})
	if err != nil {
		log.Printf("failed to append %s log for ticket %d: %v", stage, ticketID, err)
	}
}
