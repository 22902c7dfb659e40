package models

import "time"

// TicketStatus tracks a ticket through the care workflow.
type TicketStatus string

const (
	StatusCreated            TicketStatus = "created"
	StatusTriageDone         TicketStatus = "triage_done"
	StatusAssigned           TicketStatus = "assigned"
	StatusDiagnosticsOrdered TicketStatus = "diagnostics_ordered"
	StatusPhysicianReview    TicketStatus = "physician_review"
	StatusPharmacy           TicketStatus = "pharmacy"
	StatusBilling            TicketStatus = "billing"
	StatusDischarged         TicketStatus = "discharged"
	StatusCancelled          TicketStatus = "cancelled"
)

// Terminal reports whether the ticket has left the active workflow.
func (s TicketStatus) Terminal() bool {
	return s == StatusDischarged || s == StatusCancelled
}

// Urgency is the triage classification for a ticket.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyUrgent   Urgency = "urgent"
	UrgencyNormal   Urgency = "normal"
)

// Valid reports whether the urgency is one of the known levels.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyCritical, UrgencyUrgent, UrgencyNormal:
		return true
	}
	return false
}

// Ticket tracks patient workflow, doctor assignment, and urgency.
// PriorityScore drives queue order: lower means more urgent.
type Ticket struct {
	ID            int64
	PatientID     int64
	DoctorID      *int64
	Status        TicketStatus
	Urgency       Urgency
	PriorityScore int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Assigned reports whether a doctor has been committed for this ticket.
func (t *Ticket) Assigned() bool {
	return t.DoctorID != nil
}
