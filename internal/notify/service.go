package notify

import (
	"context"
	"fmt"

	"hospital-dispatch/internal/models"
)

// Service is the notification sink the allocation engine talks to. Both
// channels are fire-and-forget.
type Service struct {
	pusher Pusher
	hub    *Hub
}

func NewService(pusher Pusher, hub *Hub) *Service {
	return &Service{pusher: pusher, hub: hub}
}

// NotifyAssigned announces a committed assignment: a push notification to
// the doctor's device and a broadcast to their live subscribers.
func (s *Service) NotifyAssigned(ctx context.Context, doctor *models.Doctor, ticketID int64) {
	s.pusher.Push(doctor.PushoverUser,
		"New Patient Assigned",
		fmt.Sprintf("Ticket %d assigned to you", ticketID))

	s.hub.Broadcast(doctor.ID, Event{Event: "ticket_assigned", TicketID: ticketID})
}
