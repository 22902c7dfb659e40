package notify

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Event is the payload broadcast to a doctor's live subscribers.
type Event struct {
	Event    string `json:"event"`
	TicketID int64  `json:"ticket_id"`
}

// Subscriber wraps one WebSocket connection. The write mutex serializes
// broadcasts with the echo loop; gorilla connections allow one writer at a
// time.
type Subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func NewSubscriber(conn *websocket.Conn) *Subscriber {
	return &Subscriber{conn: conn}
}

// WriteJSON sends v on the underlying connection.
func (s *Subscriber) WriteJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

// WriteText sends a text message on the underlying connection.
func (s *Subscriber) WriteText(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

// Hub keeps the registry of live subscribers per doctor. Doctors may hold
// zero or more connections at once; join and leave are dynamic.
type Hub struct {
	mu          sync.Mutex
	subscribers map[int64][]*Subscriber
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[int64][]*Subscriber)}
}

func (h *Hub) Register(doctorID int64, sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[doctorID] = append(h.subscribers[doctorID], sub)
	log.Printf("doctor %d connected via websocket (%d active)", doctorID, len(h.subscribers[doctorID]))
}

func (h *Hub) Unregister(doctorID int64, sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.subscribers[doctorID]
	for i, s := range subs {
		if s == sub {
			h.subscribers[doctorID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(h.subscribers[doctorID]) == 0 {
		delete(h.subscribers, doctorID)
	}
}

// SubscriberCount returns the number of live connections for a doctor.
func (h *Hub) SubscriberCount(doctorID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[doctorID])
}

// Broadcast delivers the event to every current subscriber for the doctor.
// Each delivery is independent: one failed connection never blocks the
// others.
func (h *Hub) Broadcast(doctorID int64, event Event) {
	h.mu.Lock()
	subs := make([]*Subscriber, len(h.subscribers[doctorID]))
	copy(subs, h.subscribers[doctorID])
	h.mu.Unlock()

	for _, sub := range subs {
		if err := sub.WriteJSON(event); err != nil {
			log.Printf("failed to send ws message to doctor %d: %v", doctorID, err)
		}
	}
}
