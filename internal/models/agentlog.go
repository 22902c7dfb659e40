package models

import "time"

// AgentLog is an append-only record of agent output per workflow stage.
// Entries are never updated or deleted; they exist purely as an audit trail.
type AgentLog struct {
	ID               int64
	TicketID         int64
	AgentName        string
	Stage            string
	StructuredOutput string
	RawMessage       string
	CreatedAt        time.Time
}
