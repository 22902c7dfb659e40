// Package triage runs the reception and triage agents and turns their
// output into a queue priority. Classification is advisory: anything the
// agents get wrong degrades to a neutral default, never a failed intake.
package triage

import (
	"context"
	"fmt"

	"hospital-dispatch/internal/config"
)

// Agent is a single conversational role. Send returns the raw response
// text, usually JSON.
type Agent interface {
	Send(ctx context.Context, prompt string) (string, error)
}

// System prompts per role, used by the LLM-backed agent.
var systemPrompts = map[string]string{
	"reception": "You are ReceptionAgent. Register the patient and return JSON with fields: action, patient_id, message.",
	"triage":    "You are TriageAgent. Given patient symptoms, return urgency (critical/urgent/normal), score 0-100, and recommended_tests as JSON.",
}

// NewAgent builds an agent for the given role from config. Unknown
// providers are an error so a typo doesn't silently fall back to mocks.
func NewAgent(cfg config.AgentConfig, role string) (Agent, error) {
	switch cfg.Provider {
	case "mock":
		return &MockAgent{Role: role}, nil
	case "anthropic":
		return NewAnthropicAgent(cfg, role)
	default:
		return nil, fmt.Errorf("unknown agent provider %q", cfg.Provider)
	}
}
