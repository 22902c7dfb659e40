package triage

import (
	"context"
	"encoding/json"
	"strings"
)

// MockAgent returns deterministic JSON per role so the system runs offline
// and tests are reproducible.
type MockAgent struct {
	Role string
}

func (m *MockAgent) Send(ctx context.Context, prompt string) (string, error) {
	switch {
	case strings.HasPrefix(strings.ToLower(m.Role), "reception"):
		return marshal(map[string]any{
			"action":     "registered",
			"patient_id": 0,
			"message":    "Patient registered successfully (mock).",
		}), nil

	case strings.HasPrefix(strings.ToLower(m.Role), "triage"):
		urgency := "normal"
		score := 60
		lower := strings.ToLower(prompt)
		if containsAny(lower, "chest pain", "bleeding", "unconscious") {
			urgency = "critical"
			score = 95
		} else if containsAny(lower, "fever", "pain", "infection") {
			urgency = "urgent"
			score = 80
		}
		return marshal(map[string]any{
			"urgency":           urgency,
			"score":             score,
			"recommended_tests": []string{"CBC", "X-Ray"},
		}), nil
	}

	return marshal(map[string]any{"message": "Mock response from " + m.Role}), nil
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func marshal(v map[string]any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
