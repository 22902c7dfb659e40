package triage

import (
	"encoding/json"

	"hospital-dispatch/internal/models"
)

const (
	defaultScore   = 50
	defaultUrgency = models.UrgencyNormal
)

// Result is the parsed triage decision. Fallback marks results where the
// agent output was malformed and the neutral default applied instead.
type Result struct {
	Urgency          models.Urgency
	Score            int
	RecommendedTests []string
	Fallback         bool
}

// Priority converts the classifier's confidence-of-urgency score into the
// queue priority: a higher score yields a lower (more urgent) number.
func (r Result) Priority() int {
	p := 100 - r.Score
	if p < 0 {
		p = 0
	}
	return p
}

// ParseResult interprets raw triage output. Unparseable JSON or an unknown
// urgency level degrades to the default rather than failing intake.
func ParseResult(raw string) Result {
	fallback := Result{Urgency: defaultUrgency, Score: defaultScore, Fallback: true}

	var out struct {
		Urgency          string   `json:"urgency"`
		Score            *float64 `json:"score"`
		RecommendedTests []string `json:"recommended_tests"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return fallback
	}

	score := defaultScore
	if out.Score != nil {
		score = int(*out.Score)
	}
	res := Result{
		Urgency:          models.Urgency(out.Urgency),
		Score:            score,
		RecommendedTests: out.RecommendedTests,
	}
	if !res.Urgency.Valid() {
		res.Urgency = defaultUrgency
	}
	return res
}
