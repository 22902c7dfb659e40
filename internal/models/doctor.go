package models

import "time"

// DefaultMaxPatients applies when a doctor has no explicit limit configured.
const DefaultMaxPatients = 5

// Doctor holds profile data and the concurrent-patient limit.
type Doctor struct {
	ID           int64
	Name         string
	Specialty    string
	MaxPatients  int
	PushoverUser string
	CreatedAt    time.Time
}

// Capacity returns the effective concurrent-patient limit.
func (d *Doctor) Capacity() int {
	if d.MaxPatients > 0 {
		return d.MaxPatients
	}
	return DefaultMaxPatients
}
