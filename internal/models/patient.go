package models

import "time"

// Patient stores demographic and symptom data captured at intake.
type Patient struct {
	ID        int64
	Name      string
	Age       int
	Symptoms  string
	CreatedAt time.Time
}
