package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is the scheduled training session descriptor. Scheduling itself is
// owned elsewhere; this service only needs the time window to classify
// check-ins and drive the auto-checkout sweep.
type Session struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	ScheduledStart time.Time `json:"scheduled_start" db:"scheduled_start"`
	ScheduledEnd   time.Time `json:"scheduled_end" db:"scheduled_end"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Registration is a roster entry for a session.
type Registration struct {
	SessionID uuid.UUID `json:"session_id" db:"session_id"`
	MemberID  uuid.UUID `json:"member_id" db:"member_id"`
	Attended  bool      `json:"attended" db:"attended"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
