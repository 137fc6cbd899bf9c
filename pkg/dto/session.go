package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	Name           string    `json:"name" binding:"required"`
	ScheduledStart time.Time `json:"scheduled_start" binding:"required"`
	ScheduledEnd   time.Time `json:"scheduled_end" binding:"required"`
}

type SessionResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	ScheduledStart string    `json:"scheduled_start"`
	ScheduledEnd   string    `json:"scheduled_end"`
	CreatedAt      string    `json:"created_at"`
}

type RegisterRequest struct {
	MemberID uuid.UUID `json:"member_id" binding:"required"`
}

type RosterEntry struct {
	MemberID uuid.UUID `json:"member_id"`
	Attended bool      `json:"attended"`
}
