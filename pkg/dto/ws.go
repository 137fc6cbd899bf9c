package dto

import "github.com/google/uuid"

// WSEvent is the envelope broadcast to WebSocket clients when an attendance
// record changes state.
type WSEvent struct {
	Type      string      `json:"type"`
	SessionID uuid.UUID   `json:"session_id"`
	Data      interface{} `json:"data"`
}
