package models

import (
	"time"

	"github.com/google/uuid"
)

type CheckInStatus string

const (
	CheckInEarly  CheckInStatus = "EARLY"
	CheckInOnTime CheckInStatus = "ON_TIME"
	CheckInLate   CheckInStatus = "LATE"
)

type CheckOutStatus string

const (
	CheckOutOnTime CheckOutStatus = "ON_TIME"
	CheckOutEarly  CheckOutStatus = "EARLY"
)

// AttendanceRecord is one check-in attempt for a (member, session) pair.
// CheckOutTime == nil means the record is still open; at most one open record
// may exist per pair, enforced by a partial unique index in the store.
type AttendanceRecord struct {
	ID                  uuid.UUID      `json:"id" db:"id"`
	MemberID            uuid.UUID      `json:"member_id" db:"member_id"`
	SessionID           uuid.UUID      `json:"session_id" db:"session_id"`
	CheckInTime         time.Time      `json:"check_in_time" db:"check_in_time"`
	CheckInStatus       CheckInStatus  `json:"check_in_status" db:"check_in_status"`
	MinutesLate         int            `json:"minutes_late" db:"minutes_late"`
	CheckOutTime        *time.Time     `json:"check_out_time,omitempty" db:"check_out_time"`
	CheckOutStatus      CheckOutStatus `json:"check_out_status,omitempty" db:"check_out_status"`
	MinutesEarly        int            `json:"minutes_early" db:"minutes_early"`
	Note                string         `json:"note,omitempty" db:"note"`
	CheckInSnapshotKey  string         `json:"-" db:"check_in_snapshot_key"`
	CheckOutSnapshotKey string         `json:"-" db:"check_out_snapshot_key"`
	CreatedAt           time.Time      `json:"created_at" db:"created_at"`
}

// Open reports whether the record has not been checked out yet.
func (r *AttendanceRecord) Open() bool {
	return r.CheckOutTime == nil
}

// CheckoutStamp carries the fields written when a record transitions
// OPEN -> CLOSED, by a member checkout or by the sweeper.
type CheckoutStamp struct {
	Time         time.Time
	Status       CheckOutStatus
	MinutesEarly int
	Note         string
	SnapshotKey  string
}

// Attendance event types published to the queue.
const (
	EventCheckedIn    = "checked_in"
	EventCheckedOut   = "checked_out"
	EventAutoCheckout = "auto_checkout"
)

// AttendanceEvent is the message published to NATS when a record changes state.
type AttendanceEvent struct {
	Type         string    `json:"type"`
	RecordID     uuid.UUID `json:"record_id"`
	MemberID     uuid.UUID `json:"member_id"`
	SessionID    uuid.UUID `json:"session_id"`
	Timestamp    time.Time `json:"timestamp"`
	Status       string    `json:"status"`
	MinutesLate  int       `json:"minutes_late,omitempty"`
	MinutesEarly int       `json:"minutes_early,omitempty"`
	Note         string    `json:"note,omitempty"`
}
