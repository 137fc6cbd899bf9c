package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/your-org/gymgate/internal/models"
)

type CheckInRequest struct {
	MemberID  uuid.UUID `json:"member_id" binding:"required"`
	SessionID uuid.UUID `json:"session_id" binding:"required"`
	Vector    []float32 `json:"vector" binding:"required"`
	// Snapshot is an optional base64-encoded audit image of the capture.
	Snapshot string `json:"snapshot,omitempty"`
}

type CheckOutRequest struct {
	MemberID  uuid.UUID `json:"member_id" binding:"required"`
	SessionID uuid.UUID `json:"session_id" binding:"required"`
	Vector    []float32 `json:"vector" binding:"required"`
	Snapshot  string    `json:"snapshot,omitempty"`
}

type AttendanceResponse struct {
	ID             uuid.UUID `json:"id"`
	MemberID       uuid.UUID `json:"member_id"`
	SessionID      uuid.UUID `json:"session_id"`
	CheckInTime    string    `json:"check_in_time"`
	CheckInStatus  string    `json:"check_in_status"`
	MinutesLate    int       `json:"minutes_late"`
	CheckOutTime   *string   `json:"check_out_time,omitempty"`
	CheckOutStatus string    `json:"check_out_status,omitempty"`
	MinutesEarly   int       `json:"minutes_early"`
	Note           string    `json:"note,omitempty"`
	SnapshotURL    string    `json:"snapshot_url,omitempty"`
}

func NewAttendanceResponse(rec *models.AttendanceRecord) AttendanceResponse {
	resp := AttendanceResponse{
		ID:            rec.ID,
		MemberID:      rec.MemberID,
		SessionID:     rec.SessionID,
		CheckInTime:   rec.CheckInTime.Format(time.RFC3339),
		CheckInStatus: string(rec.CheckInStatus),
		MinutesLate:   rec.MinutesLate,
		MinutesEarly:  rec.MinutesEarly,
		Note:          rec.Note,
	}
	if rec.CheckOutTime != nil {
		s := rec.CheckOutTime.Format(time.RFC3339)
		resp.CheckOutTime = &s
		resp.CheckOutStatus = string(rec.CheckOutStatus)
	}
	if rec.CheckInSnapshotKey != "" {
		resp.SnapshotURL = "/v1/attendance/" + rec.ID.String() + "/snapshot"
	}
	return resp
}

type AttendanceListResponse struct {
	Records []AttendanceResponse `json:"records"`
	Total   int                  `json:"total"`
}
