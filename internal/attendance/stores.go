package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/gymgate/internal/models"
)

// ProfileStore resolves a member's enrolled face profile.
// Implementations return (nil, nil) when no profile exists.
type ProfileStore interface {
	GetFaceProfile(ctx context.Context, memberID uuid.UUID) (*models.FaceProfile, error)
}

// RecordStore persists attendance records. CreateAttendanceRecord must be
// atomic with respect to concurrent check-ins for the same (member, session)
// pair: when an open record already exists the insert itself fails with
// ErrDuplicateOpenRecord, never a read-then-write in application code.
type RecordStore interface {
	CreateAttendanceRecord(ctx context.Context, rec *models.AttendanceRecord) error
	// CloseAttendanceRecord transitions OPEN -> CLOSED. Returns
	// ErrRecordNotOpen when the record was already closed; callers treat
	// that as losing a benign race, not corruption.
	CloseAttendanceRecord(ctx context.Context, id uuid.UUID, stamp models.CheckoutStamp) error
	GetOpenRecord(ctx context.Context, memberID, sessionID uuid.UUID) (*models.AttendanceRecord, error)
	ListOpenRecords(ctx context.Context) ([]models.AttendanceRecord, error)
	ListAttendance(ctx context.Context, memberID uuid.UUID, from, to *time.Time, limit, offset int) ([]models.AttendanceRecord, int, error)
}

// SessionDirectory is the external session/roster collaborator.
// GetSession returns (nil, nil) when the session does not exist.
type SessionDirectory interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	IsRegistered(ctx context.Context, memberID, sessionID uuid.UUID) (bool, error)
	MarkAttended(ctx context.Context, memberID, sessionID uuid.UUID) error
}

// EventPublisher fans attendance state changes out to the event bus.
type EventPublisher interface {
	PublishAttendance(ctx context.Context, sessionID uuid.UUID, event *models.AttendanceEvent) error
}
