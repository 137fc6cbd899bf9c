package attendance

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/gymgate/internal/face"
)

// Store contract errors. The Postgres store maps its constraint violations
// onto these; the recorder translates them into the user-facing kinds below.
var (
	// ErrDuplicateOpenRecord is returned by RecordStore.CreateAttendanceRecord
	// when an open record already exists for the (member, session) pair.
	ErrDuplicateOpenRecord = errors.New("open attendance record already exists")
	// ErrRecordNotOpen is returned by RecordStore.CloseAttendanceRecord when
	// the record was already closed (or never existed).
	ErrRecordNotOpen = errors.New("attendance record is not open")
)

// NotEnrolledError means the member has no active face profile.
type NotEnrolledError struct {
	MemberID uuid.UUID
}

func (e *NotEnrolledError) Error() string {
	return fmt.Sprintf("member %s has no active face profile", e.MemberID)
}

// InvalidProbeError wraps a vector validation failure at check-in/check-out.
type InvalidProbeError struct {
	Err error
}

func (e *InvalidProbeError) Error() string { return "invalid probe vector: " + e.Err.Error() }
func (e *InvalidProbeError) Unwrap() error { return e.Err }

// VerificationFailedError means the identity check did not pass. It carries
// the full diagnostic result so the caller can explain the rejection.
type VerificationFailedError struct {
	MemberID uuid.UUID
	Result   face.VerificationResult
}

func (e *VerificationFailedError) Error() string {
	return fmt.Sprintf("face verification failed for member %s: max similarity %.4f, %d of %d reference vectors matched",
		e.MemberID, e.Result.MaxSimilarity, e.Result.MatchedCount, e.Result.RequiredCount)
}

// NotRegisteredError means the member is not on the session roster.
type NotRegisteredError struct {
	MemberID  uuid.UUID
	SessionID uuid.UUID
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("member %s is not registered for session %s", e.MemberID, e.SessionID)
}

// AlreadyCheckedInError means an open record already exists for the pair.
type AlreadyCheckedInError struct {
	MemberID  uuid.UUID
	SessionID uuid.UUID
}

func (e *AlreadyCheckedInError) Error() string {
	return fmt.Sprintf("member %s is already checked in to session %s", e.MemberID, e.SessionID)
}

// OutOfCheckInWindowError means the attempt fell outside the accepted window.
// Carries the window bounds so the UI can say when check-in opens and closes.
type OutOfCheckInWindowError struct {
	At          time.Time
	WindowStart time.Time
	WindowEnd   time.Time
}

func (e *OutOfCheckInWindowError) Error() string {
	return fmt.Sprintf("check-in at %s is outside the window [%s, %s]",
		e.At.Format(time.RFC3339), e.WindowStart.Format(time.RFC3339), e.WindowEnd.Format(time.RFC3339))
}

// NoOpenCheckInError means there is nothing to check out of.
type NoOpenCheckInError struct {
	MemberID  uuid.UUID
	SessionID uuid.UUID
}

func (e *NoOpenCheckInError) Error() string {
	return fmt.Sprintf("member %s has no open check-in for session %s", e.MemberID, e.SessionID)
}

// SessionNotFoundError means the session descriptor could not be resolved.
type SessionNotFoundError struct {
	SessionID uuid.UUID
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session %s not found", e.SessionID)
}
