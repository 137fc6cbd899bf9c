package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/gymgate/internal/config"
	"github.com/your-org/gymgate/internal/face"
	"github.com/your-org/gymgate/internal/models"
	"github.com/your-org/gymgate/internal/observability"
)

// Recorder owns the check-in/check-out state machine per (member, session):
// NONE -> OPEN -> CLOSED, no reopening.
type Recorder struct {
	profiles ProfileStore
	records  RecordStore
	sessions SessionDirectory
	verifier *face.Verifier
	events   EventPublisher
	cfg      config.AttendanceConfig
}

func NewRecorder(profiles ProfileStore, records RecordStore, sessions SessionDirectory, verifier *face.Verifier, events EventPublisher, cfg config.AttendanceConfig) *Recorder {
	return &Recorder{
		profiles: profiles,
		records:  records,
		sessions: sessions,
		verifier: verifier,
		events:   events,
		cfg:      cfg,
	}
}

// CheckIn verifies the member's identity against the probe vector and opens
// an attendance record. snapshotKey optionally references an audit image
// already stored by the caller.
func (r *Recorder) CheckIn(ctx context.Context, memberID, sessionID uuid.UUID, probe []float32, now time.Time, snapshotKey string) (*models.AttendanceRecord, error) {
	if err := r.verifyIdentity(ctx, memberID, probe); err != nil {
		observability.CheckInFailuresTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	registered, err := r.sessions.IsRegistered(ctx, memberID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("check roster: %w", err)
	}
	if !registered {
		observability.CheckInFailuresTotal.WithLabelValues("not_registered").Inc()
		return nil, &NotRegisteredError{MemberID: memberID, SessionID: sessionID}
	}

	// Early report of an open record. The insert below remains the real
	// guard; this only gives concurrent losers a deterministic error order.
	open, err := r.records.GetOpenRecord(ctx, memberID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("look up open record: %w", err)
	}
	if open != nil {
		observability.CheckInFailuresTotal.WithLabelValues("already_checked_in").Inc()
		return nil, &AlreadyCheckedInError{MemberID: memberID, SessionID: sessionID}
	}

	sess, err := r.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	if sess == nil {
		return nil, &SessionNotFoundError{SessionID: sessionID}
	}

	windowStart := sess.ScheduledStart.Add(-r.cfg.EarlyCheckInWindow)
	if now.Before(windowStart) || now.After(sess.ScheduledEnd) {
		observability.CheckInFailuresTotal.WithLabelValues("out_of_window").Inc()
		return nil, &OutOfCheckInWindowError{At: now, WindowStart: windowStart, WindowEnd: sess.ScheduledEnd}
	}

	status, minutesLate := classifyCheckIn(now, sess.ScheduledStart, r.cfg.OnTimeTolerance)

	rec := &models.AttendanceRecord{
		ID:                 uuid.New(),
		MemberID:           memberID,
		SessionID:          sessionID,
		CheckInTime:        now,
		CheckInStatus:      status,
		MinutesLate:        minutesLate,
		CheckInSnapshotKey: snapshotKey,
	}
	if err := r.records.CreateAttendanceRecord(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicateOpenRecord) {
			observability.CheckInFailuresTotal.WithLabelValues("already_checked_in").Inc()
			return nil, &AlreadyCheckedInError{MemberID: memberID, SessionID: sessionID}
		}
		return nil, fmt.Errorf("create attendance record: %w", err)
	}

	// Fire-and-forget roster side effect; the record is already committed.
	if err := r.sessions.MarkAttended(ctx, memberID, sessionID); err != nil {
		slog.Warn("mark attended", "member_id", memberID, "session_id", sessionID, "error", err)
	}

	slog.Info("member checked in",
		"member_id", memberID,
		"session_id", sessionID,
		"record_id", rec.ID,
		"status", status,
		"minutes_late", minutesLate,
	)
	observability.CheckInsTotal.WithLabelValues(string(status)).Inc()
	r.publish(ctx, &models.AttendanceEvent{
		Type:        models.EventCheckedIn,
		RecordID:    rec.ID,
		MemberID:    memberID,
		SessionID:   sessionID,
		Timestamp:   now,
		Status:      string(status),
		MinutesLate: minutesLate,
	})

	return rec, nil
}

// CheckOut re-verifies the member's identity and closes the open record. The
// person walking out must be re-authenticated, not merely whoever holds the
// session token.
func (r *Recorder) CheckOut(ctx context.Context, memberID, sessionID uuid.UUID, probe []float32, now time.Time, snapshotKey string) (*models.AttendanceRecord, error) {
	if err := r.verifyIdentity(ctx, memberID, probe); err != nil {
		return nil, err
	}

	open, err := r.records.GetOpenRecord(ctx, memberID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("look up open record: %w", err)
	}
	if open == nil {
		return nil, &NoOpenCheckInError{MemberID: memberID, SessionID: sessionID}
	}

	sess, err := r.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	if sess == nil {
		return nil, &SessionNotFoundError{SessionID: sessionID}
	}

	status, minutesEarly := classifyCheckOut(now, sess.ScheduledEnd)

	stamp := models.CheckoutStamp{
		Time:         now,
		Status:       status,
		MinutesEarly: minutesEarly,
		SnapshotKey:  snapshotKey,
	}
	if err := r.records.CloseAttendanceRecord(ctx, open.ID, stamp); err != nil {
		if errors.Is(err, ErrRecordNotOpen) {
			// The sweeper (or a duplicate request) closed it first.
			return nil, &NoOpenCheckInError{MemberID: memberID, SessionID: sessionID}
		}
		return nil, fmt.Errorf("close attendance record: %w", err)
	}

	closed := *open
	closed.CheckOutTime = &stamp.Time
	closed.CheckOutStatus = status
	closed.MinutesEarly = minutesEarly
	closed.CheckOutSnapshotKey = snapshotKey

	slog.Info("member checked out",
		"member_id", memberID,
		"session_id", sessionID,
		"record_id", closed.ID,
		"status", status,
		"minutes_early", minutesEarly,
	)
	observability.CheckOutsTotal.WithLabelValues("member").Inc()
	r.publish(ctx, &models.AttendanceEvent{
		Type:         models.EventCheckedOut,
		RecordID:     closed.ID,
		MemberID:     memberID,
		SessionID:    sessionID,
		Timestamp:    now,
		Status:       string(status),
		MinutesEarly: minutesEarly,
	})

	return &closed, nil
}

// History returns the member's attendance records, newest first, with the
// total count for pagination.
func (r *Recorder) History(ctx context.Context, memberID uuid.UUID, from, to *time.Time, limit, offset int) ([]models.AttendanceRecord, int, error) {
	return r.records.ListAttendance(ctx, memberID, from, to, limit, offset)
}

// verifyIdentity runs the shared enrollment + probe + match preconditions of
// check-in and check-out, in order.
func (r *Recorder) verifyIdentity(ctx context.Context, memberID uuid.UUID, probe []float32) error {
	profile, err := r.profiles.GetFaceProfile(ctx, memberID)
	if err != nil {
		return fmt.Errorf("load face profile: %w", err)
	}
	if profile == nil || !profile.IsActive {
		return &NotEnrolledError{MemberID: memberID}
	}

	result, err := r.verifier.Verify(profile, probe)
	if err != nil {
		return &InvalidProbeError{Err: err}
	}
	if !result.IsMatch {
		return &VerificationFailedError{MemberID: memberID, Result: result}
	}
	return nil
}

func (r *Recorder) publish(ctx context.Context, event *models.AttendanceEvent) {
	if r.events == nil {
		return
	}
	if err := r.events.PublishAttendance(ctx, event.SessionID, event); err != nil {
		slog.Warn("publish attendance event", "type", event.Type, "record_id", event.RecordID, "error", err)
	}
}

// classifyCheckIn buckets a check-in relative to the scheduled start.
// Within +/- tolerance it is ON_TIME; before that EARLY; after it LATE with
// the rounded lateness in minutes.
func classifyCheckIn(now, scheduledStart time.Time, tolerance time.Duration) (models.CheckInStatus, int) {
	diff := roundMinutes(now.Sub(scheduledStart))
	tol := roundMinutes(tolerance)

	switch {
	case diff < -tol:
		return models.CheckInEarly, 0
	case diff > tol:
		return models.CheckInLate, diff
	default:
		return models.CheckInOnTime, 0
	}
}

// classifyCheckOut stamps a checkout relative to the scheduled end. Leaving
// early is not penalized with a distinct label; only the magnitude is kept.
func classifyCheckOut(now, scheduledEnd time.Time) (models.CheckOutStatus, int) {
	minutesEarly := roundMinutes(scheduledEnd.Sub(now))
	if minutesEarly < 0 {
		minutesEarly = 0
	}
	return models.CheckOutOnTime, minutesEarly
}

func roundMinutes(d time.Duration) int {
	return int(math.Round(d.Minutes()))
}

func failureReason(err error) string {
	var notEnrolled *NotEnrolledError
	var invalidProbe *InvalidProbeError
	var verificationFailed *VerificationFailedError
	switch {
	case errors.As(err, &notEnrolled):
		return "not_enrolled"
	case errors.As(err, &invalidProbe):
		return "invalid_probe"
	case errors.As(err, &verificationFailed):
		return "verification_failed"
	default:
		return "other"
	}
}
