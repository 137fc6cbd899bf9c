package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/gymgate/internal/config"
	"github.com/your-org/gymgate/internal/models"
	"github.com/your-org/gymgate/internal/observability"
)

// SweepReport summarizes one sweep pass.
type SweepReport struct {
	Scanned  int            `json:"scanned"`
	Closed   int            `json:"closed"`
	Skipped  int            `json:"skipped"`
	Closures []SweepClosure `json:"closures,omitempty"`
	Skips    []SweepSkip    `json:"skips,omitempty"`
}

// SweepClosure is one record force-closed by the sweeper.
type SweepClosure struct {
	RecordID     uuid.UUID `json:"record_id"`
	MemberID     uuid.UUID `json:"member_id"`
	SessionID    uuid.UUID `json:"session_id"`
	ScheduledEnd time.Time `json:"scheduled_end"`
	ClosedAt     time.Time `json:"closed_at"`
	HoursLate    float64   `json:"hours_late"`
}

// SweepSkip is one open record the sweeper could not process this pass.
type SweepSkip struct {
	RecordID uuid.UUID `json:"record_id"`
	Reason   string    `json:"reason"`
}

// AutoCheckoutNote marks records the sweeper closed on the member's behalf.
const AutoCheckoutNote = "auto-checkout: forgotten by member"

// Sweeper force-closes attendance records left open long past their session's
// scheduled end. Sweeping is a compensating action for members who forget to
// check out, not error recovery; it is safe to re-run indefinitely.
type Sweeper struct {
	records  RecordStore
	sessions SessionDirectory
	events   EventPublisher
	cfg      config.SweeperConfig
	clock    func() time.Time
}

func NewSweeper(records RecordStore, sessions SessionDirectory, events EventPublisher, cfg config.SweeperConfig) *Sweeper {
	return &Sweeper{
		records:  records,
		sessions: sessions,
		events:   events,
		cfg:      cfg,
		clock:    time.Now,
	}
}

// SetClock overrides the sweeper's clock. Tests use this to pin time.
func (s *Sweeper) SetClock(clock func() time.Time) {
	s.clock = clock
}

// Sweep scans all open records and closes those past their auto-checkout
// deadline (scheduled end + grace). A record whose session cannot be resolved
// is reported and skipped; it never aborts the rest of the pass. Closed
// records leave the scan set by construction, so re-running with the same
// clock is a no-op.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (*SweepReport, error) {
	open, err := s.records.ListOpenRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open records: %w", err)
	}

	report := &SweepReport{}
	for i := range open {
		rec := &open[i]
		report.Scanned++

		sess, err := s.sessions.GetSession(ctx, rec.SessionID)
		if err != nil {
			s.skip(report, rec, fmt.Sprintf("resolve session %s: %v", rec.SessionID, err))
			continue
		}
		if sess == nil {
			s.skip(report, rec, fmt.Sprintf("session %s not found", rec.SessionID))
			continue
		}

		deadline := sess.ScheduledEnd.Add(s.cfg.AutoCheckoutGrace)
		if now.Before(deadline) {
			continue
		}

		status, minutesEarly := classifyCheckOut(now, sess.ScheduledEnd)
		stamp := models.CheckoutStamp{
			Time:         now,
			Status:       status,
			MinutesEarly: minutesEarly,
			Note:         AutoCheckoutNote,
		}
		if err := s.records.CloseAttendanceRecord(ctx, rec.ID, stamp); err != nil {
			if errors.Is(err, ErrRecordNotOpen) {
				// A manual checkout committed between the scan and this
				// write. Whoever wrote first wins; nothing to do.
				continue
			}
			s.skip(report, rec, fmt.Sprintf("close record: %v", err))
			continue
		}

		hoursLate := now.Sub(sess.ScheduledEnd).Hours()
		report.Closed++
		report.Closures = append(report.Closures, SweepClosure{
			RecordID:     rec.ID,
			MemberID:     rec.MemberID,
			SessionID:    rec.SessionID,
			ScheduledEnd: sess.ScheduledEnd,
			ClosedAt:     now,
			HoursLate:    hoursLate,
		})

		slog.Info("auto-checkout",
			"record_id", rec.ID,
			"member_id", rec.MemberID,
			"session_id", rec.SessionID,
			"scheduled_end", sess.ScheduledEnd,
			"closed_at", now,
			"hours_late", hoursLate,
		)
		observability.SweepClosedTotal.Inc()
		observability.CheckOutsTotal.WithLabelValues("sweeper").Inc()
		if s.events != nil {
			event := &models.AttendanceEvent{
				Type:         models.EventAutoCheckout,
				RecordID:     rec.ID,
				MemberID:     rec.MemberID,
				SessionID:    rec.SessionID,
				Timestamp:    now,
				Status:       string(status),
				MinutesEarly: minutesEarly,
				Note:         AutoCheckoutNote,
			}
			if err := s.events.PublishAttendance(ctx, rec.SessionID, event); err != nil {
				slog.Warn("publish auto-checkout event", "record_id", rec.ID, "error", err)
			}
		}
	}

	observability.OpenRecords.Set(float64(report.Scanned - report.Closed))
	return report, nil
}

func (s *Sweeper) skip(report *SweepReport, rec *models.AttendanceRecord, reason string) {
	report.Skipped++
	report.Skips = append(report.Skips, SweepSkip{RecordID: rec.ID, Reason: reason})
	slog.Warn("sweep skip", "record_id", rec.ID, "reason", reason)
	observability.SweepSkippedTotal.Inc()
}

// Run executes sweep passes at the configured interval until ctx is done.
// Passes never overlap: each runs to completion in this goroutine, and a tick
// that arrived while a pass was still running is dropped instead of queued.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	slog.Info("sweeper started", "interval", s.cfg.Interval, "grace", s.cfg.AutoCheckoutGrace)

	for {
		select {
		case <-ctx.Done():
			slog.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
			select {
			case <-ticker.C:
			default:
			}
		}
	}
}

func (s *Sweeper) runOnce(ctx context.Context) {
	started := time.Now()
	observability.SweepRunsTotal.Inc()

	report, err := s.Sweep(ctx, s.clock())
	if err != nil {
		slog.Error("sweep pass failed", "error", err)
		return
	}

	observability.SweepDuration.Observe(time.Since(started).Seconds())
	if report.Closed > 0 || report.Skipped > 0 {
		slog.Info("sweep pass",
			"scanned", report.Scanned,
			"closed", report.Closed,
			"skipped", report.Skipped,
		)
	} else {
		slog.Debug("sweep pass", "scanned", report.Scanned)
	}
}
