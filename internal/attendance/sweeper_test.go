package attendance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/gymgate/internal/attendance"
	"github.com/your-org/gymgate/internal/config"
	"github.com/your-org/gymgate/internal/models"
	"github.com/your-org/gymgate/internal/storage/mock"
)

func sweeperConfig() config.SweeperConfig {
	return config.SweeperConfig{
		Interval:          2 * time.Minute,
		AutoCheckoutGrace: 3 * time.Hour,
	}
}

// openRecord inserts an open attendance record directly into the store.
func openRecord(t *testing.T, store *mock.Store, sessionID uuid.UUID, checkIn time.Time) *models.AttendanceRecord {
	t.Helper()
	rec := &models.AttendanceRecord{
		ID:            uuid.New(),
		MemberID:      uuid.New(),
		SessionID:     sessionID,
		CheckInTime:   checkIn,
		CheckInStatus: models.CheckInOnTime,
	}
	if err := store.CreateAttendanceRecord(context.Background(), rec); err != nil {
		t.Fatalf("seed open record: %v", err)
	}
	return rec
}

func addSession(store *mock.Store, start, end time.Time) *models.Session {
	sess := &models.Session{
		ID:             uuid.New(),
		Name:           "morning class",
		ScheduledStart: start,
		ScheduledEnd:   end,
	}
	store.AddSession(sess)
	return sess
}

func TestSweepClosesForgottenRecords(t *testing.T) {
	// Session ends 10:00, grace 3h, so the auto-checkout deadline is 13:00.
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		now        time.Time
		wantClosed int
	}{
		{"before deadline", end.Add(3*time.Hour - time.Minute), 0},
		{"exactly at deadline", end.Add(3 * time.Hour), 1},
		{"past deadline", end.Add(3*time.Hour + time.Minute), 1},
		{"long past deadline", end.Add(48 * time.Hour), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mock.NewStore()
			events := &capturedEvents{}
			sess := addSession(store, start, end)
			rec := openRecord(t, store, sess.ID, start)

			sweeper := attendance.NewSweeper(store, store, events, sweeperConfig())
			report, err := sweeper.Sweep(context.Background(), tt.now)
			if err != nil {
				t.Fatalf("Sweep() error = %v", err)
			}

			if report.Scanned != 1 {
				t.Errorf("scanned = %d, want 1", report.Scanned)
			}
			if report.Closed != tt.wantClosed {
				t.Errorf("closed = %d, want %d", report.Closed, tt.wantClosed)
			}

			stored, err := store.GetAttendanceRecord(context.Background(), rec.ID)
			if err != nil {
				t.Fatal(err)
			}
			if tt.wantClosed == 0 {
				if !stored.Open() {
					t.Error("record closed before the deadline")
				}
				return
			}

			if stored.Open() {
				t.Fatal("record still open after sweep")
			}
			if !stored.CheckOutTime.Equal(tt.now) {
				t.Errorf("checkout time = %v, want %v", stored.CheckOutTime, tt.now)
			}
			if stored.Note != attendance.AutoCheckoutNote {
				t.Errorf("note = %q, want %q", stored.Note, attendance.AutoCheckoutNote)
			}
			if stored.CheckOutStatus != models.CheckOutOnTime {
				t.Errorf("checkout status = %s, want %s", stored.CheckOutStatus, models.CheckOutOnTime)
			}
			if stored.MinutesEarly != 0 {
				t.Errorf("minutes early = %d, want 0", stored.MinutesEarly)
			}

			got := events.types()
			if len(got) != 1 || got[0] != models.EventAutoCheckout {
				t.Errorf("published events = %v, want [%s]", got, models.EventAutoCheckout)
			}
		})
	}
}

func TestSweepIdempotent(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	now := end.Add(4 * time.Hour)

	store := mock.NewStore()
	events := &capturedEvents{}
	sess := addSession(store, start, end)
	openRecord(t, store, sess.ID, start)

	sweeper := attendance.NewSweeper(store, store, events, sweeperConfig())

	first, err := sweeper.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("first Sweep() error = %v", err)
	}
	if first.Closed != 1 {
		t.Fatalf("first sweep closed %d, want 1", first.Closed)
	}

	second, err := sweeper.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("second Sweep() error = %v", err)
	}
	if second.Scanned != 0 || second.Closed != 0 {
		t.Errorf("second sweep scanned %d closed %d, want 0/0", second.Scanned, second.Closed)
	}
	if got := events.types(); len(got) != 1 {
		t.Errorf("events published = %d, want 1", len(got))
	}
}

func TestSweepSkipIsolation(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	now := end.Add(4 * time.Hour)

	store := mock.NewStore()
	events := &capturedEvents{}
	sess := addSession(store, start, end)

	// One record references a session nobody can resolve; the other is
	// ordinary. The broken one must not take the pass down with it.
	orphan := openRecord(t, store, uuid.New(), start)
	healthy := openRecord(t, store, sess.ID, start.Add(time.Minute))

	sweeper := attendance.NewSweeper(store, store, events, sweeperConfig())
	report, err := sweeper.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}

	if report.Scanned != 2 || report.Closed != 1 || report.Skipped != 1 {
		t.Errorf("report = scanned %d closed %d skipped %d, want 2/1/1",
			report.Scanned, report.Closed, report.Skipped)
	}
	if len(report.Skips) != 1 || report.Skips[0].RecordID != orphan.ID {
		t.Errorf("skips = %+v, want the orphan record", report.Skips)
	}

	stored, err := store.GetAttendanceRecord(context.Background(), healthy.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Open() {
		t.Error("healthy record not closed")
	}

	orphanStored, err := store.GetAttendanceRecord(context.Background(), orphan.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !orphanStored.Open() {
		t.Error("orphan record should remain open")
	}
}

func TestSweepManualCheckoutWins(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	now := end.Add(4 * time.Hour)

	store := mock.NewStore()
	events := &capturedEvents{}
	sess := addSession(store, start, end)
	rec := openRecord(t, store, sess.ID, start)

	// A manual checkout lands before the sweep pass.
	stamp := models.CheckoutStamp{Time: end, Status: models.CheckOutOnTime}
	if err := store.CloseAttendanceRecord(context.Background(), rec.ID, stamp); err != nil {
		t.Fatal(err)
	}

	sweeper := attendance.NewSweeper(store, store, events, sweeperConfig())
	report, err := sweeper.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if report.Scanned != 0 || report.Closed != 0 {
		t.Errorf("report = scanned %d closed %d, want 0/0", report.Scanned, report.Closed)
	}

	stored, err := store.GetAttendanceRecord(context.Background(), rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Note != "" {
		t.Errorf("manual checkout overwritten with note %q", stored.Note)
	}
	if !stored.CheckOutTime.Equal(end) {
		t.Errorf("checkout time = %v, want the manual %v", stored.CheckOutTime, end)
	}
}

func TestSweepListFailure(t *testing.T) {
	store := mock.NewStore()
	store.RecordError = errors.New("connection reset")

	sweeper := attendance.NewSweeper(store, store, &capturedEvents{}, sweeperConfig())
	_, err := sweeper.Sweep(context.Background(), time.Now())
	if !errors.Is(err, store.RecordError) {
		t.Errorf("error = %v, want wrapped %v", err, store.RecordError)
	}
}

func TestSweepSessionLookupFailure(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	now := end.Add(4 * time.Hour)

	store := mock.NewStore()
	events := &capturedEvents{}
	sess := addSession(store, start, end)
	rec := openRecord(t, store, sess.ID, start)
	store.SessionError = errors.New("connection reset")

	sweeper := attendance.NewSweeper(store, store, events, sweeperConfig())
	report, err := sweeper.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}

	if report.Scanned != 1 || report.Closed != 0 || report.Skipped != 1 {
		t.Errorf("report = scanned %d closed %d skipped %d, want 1/0/1",
			report.Scanned, report.Closed, report.Skipped)
	}
	if got := events.types(); len(got) != 0 {
		t.Errorf("events published = %v, want none", got)
	}

	stored, err := store.GetAttendanceRecord(context.Background(), rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.Open() {
		t.Error("record must stay open when its session cannot be resolved")
	}
}

type closeFailingStore struct {
	*mock.Store
	closeErr error
}

func (s *closeFailingStore) CloseAttendanceRecord(ctx context.Context, id uuid.UUID, stamp models.CheckoutStamp) error {
	return s.closeErr
}

func TestSweepCloseFailure(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	now := end.Add(4 * time.Hour)

	store := mock.NewStore()
	events := &capturedEvents{}
	sess := addSession(store, start, end)
	rec := openRecord(t, store, sess.ID, start)

	failing := &closeFailingStore{Store: store, closeErr: errors.New("connection reset")}
	sweeper := attendance.NewSweeper(failing, store, events, sweeperConfig())

	report, err := sweeper.Sweep(context.Background(), now)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}

	if report.Scanned != 1 || report.Closed != 0 || report.Skipped != 1 {
		t.Errorf("report = scanned %d closed %d skipped %d, want 1/0/1",
			report.Scanned, report.Closed, report.Skipped)
	}
	if got := events.types(); len(got) != 0 {
		t.Errorf("events published = %v, want none", got)
	}

	stored, err := store.GetAttendanceRecord(context.Background(), rec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.Open() {
		t.Error("record must stay open when the close fails")
	}
}

func TestSweepEmptyStore(t *testing.T) {
	store := mock.NewStore()
	sweeper := attendance.NewSweeper(store, store, &capturedEvents{}, sweeperConfig())

	report, err := sweeper.Sweep(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if report.Scanned != 0 || report.Closed != 0 || report.Skipped != 0 {
		t.Errorf("report on empty store = %+v, want all zero", report)
	}
}
