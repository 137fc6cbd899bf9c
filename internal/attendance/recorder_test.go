package attendance_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/gymgate/internal/attendance"
	"github.com/your-org/gymgate/internal/config"
	"github.com/your-org/gymgate/internal/face"
	"github.com/your-org/gymgate/internal/models"
	"github.com/your-org/gymgate/internal/storage/mock"
)

// vec builds a face.Dim-length vector from the leading components.
func vec(components ...float32) []float32 {
	v := make([]float32, face.Dim)
	copy(v, components)
	return v
}

// Enrollment samples that pass the consistency check (all norm 20, pairwise
// cosines 0.65, 0.97, 0.8). sample2 doubles as a matching probe; strangerProbe
// is orthogonal to all of them.
var (
	sample1       = vec(20)
	sample2       = vec(13, 15, 2, 1, 1)
	sample3       = vec(16, 12)
	strangerProbe = vec(0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 7)
)

type capturedEvents struct {
	mu     sync.Mutex
	events []*models.AttendanceEvent
	err    error
}

func (c *capturedEvents) PublishAttendance(ctx context.Context, sessionID uuid.UUID, event *models.AttendanceEvent) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *capturedEvents) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]string, len(c.events))
	for i, e := range c.events {
		types[i] = e.Type
	}
	return types
}

func verificationConfig() config.VerificationConfig {
	return config.VerificationConfig{
		MatchThreshold:                 0.85,
		EnrollmentConsistencyThreshold: 0.65,
		MinVectorMatches:               2,
	}
}

func attendanceConfig() config.AttendanceConfig {
	return config.AttendanceConfig{
		EarlyCheckInWindow: 30 * time.Minute,
		OnTimeTolerance:    5 * time.Minute,
	}
}

type fixture struct {
	store    *mock.Store
	events   *capturedEvents
	recorder *attendance.Recorder
	memberID uuid.UUID
	session  *models.Session
}

// newFixture builds a recorder with one enrolled member registered for a
// session running 18:00-19:00 UTC.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := mock.NewStore()
	events := &capturedEvents{}

	verifier := face.NewVerifier(verificationConfig())
	enroller := face.NewEnroller(store, verificationConfig())
	recorder := attendance.NewRecorder(store, store, store, verifier, events, attendanceConfig())

	memberID := uuid.New()
	if _, err := enroller.Enroll(ctx, memberID, [][]float32{sample1, sample2, sample3}); err != nil {
		t.Fatalf("enroll fixture member: %v", err)
	}

	session := &models.Session{
		ID:             uuid.New(),
		Name:           "evening strength",
		ScheduledStart: time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC),
		ScheduledEnd:   time.Date(2026, 3, 10, 19, 0, 0, 0, time.UTC),
	}
	store.AddSession(session)
	if err := store.RegisterMember(ctx, memberID, session.ID); err != nil {
		t.Fatalf("register fixture member: %v", err)
	}

	return &fixture{
		store:    store,
		events:   events,
		recorder: recorder,
		memberID: memberID,
		session:  session,
	}
}

func TestCheckInClassification(t *testing.T) {
	tests := []struct {
		name        string
		offset      time.Duration
		wantStatus  models.CheckInStatus
		wantMinutes int
	}{
		{"at window open", -30 * time.Minute, models.CheckInEarly, 0},
		{"ten minutes early", -10 * time.Minute, models.CheckInEarly, 0},
		{"six minutes early", -6 * time.Minute, models.CheckInEarly, 0},
		{"five minutes early", -5 * time.Minute, models.CheckInOnTime, 0},
		{"four minutes early", -4 * time.Minute, models.CheckInOnTime, 0},
		{"exactly on time", 0, models.CheckInOnTime, 0},
		{"five minutes late", 5 * time.Minute, models.CheckInOnTime, 0},
		{"six minutes late", 6 * time.Minute, models.CheckInLate, 6},
		{"thirty minutes late", 30 * time.Minute, models.CheckInLate, 30},
		{"at scheduled end", 60 * time.Minute, models.CheckInLate, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			now := f.session.ScheduledStart.Add(tt.offset)

			rec, err := f.recorder.CheckIn(context.Background(), f.memberID, f.session.ID, sample2, now, "")
			if err != nil {
				t.Fatalf("CheckIn() error = %v", err)
			}
			if rec.CheckInStatus != tt.wantStatus {
				t.Errorf("status = %s, want %s", rec.CheckInStatus, tt.wantStatus)
			}
			if rec.MinutesLate != tt.wantMinutes {
				t.Errorf("minutes late = %d, want %d", rec.MinutesLate, tt.wantMinutes)
			}
			if !rec.Open() {
				t.Error("fresh check-in should leave the record open")
			}
		})
	}
}

func TestCheckInOutsideWindow(t *testing.T) {
	tests := []struct {
		name   string
		offset time.Duration
	}{
		{"one minute before window opens", -31 * time.Minute},
		{"an hour before window opens", -90 * time.Minute},
		{"one minute after scheduled end", 61 * time.Minute},
		{"next day", 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			now := f.session.ScheduledStart.Add(tt.offset)

			_, err := f.recorder.CheckIn(context.Background(), f.memberID, f.session.ID, sample2, now, "")
			var winErr *attendance.OutOfCheckInWindowError
			if !errors.As(err, &winErr) {
				t.Fatalf("error = %v (%T), want *OutOfCheckInWindowError", err, err)
			}
			if !winErr.WindowStart.Equal(f.session.ScheduledStart.Add(-30 * time.Minute)) {
				t.Errorf("WindowStart = %v, want scheduled start - 30m", winErr.WindowStart)
			}
			if !winErr.WindowEnd.Equal(f.session.ScheduledEnd) {
				t.Errorf("WindowEnd = %v, want scheduled end", winErr.WindowEnd)
			}
		})
	}
}

func TestCheckInPreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("not enrolled", func(t *testing.T) {
		f := newFixture(t)
		stranger := uuid.New()
		if err := f.store.RegisterMember(ctx, stranger, f.session.ID); err != nil {
			t.Fatal(err)
		}

		_, err := f.recorder.CheckIn(ctx, stranger, f.session.ID, sample2, f.session.ScheduledStart, "")
		var notEnrolled *attendance.NotEnrolledError
		if !errors.As(err, &notEnrolled) {
			t.Errorf("error = %v (%T), want *NotEnrolledError", err, err)
		}
	})

	t.Run("verification failure", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.recorder.CheckIn(ctx, f.memberID, f.session.ID, strangerProbe, f.session.ScheduledStart, "")
		var failed *attendance.VerificationFailedError
		if !errors.As(err, &failed) {
			t.Fatalf("error = %v (%T), want *VerificationFailedError", err, err)
		}
		if failed.Result.IsMatch {
			t.Error("carried result claims a match")
		}
	})

	t.Run("malformed probe", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.recorder.CheckIn(ctx, f.memberID, f.session.ID, []float32{1, 2}, f.session.ScheduledStart, "")
		var invalid *attendance.InvalidProbeError
		if !errors.As(err, &invalid) {
			t.Errorf("error = %v (%T), want *InvalidProbeError", err, err)
		}
	})

	t.Run("not registered", func(t *testing.T) {
		f := newFixture(t)
		other := &models.Session{
			ID:             uuid.New(),
			Name:           "yoga",
			ScheduledStart: f.session.ScheduledStart,
			ScheduledEnd:   f.session.ScheduledEnd,
		}
		f.store.AddSession(other)

		_, err := f.recorder.CheckIn(ctx, f.memberID, other.ID, sample2, f.session.ScheduledStart, "")
		var notReg *attendance.NotRegisteredError
		if !errors.As(err, &notReg) {
			t.Errorf("error = %v (%T), want *NotRegisteredError", err, err)
		}
	})

	t.Run("session not found", func(t *testing.T) {
		f := newFixture(t)
		ghost := uuid.New()
		if err := f.store.RegisterMember(ctx, f.memberID, ghost); err != nil {
			t.Fatal(err)
		}

		_, err := f.recorder.CheckIn(ctx, f.memberID, ghost, sample2, f.session.ScheduledStart, "")
		var notFound *attendance.SessionNotFoundError
		if !errors.As(err, &notFound) {
			t.Errorf("error = %v (%T), want *SessionNotFoundError", err, err)
		}
	})
}

func TestCheckInDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := f.session.ScheduledStart

	if _, err := f.recorder.CheckIn(ctx, f.memberID, f.session.ID, sample2, now, ""); err != nil {
		t.Fatalf("first CheckIn() error = %v", err)
	}

	_, err := f.recorder.CheckIn(ctx, f.memberID, f.session.ID, sample2, now.Add(time.Minute), "")
	var dup *attendance.AlreadyCheckedInError
	if !errors.As(err, &dup) {
		t.Fatalf("second check-in error = %v (%T), want *AlreadyCheckedInError", err, err)
	}

	open, err := f.store.ListOpenRecords(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 {
		t.Errorf("open records = %d, want 1", len(open))
	}
}

func TestCheckInConcurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := f.session.ScheduledStart

	const workers = 8
	start := make(chan struct{})
	results := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.recorder.CheckIn(ctx, f.memberID, f.session.ID, sample2, now, "")
			results <- err
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	var succeeded, duplicates int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var dup *attendance.AlreadyCheckedInError
		if !errors.As(err, &dup) {
			t.Errorf("racing check-in failed with %v (%T), want *AlreadyCheckedInError", err, err)
			continue
		}
		duplicates++
	}

	if succeeded != 1 {
		t.Errorf("check-ins succeeded = %d, want exactly 1", succeeded)
	}
	if duplicates != workers-1 {
		t.Errorf("duplicate rejections = %d, want %d", duplicates, workers-1)
	}

	open, err := f.store.ListOpenRecords(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 {
		t.Errorf("open records after race = %d, want 1", len(open))
	}
}

func TestCheckInStoreFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("profile lookup failure", func(t *testing.T) {
		f := newFixture(t)
		f.store.ProfileError = errors.New("connection reset")

		_, err := f.recorder.CheckIn(ctx, f.memberID, f.session.ID, sample2, f.session.ScheduledStart, "")
		if !errors.Is(err, f.store.ProfileError) {
			t.Errorf("error = %v, want wrapped %v", err, f.store.ProfileError)
		}
	})

	t.Run("roster lookup failure", func(t *testing.T) {
		f := newFixture(t)
		f.store.RegisterError = errors.New("connection reset")

		_, err := f.recorder.CheckIn(ctx, f.memberID, f.session.ID, sample2, f.session.ScheduledStart, "")
		if !errors.Is(err, f.store.RegisterError) {
			t.Errorf("error = %v, want wrapped %v", err, f.store.RegisterError)
		}
	})

	t.Run("record lookup failure", func(t *testing.T) {
		f := newFixture(t)
		f.store.RecordError = errors.New("connection reset")

		_, err := f.recorder.CheckIn(ctx, f.memberID, f.session.ID, sample2, f.session.ScheduledStart, "")
		if !errors.Is(err, f.store.RecordError) {
			t.Errorf("error = %v, want wrapped %v", err, f.store.RecordError)
		}
	})
}

func TestCheckInMarksRosterAndPublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.recorder.CheckIn(ctx, f.memberID, f.session.ID, sample2, f.session.ScheduledStart, "checkin/key.jpg")
	if err != nil {
		t.Fatalf("CheckIn() error = %v", err)
	}
	if rec.CheckInSnapshotKey != "checkin/key.jpg" {
		t.Errorf("snapshot key = %q, want %q", rec.CheckInSnapshotKey, "checkin/key.jpg")
	}

	got := f.events.types()
	if len(got) != 1 || got[0] != models.EventCheckedIn {
		t.Errorf("published events = %v, want [%s]", got, models.EventCheckedIn)
	}
}

func TestCheckOut(t *testing.T) {
	tests := []struct {
		name             string
		checkoutOffset   time.Duration // relative to scheduled end
		wantMinutesEarly int
	}{
		{"ten minutes before end", -10 * time.Minute, 10},
		{"at scheduled end", 0, 0},
		{"after scheduled end", 20 * time.Minute, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			if _, err := f.recorder.CheckIn(ctx, f.memberID, f.session.ID, sample2, f.session.ScheduledStart, ""); err != nil {
				t.Fatalf("CheckIn() error = %v", err)
			}

			now := f.session.ScheduledEnd.Add(tt.checkoutOffset)
			rec, err := f.recorder.CheckOut(ctx, f.memberID, f.session.ID, sample2, now, "")
			if err != nil {
				t.Fatalf("CheckOut() error = %v", err)
			}

			if rec.Open() {
				t.Error("record still open after checkout")
			}
			if rec.CheckOutStatus != models.CheckOutOnTime {
				t.Errorf("checkout status = %s, want %s", rec.CheckOutStatus, models.CheckOutOnTime)
			}
			if rec.MinutesEarly != tt.wantMinutesEarly {
				t.Errorf("minutes early = %d, want %d", rec.MinutesEarly, tt.wantMinutesEarly)
			}

			got := f.events.types()
			if len(got) != 2 || got[1] != models.EventCheckedOut {
				t.Errorf("published events = %v, want [checked_in checked_out]", got)
			}
		})
	}
}

func TestCheckOutRequiresOpenRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.recorder.CheckOut(ctx, f.memberID, f.session.ID, sample2, f.session.ScheduledEnd, "")
	var noOpen *attendance.NoOpenCheckInError
	if !errors.As(err, &noOpen) {
		t.Fatalf("error = %v (%T), want *NoOpenCheckInError", err, err)
	}
}

func TestCheckOutTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.recorder.CheckIn(ctx, f.memberID, f.session.ID, sample2, f.session.ScheduledStart, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := f.recorder.CheckOut(ctx, f.memberID, f.session.ID, sample2, f.session.ScheduledEnd, ""); err != nil {
		t.Fatal(err)
	}

	_, err := f.recorder.CheckOut(ctx, f.memberID, f.session.ID, sample2, f.session.ScheduledEnd, "")
	var noOpen *attendance.NoOpenCheckInError
	if !errors.As(err, &noOpen) {
		t.Errorf("second checkout error = %v (%T), want *NoOpenCheckInError", err, err)
	}
}

func TestCheckOutReverifiesIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.recorder.CheckIn(ctx, f.memberID, f.session.ID, sample2, f.session.ScheduledStart, ""); err != nil {
		t.Fatal(err)
	}

	_, err := f.recorder.CheckOut(ctx, f.memberID, f.session.ID, strangerProbe, f.session.ScheduledEnd, "")
	var failed *attendance.VerificationFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("error = %v (%T), want *VerificationFailedError", err, err)
	}

	open, err := f.store.GetOpenRecord(ctx, f.memberID, f.session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if open == nil {
		t.Error("failed checkout must leave the record open")
	}
}

func TestReEntryAfterCheckout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := f.session.ScheduledStart

	if _, err := f.recorder.CheckIn(ctx, f.memberID, f.session.ID, sample2, start, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := f.recorder.CheckOut(ctx, f.memberID, f.session.ID, sample2, start.Add(20*time.Minute), ""); err != nil {
		t.Fatal(err)
	}

	// Stepping out and back in opens a second record for the same session.
	rec, err := f.recorder.CheckIn(ctx, f.memberID, f.session.ID, sample2, start.Add(30*time.Minute), "")
	if err != nil {
		t.Fatalf("re-entry CheckIn() error = %v", err)
	}
	if rec.CheckInStatus != models.CheckInLate || rec.MinutesLate != 30 {
		t.Errorf("re-entry classified %s/%d, want LATE/30", rec.CheckInStatus, rec.MinutesLate)
	}
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := f.session.ScheduledStart

	if _, err := f.recorder.CheckIn(ctx, f.memberID, f.session.ID, sample2, start, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := f.recorder.CheckOut(ctx, f.memberID, f.session.ID, sample2, start.Add(50*time.Minute), ""); err != nil {
		t.Fatal(err)
	}
	if _, err := f.recorder.CheckIn(ctx, f.memberID, f.session.ID, sample2, start.Add(55*time.Minute), ""); err != nil {
		t.Fatal(err)
	}

	records, total, err := f.recorder.History(ctx, f.memberID, nil, nil, 50, 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if total != 2 || len(records) != 2 {
		t.Fatalf("History() returned %d/%d records, want 2/2", len(records), total)
	}
	if !records[0].CheckInTime.After(records[1].CheckInTime) {
		t.Error("history should be newest first")
	}

	// Range filter excluding the second check-in.
	to := start.Add(10 * time.Minute)
	records, total, err = f.recorder.History(ctx, f.memberID, nil, &to, 50, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(records) != 1 {
		t.Errorf("filtered History() returned %d/%d records, want 1/1", len(records), total)
	}
}
