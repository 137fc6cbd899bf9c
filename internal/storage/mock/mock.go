// Package mock provides in-memory implementations of the storage interfaces
// for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/gymgate/internal/attendance"
	"github.com/your-org/gymgate/internal/models"
)

// Store is an in-memory stand-in for the Postgres store. It enforces the same
// one-open-record-per-(member, session) guarantee under its lock.
type Store struct {
	mu            sync.Mutex
	profiles      map[uuid.UUID]*models.FaceProfile
	records       map[uuid.UUID]*models.AttendanceRecord
	sessions      map[uuid.UUID]*models.Session
	registrations map[uuid.UUID]map[uuid.UUID]*models.Registration

	// Error injection
	ProfileError  error
	RecordError   error
	SessionError  error
	RegisterError error
}

func NewStore() *Store {
	return &Store{
		profiles:      make(map[uuid.UUID]*models.FaceProfile),
		records:       make(map[uuid.UUID]*models.AttendanceRecord),
		sessions:      make(map[uuid.UUID]*models.Session),
		registrations: make(map[uuid.UUID]map[uuid.UUID]*models.Registration),
	}
}

// --- Face profiles ---

func (s *Store) UpsertFaceProfile(ctx context.Context, p *models.FaceProfile) error {
	if s.ProfileError != nil {
		return s.ProfileError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if existing, ok := s.profiles[p.MemberID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.IsActive = true
	stored := *p
	s.profiles[p.MemberID] = &stored
	return nil
}

func (s *Store) GetFaceProfile(ctx context.Context, memberID uuid.UUID) (*models.FaceProfile, error) {
	if s.ProfileError != nil {
		return nil, s.ProfileError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[memberID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// --- Attendance records ---

func (s *Store) CreateAttendanceRecord(ctx context.Context, rec *models.AttendanceRecord) error {
	if s.RecordError != nil {
		return s.RecordError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.records {
		if existing.MemberID == rec.MemberID && existing.SessionID == rec.SessionID && existing.Open() {
			return attendance.ErrDuplicateOpenRecord
		}
	}
	rec.CreatedAt = time.Now()
	stored := *rec
	s.records[rec.ID] = &stored
	return nil
}

func (s *Store) CloseAttendanceRecord(ctx context.Context, id uuid.UUID, stamp models.CheckoutStamp) error {
	if s.RecordError != nil {
		return s.RecordError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok || !rec.Open() {
		return attendance.ErrRecordNotOpen
	}
	t := stamp.Time
	rec.CheckOutTime = &t
	rec.CheckOutStatus = stamp.Status
	rec.MinutesEarly = stamp.MinutesEarly
	if stamp.Note != "" {
		rec.Note = stamp.Note
	}
	if stamp.SnapshotKey != "" {
		rec.CheckOutSnapshotKey = stamp.SnapshotKey
	}
	return nil
}

func (s *Store) GetOpenRecord(ctx context.Context, memberID, sessionID uuid.UUID) (*models.AttendanceRecord, error) {
	if s.RecordError != nil {
		return nil, s.RecordError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		if rec.MemberID == memberID && rec.SessionID == sessionID && rec.Open() {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) GetAttendanceRecord(ctx context.Context, id uuid.UUID) (*models.AttendanceRecord, error) {
	if s.RecordError != nil {
		return nil, s.RecordError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *Store) ListOpenRecords(ctx context.Context) ([]models.AttendanceRecord, error) {
	if s.RecordError != nil {
		return nil, s.RecordError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var open []models.AttendanceRecord
	for _, rec := range s.records {
		if rec.Open() {
			open = append(open, *rec)
		}
	}
	sort.Slice(open, func(i, j int) bool {
		return open[i].CheckInTime.Before(open[j].CheckInTime)
	})
	return open, nil
}

func (s *Store) ListAttendance(ctx context.Context, memberID uuid.UUID, from, to *time.Time, limit, offset int) ([]models.AttendanceRecord, int, error) {
	if s.RecordError != nil {
		return nil, 0, s.RecordError
	}
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []models.AttendanceRecord
	for _, rec := range s.records {
		if rec.MemberID != memberID {
			continue
		}
		if from != nil && rec.CheckInTime.Before(*from) {
			continue
		}
		if to != nil && rec.CheckInTime.After(*to) {
			continue
		}
		matched = append(matched, *rec)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CheckInTime.After(matched[j].CheckInTime)
	})
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

// --- Sessions & roster ---

func (s *Store) AddSession(sess *models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.ID] = &cp
}

func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	if s.SessionError != nil {
		return nil, s.SessionError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

func (s *Store) RegisterMember(ctx context.Context, memberID, sessionID uuid.UUID) error {
	if s.RegisterError != nil {
		return s.RegisterError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registrations[sessionID] == nil {
		s.registrations[sessionID] = make(map[uuid.UUID]*models.Registration)
	}
	if _, ok := s.registrations[sessionID][memberID]; !ok {
		s.registrations[sessionID][memberID] = &models.Registration{
			SessionID: sessionID,
			MemberID:  memberID,
			CreatedAt: time.Now(),
		}
	}
	return nil
}

func (s *Store) IsRegistered(ctx context.Context, memberID, sessionID uuid.UUID) (bool, error) {
	if s.RegisterError != nil {
		return false, s.RegisterError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.registrations[sessionID][memberID]
	return ok, nil
}

func (s *Store) MarkAttended(ctx context.Context, memberID, sessionID uuid.UUID) error {
	if s.RegisterError != nil {
		return s.RegisterError
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if reg, ok := s.registrations[sessionID][memberID]; ok {
		reg.Attended = true
	}
	return nil
}
