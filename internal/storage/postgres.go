package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/gymgate/internal/attendance"
	"github.com/your-org/gymgate/internal/config"
	"github.com/your-org/gymgate/internal/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Face profiles ---

// UpsertFaceProfile replaces the member's reference vectors and centroid in a
// single statement; the profile is either fully updated or untouched.
func (s *PostgresStore) UpsertFaceProfile(ctx context.Context, p *models.FaceProfile) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO face_profiles (member_id, ref_vector_1, ref_vector_2, ref_vector_3, centroid, is_active)
		 VALUES ($1, $2, $3, $4, $5, true)
		 ON CONFLICT (member_id) DO UPDATE SET
		   ref_vector_1 = EXCLUDED.ref_vector_1,
		   ref_vector_2 = EXCLUDED.ref_vector_2,
		   ref_vector_3 = EXCLUDED.ref_vector_3,
		   centroid = EXCLUDED.centroid,
		   is_active = true,
		   updated_at = now()
		 RETURNING created_at, updated_at`,
		p.MemberID,
		pgvector.NewVector(p.ReferenceVectors[0]),
		pgvector.NewVector(p.ReferenceVectors[1]),
		pgvector.NewVector(p.ReferenceVectors[2]),
		pgvector.NewVector(p.Centroid),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert face profile: %w", err)
	}
	p.IsActive = true
	return nil
}

func (s *PostgresStore) GetFaceProfile(ctx context.Context, memberID uuid.UUID) (*models.FaceProfile, error) {
	p := &models.FaceProfile{}
	var ref1, ref2, ref3, centroid pgvector.Vector
	err := s.pool.QueryRow(ctx,
		`SELECT member_id, ref_vector_1, ref_vector_2, ref_vector_3, centroid, is_active, created_at, updated_at
		 FROM face_profiles WHERE member_id = $1`, memberID,
	).Scan(&p.MemberID, &ref1, &ref2, &ref3, &centroid, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get face profile: %w", err)
	}
	p.ReferenceVectors[0] = ref1.Slice()
	p.ReferenceVectors[1] = ref2.Slice()
	p.ReferenceVectors[2] = ref3.Slice()
	p.Centroid = centroid.Slice()
	return p, nil
}

// DeactivateFaceProfile disables the profile without deleting the vectors.
func (s *PostgresStore) DeactivateFaceProfile(ctx context.Context, memberID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE face_profiles SET is_active = false, updated_at = now() WHERE member_id = $1`, memberID)
	if err != nil {
		return fmt.Errorf("deactivate face profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("face profile not found")
	}
	return nil
}

// --- Attendance records ---

// CreateAttendanceRecord inserts an open record. The partial unique index on
// (member_id, session_id) WHERE check_out_time IS NULL makes the insert the
// atomic guard against duplicate open records; a conflict surfaces as
// attendance.ErrDuplicateOpenRecord.
func (s *PostgresStore) CreateAttendanceRecord(ctx context.Context, rec *models.AttendanceRecord) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO attendance_records
		   (id, member_id, session_id, check_in_time, check_in_status, minutes_late, note, check_in_snapshot_key)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at`,
		rec.ID, rec.MemberID, rec.SessionID, rec.CheckInTime,
		rec.CheckInStatus, rec.MinutesLate, rec.Note, rec.CheckInSnapshotKey,
	).Scan(&rec.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return attendance.ErrDuplicateOpenRecord
		}
		return fmt.Errorf("create attendance record: %w", err)
	}
	return nil
}

// CloseAttendanceRecord transitions OPEN -> CLOSED. The check_out_time IS NULL
// guard makes concurrent closes (member vs. sweeper) first-write-wins; the
// loser gets attendance.ErrRecordNotOpen.
func (s *PostgresStore) CloseAttendanceRecord(ctx context.Context, id uuid.UUID, stamp models.CheckoutStamp) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE attendance_records
		 SET check_out_time = $2,
		     check_out_status = $3,
		     minutes_early = $4,
		     note = COALESCE(NULLIF($5, ''), note),
		     check_out_snapshot_key = COALESCE(NULLIF($6, ''), check_out_snapshot_key)
		 WHERE id = $1 AND check_out_time IS NULL`,
		id, stamp.Time, stamp.Status, stamp.MinutesEarly, stamp.Note, stamp.SnapshotKey)
	if err != nil {
		return fmt.Errorf("close attendance record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrRecordNotOpen
	}
	return nil
}

func (s *PostgresStore) GetOpenRecord(ctx context.Context, memberID, sessionID uuid.UUID) (*models.AttendanceRecord, error) {
	rec := &models.AttendanceRecord{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, member_id, session_id, check_in_time, check_in_status, minutes_late,
		        check_out_time, COALESCE(check_out_status, ''), minutes_early, note,
		        check_in_snapshot_key, check_out_snapshot_key, created_at
		 FROM attendance_records
		 WHERE member_id = $1 AND session_id = $2 AND check_out_time IS NULL`,
		memberID, sessionID,
	).Scan(&rec.ID, &rec.MemberID, &rec.SessionID, &rec.CheckInTime, &rec.CheckInStatus, &rec.MinutesLate,
		&rec.CheckOutTime, &rec.CheckOutStatus, &rec.MinutesEarly, &rec.Note,
		&rec.CheckInSnapshotKey, &rec.CheckOutSnapshotKey, &rec.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get open record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) GetAttendanceRecord(ctx context.Context, id uuid.UUID) (*models.AttendanceRecord, error) {
	rec := &models.AttendanceRecord{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, member_id, session_id, check_in_time, check_in_status, minutes_late,
		        check_out_time, COALESCE(check_out_status, ''), minutes_early, note,
		        check_in_snapshot_key, check_out_snapshot_key, created_at
		 FROM attendance_records WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.MemberID, &rec.SessionID, &rec.CheckInTime, &rec.CheckInStatus, &rec.MinutesLate,
		&rec.CheckOutTime, &rec.CheckOutStatus, &rec.MinutesEarly, &rec.Note,
		&rec.CheckInSnapshotKey, &rec.CheckOutSnapshotKey, &rec.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get attendance record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) ListOpenRecords(ctx context.Context) ([]models.AttendanceRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, member_id, session_id, check_in_time, check_in_status, minutes_late,
		        check_out_time, COALESCE(check_out_status, ''), minutes_early, note,
		        check_in_snapshot_key, check_out_snapshot_key, created_at
		 FROM attendance_records
		 WHERE check_out_time IS NULL
		 ORDER BY check_in_time`)
	if err != nil {
		return nil, fmt.Errorf("list open records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (s *PostgresStore) ListAttendance(ctx context.Context, memberID uuid.UUID, from, to *time.Time, limit, offset int) ([]models.AttendanceRecord, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	baseWhere := "WHERE member_id = $1"
	args := []interface{}{memberID}
	argIdx := 2

	if from != nil {
		baseWhere += fmt.Sprintf(" AND check_in_time >= $%d", argIdx)
		args = append(args, *from)
		argIdx++
	}
	if to != nil {
		baseWhere += fmt.Sprintf(" AND check_in_time <= $%d", argIdx)
		args = append(args, *to)
		argIdx++
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM attendance_records " + baseWhere
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count attendance records: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT id, member_id, session_id, check_in_time, check_in_status, minutes_late,
		        check_out_time, COALESCE(check_out_status, ''), minutes_early, note,
		        check_in_snapshot_key, check_out_snapshot_key, created_at
		 FROM attendance_records %s ORDER BY check_in_time DESC LIMIT $%d OFFSET $%d`,
		baseWhere, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list attendance records: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func scanRecords(rows pgx.Rows) ([]models.AttendanceRecord, error) {
	var records []models.AttendanceRecord
	for rows.Next() {
		var rec models.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.MemberID, &rec.SessionID, &rec.CheckInTime, &rec.CheckInStatus, &rec.MinutesLate,
			&rec.CheckOutTime, &rec.CheckOutStatus, &rec.MinutesEarly, &rec.Note,
			&rec.CheckInSnapshotKey, &rec.CheckOutSnapshotKey, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// --- Sessions & roster ---

func (s *PostgresStore) CreateSession(ctx context.Context, sess *models.Session) error {
	sess.ID = uuid.New()
	return s.pool.QueryRow(ctx,
		`INSERT INTO sessions (id, name, scheduled_start, scheduled_end)
		 VALUES ($1, $2, $3, $4) RETURNING created_at`,
		sess.ID, sess.Name, sess.ScheduledStart, sess.ScheduledEnd,
	).Scan(&sess.CreatedAt)
}

func (s *PostgresStore) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	sess := &models.Session{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, scheduled_start, scheduled_end, created_at FROM sessions WHERE id = $1`, id,
	).Scan(&sess.ID, &sess.Name, &sess.ScheduledStart, &sess.ScheduledEnd, &sess.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

func (s *PostgresStore) ListSessions(ctx context.Context) ([]models.Session, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, scheduled_start, scheduled_end, created_at FROM sessions ORDER BY scheduled_start DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var sess models.Session
		if err := rows.Scan(&sess.ID, &sess.Name, &sess.ScheduledStart, &sess.ScheduledEnd, &sess.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}

func (s *PostgresStore) RegisterMember(ctx context.Context, memberID, sessionID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO session_registrations (session_id, member_id) VALUES ($1, $2)
		 ON CONFLICT (session_id, member_id) DO NOTHING`,
		sessionID, memberID)
	if err != nil {
		return fmt.Errorf("register member: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsRegistered(ctx context.Context, memberID, sessionID uuid.UUID) (bool, error) {
	var registered bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM session_registrations WHERE session_id = $1 AND member_id = $2)`,
		sessionID, memberID,
	).Scan(&registered)
	if err != nil {
		return false, fmt.Errorf("check registration: %w", err)
	}
	return registered, nil
}

func (s *PostgresStore) MarkAttended(ctx context.Context, memberID, sessionID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE session_registrations SET attended = true WHERE session_id = $1 AND member_id = $2`,
		sessionID, memberID)
	if err != nil {
		return fmt.Errorf("mark attended: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRoster(ctx context.Context, sessionID uuid.UUID) ([]models.Registration, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT session_id, member_id, attended, created_at FROM session_registrations
		 WHERE session_id = $1 ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	defer rows.Close()

	var roster []models.Registration
	for rows.Next() {
		var reg models.Registration
		if err := rows.Scan(&reg.SessionID, &reg.MemberID, &reg.Attended, &reg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		roster = append(roster, reg)
	}
	return roster, nil
}
