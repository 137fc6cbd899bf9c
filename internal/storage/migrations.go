package storage

import (
	"context"
	"fmt"

	"github.com/your-org/gymgate/internal/face"
)

// Migrate applies the schema. Statements are idempotent so startup can run
// this unconditionally.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS face_profiles (
			member_id    UUID PRIMARY KEY,
			ref_vector_1 vector(%[1]d) NOT NULL,
			ref_vector_2 vector(%[1]d) NOT NULL,
			ref_vector_3 vector(%[1]d) NOT NULL,
			centroid     vector(%[1]d) NOT NULL,
			is_active    BOOLEAN NOT NULL DEFAULT true,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, face.Dim),

		`CREATE TABLE IF NOT EXISTS sessions (
			id              UUID PRIMARY KEY,
			name            TEXT NOT NULL,
			scheduled_start TIMESTAMPTZ NOT NULL,
			scheduled_end   TIMESTAMPTZ NOT NULL,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS session_registrations (
			session_id UUID NOT NULL REFERENCES sessions(id),
			member_id  UUID NOT NULL,
			attended   BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (session_id, member_id)
		)`,

		`CREATE TABLE IF NOT EXISTS attendance_records (
			id                     UUID PRIMARY KEY,
			member_id              UUID NOT NULL,
			session_id             UUID NOT NULL REFERENCES sessions(id),
			check_in_time          TIMESTAMPTZ NOT NULL,
			check_in_status        TEXT NOT NULL,
			minutes_late           INTEGER NOT NULL DEFAULT 0,
			check_out_time         TIMESTAMPTZ,
			check_out_status       TEXT,
			minutes_early          INTEGER NOT NULL DEFAULT 0,
			note                   TEXT NOT NULL DEFAULT '',
			check_in_snapshot_key  TEXT NOT NULL DEFAULT '',
			check_out_snapshot_key TEXT NOT NULL DEFAULT '',
			created_at             TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		// The concurrency guard: at most one open record per (member, session).
		`CREATE UNIQUE INDEX IF NOT EXISTS attendance_open_unique
		 ON attendance_records (member_id, session_id)
		 WHERE check_out_time IS NULL`,

		`CREATE INDEX IF NOT EXISTS attendance_member_time
		 ON attendance_records (member_id, check_in_time DESC)`,

		`CREATE INDEX IF NOT EXISTS attendance_open_scan
		 ON attendance_records (check_in_time)
		 WHERE check_out_time IS NULL`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}
