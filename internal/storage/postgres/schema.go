package postgres

import (
	"context"
	"fmt"
)

const schemaTemplate = `
CREATE TABLE IF NOT EXISTS %[1]s (
	id          UUID PRIMARY KEY,
	name        TEXT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	status      TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS %[2]s (
	session_id       UUID NOT NULL REFERENCES %[1]s (id) ON DELETE CASCADE,
	taken_at         TIMESTAMPTZ NOT NULL,
	status           TEXT NOT NULL,
	progress_percent DOUBLE PRECISION NOT NULL,
	speed_per_sec    DOUBLE PRECISION NOT NULL,
	current          BIGINT NOT NULL,
	"end"            BIGINT NOT NULL,
	eta_seconds      DOUBLE PRECISION,
	payload          JSONB NOT NULL,
	PRIMARY KEY (session_id, taken_at)
);`

// EnsureSchema creates the session and snapshot tables when missing.
func (s *SnapshotStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(schemaTemplate, s.sessions, s.snapshots)); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
