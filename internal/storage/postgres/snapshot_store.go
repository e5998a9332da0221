// Package postgres provides the Postgres-backed store.SnapshotRepository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/keyspace-status/internal/store"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool and table names.
type Config struct {
	DSN             string
	SessionTable    string
	SnapshotTable   string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// SnapshotStore implements store.SnapshotRepository on Postgres.
type SnapshotStore struct {
	pool      pool
	sessions  string
	snapshots string
}

var _ store.SnapshotRepository = (*SnapshotStore)(nil)

// NewSnapshotStore connects a pool using cfg.
func NewSnapshotStore(ctx context.Context, cfg Config) (*SnapshotStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s, err := NewSnapshotStoreWithPool(p, cfg.SessionTable, cfg.SnapshotTable)
	if err != nil {
		p.Close()
		return nil, err
	}
	return s, nil
}

// NewSnapshotStoreWithPool wraps an existing pool (primarily for testing).
func NewSnapshotStoreWithPool(p pool, sessionTable, snapshotTable string) (*SnapshotStore, error) {
	if p == nil {
		return nil, errors.New("pool is required")
	}
	if sessionTable == "" {
		sessionTable = "session_runs"
	}
	if snapshotTable == "" {
		snapshotTable = "session_snapshots"
	}
	for _, name := range []string{sessionTable, snapshotTable} {
		if !validTableName.MatchString(name) {
			return nil, fmt.Errorf("invalid table name %q", name)
		}
	}
	return &SnapshotStore{pool: p, sessions: sessionTable, snapshots: snapshotTable}, nil
}

// Close releases the pool.
func (s *SnapshotStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// UpsertSession inserts the run or refreshes its status.
func (s *SnapshotStore) UpsertSession(ctx context.Context, run store.SessionRun) error {
	query := fmt.Sprintf(`
INSERT INTO %s (id, name, started_at, status)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE
SET status = EXCLUDED.status
WHERE %s.finished_at IS NULL`, s.sessions, s.sessions)
	if _, err := s.pool.Exec(ctx, query, run.ID, run.Name, run.StartedAt, run.Status); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// CompleteSession marks the run finished.
func (s *SnapshotStore) CompleteSession(ctx context.Context, id uuid.UUID, finishedAt time.Time, status string) error {
	query := fmt.Sprintf(`UPDATE %s SET finished_at = $1, status = $2 WHERE id = $3`, s.sessions)
	tag, err := s.pool.Exec(ctx, query, finishedAt, status, id)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// AppendSnapshot inserts one snapshot row.
func (s *SnapshotStore) AppendSnapshot(ctx context.Context, rec store.SnapshotRecord) error {
	query := fmt.Sprintf(`
INSERT INTO %s (
	session_id,
	taken_at,
	status,
	progress_percent,
	speed_per_sec,
	current,
	"end",
	eta_seconds,
	payload
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`, s.snapshots)
	_, err := s.pool.Exec(ctx, query,
		rec.SessionID,
		rec.TakenAt,
		rec.Status,
		rec.ProgressPercent,
		rec.SpeedPerSec,
		rec.Current,
		rec.End,
		rec.ETASeconds,
		rec.Payload,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// GetSession loads one run.
func (s *SnapshotStore) GetSession(ctx context.Context, id uuid.UUID) (store.SessionRun, error) {
	query := fmt.Sprintf(`SELECT id, name, started_at, finished_at, status FROM %s WHERE id = $1`, s.sessions)
	var run store.SessionRun
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&run.ID,
		&run.Name,
		&run.StartedAt,
		&run.FinishedAt,
		&run.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.SessionRun{}, store.ErrNotFound
		}
		return store.SessionRun{}, fmt.Errorf("get session: %w", err)
	}
	return run, nil
}

// ListSessions returns runs newest first.
func (s *SnapshotStore) ListSessions(ctx context.Context, limit, offset int) ([]store.SessionRun, error) {
	query := fmt.Sprintf(`
SELECT id, name, started_at, finished_at, status
FROM %s
ORDER BY started_at DESC
LIMIT $1 OFFSET $2`, s.sessions)
	rows, err := s.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	runs := []store.SessionRun{}
	for rows.Next() {
		var run store.SessionRun
		if err := rows.Scan(&run.ID, &run.Name, &run.StartedAt, &run.FinishedAt, &run.Status); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return runs, nil
}

// ListSnapshots returns the snapshots of one run newest first.
func (s *SnapshotStore) ListSnapshots(ctx context.Context, id uuid.UUID, limit, offset int) ([]store.SnapshotRecord, error) {
	query := fmt.Sprintf(`
SELECT session_id, taken_at, status, progress_percent, speed_per_sec, current, "end", eta_seconds, payload
FROM %s
WHERE session_id = $1
ORDER BY taken_at DESC
LIMIT $2 OFFSET $3`, s.snapshots)
	rows, err := s.pool.Query(ctx, query, id, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	out := []store.SnapshotRecord{}
	for rows.Next() {
		var rec store.SnapshotRecord
		err := rows.Scan(
			&rec.SessionID,
			&rec.TakenAt,
			&rec.Status,
			&rec.ProgressPercent,
			&rec.SpeedPerSec,
			&rec.Current,
			&rec.End,
			&rec.ETASeconds,
			&rec.Payload,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return out, nil
}
