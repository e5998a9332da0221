package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("session record not found")

// SessionRun models one row of session_runs.
type SessionRun struct {
	// ID is the session identifier shared with reporters.
	ID uuid.UUID `json:"id"`
	// Name is the human session name.
	Name string `json:"name"`
	// StartedAt captures when the run was first reported.
	StartedAt time.Time `json:"started_at"`
	// FinishedAt is nil until the run reaches a terminal status.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	// Status is the last reported lifecycle status name.
	Status string `json:"status"`
}

// SnapshotRecord is one persisted status snapshot. The headline figures are
// broken out for querying; Payload holds the full snapshot as JSON.
type SnapshotRecord struct {
	SessionID       uuid.UUID `json:"session_id"`
	TakenAt         time.Time `json:"taken_at"`
	Status          string    `json:"status"`
	ProgressPercent float64   `json:"progress_percent"`
	SpeedPerSec     float64   `json:"speed_per_sec"`
	Current         int64     `json:"current"`
	End             int64     `json:"end"`
	// ETASeconds is nil when no projection was available.
	ETASeconds *float64 `json:"eta_seconds,omitempty"`
	Payload    []byte   `json:"payload"`
}

// SnapshotRepository persists session runs and snapshots.
type SnapshotRepository interface {
	// UpsertSession records a run start or refreshes its status.
	UpsertSession(ctx context.Context, run SessionRun) error
	// CompleteSession stamps the finish time and final status.
	CompleteSession(ctx context.Context, id uuid.UUID, finishedAt time.Time, status string) error
	// AppendSnapshot stores one snapshot.
	AppendSnapshot(ctx context.Context, rec SnapshotRecord) error

	// GetSession loads one run or returns ErrNotFound.
	GetSession(ctx context.Context, id uuid.UUID) (SessionRun, error)
	// ListSessions returns runs newest first.
	ListSessions(ctx context.Context, limit, offset int) ([]SessionRun, error)
	// ListSnapshots returns the snapshots of one run newest first.
	ListSnapshots(ctx context.Context, id uuid.UUID, limit, offset int) ([]SnapshotRecord, error)
}
