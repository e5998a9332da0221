package sinks

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/keyspace-status/internal/eta"
	"github.com/JakeFAU/keyspace-status/internal/progress"
	"github.com/JakeFAU/keyspace-status/internal/store"
)

// StoreSink persists session runs and snapshots via a store.SnapshotRepository.
type StoreSink struct {
	repo   store.SnapshotRepository
	logger *zap.Logger
}

// NewStoreSink constructs a StoreSink for the provided repository.
func NewStoreSink(repo store.SnapshotRepository, logger *zap.Logger) *StoreSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreSink{repo: repo, logger: logger}
}

// Consume forwards each event to the repository in order. It respects ctx
// deadlines and wraps repository errors.
func (s *StoreSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.repo == nil {
		return nil
	}
	for _, evt := range batch {
		id := evt.SessionUUID()
		switch evt.Stage {
		case progress.StageStart, progress.StageStatus:
			run := store.SessionRun{ID: id, Name: evt.Name, StartedAt: evt.TS, Status: evt.Status.String()}
			if err := s.repo.UpsertSession(ctx, run); err != nil {
				return fmt.Errorf("upsert session: %w", err)
			}
		case progress.StageSnapshot:
			if err := s.append(ctx, evt); err != nil {
				return err
			}
		case progress.StageDone:
			if err := s.append(ctx, evt); err != nil {
				return err
			}
			if err := s.repo.CompleteSession(ctx, id, evt.TS, evt.Status.String()); err != nil {
				return fmt.Errorf("complete session: %w", err)
			}
		}
	}
	return nil
}

func (s *StoreSink) append(ctx context.Context, evt progress.Event) error {
	rec, err := SnapshotRecord(evt)
	if err != nil {
		return err
	}
	if err := s.repo.AppendSnapshot(ctx, rec); err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *StoreSink) Close(context.Context) error {
	return nil
}

// SnapshotRecord flattens a snapshot-bearing event into its persisted form.
func SnapshotRecord(evt progress.Event) (store.SnapshotRecord, error) {
	snap := evt.Snapshot
	if snap == nil {
		return store.SnapshotRecord{}, fmt.Errorf("%s event without snapshot", evt.Stage)
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return store.SnapshotRecord{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	rec := store.SnapshotRecord{
		SessionID:       evt.SessionUUID(),
		TakenAt:         snap.TakenAt,
		Status:          snap.Status.String(),
		ProgressPercent: snap.Progress.FinishedPercent,
		SpeedPerSec:     snap.SpeedPerSec,
		Current:         clampInt64(snap.Progress.CurrentRelativeToSkip),
		End:             clampInt64(snap.Progress.EndRelativeToSkip),
		Payload:         payload,
	}
	if rec.TakenAt.IsZero() {
		rec.TakenAt = evt.TS
	}
	if snap.ETA.Kind == eta.Known.String() {
		secs := snap.ETA.RemainingSeconds
		rec.ETASeconds = &secs
	}
	return rec, nil
}

func clampInt64(v uint64) int64 {
	const maxInt64 = 1<<63 - 1
	if v > maxInt64 {
		return maxInt64
	}
	return int64(v)
}
