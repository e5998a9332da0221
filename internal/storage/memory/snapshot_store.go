package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/keyspace-status/internal/store"
)

// DefaultSnapshotRetention caps the snapshots kept per session.
const DefaultSnapshotRetention = 1000

// SnapshotStore is an in-memory store.SnapshotRepository. Older snapshots of
// a session are evicted once the retention cap is reached.
type SnapshotStore struct {
	mu        sync.RWMutex
	retention int
	sessions  map[uuid.UUID]store.SessionRun
	snapshots map[uuid.UUID][]store.SnapshotRecord
}

var _ store.SnapshotRepository = (*SnapshotStore)(nil)

// NewSnapshotStore creates a SnapshotStore keeping at most retention
// snapshots per session (DefaultSnapshotRetention when <= 0).
func NewSnapshotStore(retention int) *SnapshotStore {
	if retention <= 0 {
		retention = DefaultSnapshotRetention
	}
	return &SnapshotStore{
		retention: retention,
		sessions:  make(map[uuid.UUID]store.SessionRun),
		snapshots: make(map[uuid.UUID][]store.SnapshotRecord),
	}
}

// UpsertSession records the run or refreshes its status while unfinished.
func (s *SnapshotStore) UpsertSession(_ context.Context, run store.SessionRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.sessions[run.ID]
	if !ok {
		s.sessions[run.ID] = run
		return nil
	}
	if existing.FinishedAt == nil {
		existing.Status = run.Status
		s.sessions[run.ID] = existing
	}
	return nil
}

// CompleteSession stamps the finish time and final status.
func (s *SnapshotStore) CompleteSession(_ context.Context, id uuid.UUID, finishedAt time.Time, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.sessions[id]
	if !ok {
		return store.ErrNotFound
	}
	at := finishedAt
	run.FinishedAt = &at
	run.Status = status
	s.sessions[id] = run
	return nil
}

// AppendSnapshot stores rec, evicting the oldest snapshot beyond retention.
func (s *SnapshotStore) AppendSnapshot(_ context.Context, rec store.SnapshotRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.Payload = append([]byte(nil), rec.Payload...)
	list := append(s.snapshots[rec.SessionID], rec)
	if over := len(list) - s.retention; over > 0 {
		list = append([]store.SnapshotRecord(nil), list[over:]...)
	}
	s.snapshots[rec.SessionID] = list
	return nil
}

// GetSession loads one run.
func (s *SnapshotStore) GetSession(_ context.Context, id uuid.UUID) (store.SessionRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.sessions[id]
	if !ok {
		return store.SessionRun{}, store.ErrNotFound
	}
	return run, nil
}

// ListSessions returns runs newest first.
func (s *SnapshotStore) ListSessions(_ context.Context, limit, offset int) ([]store.SessionRun, error) {
	s.mu.RLock()
	runs := make([]store.SessionRun, 0, len(s.sessions))
	for _, run := range s.sessions {
		runs = append(runs, run)
	}
	s.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return page(runs, limit, offset), nil
}

// ListSnapshots returns the snapshots of one run newest first.
func (s *SnapshotStore) ListSnapshots(_ context.Context, id uuid.UUID, limit, offset int) ([]store.SnapshotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.sessions[id]; !ok {
		return nil, store.ErrNotFound
	}
	list := s.snapshots[id]
	out := make([]store.SnapshotRecord, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		out = append(out, list[i])
	}
	return page(out, limit, offset), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
