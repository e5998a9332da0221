package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/keyspace-status/internal/store"
)

func newMockStore(t *testing.T) (*SnapshotStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	s, err := NewSnapshotStoreWithPool(mock, "", "")
	require.NoError(t, err)
	return s, mock
}

func TestNewSnapshotStoreWithPoolValidates(t *testing.T) {
	t.Parallel()

	_, err := NewSnapshotStoreWithPool(nil, "", "")
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	_, err = NewSnapshotStoreWithPool(mock, "runs; DROP TABLE x", "")
	require.Error(t, err)
}

func TestNewSnapshotStoreRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := NewSnapshotStore(context.Background(), Config{})
	require.Error(t, err)
}

func TestUpsertSession(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	run := store.SessionRun{
		ID:        uuid.New(),
		Name:      "nightly",
		StartedAt: time.Unix(1700000000, 0).UTC(),
		Status:    "Running",
	}
	mock.ExpectExec("INSERT INTO session_runs").
		WithArgs(run.ID, run.Name, run.StartedAt, run.Status).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.UpsertSession(context.Background(), run))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteSession(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	id := uuid.New()
	at := time.Unix(1700000100, 0).UTC()

	mock.ExpectExec("UPDATE session_runs SET finished_at").
		WithArgs(at, "Exhausted", id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, s.CompleteSession(context.Background(), id, at, "Exhausted"))

	mock.ExpectExec("UPDATE session_runs SET finished_at").
		WithArgs(at, "Exhausted", id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, s.CompleteSession(context.Background(), id, at, "Exhausted"), store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendSnapshot(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	eta := 42.0
	rec := store.SnapshotRecord{
		SessionID:       uuid.New(),
		TakenAt:         time.Unix(1700000200, 0).UTC(),
		Status:          "Running",
		ProgressPercent: 12.5,
		SpeedPerSec:     1.5e6,
		Current:         125,
		End:             1000,
		ETASeconds:      &eta,
		Payload:         []byte(`{"name":"nightly"}`),
	}
	mock.ExpectExec("INSERT INTO session_snapshots").
		WithArgs(rec.SessionID, rec.TakenAt, rec.Status, rec.ProgressPercent, rec.SpeedPerSec,
			rec.Current, rec.End, rec.ETASeconds, rec.Payload).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.AppendSnapshot(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendSnapshotWrapsErrors(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	boom := errors.New("connection reset")
	mock.ExpectExec("INSERT INTO session_snapshots").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(boom)

	err := s.AppendSnapshot(context.Background(), store.SnapshotRecord{SessionID: uuid.New()})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSession(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	id := uuid.New()
	started := time.Unix(1700000000, 0).UTC()
	finished := started.Add(time.Hour)

	mock.ExpectQuery("SELECT id, name, started_at, finished_at, status FROM session_runs").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "started_at", "finished_at", "status"}).
			AddRow(id, "nightly", started, &finished, "Cracked"))

	run, err := s.GetSession(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, id, run.ID)
	require.Equal(t, "Cracked", run.Status)
	require.NotNil(t, run.FinishedAt)
	require.True(t, finished.Equal(*run.FinishedAt))

	mock.ExpectQuery("SELECT id, name, started_at, finished_at, status FROM session_runs").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)
	_, err = s.GetSession(context.Background(), id)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListSessionsAndSnapshots(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	id := uuid.New()
	started := time.Unix(1700000000, 0).UTC()
	var notFinished *time.Time
	var noETA *float64

	mock.ExpectQuery("FROM session_runs").
		WithArgs(10, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "started_at", "finished_at", "status"}).
			AddRow(id, "nightly", started, notFinished, "Running"))

	runs, err := s.ListSessions(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Nil(t, runs[0].FinishedAt)

	mock.ExpectQuery("FROM session_snapshots").
		WithArgs(id, 5, 0).
		WillReturnRows(pgxmock.NewRows([]string{
			"session_id", "taken_at", "status", "progress_percent", "speed_per_sec",
			"current", "end", "eta_seconds", "payload",
		}).AddRow(id, started, "Running", 50.0, 1000.0, int64(500), int64(1000), noETA, []byte(`{}`)))

	snaps, err := s.ListSnapshots(context.Background(), id, 5, 0)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	require.Equal(t, int64(500), snaps[0].Current)
	require.Nil(t, snaps[0].ETASeconds)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS session_runs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
