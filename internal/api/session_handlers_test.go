package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/keyspace-status/internal/store"
)

func TestSessionHandlerListSessions(t *testing.T) {
	t.Parallel()

	repo := &mockSnapshotRepo{
		runs: []store.SessionRun{
			{ID: uuid.New(), Name: "nightly", Status: "Running", StartedAt: time.Now().Add(-time.Hour)},
		},
	}
	handler := NewSessionHandler(repo, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions?limit=10", nil)
	rec := httptest.NewRecorder()

	handler.ListSessions(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Sessions []store.SessionRun `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Sessions, 1)
	require.Equal(t, "nightly", body.Sessions[0].Name)
	require.Equal(t, 10, repo.lastLimit)
}

func TestSessionHandlerListSessionsCapsLimit(t *testing.T) {
	t.Parallel()

	repo := &mockSnapshotRepo{}
	handler := NewSessionHandler(repo, zap.NewNop())

	rec := httptest.NewRecorder()
	handler.ListSessions(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions?limit=100000&offset=3", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, maxSessionLimit, repo.lastLimit)
	require.Equal(t, 3, repo.lastOffset)
	require.JSONEq(t, `{"sessions":[]}`, rec.Body.String())
}

func TestSessionHandlerGetSession(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	repo := &mockSnapshotRepo{runs: []store.SessionRun{{ID: id, Name: "nightly", Status: "Cracked"}}}
	handler := NewSessionHandler(repo, zap.NewNop())

	req := withSessionIDParam(httptest.NewRequest(http.MethodGet, "/v1/sessions/"+id.String(), nil), id.String())
	rec := httptest.NewRecorder()
	handler.GetSession(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Cracked")
}

func TestSessionHandlerGetSessionNotFound(t *testing.T) {
	t.Parallel()

	repo := &mockSnapshotRepo{err: store.ErrNotFound}
	handler := NewSessionHandler(repo, zap.NewNop())

	id := uuid.New()
	req := withSessionIDParam(httptest.NewRequest(http.MethodGet, "/v1/sessions/"+id.String(), nil), id.String())
	rec := httptest.NewRecorder()

	handler.GetSession(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionHandlerGetSessionRepoError(t *testing.T) {
	t.Parallel()

	repo := &mockSnapshotRepo{err: errors.New("boom")}
	handler := NewSessionHandler(repo, zap.NewNop())

	id := uuid.New()
	req := withSessionIDParam(httptest.NewRequest(http.MethodGet, "/v1/sessions/"+id.String(), nil), id.String())
	rec := httptest.NewRecorder()

	handler.GetSession(rec, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSessionHandlerInvalidID(t *testing.T) {
	t.Parallel()

	handler := NewSessionHandler(&mockSnapshotRepo{}, zap.NewNop())
	req := withSessionIDParam(httptest.NewRequest(http.MethodGet, "/v1/sessions/nope", nil), "nope")
	rec := httptest.NewRecorder()

	handler.GetSession(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionHandlerListSnapshots(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	eta := 42.0
	repo := &mockSnapshotRepo{
		snaps: []store.SnapshotRecord{
			{SessionID: id, Status: "Running", ProgressPercent: 12.5, ETASeconds: &eta, Payload: []byte(`{"name":"nightly"}`)},
			{SessionID: id, Status: "Running", Payload: []byte("not json")},
		},
	}
	handler := NewSessionHandler(repo, zap.NewNop())

	req := withSessionIDParam(
		httptest.NewRequest(http.MethodGet, "/v1/sessions/"+id.String()+"/snapshots", nil),
		id.String(),
	)
	rec := httptest.NewRecorder()
	handler.ListSnapshots(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Snapshots []struct {
			ProgressPercent float64         `json:"progress_percent"`
			ETASeconds      *float64        `json:"eta_seconds"`
			Snapshot        json.RawMessage `json:"snapshot"`
		} `json:"snapshots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Snapshots, 2)
	require.InDelta(t, 12.5, body.Snapshots[0].ProgressPercent, 1e-9)
	require.JSONEq(t, `{"name":"nightly"}`, string(body.Snapshots[0].Snapshot))
	require.Empty(t, body.Snapshots[1].Snapshot)
	require.Equal(t, defaultSnapshotLimit, repo.lastLimit)
}

func TestSessionHandlerListSnapshotsInvalidLimit(t *testing.T) {
	t.Parallel()

	handler := NewSessionHandler(&mockSnapshotRepo{}, zap.NewNop())
	id := uuid.New()
	req := withSessionIDParam(
		httptest.NewRequest(http.MethodGet, "/v1/sessions/"+id.String()+"/snapshots?limit=-1", nil),
		id.String(),
	)
	rec := httptest.NewRecorder()

	handler.ListSnapshots(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

type mockSnapshotRepo struct {
	runs       []store.SessionRun
	snaps      []store.SnapshotRecord
	err        error
	lastLimit  int
	lastOffset int
}

func (m *mockSnapshotRepo) UpsertSession(context.Context, store.SessionRun) error {
	return m.err
}

func (m *mockSnapshotRepo) CompleteSession(context.Context, uuid.UUID, time.Time, string) error {
	return m.err
}

func (m *mockSnapshotRepo) AppendSnapshot(context.Context, store.SnapshotRecord) error {
	return m.err
}

func (m *mockSnapshotRepo) GetSession(context.Context, uuid.UUID) (store.SessionRun, error) {
	if len(m.runs) > 0 {
		return m.runs[0], nil
	}
	return store.SessionRun{}, m.err
}

func (m *mockSnapshotRepo) ListSessions(_ context.Context, limit, offset int) ([]store.SessionRun, error) {
	m.lastLimit, m.lastOffset = limit, offset
	return m.runs, m.err
}

func (m *mockSnapshotRepo) ListSnapshots(_ context.Context, _ uuid.UUID, limit, offset int) ([]store.SnapshotRecord, error) {
	m.lastLimit, m.lastOffset = limit, offset
	return m.snaps, m.err
}

func withSessionIDParam(r *http.Request, id string) *http.Request {
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("session_id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, ctx))
}
