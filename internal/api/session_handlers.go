package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/keyspace-status/internal/store"
)

const (
	defaultSessionLimit  = 50
	maxSessionLimit      = 500
	defaultSnapshotLimit = 100
	maxSnapshotLimit     = 1000
	historyTimeout       = 3 * time.Second
)

// SessionHandler exposes read-only session history endpoints.
type SessionHandler struct {
	repo    store.SnapshotRepository
	timeout time.Duration
	logger  *zap.Logger
}

// NewSessionHandler wires the repository and logger.
func NewSessionHandler(repo store.SnapshotRepository, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{
		repo:    repo,
		timeout: historyTimeout,
		logger:  logger,
	}
}

// ListSessions handles GET /v1/sessions?limit=&offset=. It returns a JSON
// object {"sessions": [...]} on success, 400 for invalid paging, 503 when the
// repo is unavailable, or 500 if the repository call fails.
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot repository unavailable")
		return
	}
	limit, offset, err := parseLimitOffset(r, defaultSessionLimit, maxSessionLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	runs, err := h.repo.ListSessions(ctx, limit, offset)
	if err != nil {
		h.logger.Error("list sessions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if runs == nil {
		runs = []store.SessionRun{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": runs})
}

// GetSession handles GET /v1/sessions/{session_id}. It returns {"session": {...}}
// on success, 400 for malformed IDs, 404 when the repository reports
// store.ErrNotFound, 503 if the repo is not initialized, or 500 otherwise.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot repository unavailable")
		return
	}
	id, err := parseSessionID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	run, err := h.repo.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger.Error("get session failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": run})
}

// ListSnapshots handles GET /v1/sessions/{session_id}/snapshots?limit=&offset=.
// Snapshots are returned newest first with their stored payload inlined.
func (h *SessionHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot repository unavailable")
		return
	}
	id, err := parseSessionID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, offset, err := parseLimitOffset(r, defaultSnapshotLimit, maxSnapshotLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	recs, err := h.repo.ListSnapshots(ctx, id, limit, offset)
	if err != nil {
		h.logger.Error("list snapshots failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list snapshots")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshots": toSnapshotDTOs(recs)})
}

func parseSessionID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "session_id")
	if raw == "" {
		return uuid.UUID{}, errors.New("session_id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, errors.New("invalid session_id")
	}
	return id, nil
}

func parseLimitOffset(r *http.Request, def, maxLimit int) (int, int, error) {
	q := r.URL.Query()
	limit := def
	if limStr := q.Get("limit"); limStr != "" {
		val, err := strconv.Atoi(limStr)
		if err != nil || val <= 0 {
			return 0, 0, errors.New("invalid limit")
		}
		limit = min(val, maxLimit)
	}
	offset := 0
	if offStr := q.Get("offset"); offStr != "" {
		val, err := strconv.Atoi(offStr)
		if err != nil || val < 0 {
			return 0, 0, errors.New("invalid offset")
		}
		offset = val
	}
	return limit, offset, nil
}

type snapshotDTO struct {
	TakenAt         time.Time       `json:"taken_at"`
	Status          string          `json:"status"`
	ProgressPercent float64         `json:"progress_percent"`
	SpeedPerSec     float64         `json:"speed_per_sec"`
	Current         int64           `json:"current"`
	End             int64           `json:"end"`
	ETASeconds      *float64        `json:"eta_seconds,omitempty"`
	Snapshot        json.RawMessage `json:"snapshot,omitempty"`
}

func toSnapshotDTOs(in []store.SnapshotRecord) []snapshotDTO {
	out := make([]snapshotDTO, 0, len(in))
	for _, rec := range in {
		dto := snapshotDTO{
			TakenAt:         rec.TakenAt,
			Status:          rec.Status,
			ProgressPercent: rec.ProgressPercent,
			SpeedPerSec:     rec.SpeedPerSec,
			Current:         rec.Current,
			End:             rec.End,
			ETASeconds:      rec.ETASeconds,
		}
		if json.Valid(rec.Payload) {
			dto.Snapshot = json.RawMessage(rec.Payload)
		}
		out = append(out, dto)
	}
	return out
}
