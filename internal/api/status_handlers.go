package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/keyspace-status/internal/hwmon"
	"github.com/JakeFAU/keyspace-status/internal/ledger"
	"github.com/JakeFAU/keyspace-status/internal/session"
)

// StatusSource is the live session read by the status endpoints.
type StatusSource interface {
	Snapshot(ctx context.Context, hardware bool) session.Snapshot
	DeviceHardware(ctx context.Context, id int) hwmon.Snapshot
	DeviceSkipped(id int) bool
	Now() time.Time
	Pause(now time.Time) bool
	Resume(now time.Time) bool
	DeviceCount() int
	Ledger() *ledger.Ledger
}

// StatusHandler exposes the live session.
type StatusHandler struct {
	src    StatusSource
	logger *zap.Logger
}

// NewStatusHandler wires the session and logger.
func NewStatusHandler(src StatusSource, logger *zap.Logger) *StatusHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusHandler{src: src, logger: logger}
}

// Ready reports whether progress has been initialised.
func (h *StatusHandler) Ready() bool {
	return h.src != nil && h.src.Ledger() != nil
}

// GetStatus handles GET /v1/status?hardware=. It returns the snapshot as JSON,
// 400 for a malformed hardware flag, or 503 without a session.
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if h.src == nil {
		writeError(w, http.StatusServiceUnavailable, "session unavailable")
		return
	}
	hardware, err := parseBool(r, "hardware", false)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.src.Snapshot(r.Context(), hardware))
}

// GetStatusText handles GET /v1/status/text with the aligned text block.
func (h *StatusHandler) GetStatusText(w http.ResponseWriter, r *http.Request) {
	if h.src == nil {
		writeError(w, http.StatusServiceUnavailable, "session unavailable")
		return
	}
	hardware, err := parseBool(r, "hardware", true)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(h.src.Snapshot(r.Context(), hardware).Text())); err != nil {
		h.logger.Debug("status text write failed", zap.Error(err))
	}
}

// ListDevices handles GET /v1/devices.
func (h *StatusHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	if h.src == nil {
		writeError(w, http.StatusServiceUnavailable, "session unavailable")
		return
	}
	hardware, err := parseBool(r, "hardware", false)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap := h.src.Snapshot(r.Context(), hardware)
	writeJSON(w, http.StatusOK, map[string]any{
		"devices_total":  snap.DevicesTotal,
		"devices_active": snap.DevicesActive,
		"devices":        snap.Devices,
	})
}

// GetDeviceHardware handles GET /v1/devices/{device_id}/hwmon. Device IDs are
// zero-based; 404 is returned for IDs outside the session.
func (h *StatusHandler) GetDeviceHardware(w http.ResponseWriter, r *http.Request) {
	if h.src == nil {
		writeError(w, http.StatusServiceUnavailable, "session unavailable")
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "device_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid device_id")
		return
	}
	if id < 0 || id >= h.src.DeviceCount() {
		writeError(w, http.StatusNotFound, "device not found")
		return
	}
	hw := h.src.DeviceHardware(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]any{
		"device":   id,
		"skipped":  h.src.DeviceSkipped(id),
		"summary":  hw.String(),
		"hardware": hw,
	})
}

// Pause handles POST /v1/status/pause. It answers 409 unless the session was
// running.
func (h *StatusHandler) Pause(w http.ResponseWriter, _ *http.Request) {
	h.transition(w, "pause", func() bool { return h.src.Pause(h.src.Now()) })
}

// Resume handles POST /v1/status/resume. It answers 409 unless the session
// was paused.
func (h *StatusHandler) Resume(w http.ResponseWriter, _ *http.Request) {
	h.transition(w, "resume", func() bool { return h.src.Resume(h.src.Now()) })
}

func (h *StatusHandler) transition(w http.ResponseWriter, action string, fn func() bool) {
	if h.src == nil {
		writeError(w, http.StatusServiceUnavailable, "session unavailable")
		return
	}
	if !fn() {
		writeError(w, http.StatusConflict, action+" not allowed in current status")
		return
	}
	h.logger.Info("session "+action+" requested")
	writeJSON(w, http.StatusOK, map[string]string{"result": action + "d"})
}

func parseBool(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.New("invalid " + name)
	}
	return v, nil
}
