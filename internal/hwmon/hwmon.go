// Package hwmon reads per-device hardware sensors (temperature, fan, clocks,
// utilization, bus width, throttling) and renders them for status displays.
//
// Sensor backends are usually not safe for concurrent use, so every poll runs
// under a mutex that the caller may share with other hardware-monitor users.
// A failed or unsupported sensor only blanks its own metric.
package hwmon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ErrUnsupported is returned by a Backend for metrics a device does not expose.
var ErrUnsupported = errors.New("hwmon: metric unsupported")

// Backend reads raw sensor values for a device.
type Backend interface {
	Temperature(ctx context.Context, device int) (int, error)
	FanPercent(ctx context.Context, device int) (int, error)
	Utilization(ctx context.Context, device int) (int, error)
	CoreClock(ctx context.Context, device int) (int, error)
	MemoryClock(ctx context.Context, device int) (int, error)
	BusLanes(ctx context.Context, device int) (int, error)
	Throttle(ctx context.Context, device int) (int, error)
}

// Snapshot is one poll of a device. Nil fields were unsupported or failed.
type Snapshot struct {
	Device         int  `json:"device"`
	NotApplicable  bool `json:"not_applicable"`
	Temperature    *int `json:"temperature_c,omitempty"`
	FanPercent     *int `json:"fan_percent,omitempty"`
	Utilization    *int `json:"utilization_percent,omitempty"`
	CoreClockMHz   *int `json:"core_clock_mhz,omitempty"`
	MemoryClockMHz *int `json:"memory_clock_mhz,omitempty"`
	BusLanes       *int `json:"bus_lanes,omitempty"`
	Throttled      bool `json:"throttled"`
}

// Empty reports whether no metric was read.
func (s Snapshot) Empty() bool {
	return s.Temperature == nil && s.FanPercent == nil && s.Utilization == nil &&
		s.CoreClockMHz == nil && s.MemoryClockMHz == nil && s.BusLanes == nil && !s.Throttled
}

// String renders the snapshot as a single status line.
func (s Snapshot) String() string {
	if s.NotApplicable || s.Empty() {
		return "N/A"
	}
	var b strings.Builder
	if s.Temperature != nil {
		fmt.Fprintf(&b, "Temp:%3dc ", *s.Temperature)
	}
	if s.FanPercent != nil {
		fmt.Fprintf(&b, "Fan:%3d%% ", *s.FanPercent)
	}
	if s.Utilization != nil {
		fmt.Fprintf(&b, "Util:%3d%% ", *s.Utilization)
	}
	if s.CoreClockMHz != nil {
		fmt.Fprintf(&b, "Core:%4dMhz ", *s.CoreClockMHz)
	}
	if s.MemoryClockMHz != nil {
		fmt.Fprintf(&b, "Mem:%4dMhz ", *s.MemoryClockMHz)
	}
	if s.BusLanes != nil {
		fmt.Fprintf(&b, "Lanes:%d ", *s.BusLanes)
	}
	if s.Throttled {
		b.WriteString("*Throttled* ")
	}
	return strings.TrimRight(b.String(), " ")
}

// Reader polls a Backend under the hardware-monitor lock.
type Reader struct {
	mu      *sync.Mutex
	backend Backend
	logger  *zap.Logger
}

// NewReader builds a Reader. A nil mu gets a private lock; a nil backend
// makes every poll report nothing.
func NewReader(backend Backend, mu *sync.Mutex, logger *zap.Logger) *Reader {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{mu: mu, backend: backend, logger: logger}
}

// Poll reads every metric for device. Skipped devices are not polled.
func (r *Reader) Poll(ctx context.Context, device int, skipped bool) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.poll(ctx, device, skipped)
}

// Summary polls device and renders the result while holding the lock.
func (r *Reader) Summary(ctx context.Context, device int, skipped bool) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.poll(ctx, device, skipped).String()
}

func (r *Reader) poll(ctx context.Context, device int, skipped bool) Snapshot {
	snap := Snapshot{Device: device}
	if skipped || r.backend == nil {
		snap.NotApplicable = true
		return snap
	}
	snap.Temperature = r.read(ctx, "temperature", device, r.backend.Temperature)
	snap.FanPercent = r.read(ctx, "fan", device, r.backend.FanPercent)
	snap.Utilization = r.read(ctx, "utilization", device, r.backend.Utilization)
	snap.CoreClockMHz = r.read(ctx, "core_clock", device, r.backend.CoreClock)
	snap.MemoryClockMHz = r.read(ctx, "memory_clock", device, r.backend.MemoryClock)
	snap.BusLanes = r.read(ctx, "bus_lanes", device, r.backend.BusLanes)
	if v := r.read(ctx, "throttle", device, r.backend.Throttle); v != nil && *v > 0 {
		snap.Throttled = true
	}
	return snap
}

func (r *Reader) read(ctx context.Context, metric string, device int, fn func(context.Context, int) (int, error)) *int {
	v, err := fn(ctx, device)
	if err != nil {
		if !errors.Is(err, ErrUnsupported) {
			r.logger.Debug("hwmon read failed",
				zap.String("metric", metric),
				zap.Int("device", device),
				zap.Error(err),
			)
		}
		return nil
	}
	if v < 0 {
		return nil
	}
	return &v
}
