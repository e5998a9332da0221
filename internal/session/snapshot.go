package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JakeFAU/keyspace-status/internal/eta"
	"github.com/JakeFAU/keyspace-status/internal/humanize"
	"github.com/JakeFAU/keyspace-status/internal/hwmon"
	"github.com/JakeFAU/keyspace-status/internal/ratewindow"
	"github.com/JakeFAU/keyspace-status/internal/state"
)

// ETAView is the serialisable form of an eta.Estimate.
type ETAView struct {
	Kind               string     `json:"kind"`
	RemainingSeconds   float64    `json:"remaining_seconds"`
	At                 *time.Time `json:"at,omitempty"`
	Relative           string     `json:"relative"`
	Absolute           string     `json:"absolute"`
	RuntimeLimited     bool       `json:"runtime_limited"`
	RuntimeLeftSeconds float64    `json:"runtime_left_seconds"`
	LimitExceeded      bool       `json:"limit_exceeded"`
	LimitBinding       bool       `json:"limit_binding"`
}

func newETAView(e eta.Estimate) ETAView {
	v := ETAView{
		Kind:               e.Kind.String(),
		RemainingSeconds:   e.Remaining.Seconds(),
		Relative:           e.Relative(),
		Absolute:           e.Absolute(),
		RuntimeLimited:     e.RuntimeLimited,
		RuntimeLeftSeconds: e.RuntimeLeft.Seconds(),
		LimitExceeded:      e.LimitExceeded,
		LimitBinding:       e.Binding,
	}
	if e.Valid() {
		at := e.At
		v.At = &at
	}
	return v
}

// DeviceView is one device's slice of a Snapshot.
type DeviceView struct {
	ID              int             `json:"id"`
	Skipped         bool            `json:"skipped"`
	SpeedPerSec     float64         `json:"speed_per_sec"`
	Speed           string          `json:"speed"`
	ExecMs          float64         `json:"exec_ms"`
	Hardware        *hwmon.Snapshot `json:"hardware,omitempty"`
	HardwareSummary string          `json:"hardware_summary,omitempty"`
}

// Snapshot is a best-effort consistent view of every status metric.
type Snapshot struct {
	Name           string            `json:"name"`
	TakenAt        time.Time         `json:"taken_at"`
	Status         state.Status      `json:"status"`
	StatusCode     int               `json:"status_code"`
	StartedAt      time.Time         `json:"started_at"`
	Started        string            `json:"started"`
	StartedAgo     string            `json:"started_ago"`
	RunningSeconds float64           `json:"running_seconds"`
	PausedSeconds  float64           `json:"paused_seconds"`
	RealSeconds    float64           `json:"real_seconds"`
	ETA            ETAView           `json:"eta"`
	Progress       Progress          `json:"progress"`
	SpeedPerSec    float64           `json:"speed_per_sec"`
	Speed          string            `json:"speed"`
	ExecMs         float64           `json:"exec_ms"`
	DevicesTotal   int               `json:"devices_total"`
	DevicesActive  int               `json:"devices_active"`
	Devices        []DeviceView      `json:"devices"`
	Cracks         ratewindow.Report `json:"cracks"`
	CracksSummary  string            `json:"cracks_summary"`
}

// Snapshot assembles every metric under the display lock. With hardware set
// each active device is also polled through the hardware reader.
func (s *Session) Snapshot(ctx context.Context, hardware bool) Snapshot {
	s.display.Lock()
	defer s.display.Unlock()

	now := s.clock.Now()
	st := s.status.Get()
	running := s.job.Running(now)
	real := s.job.Real(now)
	cracks := s.cracks.Report(now, real, st == state.Running)

	snap := Snapshot{
		Name:           s.cfg.Name,
		TakenAt:        now,
		Status:         st,
		StatusCode:     int(st),
		StartedAt:      s.job.Start(),
		Started:        humanize.Timestamp(s.job.Start()),
		StartedAgo:     humanize.Duration(running),
		RunningSeconds: running.Seconds(),
		PausedSeconds:  s.job.PausedFor(now).Seconds(),
		RealSeconds:    real.Seconds(),
		ETA:            newETAView(s.Projector().Project(now)),
		Progress:       s.Progress(),
		SpeedPerSec:    s.SpeedPerSec(),
		ExecMs:         s.ExecMs(),
		DevicesTotal:   s.devices.DeviceCount(),
		DevicesActive:  s.devices.ActiveCount(),
		Devices:        make([]DeviceView, 0, s.devices.DeviceCount()),
		Cracks:         cracks,
		CracksSummary:  cracks.String(),
	}
	snap.Speed = humanize.Speed(snap.SpeedPerSec)

	for _, d := range s.devices.Devices() {
		dv := DeviceView{
			ID:          d.ID(),
			Skipped:     d.Skipped(),
			SpeedPerSec: d.SpeedPerMs() * 1000,
			ExecMs:      d.ExecMs(),
		}
		dv.Speed = humanize.Speed(dv.SpeedPerSec)
		if hardware {
			hw := s.hw.Poll(ctx, d.ID(), d.Skipped())
			dv.Hardware = &hw
			dv.HardwareSummary = hw.String()
		}
		snap.Devices = append(snap.Devices, dv)
	}
	return snap
}

// Text renders a snapshot as an aligned status block.
func (s *Session) Text(ctx context.Context) string {
	return s.Snapshot(ctx, true).Text()
}

// Text renders the snapshot as an aligned status block.
func (snap Snapshot) Text() string {
	var b strings.Builder
	line := func(label, format string, args ...any) {
		fmt.Fprintf(&b, "%s: %s\n", pad(label), fmt.Sprintf(format, args...))
	}

	line("Session", "%s", snap.Name)
	line("Status", "%s", snap.Status)
	line("Started", "%s (%s)", snap.Started, snap.StartedAgo)
	line("Time.Estimated", "%s (%s)", snap.ETA.Absolute, snap.ETA.Relative)
	line("Progress.Mode", "%s", snap.Progress.Mode)
	for _, d := range snap.Devices {
		if d.Skipped {
			continue
		}
		line(fmt.Sprintf("Speed.#%d", d.ID+1), "%9sH/s (%0.2fms)", d.Speed, d.ExecMs)
	}
	if snap.DevicesActive > 1 {
		line("Speed.#*", "%9sH/s", snap.Speed)
	}
	p := snap.Progress
	line("Recovered", "%d/%d (%.2f%%) Digests", p.TargetsDone, p.Targets, p.TargetsPercent)
	line("Recovered/Time", "%s", snap.CracksSummary)
	line("Progress", "%d/%d (%.2f%%)", p.CurrentRelativeToSkip, p.EndRelativeToSkip, p.FinishedPercent)
	line("Rejected", "%d/%d (%.2f%%)", p.Rejected, p.CurrentRelativeToSkip, p.RejectedPercent)
	line("Restore.Point", "%d/%d (%.2f%%)", p.RestorePoint, p.RestoreTotal, p.RestorePercent)
	for _, d := range snap.Devices {
		if d.Hardware == nil {
			continue
		}
		line(fmt.Sprintf("Hardware.Mon.#%d", d.ID+1), "%s", d.HardwareSummary)
	}
	return b.String()
}

const labelWidth = 17

func pad(label string) string {
	if len(label) >= labelWidth {
		return label
	}
	return label + strings.Repeat(".", labelWidth-len(label))
}
