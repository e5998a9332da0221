package session

import (
	"context"
	"time"

	"github.com/JakeFAU/keyspace-status/internal/eta"
	"github.com/JakeFAU/keyspace-status/internal/humanize"
	"github.com/JakeFAU/keyspace-status/internal/hwmon"
	"github.com/JakeFAU/keyspace-status/internal/ledger"
	"github.com/JakeFAU/keyspace-status/internal/ratewindow"
)

// StatusName returns the display name of the current status.
func (s *Session) StatusName() string { return s.status.Get().String() }

// StatusNumber returns the numeric status code.
func (s *Session) StatusNumber() int { return int(s.status.Get()) }

// DeviceCount returns the number of devices.
func (s *Session) DeviceCount() int { return s.devices.DeviceCount() }

// ActiveDevices returns the number of devices not skipped.
func (s *Session) ActiveDevices() int { return s.devices.ActiveCount() }

// TargetsDone returns the number of satisfied targets.
func (s *Session) TargetsDone() int {
	if l := s.Ledger(); l != nil {
		return l.VisibleCount()
	}
	return 0
}

// TargetsTotal returns the size of the target group.
func (s *Session) TargetsTotal() int {
	if l := s.Ledger(); l != nil {
		return l.Targets()
	}
	return 0
}

// TargetsPercent returns the share of targets satisfied.
func (s *Session) TargetsPercent() float64 {
	if l := s.Ledger(); l != nil {
		return l.TargetsPercent()
	}
	return 0
}

// Running returns wall time since the job started.
func (s *Session) Running() time.Duration { return s.job.Running(s.clock.Now()) }

// Paused returns accumulated paused time, including a pause in progress.
func (s *Session) Paused() time.Duration { return s.job.PausedFor(s.clock.Now()) }

// Real returns running time minus paused time.
func (s *Session) Real() time.Duration { return s.job.Real(s.clock.Now()) }

// Started returns the job start timestamp.
func (s *Session) Started() time.Time { return s.job.Start() }

// StartedAbsolute renders the start timestamp.
func (s *Session) StartedAbsolute() string { return humanize.Timestamp(s.job.Start()) }

// StartedRelative renders how long ago the job started.
func (s *Session) StartedRelative() string { return humanize.Duration(s.Running()) }

// ETA projects the completion time.
func (s *Session) ETA() eta.Estimate { return s.Projector().Project(s.clock.Now()) }

// ETAAbsolute renders the projected completion timestamp.
func (s *Session) ETAAbsolute() string { return s.ETA().Absolute() }

// ETARelative renders the projected time left.
func (s *Session) ETARelative() string { return s.ETA().Relative() }

// SpeedPerSec returns aggregate throughput in candidates per second.
func (s *Session) SpeedPerSec() float64 { return s.devices.SpeedPerMsAll() * 1000 }

// SpeedDisplay renders aggregate throughput.
func (s *Session) SpeedDisplay() string { return humanize.Speed(s.SpeedPerSec()) }

// BenchmarkSpeedPerSec returns aggregate single-sample throughput.
func (s *Session) BenchmarkSpeedPerSec() float64 { return s.devices.SpeedPerMsBenchmarkAll() * 1000 }

// DeviceSpeedPerSec returns the throughput of device id.
func (s *Session) DeviceSpeedPerSec(id int) float64 {
	if d := s.devices.Device(id); d != nil {
		return d.SpeedPerMs() * 1000
	}
	return 0
}

// DeviceSpeedDisplay renders the throughput of device id.
func (s *Session) DeviceSpeedDisplay(id int) string {
	return humanize.Speed(s.DeviceSpeedPerSec(id))
}

// ExecMs returns the summed kernel execution time of all devices.
func (s *Session) ExecMs() float64 { return s.devices.ExecMsAll() }

// DeviceExecMs returns the mean kernel execution time of device id.
func (s *Session) DeviceExecMs(id int) float64 {
	if d := s.devices.Device(id); d != nil {
		return d.ExecMs()
	}
	return 0
}

// Progress captures the ledger counters and derived percentages.
type Progress struct {
	Mode                  string  `json:"mode"`
	Done                  uint64  `json:"done"`
	Rejected              uint64  `json:"rejected"`
	Restored              uint64  `json:"restored"`
	Current               uint64  `json:"current"`
	End                   uint64  `json:"end"`
	Skip                  uint64  `json:"skip"`
	CurrentRelativeToSkip uint64  `json:"current_relative_to_skip"`
	EndRelativeToSkip     uint64  `json:"end_relative_to_skip"`
	Ignored               uint64  `json:"ignored"`
	Remaining             uint64  `json:"remaining"`
	FinishedPercent       float64 `json:"finished_percent"`
	RejectedPercent       float64 `json:"rejected_percent"`
	Targets               int     `json:"targets"`
	TargetsDone           int     `json:"targets_done"`
	TargetsPercent        float64 `json:"targets_percent"`
	RestorePoint          uint64  `json:"restore_point"`
	RestoreTotal          uint64  `json:"restore_total"`
	RestorePercent        float64 `json:"restore_percent"`
}

// Progress returns the ledger view. It is zero before InitProgress.
func (s *Session) Progress() Progress {
	l := s.Ledger()
	if l == nil {
		return Progress{Mode: ledger.KeyspaceUnknown.String()}
	}
	return Progress{
		Mode:                  l.Mode().String(),
		Done:                  l.Done(),
		Rejected:              l.Rejected(),
		Restored:              l.Restored(),
		Current:               l.Current(),
		End:                   l.End(),
		Skip:                  l.Skip(),
		CurrentRelativeToSkip: l.CurrentRelativeToSkip(),
		EndRelativeToSkip:     l.EndRelativeToSkip(),
		Ignored:               l.Ignored(),
		Remaining:             l.Remaining(),
		FinishedPercent:       l.FinishedPercent(),
		RejectedPercent:       l.RejectedPercent(),
		Targets:               l.Targets(),
		TargetsDone:           l.VisibleCount(),
		TargetsPercent:        l.TargetsPercent(),
		RestorePoint:          l.RestorePoint(),
		RestoreTotal:          l.RestoreTotal(),
		RestorePercent:        l.RestorePercent(),
	}
}

// CrackReport returns the minute/hour/day success-rate view. Current counts
// are zero unless the job is running.
func (s *Session) CrackReport() ratewindow.Report {
	now := s.clock.Now()
	return s.cracks.Report(now, s.job.Real(now), s.status.CurrentRatesValid())
}

// CrackSummary renders CrackReport.
func (s *Session) CrackSummary() string { return s.CrackReport().String() }

// HardwareSummary polls and renders the sensors of device id.
func (s *Session) HardwareSummary(ctx context.Context, id int) string {
	return s.hw.Summary(ctx, id, s.deviceSkipped(id))
}

// DeviceHardware polls the sensors of device id alone.
func (s *Session) DeviceHardware(ctx context.Context, id int) hwmon.Snapshot {
	return s.hw.Poll(ctx, id, s.deviceSkipped(id))
}

// DeviceSkipped reports whether device id is excluded or unknown.
func (s *Session) DeviceSkipped(id int) bool { return s.deviceSkipped(id) }

func (s *Session) deviceSkipped(id int) bool {
	d := s.devices.Device(id)
	return d == nil || d.Skipped()
}
