package sinks

import (
	"context"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/keyspace-status/internal/eta"
	"github.com/JakeFAU/keyspace-status/internal/progress"
	"github.com/JakeFAU/keyspace-status/internal/session"
)

// PrometheusSink mirrors the latest snapshot of each session into gauges.
type PrometheusSink struct {
	events           *prometheus.CounterVec
	sessionsStarted  prometheus.Counter
	sessionsFinished *prometheus.CounterVec
	runtime          prometheus.Histogram

	status          *prometheus.GaugeVec
	progressPercent *prometheus.GaugeVec
	speed           *prometheus.GaugeVec
	etaSeconds      *prometheus.GaugeVec
	targetsDone     *prometheus.GaugeVec
	cracksCurrent   *prometheus.GaugeVec
	deviceSpeed     *prometheus.GaugeVec
	deviceExec      *prometheus.GaugeVec
	deviceTemp      *prometheus.GaugeVec
}

// NewPrometheusSink registers the collectors against reg.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gauge := func(name, help string, labels ...string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "keyspace",
			Name:      name,
			Help:      help,
		}, append([]string{"session"}, labels...))
	}
	s := &PrometheusSink{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "keyspace",
			Name:      "status_events_total",
			Help:      "Status events consumed, by stage.",
		}, []string{"stage"}),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "keyspace",
			Name:      "sessions_started_total",
			Help:      "Sessions that have started.",
		}),
		sessionsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "keyspace",
			Name:      "sessions_finished_total",
			Help:      "Sessions finished, by final status.",
		}, []string{"status"}),
		runtime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "keyspace",
			Name:      "session_real_runtime_seconds",
			Help:      "Running time excluding pauses of finished sessions.",
			Buckets:   prometheus.ExponentialBuckets(60, 4, 8),
		}),
		status:          gauge("status", "Numeric lifecycle status."),
		progressPercent: gauge("progress_percent", "Keyspace progress past skip."),
		speed:           gauge("speed_per_second", "Aggregate candidates per second."),
		etaSeconds:      gauge("eta_seconds", "Projected seconds to completion, -1 when unavailable."),
		targetsDone:     gauge("targets_recovered", "Targets satisfied."),
		cracksCurrent:   gauge("recovered_current", "Recoveries inside the trailing window.", "window"),
		deviceSpeed:     gauge("device_speed_per_second", "Per-device candidates per second.", "device"),
		deviceExec:      gauge("device_exec_milliseconds", "Per-device mean kernel execution time.", "device"),
		deviceTemp:      gauge("device_temperature_celsius", "Per-device temperature.", "device"),
	}
	for _, c := range []prometheus.Collector{
		s.events, s.sessionsStarted, s.sessionsFinished, s.runtime,
		s.status, s.progressPercent, s.speed, s.etaSeconds, s.targetsDone,
		s.cracksCurrent, s.deviceSpeed, s.deviceExec, s.deviceTemp,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register status collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.events.WithLabelValues(string(evt.Stage)).Inc()
		name := sessionLabel(evt)
		switch evt.Stage {
		case progress.StageStart:
			s.sessionsStarted.Inc()
		case progress.StageStatus:
			s.status.WithLabelValues(name).Set(float64(evt.Status))
		case progress.StageSnapshot:
			s.observe(name, evt.Snapshot)
		case progress.StageDone:
			s.observe(name, evt.Snapshot)
			s.sessionsFinished.WithLabelValues(evt.Status.String()).Inc()
			if evt.Snapshot != nil {
				s.runtime.Observe(evt.Snapshot.RealSeconds)
			}
		}
	}
	return nil
}

func (s *PrometheusSink) observe(name string, snap *session.Snapshot) {
	if snap == nil {
		return
	}
	s.status.WithLabelValues(name).Set(float64(snap.StatusCode))
	s.progressPercent.WithLabelValues(name).Set(snap.Progress.FinishedPercent)
	s.speed.WithLabelValues(name).Set(snap.SpeedPerSec)
	s.targetsDone.WithLabelValues(name).Set(float64(snap.Progress.TargetsDone))
	etaSecs := -1.0
	if snap.ETA.Kind == eta.Known.String() {
		etaSecs = snap.ETA.RemainingSeconds
	}
	s.etaSeconds.WithLabelValues(name).Set(etaSecs)
	s.cracksCurrent.WithLabelValues(name, "minute").Set(float64(snap.Cracks.CurrentMinute))
	s.cracksCurrent.WithLabelValues(name, "hour").Set(float64(snap.Cracks.CurrentHour))
	s.cracksCurrent.WithLabelValues(name, "day").Set(float64(snap.Cracks.CurrentDay))
	for _, d := range snap.Devices {
		id := strconv.Itoa(d.ID + 1)
		s.deviceSpeed.WithLabelValues(name, id).Set(d.SpeedPerSec)
		s.deviceExec.WithLabelValues(name, id).Set(d.ExecMs)
		if d.Hardware != nil && d.Hardware.Temperature != nil {
			s.deviceTemp.WithLabelValues(name, id).Set(float64(*d.Hardware.Temperature))
		}
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

func sessionLabel(evt progress.Event) string {
	if evt.Name != "" {
		return evt.Name
	}
	if evt.Snapshot != nil && evt.Snapshot.Name != "" {
		return evt.Snapshot.Name
	}
	return evt.SessionUUID().String()
}
