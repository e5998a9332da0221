// Package session owns the status subsystem of one search job: the progress
// ledger, the device throughput cache, the success-rate window, the job
// clock and the hardware reader. It exposes producer hooks for device
// workers and a read API for reporting consumers.
package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/keyspace-status/internal/clock"
	"github.com/JakeFAU/keyspace-status/internal/clock/system"
	"github.com/JakeFAU/keyspace-status/internal/eta"
	"github.com/JakeFAU/keyspace-status/internal/hwmon"
	"github.com/JakeFAU/keyspace-status/internal/ledger"
	"github.com/JakeFAU/keyspace-status/internal/ratewindow"
	"github.com/JakeFAU/keyspace-status/internal/state"
	"github.com/JakeFAU/keyspace-status/internal/throughput"
)

// ErrNoProgress is returned when progress is reset before it was initialised.
var ErrNoProgress = errors.New("session: progress not initialised")

// ErrDestroyed is returned by lifecycle calls after Destroy.
var ErrDestroyed = errors.New("session: destroyed")

// Config sizes the session.
type Config struct {
	Name         string
	Devices      int
	SpeedWindow  int
	ExecWindow   int
	RateWindow   int
	RuntimeLimit time.Duration
	Skipped      []int
}

func (c *Config) applyDefaults() {
	if c.SpeedWindow <= 0 {
		c.SpeedWindow = throughput.DefaultSpeedWindow
	}
	if c.ExecWindow <= 0 {
		c.ExecWindow = throughput.DefaultExecWindow
	}
	if c.RateWindow <= 0 {
		c.RateWindow = ratewindow.DefaultCapacity
	}
}

// Deps are the collaborators a session reads from.
type Deps struct {
	// Status is owned by the job controller. Nil allocates a private one.
	Status *state.Register
	Clock  clock.Clock
	// Hwmon may be nil, in which case hardware summaries read N/A.
	Hwmon hwmon.Backend
	// HwmonLock is shared with any other hardware-monitor caller.
	HwmonLock *sync.Mutex
	Logger    *zap.Logger
}

// Session is the status subsystem of one job.
type Session struct {
	cfg    Config
	status *state.Register
	clock  clock.Clock
	logger *zap.Logger

	devices *throughput.Cache
	cracks  *ratewindow.Counter
	job     *clock.Job
	hw      *hwmon.Reader

	// display serialises snapshot assembly and rendering.
	display sync.Mutex

	mu        sync.RWMutex
	progress  *ledger.Ledger
	destroyed atomic.Bool
}

// New allocates a session. A register supplied in deps is left as the
// controller set it; the private default starts at Initializing.
func New(cfg Config, deps Deps) (*Session, error) {
	cfg.applyDefaults()
	if deps.Clock == nil {
		deps.Clock = system.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Status == nil {
		deps.Status = state.NewRegister()
	}
	logger := deps.Logger.Named("session")

	devices, err := throughput.New(cfg.Devices, cfg.SpeedWindow, cfg.ExecWindow)
	if err != nil {
		return nil, fmt.Errorf("allocate device cache: %w", err)
	}
	for _, id := range cfg.Skipped {
		devices.SetSkipped(id, true)
	}

	now := deps.Clock.Now()
	cracks, err := ratewindow.New(cfg.RateWindow, now)
	if err != nil {
		return nil, fmt.Errorf("allocate rate window: %w", err)
	}

	s := &Session{
		cfg:     cfg,
		status:  deps.Status,
		clock:   deps.Clock,
		logger:  logger,
		devices: devices,
		cracks:  cracks,
		job:     clock.NewJob(now),
		hw:      hwmon.NewReader(deps.Hwmon, deps.HwmonLock, logger),
	}
	logger.Info("session created",
		zap.String("name", cfg.Name),
		zap.Int("devices", cfg.Devices),
		zap.Int("active_devices", devices.ActiveCount()),
		zap.Duration("runtime_limit", cfg.RuntimeLimit),
	)
	return s, nil
}

// InitProgress allocates the ledger once the keyspace size is known.
func (s *Session) InitProgress(targets int, bounds ledger.Bounds) error {
	if s.destroyed.Load() {
		return ErrDestroyed
	}
	l, err := ledger.New(targets, bounds)
	if err != nil {
		return fmt.Errorf("allocate ledger: %w", err)
	}
	s.mu.Lock()
	s.progress = l
	s.mu.Unlock()
	s.logger.Info("progress initialised",
		zap.Int("targets", targets),
		zap.Uint64("base", bounds.Base),
		zap.Uint64("skip", bounds.Skip),
		zap.Uint64("limit", bounds.Limit),
		zap.Uint64("multiplier", bounds.Multiplier),
	)
	return nil
}

// ResetProgress zeroes the ledger and installs new bounds, on keyspace
// expansion or checkpoint restore.
func (s *Session) ResetProgress(bounds ledger.Bounds) error {
	l := s.Ledger()
	if l == nil {
		if s.destroyed.Load() {
			return ErrDestroyed
		}
		return ErrNoProgress
	}
	l.Reset(bounds)
	s.logger.Info("progress reset", zap.Uint64("base", bounds.Base))
	return nil
}

// Destroy releases the ledger. It is safe to call more than once.
func (s *Session) Destroy() {
	if !s.destroyed.CompareAndSwap(false, true) {
		return
	}
	s.mu.Lock()
	s.progress = nil
	s.mu.Unlock()
	s.logger.Info("session destroyed", zap.Stringer("status", s.status.Get()))
}

// Ledger returns the progress ledger, or nil before InitProgress.
func (s *Session) Ledger() *ledger.Ledger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress
}

// Devices returns the throughput cache.
func (s *Session) Devices() *throughput.Cache { return s.devices }

// Device returns the record of device id, or nil when out of range.
func (s *Session) Device(id int) *throughput.Device { return s.devices.Device(id) }

// Status returns the status register handle.
func (s *Session) Status() *state.Register { return s.status }

// Clock returns the job clock.
func (s *Session) Clock() *clock.Job { return s.job }

// Name returns the session name.
func (s *Session) Name() string { return s.cfg.Name }

// SetStatus moves the job to st and logs the transition.
func (s *Session) SetStatus(st state.Status) {
	prev := s.status.Set(st)
	if prev != st {
		s.logger.Info("status changed", zap.Stringer("from", prev), zap.Stringer("to", st))
	}
}

// Now returns the session clock's current time.
func (s *Session) Now() time.Time { return s.clock.Now() }

// Pause moves a running job to Paused and starts counting paused time at
// now. It reports false when the job was not running.
func (s *Session) Pause(now time.Time) bool {
	if !s.status.CompareAndSet(state.Running, state.Paused) {
		return false
	}
	s.job.Pause(now)
	s.logger.Info("paused", zap.Time("at", now))
	return true
}

// Resume folds the pause ending at now into the paused total and moves the
// job back to Running. It reports false when the job was not paused.
func (s *Session) Resume(now time.Time) bool {
	if !s.status.CompareAndSet(state.Paused, state.Running) {
		return false
	}
	s.job.Resume(now)
	s.logger.Info("resumed", zap.Time("at", now), zap.Duration("paused_total", s.job.PausedFor(now)))
	return true
}

// RecordCracks adds n success events at the current time.
func (s *Session) RecordCracks(n uint32) {
	s.cracks.Tick(n, s.clock.Now())
}

// Cracks returns the success-rate window.
func (s *Session) Cracks() *ratewindow.Counter { return s.cracks }

// Projector returns an ETA projector over the current ledger.
func (s *Session) Projector() *eta.Projector {
	p := &eta.Projector{
		Rates:        s.devices,
		Status:       s.status,
		RuntimeLimit: s.cfg.RuntimeLimit,
		Runtime:      s.job,
	}
	if l := s.Ledger(); l != nil {
		p.Ledger = l
	}
	return p
}
