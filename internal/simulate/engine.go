// Package simulate drives a session with synthetic device workers so the
// status service can run standalone. Each active device claims fixed-size
// batches of the keyspace at a paced rate, feeding the ledger, the throughput
// cache and the success-rate window exactly as a real search would.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/keyspace-status/internal/ledger"
	"github.com/JakeFAU/keyspace-status/internal/metrics"
	"github.com/JakeFAU/keyspace-status/internal/session"
	"github.com/JakeFAU/keyspace-status/internal/state"
)

// ErrNoProgress is returned when Run is called before InitProgress.
var ErrNoProgress = errors.New("simulate: session progress not initialised")

// Config controls Engine behavior.
type Config struct {
	// BatchesPerSecond paces each device.
	BatchesPerSecond float64
	BatchSize        uint64
	// CrackProbability is the chance that one batch recovers a target.
	CrackProbability float64
	// RejectEvery marks one candidate per RejectEvery as rejected; 0 disables.
	RejectEvery uint64
	Autotune    time.Duration
	// PausePoll is how often a paused worker rechecks the status.
	PausePoll time.Duration
	Seed      uint64
}

func (c *Config) applyDefaults() {
	if c.BatchesPerSecond <= 0 {
		c.BatchesPerSecond = 20
	}
	if c.BatchSize == 0 {
		c.BatchSize = 1000
	}
	if c.PausePoll <= 0 {
		c.PausePoll = 10 * time.Millisecond
	}
}

// Engine runs one worker per active device against a session.
type Engine struct {
	sess   *session.Session
	cfg    Config
	logger *zap.Logger
	pacer  *Pacer

	claimed atomic.Uint64
	settled atomic.Uint64
	batches atomic.Uint64

	// crackMu serialises target recovery bookkeeping.
	crackMu sync.Mutex
}

// New constructs an Engine.
func New(sess *session.Session, cfg Config, logger *zap.Logger) *Engine {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Engine{
		sess:   sess,
		cfg:    cfg,
		logger: logger.Named("simulate"),
		pacer:  NewPacer(cfg.BatchesPerSecond, 1),
	}
}

// Run autotunes, moves the session to Running and blocks until the keyspace
// is exhausted, every target is recovered, or ctx is cancelled. On
// cancellation a still-active session is marked Quit.
func (e *Engine) Run(ctx context.Context) error {
	l := e.sess.Ledger()
	if l == nil {
		return ErrNoProgress
	}
	e.sess.SetStatus(state.Autotuning)
	if e.cfg.Autotune > 0 {
		select {
		case <-ctx.Done():
			e.quit()
			return fmt.Errorf("autotune: %w", ctx.Err())
		case <-time.After(e.cfg.Autotune):
		}
	}
	e.sess.SetStatus(state.Running)
	// The skipped prefix counts as covered, like a restored checkpoint.
	if skip := l.Skip(); skip > 0 && l.Current() == 0 {
		l.Restore(skip / uint64(l.Targets()))
	}
	if l.EndRelativeToSkip() == 0 {
		e.finish(state.Exhausted)
		return nil
	}

	var wg sync.WaitGroup
	for _, d := range e.sess.Devices().Devices() {
		if d.Skipped() {
			continue
		}
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			e.work(ctx, id, l)
		}(d.ID())
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		e.quit()
		return fmt.Errorf("simulate: %w", err)
	}
	e.logger.Info("simulation finished",
		zap.Stringer("status", e.sess.Status().Get()),
		zap.Uint64("batches", e.batches.Load()),
	)
	return nil
}

func (e *Engine) quit() {
	if !e.sess.Status().IsTerminal() {
		e.sess.SetStatus(state.Quit)
	}
}

func (e *Engine) work(ctx context.Context, id int, l *ledger.Ledger) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	logger := e.logger.With(zap.Int("device", id))
	rng := rand.New(rand.NewPCG(e.cfg.Seed, uint64(id)+1))
	dev := e.sess.Device(id)
	total := l.EndRelativeToSkip()
	targets := l.Targets()
	last := time.Now()

	logger.Debug("device worker started")
	defer logger.Debug("device worker stopped")

	for {
		if ctx.Err() != nil {
			return
		}
		st := e.sess.Status().Get()
		if st.Terminal() {
			return
		}
		if st == state.Paused {
			select {
			case <-ctx.Done():
				return
			case <-time.After(e.cfg.PausePoll):
			}
			last = time.Now()
			continue
		}

		if err := e.pacer.Wait(ctx, id); err != nil {
			return
		}

		start := e.claimed.Add(e.cfg.BatchSize) - e.cfg.BatchSize
		if start >= total {
			return
		}
		n := min(e.cfg.BatchSize, total-start)
		batch := e.batches.Add(1)
		target := int(batch % uint64(targets))

		rejected := uint64(0)
		if e.cfg.RejectEvery > 0 {
			rejected = n / e.cfg.RejectEvery
		}
		l.RecordRejected(target, rejected)
		l.RecordDone(target, n-rejected)

		now := time.Now()
		ms := float64(now.Sub(last).Microseconds()) / 1000
		last = now
		dev.RecordSpeedSample(n, ms)
		dev.RecordExecSample(ms)
		metrics.ObserveCandidates(id, n)

		if e.cfg.CrackProbability > 0 && rng.Float64() < e.cfg.CrackProbability {
			e.recover(l, rng)
		}
		if e.settled.Add(n) >= total {
			e.finish(state.Exhausted)
			return
		}
	}
}

func (e *Engine) recover(l *ledger.Ledger, rng *rand.Rand) {
	e.crackMu.Lock()
	defer e.crackMu.Unlock()

	targets := l.Targets()
	if l.VisibleCount() >= targets {
		return
	}
	idx := rng.IntN(targets)
	for l.Visible(idx) {
		idx = (idx + 1) % targets
	}
	l.SetVisible(idx, true)
	e.sess.RecordCracks(1)
	metrics.ObserveRecovered(1)
	if l.VisibleCount() == targets {
		e.finish(state.Cracked)
	}
}

// finish moves an active session to st once; later calls are ignored.
func (e *Engine) finish(st state.Status) {
	reg := e.sess.Status()
	for {
		cur := reg.Get()
		if cur.Terminal() {
			return
		}
		if reg.CompareAndSet(cur, st) {
			e.logger.Info("session finished", zap.Stringer("status", st))
			return
		}
	}
}
