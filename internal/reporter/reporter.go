// Package reporter polls a session on an interval and turns what it sees
// into progress events: one start, one per status transition, a snapshot per
// tick and a final done event once the session reaches a terminal status.
package reporter

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/keyspace-status/internal/progress"
	"github.com/JakeFAU/keyspace-status/internal/session"
	"github.com/JakeFAU/keyspace-status/internal/state"
)

// DefaultInterval is the status refresh period.
const DefaultInterval = 10 * time.Second

// Config controls Reporter behavior.
type Config struct {
	Interval time.Duration
	// Hardware includes a hardware-monitor poll in every snapshot.
	Hardware bool
}

// Reporter emits progress events for one session.
type Reporter struct {
	sess    *session.Session
	id      [16]byte
	emitter progress.Emitter
	cfg     Config
	logger  *zap.Logger

	started bool
	last    state.Status
	done    bool
}

// New constructs a Reporter. id is the run identifier shared with every sink.
func New(sess *session.Session, id uuid.UUID, emitter progress.Emitter, cfg Config, logger *zap.Logger) *Reporter {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{
		sess:    sess,
		id:      progress.UUIDToBytes(id),
		emitter: emitter,
		cfg:     cfg,
		logger:  logger.With(zap.String("session_id", id.String())),
	}
}

// Done reports whether the final event has been emitted.
func (r *Reporter) Done() bool { return r.done }

// Tick takes one snapshot and emits the events it implies. It returns true
// once the session is terminal and the done event has been emitted.
func (r *Reporter) Tick(ctx context.Context) bool {
	if r.done {
		return true
	}
	snap := r.sess.Snapshot(ctx, r.cfg.Hardware)
	st := snap.Status

	if !r.started {
		r.started = true
		r.last = st
		r.emit(progress.Event{TS: snap.TakenAt, Stage: progress.StageStart, Status: st})
	} else if st != r.last {
		r.emit(progress.Event{TS: snap.TakenAt, Stage: progress.StageStatus, Status: st, Previous: r.last})
		r.logger.Debug("status transition observed", zap.Stringer("from", r.last), zap.Stringer("to", st))
		r.last = st
	}

	if st.Terminal() {
		r.done = true
		r.emit(progress.Event{TS: snap.TakenAt, Stage: progress.StageDone, Status: st, Snapshot: &snap})
		return true
	}
	r.emit(progress.Event{TS: snap.TakenAt, Stage: progress.StageSnapshot, Status: st, Snapshot: &snap})
	return false
}

// Run ticks immediately and then every Interval until the session finishes
// or ctx is cancelled.
func (r *Reporter) Run(ctx context.Context) error {
	if r.Tick(ctx) {
		return nil
	}
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reporter stopped before session finished", zap.Stringer("status", r.last))
			return ctx.Err()
		case <-ticker.C:
			if r.Tick(ctx) {
				r.logger.Info("session finished", zap.Stringer("status", r.last))
				return nil
			}
		}
	}
}

func (r *Reporter) emit(evt progress.Event) {
	if r.emitter == nil {
		return
	}
	evt.SessionID = r.id
	evt.Name = r.sess.Name()
	if evt.TS.IsZero() {
		evt.TS = time.Now().UTC()
	}
	r.emitter.Emit(evt)
}
