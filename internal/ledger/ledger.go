// Package ledger accounts for work completed against a keyspace split across
// a group of targets.
//
// Producers on any device goroutine record done, rejected and restored
// candidate counts per target. Readers derive totals, the keyspace bounds
// adjusted for skip and limit, and the budget already excluded because a
// target has been satisfied. All reads are clamped: a subtraction that would
// underflow reports zero and a percentage over an empty denominator reports
// zero.
package ledger

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Bounds describes the keyspace being searched.
type Bounds struct {
	// Base is the un-amplified keyspace size (for example wordlist lines).
	Base uint64
	// Keyspace is the budget assigned to each target. Zero means Base.
	Keyspace uint64
	// Skip is the number of base entries to skip. Zero disables skipping.
	Skip uint64
	// Limit caps the number of base entries processed. Zero disables the cap.
	Limit uint64
	// Multiplier is the attack-mode amplification (rules, combinations,
	// masks). Zero is treated as one.
	Multiplier uint64
}

func (b Bounds) keyspace() uint64 {
	if b.Keyspace == 0 {
		return b.Base
	}
	return b.Keyspace
}

func (b Bounds) multiplier() uint64 {
	if b.Multiplier == 0 {
		return 1
	}
	return b.Multiplier
}

// Mode reports whether the total amount of work is known up front.
type Mode int

const (
	// KeyspaceUnknown is reported when no end bound is available.
	KeyspaceUnknown Mode = iota
	// KeyspaceKnown is reported when the end bound past skip is non-zero.
	KeyspaceKnown
)

// String returns the display form of the mode.
func (m Mode) String() string {
	if m == KeyspaceKnown {
		return "Keyspace known"
	}
	return "Keyspace unknown"
}

type target struct {
	done     atomic.Uint64
	rejected atomic.Uint64
	restored atomic.Uint64
	visible  atomic.Bool
}

func (t *target) total() uint64 {
	return t.done.Load() + t.rejected.Load() + t.restored.Load()
}

func (t *target) zero() {
	t.done.Store(0)
	t.rejected.Store(0)
	t.restored.Store(0)
	t.visible.Store(false)
}

// Ledger holds per-target counters and the keyspace bounds.
//
// Counter updates are atomic and take the read side of mu, so Reset, which
// takes the write side, never interleaves with an in-flight increment.
type Ledger struct {
	mu      sync.RWMutex
	bounds  Bounds
	targets []target

	restorePoint atomic.Uint64
	restoreTotal atomic.Uint64
}

// New allocates a ledger for n targets.
func New(n int, bounds Bounds) (*Ledger, error) {
	if n <= 0 {
		return nil, fmt.Errorf("ledger target count must be > 0, got %d", n)
	}
	return &Ledger{
		bounds:  bounds,
		targets: make([]target, n),
	}, nil
}

func (l *Ledger) add(idx int, n uint64, pick func(*target) *atomic.Uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if idx < 0 || idx >= len(l.targets) || n == 0 {
		return
	}
	pick(&l.targets[idx]).Add(n)
}

// RecordDone adds n evaluated candidates to target idx.
func (l *Ledger) RecordDone(idx int, n uint64) {
	l.add(idx, n, func(t *target) *atomic.Uint64 { return &t.done })
}

// RecordRejected adds n candidates filtered before evaluation to target idx.
func (l *Ledger) RecordRejected(idx int, n uint64) {
	l.add(idx, n, func(t *target) *atomic.Uint64 { return &t.rejected })
}

// RecordRestored adds n candidates credited from a checkpoint to target idx.
func (l *Ledger) RecordRestored(idx int, n uint64) {
	l.add(idx, n, func(t *target) *atomic.Uint64 { return &t.restored })
}

// Restore credits every target with n restored candidates, the way a
// checkpoint load covers the whole group.
func (l *Ledger) Restore(n uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n == 0 {
		return
	}
	for i := range l.targets {
		l.targets[i].restored.Add(n)
	}
}

// SetVisible marks target idx as satisfied (or not).
func (l *Ledger) SetVisible(idx int, v bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if idx < 0 || idx >= len(l.targets) {
		return
	}
	l.targets[idx].visible.Store(v)
}

// Visible reports whether target idx is satisfied.
func (l *Ledger) Visible(idx int) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if idx < 0 || idx >= len(l.targets) {
		return false
	}
	return l.targets[idx].visible.Load()
}

// VisibleCount returns the number of satisfied targets.
func (l *Ledger) VisibleCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for i := range l.targets {
		if l.targets[i].visible.Load() {
			n++
		}
	}
	return n
}

// Targets returns the size of the target group.
func (l *Ledger) Targets() int {
	return len(l.targets)
}

// Bounds returns the current keyspace bounds.
func (l *Ledger) Bounds() Bounds {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.bounds
}

func (l *Ledger) sum(pick func(*target) uint64) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var total uint64
	for i := range l.targets {
		total += pick(&l.targets[i])
	}
	return total
}

// Done returns evaluated candidates summed across targets.
func (l *Ledger) Done() uint64 {
	return l.sum(func(t *target) uint64 { return t.done.Load() })
}

// Rejected returns rejected candidates summed across targets.
func (l *Ledger) Rejected() uint64 {
	return l.sum(func(t *target) uint64 { return t.rejected.Load() })
}

// Restored returns restored candidates summed across targets.
func (l *Ledger) Restored() uint64 {
	return l.sum(func(t *target) uint64 { return t.restored.Load() })
}

// Current returns done + rejected + restored.
func (l *Ledger) Current() uint64 {
	return l.sum(func(t *target) uint64 { return t.total() })
}

// End returns the total work for the group: Base times the target count,
// or, with a limit, min(Limit, Base) amplified by the multiplier.
func (l *Ledger) End() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := uint64(len(l.targets))
	b := l.bounds
	if b.Limit == 0 {
		return b.keyspace() * n
	}
	return min(b.Limit, b.Base) * n * b.multiplier()
}

// Skip returns the work skipped up front, min(Skip, Base) amplified like End.
func (l *Ledger) Skip() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b := l.bounds
	if b.Skip == 0 {
		return 0
	}
	return min(b.Skip, b.Base) * uint64(len(l.targets)) * b.multiplier()
}

// CurrentRelativeToSkip returns Current minus Skip. It stays zero until any
// work has been recorded so a fresh job never reports progress before its
// skip offset.
func (l *Ledger) CurrentRelativeToSkip() uint64 {
	cur := l.Current()
	if cur == 0 {
		return 0
	}
	return subClamp(cur, l.Skip())
}

// EndRelativeToSkip returns End minus Skip.
func (l *Ledger) EndRelativeToSkip() uint64 {
	end := l.End()
	if end == 0 {
		return 0
	}
	return subClamp(end, l.Skip())
}

// Ignored returns the remaining budget of satisfied targets, which no longer
// needs to be searched.
func (l *Ledger) Ignored() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ks := l.bounds.keyspace()
	var total uint64
	for i := range l.targets {
		t := &l.targets[i]
		if !t.visible.Load() {
			continue
		}
		total += subClamp(ks, t.total())
	}
	return total
}

// Remaining returns the work still to do: end minus current minus ignored,
// all relative to skip.
func (l *Ledger) Remaining() uint64 {
	return subClamp(subClamp(l.EndRelativeToSkip(), l.CurrentRelativeToSkip()), l.Ignored())
}

// Mode reports whether the keyspace size is known.
func (l *Ledger) Mode() Mode {
	if l.EndRelativeToSkip() > 0 {
		return KeyspaceKnown
	}
	return KeyspaceUnknown
}

// FinishedPercent returns progress through the keyspace past skip.
func (l *Ledger) FinishedPercent() float64 {
	return percent(l.CurrentRelativeToSkip(), l.EndRelativeToSkip())
}

// RejectedPercent returns the share of current work that was rejected.
func (l *Ledger) RejectedPercent() float64 {
	return percent(l.Rejected(), l.Current())
}

// TargetsPercent returns the share of targets satisfied.
func (l *Ledger) TargetsPercent() float64 {
	return percent(uint64(l.VisibleCount()), uint64(len(l.targets)))
}

// SetRestorePoint records the checkpoint position and the base it is
// measured against.
func (l *Ledger) SetRestorePoint(point, total uint64) {
	l.restorePoint.Store(point)
	l.restoreTotal.Store(total)
}

// RestorePoint returns the last checkpoint position.
func (l *Ledger) RestorePoint() uint64 {
	return l.restorePoint.Load()
}

// RestoreTotal returns the base the restore point is measured against.
func (l *Ledger) RestoreTotal() uint64 {
	return l.restoreTotal.Load()
}

// RestorePercent returns RestorePoint as a share of RestoreTotal.
func (l *Ledger) RestorePercent() float64 {
	return percent(l.restorePoint.Load(), l.restoreTotal.Load())
}

// Reset zeroes every counter and installs new bounds. It is used when the
// keyspace grows or a checkpoint is restored.
func (l *Ledger) Reset(bounds Bounds) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.targets {
		l.targets[i].zero()
	}
	l.bounds = bounds
	l.restorePoint.Store(0)
	l.restoreTotal.Store(0)
}

func subClamp(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}

func percent(num, den uint64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den) * 100
}
