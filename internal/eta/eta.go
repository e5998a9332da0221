// Package eta projects when a search job will finish from the work left in
// the ledger and the aggregate device throughput.
package eta

import (
	"time"

	"github.com/JakeFAU/keyspace-status/internal/humanize"
	"github.com/JakeFAU/keyspace-status/internal/state"
)

// maxRemainingSeconds bounds the projection so far-off estimates stay
// representable as a timestamp.
const maxRemainingSeconds = 100_000_000

// Progress is the ledger view the projector reads.
type Progress interface {
	EndRelativeToSkip() uint64
	Remaining() uint64
}

// Rates supplies the aggregate throughput in candidates per millisecond.
type Rates interface {
	SpeedPerMsAll() float64
}

// StatusReader exposes the lifecycle status.
type StatusReader interface {
	Get() state.Status
}

// Elapsed reports how long the job has actually run, excluding pauses.
type Elapsed interface {
	Real(now time.Time) time.Duration
}

// Kind classifies an Estimate.
type Kind int

const (
	// NotApplicable means no projection makes sense: the keyspace is
	// unknown, the job already succeeded, or throughput is still settling.
	NotApplicable Kind = iota
	// Unknown means the job is projectable but has no throughput yet.
	Unknown
	// Known means Remaining and At are populated.
	Known
)

// String returns the kind as a snake_case label.
func (k Kind) String() string {
	switch k {
	case Unknown:
		return "unknown"
	case Known:
		return "known"
	default:
		return "not_applicable"
	}
}

// Estimate is one projection.
type Estimate struct {
	Kind      Kind
	Remaining time.Duration
	At        time.Time

	// RuntimeLimited is set when a runtime cap is configured.
	RuntimeLimited bool
	// RuntimeLeft is the time until the cap.
	RuntimeLeft time.Duration
	// LimitExceeded is set when the cap has already passed.
	LimitExceeded bool
	// Binding is set when the cap is reached before the projected finish.
	Binding bool

	now time.Time
}

// Valid reports whether Remaining and At are meaningful.
func (e Estimate) Valid() bool {
	return e.Kind == Known
}

// Projector combines ledger progress and throughput into an Estimate.
type Projector struct {
	Ledger Progress
	Rates  Rates
	Status StatusReader

	// RuntimeLimit caps the job's real running time. Zero disables the cap.
	RuntimeLimit time.Duration
	// Runtime measures real running time against RuntimeLimit.
	Runtime Elapsed
}

// Project computes the estimate at now.
func (p *Projector) Project(now time.Time) Estimate {
	est := Estimate{now: now}
	if p.RuntimeLimit > 0 && p.Runtime != nil {
		est.RuntimeLimited = true
		left := p.RuntimeLimit - p.Runtime.Real(now)
		if left <= 0 {
			est.LimitExceeded = true
			left = 0
		}
		est.RuntimeLeft = left
	}

	if p.Ledger == nil || p.Ledger.EndRelativeToSkip() == 0 {
		return est
	}
	if p.Status != nil {
		switch p.Status.Get() {
		case state.Cracked, state.Initializing, state.Autotuning:
			return est
		}
	}

	rate := 0.0
	if p.Rates != nil {
		rate = p.Rates.SpeedPerMsAll()
	}
	if rate <= 0 {
		est.Kind = Unknown
		return est
	}

	secs := float64(p.Ledger.Remaining()) / rate / 1000
	if secs > maxRemainingSeconds {
		secs = maxRemainingSeconds
	}
	est.Kind = Known
	est.Remaining = time.Duration(secs * float64(time.Second))
	est.At = now.Add(est.Remaining)
	if est.RuntimeLimited && !est.LimitExceeded && est.RuntimeLeft < est.Remaining {
		est.Binding = true
	}
	return est
}

// Relative renders the time left, with the runtime cap appended when one is
// configured.
func (e Estimate) Relative() string {
	var out string
	switch e.Kind {
	case NotApplicable:
		return "N/A"
	case Unknown:
		out = "unknown"
	default:
		out = humanize.Duration(e.Remaining)
	}
	return out + e.limitSuffix()
}

// Absolute renders the finish time, or the time the runtime cap is hit when
// that comes first.
func (e Estimate) Absolute() string {
	switch e.Kind {
	case NotApplicable:
		return "N/A"
	case Unknown:
		return "unknown"
	}
	at := e.At
	if e.Binding {
		at = e.now.Add(e.RuntimeLeft)
	}
	return humanize.Timestamp(at)
}

func (e Estimate) limitSuffix() string {
	switch {
	case !e.RuntimeLimited:
		return ""
	case e.LimitExceeded:
		return "; Runtime limit exceeded"
	default:
		return "; Runtime limited: " + humanize.Duration(e.RuntimeLeft)
	}
}
