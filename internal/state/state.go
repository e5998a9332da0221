// Package state holds the job lifecycle status shared between the job
// controller, which owns transitions, and the status readers.
package state

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Status is one value of the fixed lifecycle set.
type Status int32

// Lifecycle values, numbered in the order they were historically reported.
const (
	Initializing Status = iota
	Autotuning
	Running
	Paused
	Exhausted
	Cracked
	Aborted
	Quit
	Bypass
)

var names = [...]string{
	Initializing: "Initializing",
	Autotuning:   "Autotuning",
	Running:      "Running",
	Paused:       "Paused",
	Exhausted:    "Exhausted",
	Cracked:      "Cracked",
	Aborted:      "Aborted",
	Quit:         "Quit",
	Bypass:       "Bypass",
}

// UnknownName is reported for values outside the lifecycle set.
const UnknownName = "Unknown! Bug!"

// String returns the display name of s.
func (s Status) String() string {
	if s < 0 || int(s) >= len(names) {
		return UnknownName
	}
	return names[s]
}

// Terminal reports whether the job has stopped and will not run again.
func (s Status) Terminal() bool {
	switch s {
	case Exhausted, Cracked, Aborted, Quit, Bypass:
		return true
	default:
		return false
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Parse resolves a status name, case-insensitively.
func Parse(name string) (Status, error) {
	for i, n := range names {
		if strings.EqualFold(n, name) {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", name)
}

// Register is an atomically readable status cell. The zero value reads as
// Initializing.
type Register struct {
	v atomic.Int32
}

// NewRegister returns a Register set to Initializing.
func NewRegister() *Register {
	return &Register{}
}

// Get returns the current status.
func (r *Register) Get() Status {
	return Status(r.v.Load())
}

// Set stores s and returns the previous status.
func (r *Register) Set(s Status) Status {
	return Status(r.v.Swap(int32(s)))
}

// CompareAndSet moves from old to s only if the register still holds old.
func (r *Register) CompareAndSet(old, s Status) bool {
	return r.v.CompareAndSwap(int32(old), int32(s))
}

// IsRunning reports whether the job is actively running.
func (r *Register) IsRunning() bool { return r.Get() == Running }

// IsPaused reports whether the job is paused.
func (r *Register) IsPaused() bool { return r.Get() == Paused }

// IsTerminal reports whether the job has finished.
func (r *Register) IsTerminal() bool { return r.Get().Terminal() }

// ProjectionsValid is false while the job is still initializing or
// autotuning; throughput figures from those phases are not representative.
func (r *Register) ProjectionsValid() bool {
	s := r.Get()
	return s != Initializing && s != Autotuning
}

// CurrentRatesValid is true only while running; windowed current counts are
// reported as zero otherwise.
func (r *Register) CurrentRatesValid() bool { return r.IsRunning() }
