// Package system provides the wall-clock implementation of clock.Clock.
package system

import (
	"time"

	"github.com/JakeFAU/keyspace-status/internal/clock"
)

var _ clock.Clock = Clock{}

// Clock reads the host wall clock in UTC.
type Clock struct{}

// New creates a new Clock.
func New() Clock {
	return Clock{}
}

// Now returns the current time in UTC.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
