// Package clock defines the time source used across the status subsystem and
// the job clock that splits elapsed wall time into running and paused spans.
package clock

import "time"

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}

// Func adapts a plain function to Clock.
type Func func() time.Time

// Now calls f.
func (f Func) Now() time.Time {
	return f()
}
