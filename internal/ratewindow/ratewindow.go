// Package ratewindow counts success events (cracks per time unit) over
// sliding minute, hour and day windows.
package ratewindow

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/JakeFAU/keyspace-status/internal/ring"
)

// Standard windows.
const (
	Minute = time.Minute
	Hour   = time.Hour
	Day    = 24 * time.Hour
)

// DefaultCapacity is the number of ticks retained.
const DefaultCapacity = 0x20000

type entry struct {
	count uint32
	at    time.Time
}

// Counter is a ring of timestamped event counts plus a lifetime total.
// It persists across pause and resume.
type Counter struct {
	ring  *ring.Ring[entry]
	total atomic.Uint64
	start atomic.Int64
}

// New allocates a Counter whose history starts at start.
func New(capacity int, start time.Time) (*Counter, error) {
	r, err := ring.New[entry](capacity)
	if err != nil {
		return nil, fmt.Errorf("rate window: %w", err)
	}
	c := &Counter{ring: r}
	c.start.Store(start.UnixNano())
	return c, nil
}

// Tick records n events at now, overwriting the oldest entry once the ring
// is full.
func (c *Counter) Tick(n uint32, now time.Time) {
	c.ring.Put(entry{count: n, at: now})
	c.total.Add(uint64(n))
}

// Count sums the events whose timestamp lies within window of now.
func (c *Counter) Count(window time.Duration, now time.Time) uint64 {
	var sum uint64
	c.ring.Each(func(e entry) {
		if e.at.Add(window).After(now) {
			sum += uint64(e.count)
		}
	})
	return sum
}

// Average returns lifetime events per window, measured over real (running
// minus paused) elapsed time. It is zero until any real time has elapsed.
func (c *Counter) Average(window, real time.Duration) float64 {
	if real <= 0 || window <= 0 {
		return 0
	}
	return float64(c.total.Load()) / (real.Seconds() / window.Seconds())
}

// Available reports whether the counter has history covering a full window.
func (c *Counter) Available(window time.Duration, now time.Time) bool {
	return c.Start().Add(window).Before(now)
}

// Total returns the lifetime event count.
func (c *Counter) Total() uint64 {
	return c.total.Load()
}

// Start returns the start of the counter's history.
func (c *Counter) Start() time.Time {
	return time.Unix(0, c.start.Load())
}

// Reset discards all history and restarts at start.
func (c *Counter) Reset(start time.Time) {
	c.ring.Reset()
	c.total.Store(0)
	c.start.Store(start.UnixNano())
}

// Report is the minute/hour/day view of a Counter at one instant.
type Report struct {
	CurrentMinute uint64  `json:"current_minute"`
	CurrentHour   uint64  `json:"current_hour"`
	CurrentDay    uint64  `json:"current_day"`
	AverageMinute float64 `json:"average_minute"`
	AverageHour   float64 `json:"average_hour"`
	AverageDay    float64 `json:"average_day"`
	MinuteReady   bool    `json:"minute_ready"`
	HourReady     bool    `json:"hour_ready"`
	DayReady      bool    `json:"day_ready"`
}

// Report builds the minute/hour/day view. Current counts are reported only
// when running is true; averages are always derived from real elapsed time.
func (c *Counter) Report(now time.Time, real time.Duration, running bool) Report {
	r := Report{
		AverageMinute: c.Average(Minute, real),
		AverageHour:   c.Average(Hour, real),
		AverageDay:    c.Average(Day, real),
		MinuteReady:   c.Available(Minute, now),
		HourReady:     c.Available(Hour, now),
		DayReady:      c.Available(Day, now),
	}
	if running {
		r.CurrentMinute = c.Count(Minute, now)
		r.CurrentHour = c.Count(Hour, now)
		r.CurrentDay = c.Count(Day, now)
	}
	return r
}

// String renders the report as "CUR:a,b,c AVG:x,y,z (Min,Hour,Day)". Current
// fields without a full window of history render as N/A, longest window
// first.
func (r Report) String() string {
	avg := fmt.Sprintf("AVG:%0.2f,%0.2f,%0.2f (Min,Hour,Day)", r.AverageMinute, r.AverageHour, r.AverageDay)
	switch {
	case r.DayReady:
		return fmt.Sprintf("CUR:%d,%d,%d %s", r.CurrentMinute, r.CurrentHour, r.CurrentDay, avg)
	case r.HourReady:
		return fmt.Sprintf("CUR:%d,%d,N/A %s", r.CurrentMinute, r.CurrentHour, avg)
	case r.MinuteReady:
		return fmt.Sprintf("CUR:%d,N/A,N/A %s", r.CurrentMinute, avg)
	default:
		return "CUR:N/A,N/A,N/A " + avg
	}
}
