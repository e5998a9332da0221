package clock

import (
	"sync"
	"time"
)

// Job tracks the start of a job and the time it has spent paused.
//
// Paused time only grows while a pause is in progress and is folded into the
// accumulated total exactly once, on Resume.
type Job struct {
	mu          sync.Mutex
	start       time.Time
	pausedTotal time.Duration
	paused      bool
	pauseStart  time.Time
}

// NewJob returns a Job clock started at start.
func NewJob(start time.Time) *Job {
	return &Job{start: start}
}

// Start returns the job start timestamp.
func (j *Job) Start() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.start
}

// Restart resets the clock to a fresh start with no paused time.
func (j *Job) Restart(start time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.start = start
	j.pausedTotal = 0
	j.paused = false
	j.pauseStart = time.Time{}
}

// Pause records the pause boundary. It reports false if already paused.
func (j *Job) Pause(now time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.paused {
		return false
	}
	j.paused = true
	j.pauseStart = now
	return true
}

// Resume folds the in-progress pause into the total. It reports false if the
// clock was not paused.
func (j *Job) Resume(now time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.paused {
		return false
	}
	if d := now.Sub(j.pauseStart); d > 0 {
		j.pausedTotal += d
	}
	j.paused = false
	j.pauseStart = time.Time{}
	return true
}

// Paused reports whether a pause is in progress.
func (j *Job) Paused() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.paused
}

// Running returns the wall time elapsed since start.
func (j *Job) Running(now time.Time) time.Duration {
	j.mu.Lock()
	defer j.mu.Unlock()
	return clampZero(now.Sub(j.start))
}

// PausedFor returns the accumulated paused time, including the pause in
// progress.
func (j *Job) PausedFor(now time.Time) time.Duration {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.pausedLocked(now)
}

// Real returns running time minus paused time.
func (j *Job) Real(now time.Time) time.Duration {
	j.mu.Lock()
	defer j.mu.Unlock()
	return clampZero(now.Sub(j.start) - j.pausedLocked(now))
}

func (j *Job) pausedLocked(now time.Time) time.Duration {
	total := j.pausedTotal
	if j.paused {
		total += clampZero(now.Sub(j.pauseStart))
	}
	return total
}

func clampZero(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
