package simulate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/keyspace-status/internal/metrics"
)

// Pacer hands out per-device batch tokens.
type Pacer struct {
	mu       sync.Mutex
	limiters map[int]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewPacer creates a Pacer allowing perSecond batches per device. A
// non-positive rate disables pacing.
func NewPacer(perSecond float64, burst int) *Pacer {
	r := rate.Limit(perSecond)
	if perSecond <= 0 {
		r = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &Pacer{
		limiters: make(map[int]*rate.Limiter),
		rate:     r,
		burst:    burst,
	}
}

// Wait blocks until device may run its next batch, respecting ctx.
func (p *Pacer) Wait(ctx context.Context, device int) error {
	p.mu.Lock()
	limiter, ok := p.limiters[device]
	if !ok {
		limiter = rate.NewLimiter(p.rate, p.burst)
		p.limiters[device] = limiter
	}
	p.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("pace device %d: %w", device, err)
	}
	// Immediate grants are not delays.
	if d := time.Since(start); d > time.Millisecond {
		metrics.ObserveRateLimitDelay(device, d)
	}
	return nil
}
