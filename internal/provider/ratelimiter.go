package provider

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket shared by the HTTP providers. Each
// upstream gets its own bucket sized to that API's published limits.
type RateLimiter struct {
	mu       sync.Mutex
	tokens   int
	capacity int
	interval time.Duration
	last     time.Time
}

// NewRateLimiter allows capacity calls per interval, refilling one
// token every interval.
func NewRateLimiter(capacity int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:   capacity,
		capacity: capacity,
		interval: interval,
		last:     time.Now(),
	}
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		if r.take() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.interval):
		}
	}
}

func (r *RateLimiter) take() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	elapsed := time.Since(r.last)
	if refilled := int(elapsed / r.interval); refilled > 0 {
		r.tokens += refilled
		if r.tokens > r.capacity {
			r.tokens = r.capacity
		}
		r.last = r.last.Add(time.Duration(refilled) * r.interval)
	}

	if r.tokens > 0 {
		r.tokens--
		return true
	}
	return false
}
