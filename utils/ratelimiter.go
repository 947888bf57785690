package utils

import (
	"context"
	"sync"
	"time"
)

// RateLimiter enforces a minimum gap between outgoing API requests
type RateLimiter struct {
	mu       sync.Mutex
	lastCall time.Time
	delay    time.Duration
}

// NewRateLimiter creates a new RateLimiter with the given delay in milliseconds
func NewRateLimiter(delayMs int) *RateLimiter {
	return &RateLimiter{
		delay: time.Duration(delayMs) * time.Millisecond,
	}
}

// Wait blocks until enough time has passed since the last request or ctx is done
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.lastCall.IsZero() {
		if elapsed := time.Since(r.lastCall); elapsed < r.delay {
			if err := Sleep(ctx, r.delay-elapsed); err != nil {
				return err
			}
		}
	}
	r.lastCall = time.Now()
	return nil
}

// Sleep waits for d, returning early with ctx.Err() if ctx is cancelled
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
