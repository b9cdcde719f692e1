package middleware

import (
	"context"
	"sync"
	"time"
)

// RateLimit spaces RPC calls at least interval apart. A call that arrives
// too early waits for its slot instead of being dropped.
type RateLimit struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

// NewRateLimit creates a rate-limiting middleware that allows at most one
// call per the given interval.
func NewRateLimit(interval time.Duration) *RateLimit {
	return &RateLimit{
		interval: interval,
	}
}

// Wrap decorates the call with rate limiting.
func (r *RateLimit) Wrap(next CallFunc) CallFunc {
	return func(ctx context.Context, method string, params ...interface{}) ([]byte, error) {
		r.mu.Lock()
		now := time.Now()
		wait := r.next.Sub(now)
		if wait < 0 {
			wait = 0
		}
		r.next = now.Add(wait + r.interval)
		r.mu.Unlock()

		if wait > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		return next(ctx, method, params...)
	}
}
