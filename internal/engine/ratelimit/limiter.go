// Package ratelimit paces outbound API requests. One Limiter is shared
// by every fetch path in an invocation and is the sole serialization
// point for outbound traffic.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Limiter grants requests no closer together than its interval,
// measured grant to grant. Concurrent callers are serialized; each
// granted request advances the shared clock.
type Limiter struct {
	mu        sync.Mutex
	interval  time.Duration
	lastGrant time.Time
}

// New creates a Limiter from a requests-per-minute ceiling. A zero or
// negative rate is a configuration error and is rejected here, not at
// first acquire.
func New(requestsPerMinute int) (*Limiter, error) {
	if requestsPerMinute <= 0 {
		return nil, fmt.Errorf("rate limit must be positive, got %d", requestsPerMinute)
	}
	return &Limiter{
		interval: time.Minute / time.Duration(requestsPerMinute),
	}, nil
}

// Interval returns the minimum spacing between grants.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Acquire blocks until one request may be issued, or until ctx is
// done. Grants form a strictly ordered sequence: no two are spaced
// closer than the interval, no matter how many callers wait.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := time.Now()
		if l.lastGrant.IsZero() || now.Sub(l.lastGrant) >= l.interval {
			l.lastGrant = now
			l.mu.Unlock()
			return nil
		}
		wait := l.interval - now.Sub(l.lastGrant)
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			// Another caller may have taken this slot; re-check.
		}
	}
}
