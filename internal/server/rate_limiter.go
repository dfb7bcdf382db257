// Package server implements a token bucket limiter that throttles the raw
// inbound event stream of each connection, protecting the hub from floods
// before events reach dispatch.
package server

import (
	"sync"
	"time"
)

type rateLimiter struct {
	mu        sync.Mutex
	available float64
	burst     float64
	perSecond float64
	updated   time.Time
}

// newRateLimiter allows bursts of the given size refilled evenly over the
// interval.
func newRateLimiter(burst int, interval time.Duration) *rateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if interval <= 0 {
		interval = time.Second
	}

	return &rateLimiter{
		available: float64(burst),
		burst:     float64(burst),
		perSecond: float64(burst) / interval.Seconds(),
		updated:   time.Now(),
	}
}

// allow consumes one token, refilling first based on elapsed time. It reports
// false when the bucket is empty; callers drop the event silently.
func (rl *rateLimiter) allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if elapsed := now.Sub(rl.updated).Seconds(); elapsed > 0 {
		rl.available += elapsed * rl.perSecond
		if rl.available > rl.burst {
			rl.available = rl.burst
		}
	}
	rl.updated = now

	if rl.available < 1 {
		return false
	}
	rl.available--
	return true
}
