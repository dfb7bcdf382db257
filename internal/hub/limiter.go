// Package hub: movement gate. Throttles high-frequency position updates by
// recording the last accepted move per connection and silently dropping
// anything arriving sooner than the configured minimum interval.
package hub

import (
	"sync"
	"time"
)

type moveGate struct {
	mu       sync.Mutex
	interval time.Duration
	last     map[string]time.Time
}

func newMoveGate(interval time.Duration) *moveGate {
	return &moveGate{
		interval: interval,
		last:     make(map[string]time.Time),
	}
}

// allow reports whether a movement event may be processed and, if so, records
// it as the last accepted one. A zero interval disables gating.
func (g *moveGate) allow(connID string, now time.Time) bool {
	if g.interval <= 0 {
		return true
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if last, ok := g.last[connID]; ok && now.Sub(last) < g.interval {
		return false
	}
	g.last[connID] = now
	return true
}

// forget drops the gate state for a departed connection.
func (g *moveGate) forget(connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.last, connID)
}
