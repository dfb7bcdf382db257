// Package hub: reaper. Periodically evicts participants that have been silent
// past the inactivity threshold, reusing the normal teardown path but
// skipping the reconnection grace window.
package hub

// reap evicts every participant whose last activity is older than the
// inactivity threshold. The client has already been silent for the full
// threshold, so eviction is immediate rather than grace-windowed.
func (h *Hub) reap() {
	if h.opts.InactivityThreshold <= 0 {
		return
	}
	now := h.now()

	h.mu.Lock()
	defer h.mu.Unlock()

	var stale []*Participant
	for _, p := range h.participants {
		if now.Sub(p.LastActiveAt) > h.opts.InactivityThreshold {
			stale = append(stale, p)
		}
	}
	for _, p := range stale {
		h.evictLocked(p, ReasonInactivity)
	}
}
