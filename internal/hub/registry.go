// Package hub: connection registry. Maps transport connections to logical
// participant records, resolves reconnection takeover by stable client id,
// and owns the cancellable grace timers that delay eviction.
package hub

import (
	"log"
	"time"

	"github.com/google/uuid"
)

// Participant is the hub's record of one connected logical user.
type Participant struct {
	// ConnID identifies the current transport connection. It changes on
	// every reconnect.
	ConnID string

	// ClientID is the caller-supplied stable identifier used for takeover
	// matching. Empty when the caller supplied none, in which case every
	// reconnect creates a fresh participant.
	ClientID string

	// Position is the last accepted position, nil until one is set.
	Position *Position

	// Zone names the region the position last matched, empty for none.
	Zone string

	ConnectedAt  time.Time
	LastActiveAt time.Time

	conn          Conn
	sessions      map[string]struct{}
	lastConnectAt time.Time
	pendingGone   bool
	graceTimer    *time.Timer
}

// Connect registers a new transport connection and returns its assigned
// connection id. When clientID matches a live or grace-window record, the new
// connection takes over that record: position, zone, and chat sessions are
// preserved, any scheduled eviction is cancelled, and no join or leave event
// is broadcast. A reconnect arriving faster than the configured minimum
// interval is rejected with ErrReconnectTooSoon.
func (h *Hub) Connect(conn Conn, clientID string) (string, error) {
	now := h.now()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return "", ErrHubClosed
	}

	connID := uuid.NewString()

	if clientID != "" {
		if prev := h.owners[clientID]; prev != nil {
			if h.opts.ReconnectMinInterval > 0 && now.Sub(prev.lastConnectAt) < h.opts.ReconnectMinInterval {
				h.mu.Unlock()
				return "", ErrReconnectTooSoon
			}

			oldConn := prev.conn
			h.adoptLocked(prev, connID, conn, now)
			h.sendToLocked(prev, encodeEvent(EventConnected, connectedPayload{ID: connID, Members: len(h.participants)}))
			h.mu.Unlock()

			// A still-open prior connection is superseded, not kept alive.
			if oldConn != nil {
				_ = oldConn.Close()
			}
			log.Printf("Client %q reconnected as %s", clientID, connID)
			return connID, nil
		}
	}

	p := &Participant{
		ConnID:        connID,
		ClientID:      clientID,
		ConnectedAt:   now,
		LastActiveAt:  now,
		lastConnectAt: now,
		conn:          conn,
		sessions:      make(map[string]struct{}),
	}
	h.participants[connID] = p
	if clientID != "" {
		h.owners[clientID] = p
	}
	if h.metrics != nil {
		h.metrics.Connections.Inc()
	}

	h.sendToLocked(p, encodeEvent(EventConnected, connectedPayload{ID: connID, Members: len(h.participants)}))
	h.broadcastLocked(encodeEvent(EventUserJoined, joinedPayload{ID: connID, Members: len(h.participants)}), connID)
	h.mu.Unlock()

	log.Printf("Participant %s connected. Total participants: %d", connID, h.ConnectionCount())
	return connID, nil
}

// adoptLocked transfers an existing record to a new connection, rewriting the
// connection id everywhere it is indexed: the participant map, the movement
// gate, and every session the participant belongs to. Callers must hold h.mu.
func (h *Hub) adoptLocked(p *Participant, connID string, conn Conn, now time.Time) {
	oldID := p.ConnID

	if p.graceTimer != nil {
		p.graceTimer.Stop()
		p.graceTimer = nil
	}

	delete(h.participants, oldID)
	h.participants[connID] = p

	for sid := range p.sessions {
		s := h.sessions[sid]
		if s == nil {
			continue
		}
		delete(h.pairs, pairKeyFor(s.A, s.B))
		s.replaceParticipant(oldID, connID)
		h.pairs[pairKeyFor(s.A, s.B)] = s
	}

	h.moves.forget(oldID)
	p.ConnID = connID
	p.conn = conn
	p.pendingGone = false
	p.lastConnectAt = now
	p.LastActiveAt = now
}

// Disconnect handles a transport-level or client-requested disconnect. A
// participant with a stable client id is not destroyed immediately: eviction
// is scheduled after the reconnection grace window and cancelled if the
// client returns in time. Participants without a client id are evicted at
// once. Calling Disconnect twice for the same connection is a no-op.
func (h *Hub) Disconnect(connID, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p := h.participants[connID]
	if p == nil || p.pendingGone {
		return
	}

	p.conn = nil
	p.pendingGone = true

	if p.ClientID == "" || h.opts.ReconnectGrace <= 0 {
		h.evictLocked(p, reason)
		return
	}

	p.graceTimer = time.AfterFunc(h.opts.ReconnectGrace, func() {
		h.expireGrace(connID, reason)
	})
	log.Printf("Participant %s disconnected (%s); holding record for %s", connID, reason, h.opts.ReconnectGrace)
}

// expireGrace is the delayed half of Disconnect. Takeover rekeys the record
// under a new connection id, so a stale timer finds nothing and returns.
func (h *Hub) expireGrace(connID, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	p := h.participants[connID]
	if p == nil || !p.pendingGone {
		return
	}
	h.evictLocked(p, reason)
}

// evictLocked destroys a participant record: removes it from every index,
// tears down its chat sessions, and broadcasts the departure with the updated
// member count. Callers must hold h.mu.
func (h *Hub) evictLocked(p *Participant, reason string) {
	if p.graceTimer != nil {
		p.graceTimer.Stop()
		p.graceTimer = nil
	}

	delete(h.participants, p.ConnID)
	if p.ClientID != "" && h.owners[p.ClientID] == p {
		delete(h.owners, p.ClientID)
	}
	h.moves.forget(p.ConnID)
	h.teardownSessionsLocked(p)

	if h.metrics != nil {
		h.metrics.Connections.Dec()
		h.metrics.EvictionsTotal.WithLabelValues(reason).Inc()
	}

	h.broadcastLocked(encodeEvent(EventUserLeft, leftPayload{ID: p.ConnID, Reason: reason, Members: len(h.participants)}), "")
	log.Printf("Participant %s evicted (%s). Total participants: %d", p.ConnID, reason, len(h.participants))

	if p.conn != nil {
		conn := p.conn
		p.conn = nil
		_ = conn.Close()
	}
}
