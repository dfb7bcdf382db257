// Package hub holds the Hub type that owns all shared mutable state: the
// participant registry, the chat-session table, and the timers that govern
// reconnection grace and inactivity reaping.
package hub

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// Connection errors returned by Connect.
var (
	ErrHubClosed        = errors.New("hub is shut down")
	ErrReconnectTooSoon = errors.New("reconnecting too fast")
)

// Conn is the transport-side view of a connection. Send must not block; it
// reports false when the message could not be queued. Implementations are
// provided by the server package and by test fakes.
type Conn interface {
	Send(message []byte) bool
	Close() error
}

// Options configures a Hub instance. Zero values disable the corresponding
// behavior where that is a valid configuration (no world bounds, no zones,
// no proximity pairing, no movement gate, no reconnection grace).
type Options struct {
	// ReconnectGrace is the window after a disconnect during which a
	// connection presenting the same client id silently reclaims the record.
	ReconnectGrace time.Duration

	// ReconnectMinInterval rejects a reconnect for a client id arriving
	// sooner than this after its previous connect.
	ReconnectMinInterval time.Duration

	// MoveMinInterval is the minimum spacing between accepted movement
	// updates per connection. Faster updates are dropped silently.
	MoveMinInterval time.Duration

	// InactivityThreshold is how long a participant may stay silent before
	// the reaper evicts it. Zero disables reaping.
	InactivityThreshold time.Duration

	// ReaperInterval is the sweep period of the reaper.
	ReaperInterval time.Duration

	// MaxChatMessageLength caps chat message size; longer messages are
	// rejected, not truncated.
	MaxChatMessageLength int

	// ProximityThreshold pairs two participants into a chat session when
	// their positions come within this distance. Zero disables the trigger.
	ProximityThreshold float64

	// WorldBounds, when set, clamps accepted positions into the world.
	WorldBounds *Bounds

	// Zones are the named regions used for zone-transition broadcasts.
	Zones []Zone
}

// Hub is the single owner of the participant and chat-session maps. All
// mutation goes through its methods under one mutex, so no handler can
// observe a torn state.
type Hub struct {
	mu           sync.Mutex
	opts         Options
	participants map[string]*Participant // keyed by connection id
	owners       map[string]*Participant // live owner keyed by client id
	sessions     map[string]*ChatSession // keyed by session id
	pairs        map[pairKey]*ChatSession
	moves        *moveGate
	metrics      *Metrics
	closed       bool

	now    func() time.Time
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Hub with the given options. A nil metrics disables metric
// collection, which tests use to avoid registry collisions.
func New(opts Options, metrics *Metrics) *Hub {
	if opts.ReaperInterval <= 0 {
		opts.ReaperInterval = 30 * time.Second
	}
	if opts.MaxChatMessageLength <= 0 {
		opts.MaxChatMessageLength = 512
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		opts:         opts,
		participants: make(map[string]*Participant),
		owners:       make(map[string]*Participant),
		sessions:     make(map[string]*ChatSession),
		pairs:        make(map[pairKey]*ChatSession),
		moves:        newMoveGate(opts.MoveMinInterval),
		metrics:      metrics,
		now:          time.Now,
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
}

// Run drives the reaper sweep until Shutdown is called. It should be started
// in its own goroutine.
func (h *Hub) Run() {
	defer close(h.done)

	ticker := time.NewTicker(h.opts.ReaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownParticipants()
			return
		case <-ticker.C:
			h.reap()
		}
	}
}

// Shutdown stops the reaper, evicts every participant, and closes their
// connections. It returns context.DeadlineExceeded when Run does not finish
// within the timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")
	h.cancel()

	select {
	case <-h.done:
		log.Println("Hub shutdown completed")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached")
		return context.DeadlineExceeded
	}
}

func (h *Hub) shutdownParticipants() {
	h.mu.Lock()
	h.closed = true

	conns := make([]Conn, 0, len(h.participants))
	for _, p := range h.participants {
		if p.graceTimer != nil {
			p.graceTimer.Stop()
			p.graceTimer = nil
		}
		if p.conn != nil {
			conns = append(conns, p.conn)
		}
	}
	h.participants = make(map[string]*Participant)
	h.owners = make(map[string]*Participant)
	h.sessions = make(map[string]*ChatSession)
	h.pairs = make(map[pairKey]*ChatSession)
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.Close(); err != nil {
			log.Printf("Error closing connection during shutdown: %v", err)
		}
	}
	log.Printf("Closed %d connections during hub shutdown", len(conns))
}

// ConnectionCount reports the number of participants with a live transport.
// Records inside the reconnection grace window are not counted.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	count := 0
	for _, p := range h.participants {
		if !p.pendingGone {
			count++
		}
	}
	return count
}

// SessionCount reports the number of live chat sessions.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// liveLocked resolves a connection id to its participant, skipping records
// whose transport is gone (grace window). Callers must hold h.mu.
func (h *Hub) liveLocked(connID string) *Participant {
	p := h.participants[connID]
	if p == nil || p.pendingGone {
		return nil
	}
	return p
}

// sendToLocked queues an event for one participant. A full send buffer is a
// transport fault: logged, never fatal to the caller. Callers must hold h.mu.
func (h *Hub) sendToLocked(p *Participant, message []byte) {
	if p == nil || p.conn == nil || message == nil {
		return
	}
	if !p.conn.Send(message) {
		log.Printf("Dropped event for %s: send buffer full or connection closed", p.ConnID)
	}
}

// broadcastLocked fans an event out to every participant except the one named
// by except. Individual send failures do not stop the fan-out. Callers must
// hold h.mu.
func (h *Hub) broadcastLocked(message []byte, except string) {
	if message == nil {
		return
	}
	for id, p := range h.participants {
		if id == except {
			continue
		}
		h.sendToLocked(p, message)
	}
	if h.metrics != nil {
		h.metrics.BroadcastsTotal.Inc()
	}
}

func (h *Hub) markEvent(eventType string) {
	if h.metrics != nil {
		h.metrics.EventsTotal.WithLabelValues(eventType).Inc()
	}
}
