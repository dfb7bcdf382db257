// Package hub: signaling relay. Forwards opaque negotiation payloads between
// two named connections without inspecting or retaining them.
package hub

import "encoding/json"

// signalKinds enumerates the event types the relay will forward.
var signalKinds = map[string]struct{}{
	EventOffer:        {},
	EventAnswer:       {},
	EventICECandidate: {},
}

// Relay forwards a signaling payload from one connection to another, tagged
// with the sender's connection id so the recipient can route its reply. The
// payload is passed through untouched. An unknown or departed target is
// reported to the sender only.
func (h *Hub) Relay(fromID, kind, toID string, payload json.RawMessage) {
	if _, ok := signalKinds[kind]; !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	from := h.liveLocked(fromID)
	if from == nil {
		return
	}
	from.LastActiveAt = h.now()

	to := h.liveLocked(toID)
	if to == nil || toID == fromID {
		h.sendToLocked(from, ErrorEvent(kind, "unknown target"))
		return
	}

	h.sendToLocked(to, encodeEvent(kind, signalForwardPayload{From: fromID, Payload: payload}))
}
