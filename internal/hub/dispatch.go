// Package hub: event dispatch. Decodes the inbound envelope, routes each
// event to the owning component, and confines failures to the originating
// connection.
package hub

import (
	"encoding/json"
	"log"
)

// Dispatch routes one raw inbound event from a connection. Validation errors
// are answered with an error event to the sender only; a panicking handler is
// recovered so one connection cannot corrupt service for the others.
func (h *Hub) Dispatch(connID string, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic handling event from %s: %v", connID, r)
			h.sendError(connID, "", "internal error")
		}
	}()

	var evt Event
	if err := json.Unmarshal(raw, &evt); err != nil {
		h.sendError(connID, "", "malformed event")
		return
	}
	h.markEvent(evt.Type)

	switch evt.Type {
	case EventSetInitialPosition:
		pos, err := parsePosition(evt.Payload)
		if err != nil {
			h.sendError(connID, evt.Type, err.Error())
			return
		}
		// Initial placement is exempt from the movement gate so a client can
		// appear immediately after connecting.
		h.UpdatePosition(connID, pos)

	case EventMove:
		pos, err := parsePosition(evt.Payload)
		if err != nil {
			h.sendError(connID, evt.Type, err.Error())
			return
		}
		if !h.moves.allow(connID, h.now()) {
			// Rate-limited moves are dropped without a reply so flooding is
			// never rewarded with round-trip chatter.
			if h.metrics != nil {
				h.metrics.DroppedMovesTotal.Inc()
			}
			return
		}
		h.UpdatePosition(connID, pos)

	case EventRequestChat:
		var body requestChatPayload
		if err := json.Unmarshal(evt.Payload, &body); err != nil || body.Target == "" {
			h.sendError(connID, evt.Type, "malformed request")
			return
		}
		h.RequestSession(connID, body.Target)

	case EventSendMessage:
		var body sendMessagePayload
		if err := json.Unmarshal(evt.Payload, &body); err != nil || body.SessionID == "" {
			h.sendError(connID, evt.Type, "malformed request")
			return
		}
		h.SendMessage(connID, body.SessionID, body.Text)

	case EventOffer, EventAnswer, EventICECandidate:
		var body signalPayload
		if err := json.Unmarshal(evt.Payload, &body); err != nil || body.To == "" {
			h.sendError(connID, evt.Type, "malformed request")
			return
		}
		h.Relay(connID, evt.Type, body.To, body.Payload)

	case EventDisconnect:
		var body disconnectPayload
		_ = json.Unmarshal(evt.Payload, &body)
		reason := body.Reason
		if reason == "" {
			reason = ReasonTransportClose
		}
		h.Disconnect(connID, reason)

	default:
		h.sendError(connID, evt.Type, "unknown event type")
	}
}

// sendError reports a failure to the originating connection only; errors are
// never broadcast.
func (h *Hub) sendError(connID, event, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sendToLocked(h.liveLocked(connID), ErrorEvent(event, message))
}
