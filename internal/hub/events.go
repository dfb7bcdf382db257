// Package hub defines the JSON event envelope and payload types exchanged
// between clients and the hub.
package hub

import (
	"encoding/json"
	"log"
	"time"
)

// Inbound event types sent by clients.
const (
	EventSetInitialPosition = "set-initial-position"
	EventMove               = "move"
	EventRequestChat        = "request-chat"
	EventSendMessage        = "send-message"
	EventOffer              = "offer"
	EventAnswer             = "answer"
	EventICECandidate       = "ice-candidate"
	EventDisconnect         = "disconnect"
)

// Outbound event types emitted by the hub. The signaling types (offer, answer,
// ice-candidate) are reused verbatim on the outbound side.
const (
	EventConnected       = "connected"
	EventUserJoined      = "user-joined"
	EventUserLeft        = "user-left"
	EventUpdatePositions = "update-positions"
	EventZoneChanged     = "zone-changed"
	EventChatRequest     = "chat-request"
	EventReceiveMessage  = "receive-message"
	EventError           = "error"
)

// Departure reasons carried by user-left broadcasts.
const (
	ReasonTransportClose = "transport-close"
	ReasonInactivity     = "inactivity"
)

// Event is the envelope for every message crossing the WebSocket, in both
// directions. The payload shape depends on the type.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type connectedPayload struct {
	ID      string `json:"id"`
	Members int    `json:"members"`
}

type joinedPayload struct {
	ID      string `json:"id"`
	Members int    `json:"members"`
}

type leftPayload struct {
	ID      string `json:"id"`
	Reason  string `json:"reason"`
	Members int    `json:"members"`
}

type zoneChangedPayload struct {
	ID   string `json:"id"`
	Zone string `json:"zone"`
}

type chatRequestPayload struct {
	SessionID string `json:"sessionId"`
	From      string `json:"from"`
}

type receiveMessagePayload struct {
	SessionID string    `json:"sessionId"`
	SenderID  string    `json:"senderId"`
	Text      string    `json:"text"`
	SentAt    time.Time `json:"sentAt"`
}

type signalPayload struct {
	To      string          `json:"to"`
	Payload json.RawMessage `json:"payload"`
}

type signalForwardPayload struct {
	From    string          `json:"from"`
	Payload json.RawMessage `json:"payload"`
}

type requestChatPayload struct {
	Target string `json:"target"`
}

type sendMessagePayload struct {
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
}

type disconnectPayload struct {
	Reason string `json:"reason"`
}

type errorPayload struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

// encodeEvent marshals a typed payload into the wire envelope. It returns nil
// when marshaling fails, which send paths treat as a no-op.
func encodeEvent(eventType string, payload any) []byte {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error encoding %s payload: %v", eventType, err)
		return nil
	}

	raw, err := json.Marshal(Event{Type: eventType, Payload: body})
	if err != nil {
		log.Printf("Error encoding %s event: %v", eventType, err)
		return nil
	}
	return raw
}

// ErrorEvent builds an error event addressed to a single connection. The
// event field names the inbound event that failed.
func ErrorEvent(event, message string) []byte {
	return encodeEvent(EventError, errorPayload{Event: event, Message: message})
}
