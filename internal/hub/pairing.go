// Package hub: pairing manager. Creates and tears down two-party chat
// sessions, deduplicated by unordered participant pair, and relays chat
// messages to both participants in accepted order.
package hub

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one entry in a session's append-only log.
type ChatMessage struct {
	SenderID string
	Text     string
	SentAt   time.Time
}

// ChatSession is a lazily created conversation between exactly two
// participants, identified by their connection ids. The ids are rewritten in
// place when a participant reconnects under a new connection.
type ChatSession struct {
	ID       string
	A        string
	B        string
	Messages []ChatMessage
}

func (s *ChatSession) replaceParticipant(oldID, newID string) {
	switch oldID {
	case s.A:
		s.A = newID
	case s.B:
		s.B = newID
	}
}

func (s *ChatSession) has(connID string) bool {
	return s.A == connID || s.B == connID
}

func (s *ChatSession) other(connID string) string {
	if s.A == connID {
		return s.B
	}
	return s.A
}

// pairKey indexes sessions by unordered participant pair, so that a repeated
// pairing request finds the existing session instead of duplicating it.
type pairKey struct {
	lo string
	hi string
}

func pairKeyFor(a, b string) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// RequestSession pairs the requester with the named target. An unknown
// target, a grace-window target, or a self-request is reported to the
// requester only. When a session already exists for the unordered pair the
// call is idempotent: nothing is created and no further notifications are
// sent.
func (h *Hub) RequestSession(requesterID, targetID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	requester := h.liveLocked(requesterID)
	if requester == nil {
		return
	}
	requester.LastActiveAt = h.now()

	target := h.liveLocked(targetID)
	if target == nil || targetID == requesterID {
		h.sendToLocked(requester, ErrorEvent(EventRequestChat, "invalid target"))
		return
	}

	if h.pairs[pairKeyFor(requesterID, targetID)] != nil {
		return
	}
	h.createSessionLocked(requester, target, requesterID)
}

// createSessionLocked registers a new session for a validated pair and
// notifies both participants with the session id and the initiating
// connection id. Callers must hold h.mu and have checked the pair is unique.
func (h *Hub) createSessionLocked(a, b *Participant, initiatorID string) *ChatSession {
	s := &ChatSession{
		ID: uuid.NewString(),
		A:  a.ConnID,
		B:  b.ConnID,
	}
	h.sessions[s.ID] = s
	h.pairs[pairKeyFor(s.A, s.B)] = s
	a.sessions[s.ID] = struct{}{}
	b.sessions[s.ID] = struct{}{}

	if h.metrics != nil {
		h.metrics.Sessions.Inc()
	}

	notification := encodeEvent(EventChatRequest, chatRequestPayload{SessionID: s.ID, From: initiatorID})
	h.sendToLocked(a, notification)
	h.sendToLocked(b, notification)
	return s
}

// SendMessage appends a chat message to a session and relays it to both
// participants. The sender must belong to the session; the text must be
// non-empty and within the configured maximum, otherwise the message is
// rejected outright rather than truncated.
func (h *Hub) SendMessage(senderID, sessionID, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sender := h.liveLocked(senderID)
	if sender == nil {
		return
	}

	s := h.sessions[sessionID]
	if s == nil || !s.has(senderID) {
		h.sendToLocked(sender, ErrorEvent(EventSendMessage, "unknown session"))
		return
	}
	if text == "" {
		h.sendToLocked(sender, ErrorEvent(EventSendMessage, "empty message"))
		return
	}
	if len(text) > h.opts.MaxChatMessageLength {
		h.sendToLocked(sender, ErrorEvent(EventSendMessage, "message too long"))
		return
	}

	now := h.now()
	sender.LastActiveAt = now
	msg := ChatMessage{SenderID: senderID, Text: text, SentAt: now}
	s.Messages = append(s.Messages, msg)

	relay := encodeEvent(EventReceiveMessage, receiveMessagePayload{
		SessionID: s.ID,
		SenderID:  msg.SenderID,
		Text:      msg.Text,
		SentAt:    msg.SentAt,
	})
	h.sendToLocked(h.participants[s.A], relay)
	h.sendToLocked(h.participants[s.B], relay)
}

// teardownSessionsLocked destroys every session the departing participant
// belongs to. Sessions are destroyed as soon as either side departs; the
// remaining participant keeps no reference, which bounds memory. Callers must
// hold h.mu.
func (h *Hub) teardownSessionsLocked(p *Participant) {
	for sid := range p.sessions {
		s := h.sessions[sid]
		if s == nil {
			continue
		}
		delete(h.sessions, sid)
		delete(h.pairs, pairKeyFor(s.A, s.B))
		if other := h.participants[s.other(p.ConnID)]; other != nil {
			delete(other.sessions, sid)
		}
		if h.metrics != nil {
			h.metrics.Sessions.Dec()
		}
	}
	p.sessions = make(map[string]struct{})
}
