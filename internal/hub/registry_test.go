// Package hub: connection registry tests covering identity takeover, the
// reconnection grace window, and eviction broadcasts.
package hub

import (
	"testing"
	"time"
)

// TestConnectAssignsUniqueConnectionIDs verifies that no two live records
// ever share a connection id.
func TestConnectAssignsUniqueConnectionIDs(t *testing.T) {
	h := New(Options{}, nil)

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		id, _ := mustConnect(t, h, "")
		if seen[id] {
			t.Fatalf("Connection id %q assigned twice", id)
		}
		seen[id] = true
	}

	if got := h.ConnectionCount(); got != 5 {
		t.Errorf("ConnectionCount() = %d, want 5", got)
	}
}

// TestConnectNotifiesExistingParticipants verifies that a fresh connect is
// announced to the other participants with the updated member count, and that
// the new connection receives its assigned id.
func TestConnectNotifiesExistingParticipants(t *testing.T) {
	h := New(Options{}, nil)

	_, c1 := mustConnect(t, h, "")
	id2, c2 := mustConnect(t, h, "")

	joined := c1.eventsOf(t, EventUserJoined)
	if len(joined) != 1 {
		t.Fatalf("user-joined events at first participant = %d, want 1", len(joined))
	}
	var body joinedPayload
	decodePayload(t, joined[0], &body)
	if body.ID != id2 || body.Members != 2 {
		t.Errorf("user-joined = %+v, want id %q and 2 members", body, id2)
	}

	acks := c2.eventsOf(t, EventConnected)
	if len(acks) != 1 {
		t.Fatalf("connected events at new participant = %d, want 1", len(acks))
	}
	var ack connectedPayload
	decodePayload(t, acks[0], &ack)
	if ack.ID != id2 {
		t.Errorf("connected ack id = %q, want %q", ack.ID, id2)
	}
	if got := c2.countOf(t, EventUserJoined); got != 0 {
		t.Errorf("New participant saw its own join broadcast %d times", got)
	}
}

// TestDisconnectWithoutClientIDEvictsImmediately verifies that a participant
// with no stable client id is destroyed on disconnect with no grace window.
func TestDisconnectWithoutClientIDEvictsImmediately(t *testing.T) {
	h := New(Options{ReconnectGrace: time.Minute}, nil)

	id1, _ := mustConnect(t, h, "")
	_, c2 := mustConnect(t, h, "")

	h.Disconnect(id1, ReasonTransportClose)

	if getParticipant(h, id1) != nil {
		t.Error("Participant without client id survived disconnect")
	}

	left := c2.eventsOf(t, EventUserLeft)
	if len(left) != 1 {
		t.Fatalf("user-left events = %d, want 1", len(left))
	}
	var body leftPayload
	decodePayload(t, left[0], &body)
	if body.ID != id1 || body.Reason != ReasonTransportClose || body.Members != 1 {
		t.Errorf("user-left = %+v, want id %q, reason %q, 1 member", body, id1, ReasonTransportClose)
	}
}

// TestReconnectWithinGraceTakesOver verifies the takeover path: a reconnect
// inside the grace window inherits position, zone, and chat sessions under a
// new connection id, and no user-left is ever broadcast for the client.
func TestReconnectWithinGraceTakesOver(t *testing.T) {
	h := New(Options{ReconnectGrace: 500 * time.Millisecond}, nil)

	id1, _ := mustConnect(t, h, "u1")
	id2, c2 := mustConnect(t, h, "u2")

	h.UpdatePosition(id1, Position{X: 10, Y: 10})
	h.RequestSession(id1, id2)

	h.Disconnect(id1, ReasonTransportClose)

	id3, c3 := mustConnect(t, h, "u1")
	if id3 == id1 {
		t.Fatal("Takeover reused the old connection id")
	}

	p := getParticipant(h, id3)
	if p == nil {
		t.Fatal("No participant registered under the new connection id")
	}
	if p.Position == nil || p.Position.X != 10 || p.Position.Y != 10 {
		t.Errorf("Position after takeover = %+v, want {10 10}", p.Position)
	}
	if len(p.sessions) != 1 {
		t.Errorf("Sessions after takeover = %d, want 1", len(p.sessions))
	}

	// The session must now address the new connection id.
	sessions := c2.eventsOf(t, EventChatRequest)
	if len(sessions) != 1 {
		t.Fatalf("chat-request events = %d, want 1", len(sessions))
	}
	var req chatRequestPayload
	decodePayload(t, sessions[0], &req)
	h.SendMessage(id2, req.SessionID, "hello again")
	if got := c3.countOf(t, EventReceiveMessage); got != 1 {
		t.Errorf("Messages delivered to reconnected participant = %d, want 1", got)
	}

	time.Sleep(600 * time.Millisecond)
	if got := c2.countOf(t, EventUserLeft); got != 0 {
		t.Errorf("user-left broadcasts after takeover = %d, want 0", got)
	}
	if got := c2.countOf(t, EventUserJoined); got != 1 {
		t.Errorf("user-joined broadcasts = %d, want only the original one", got)
	}
}

// TestGraceExpiryEvicts verifies that a disconnect with no reclaiming
// reconnect is finalized after the grace window with a single user-left
// broadcast.
func TestGraceExpiryEvicts(t *testing.T) {
	h := New(Options{ReconnectGrace: 30 * time.Millisecond}, nil)

	id1, _ := mustConnect(t, h, "u1")
	_, c2 := mustConnect(t, h, "u2")

	h.Disconnect(id1, ReasonTransportClose)
	time.Sleep(100 * time.Millisecond)

	if getParticipant(h, id1) != nil {
		t.Error("Participant survived past the grace window")
	}

	left := c2.eventsOf(t, EventUserLeft)
	if len(left) != 1 {
		t.Fatalf("user-left events = %d, want exactly 1", len(left))
	}
	var body leftPayload
	decodePayload(t, left[0], &body)
	if body.ID != id1 || body.Reason != ReasonTransportClose {
		t.Errorf("user-left = %+v, want id %q reason %q", body, id1, ReasonTransportClose)
	}
}

// TestReconnectTooSoonRejected verifies the anti-thrash policy: a reconnect
// for a client id arriving faster than the minimum interval is rejected and
// nothing is broadcast.
func TestReconnectTooSoonRejected(t *testing.T) {
	h := New(Options{
		ReconnectGrace:       time.Minute,
		ReconnectMinInterval: time.Hour,
	}, nil)

	_, c1 := mustConnect(t, h, "u1")
	_, c2 := mustConnect(t, h, "u2")

	if _, err := h.Connect(&fakeConn{}, "u1"); err != ErrReconnectTooSoon {
		t.Fatalf("Connect() = %v, want ErrReconnectTooSoon", err)
	}

	if got := c1.countOf(t, EventConnected); got != 1 {
		t.Errorf("Original connection received %d connected events, want 1", got)
	}
	if got := c2.countOf(t, EventUserJoined); got != 1 {
		t.Errorf("Rejected reconnect was broadcast: %d user-joined events, want 1", got)
	}
}

// TestSupersedeLiveConnection verifies that a reconnect while the previous
// connection is still open closes the old transport and transfers the record.
func TestSupersedeLiveConnection(t *testing.T) {
	h := New(Options{}, nil)

	id1, c1 := mustConnect(t, h, "u1")
	h.UpdatePosition(id1, Position{X: 3, Y: 4})

	id2, _ := mustConnect(t, h, "u1")

	if !c1.isClosed() {
		t.Error("Superseded connection was not closed")
	}
	if got := h.ConnectionCount(); got != 1 {
		t.Errorf("ConnectionCount() = %d, want 1", got)
	}
	if getParticipant(h, id1) != nil {
		t.Error("Old connection id still registered after supersede")
	}
	p := getParticipant(h, id2)
	if p == nil || p.Position == nil || p.Position.X != 3 {
		t.Error("Superseding connection did not inherit the record")
	}
}

// TestDisconnectIsIdempotent verifies that duplicate disconnects for the same
// connection produce no duplicate broadcasts.
func TestDisconnectIsIdempotent(t *testing.T) {
	h := New(Options{}, nil)

	id1, _ := mustConnect(t, h, "")
	_, c2 := mustConnect(t, h, "")

	h.Disconnect(id1, ReasonTransportClose)
	h.Disconnect(id1, ReasonTransportClose)

	if got := c2.countOf(t, EventUserLeft); got != 1 {
		t.Errorf("user-left events = %d, want 1", got)
	}
}
