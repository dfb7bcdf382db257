// Package hub: signaling relay tests.
package hub

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
)

// TestRelayForwardsOpaquePayload verifies that each signaling kind reaches
// the target untouched, tagged with the sender's connection id.
func TestRelayForwardsOpaquePayload(t *testing.T) {
	h := New(Options{}, nil)

	id1, c1 := mustConnect(t, h, "")
	id2, c2 := mustConnect(t, h, "")

	payload := `{"sdp":"v=0 fake-session","custom":[1,2,3]}`
	for _, kind := range []string{EventOffer, EventAnswer, EventICECandidate} {
		raw := fmt.Sprintf(`{"type":%q,"payload":{"to":%q,"payload":%s}}`, kind, id2, payload)
		h.Dispatch(id1, []byte(raw))

		forwarded := c2.eventsOf(t, kind)
		if len(forwarded) != 1 {
			t.Fatalf("%s events at target = %d, want 1", kind, len(forwarded))
		}
		var body signalForwardPayload
		decodePayload(t, forwarded[0], &body)
		if body.From != id1 {
			t.Errorf("%s tagged from %q, want %q", kind, body.From, id1)
		}

		var got, want any
		if err := json.Unmarshal(body.Payload, &got); err != nil {
			t.Fatalf("Forwarded payload is not valid JSON: %v", err)
		}
		if err := json.Unmarshal([]byte(payload), &want); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(mustMarshal(t, got), mustMarshal(t, want)) {
			t.Errorf("%s payload mangled in relay: %s", kind, body.Payload)
		}
	}

	if got := c1.countOf(t, EventError); got != 0 {
		t.Errorf("Sender error events = %d, want 0", got)
	}
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

// TestRelayUnknownTargetReportsSenderOnly verifies the no-op-with-report
// behavior for departed or unknown targets.
func TestRelayUnknownTargetReportsSenderOnly(t *testing.T) {
	h := New(Options{}, nil)

	id1, c1 := mustConnect(t, h, "")
	_, c2 := mustConnect(t, h, "")

	h.Relay(id1, EventOffer, "no-such-connection", json.RawMessage(`{}`))

	errors := c1.eventsOf(t, EventError)
	if len(errors) != 1 {
		t.Fatalf("Sender error events = %d, want 1", len(errors))
	}
	var body errorPayload
	decodePayload(t, errors[0], &body)
	if body.Event != EventOffer {
		t.Errorf("Error tagged %q, want %q", body.Event, EventOffer)
	}
	if got := c2.countOf(t, EventOffer); got != 0 {
		t.Errorf("Bystander received %d offers, want 0", got)
	}
}

// TestRelayRejectsUnknownKind verifies that only the fixed signaling kinds
// are forwarded.
func TestRelayRejectsUnknownKind(t *testing.T) {
	h := New(Options{}, nil)

	id1, _ := mustConnect(t, h, "")
	id2, c2 := mustConnect(t, h, "")

	h.Relay(id1, "broadcast-everything", id2, json.RawMessage(`{}`))

	c2.mu.Lock()
	total := len(c2.events)
	c2.mu.Unlock()
	if total != 1 {
		t.Errorf("Target event count = %d, want just the connected ack", total)
	}
}
