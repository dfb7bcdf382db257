// Package hub: presence broadcasting. Validates and clamps positions, tracks
// zone membership, and fans the full position snapshot out to every
// connection on each accepted update.
package hub

import (
	"encoding/json"
	"errors"
	"math"
)

var errMalformedPosition = errors.New("position must be two finite numbers")

// Position is a point in the shared coordinate space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Bounds describes the world rectangle anchored at the origin. Accepted
// positions are clamped into it.
type Bounds struct {
	Width  float64
	Height float64
}

func (b Bounds) clamp(p Position) Position {
	p.X = math.Min(math.Max(p.X, 0), b.Width)
	p.Y = math.Min(math.Max(p.Y, 0), b.Height)
	return p
}

// Zone is a named rectangular region of the world.
type Zone struct {
	Name   string
	X      float64
	Y      float64
	Width  float64
	Height float64
}

func (z Zone) contains(p Position) bool {
	return p.X >= z.X && p.X <= z.X+z.Width && p.Y >= z.Y && p.Y <= z.Y+z.Height
}

// parsePosition decodes a move payload. Both coordinates must be present and
// finite; anything else is a validation error reported to the sender only.
func parsePosition(raw json.RawMessage) (Position, error) {
	var body struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return Position{}, errMalformedPosition
	}
	if body.X == nil || body.Y == nil {
		return Position{}, errMalformedPosition
	}
	if !isFinite(*body.X) || !isFinite(*body.Y) {
		return Position{}, errMalformedPosition
	}
	return Position{X: *body.X, Y: *body.Y}, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// zoneFor returns the name of the first configured zone containing the
// position, or empty when none matches.
func (h *Hub) zoneFor(p Position) string {
	for _, z := range h.opts.Zones {
		if z.contains(p) {
			return z.Name
		}
	}
	return ""
}

// UpdatePosition accepts a validated position for a connection, clamps it to
// the world bounds, refreshes activity, and broadcasts the full position
// snapshot. A zone transition additionally triggers a zone-changed broadcast,
// and proximity pairing runs against every other positioned participant.
func (h *Hub) UpdatePosition(connID string, pos Position) {
	h.mu.Lock()

	p := h.liveLocked(connID)
	if p == nil {
		h.mu.Unlock()
		return
	}

	if b := h.opts.WorldBounds; b != nil {
		pos = b.clamp(pos)
	}

	p.Position = &pos
	p.LastActiveAt = h.now()

	previousZone := p.Zone
	p.Zone = h.zoneFor(pos)
	zoneChanged := p.Zone != previousZone

	h.broadcastLocked(encodeEvent(EventUpdatePositions, h.positionsLocked()), "")
	if zoneChanged {
		h.broadcastLocked(encodeEvent(EventZoneChanged, zoneChangedPayload{ID: connID, Zone: p.Zone}), "")
	}

	if h.opts.ProximityThreshold > 0 {
		h.pairByProximityLocked(p)
	}
	h.mu.Unlock()
}

// positionsLocked builds the {connectionId: position} snapshot for every
// participant that has set a position. Grace-window records stay in the
// snapshot so a reclaiming client resumes where it left off. Callers must
// hold h.mu.
func (h *Hub) positionsLocked() map[string]Position {
	snapshot := make(map[string]Position, len(h.participants))
	for id, p := range h.participants {
		if p.Position != nil {
			snapshot[id] = *p.Position
		}
	}
	return snapshot
}

// pairByProximityLocked creates a chat session between the moved participant
// and any other positioned participant within the configured distance. The
// creation path is the same dedup logic used by explicit requests. Callers
// must hold h.mu.
func (h *Hub) pairByProximityLocked(p *Participant) {
	for _, other := range h.participants {
		if other == p || other.pendingGone || other.Position == nil {
			continue
		}
		if distance(*p.Position, *other.Position) > h.opts.ProximityThreshold {
			continue
		}
		if h.pairs[pairKeyFor(p.ConnID, other.ConnID)] != nil {
			continue
		}
		h.createSessionLocked(p, other, p.ConnID)
	}
}

func distance(a, b Position) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
