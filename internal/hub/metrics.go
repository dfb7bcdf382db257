// Package hub: Prometheus metrics for hub activity.
package hub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics aggregates the hub's Prometheus collectors. Construct one per
// process with NewMetrics; tests pass a private registry or nil metrics to
// the hub to avoid duplicate registration.
type Metrics struct {
	// Connections gauges participants with a live transport connection.
	Connections prometheus.Gauge

	// Sessions gauges live chat sessions.
	Sessions prometheus.Gauge

	// EventsTotal counts inbound events by type.
	EventsTotal *prometheus.CounterVec

	// BroadcastsTotal counts fan-outs to all connections.
	BroadcastsTotal prometheus.Counter

	// DroppedMovesTotal counts movement updates rejected by the rate gate.
	DroppedMovesTotal prometheus.Counter

	// EvictionsTotal counts participant evictions by reason.
	EvictionsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all hub collectors with the given
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Connections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "spacehub_connections",
			Help: "Number of participants with a live connection",
		}),
		Sessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "spacehub_chat_sessions",
			Help: "Number of live chat sessions",
		}),
		EventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "spacehub_events_total",
			Help: "Total inbound events by type",
		}, []string{"type"}),
		BroadcastsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "spacehub_broadcasts_total",
			Help: "Total broadcast fan-outs to all connections",
		}),
		DroppedMovesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "spacehub_dropped_moves_total",
			Help: "Movement updates dropped by the rate limiter",
		}),
		EvictionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "spacehub_evictions_total",
			Help: "Participant evictions by reason",
		}, []string{"reason"}),
	}
}
