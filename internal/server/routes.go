// Package server wires the HTTP handlers into a ServeMux.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes configures and returns the ServeMux with all application routes:
// health check, WebSocket endpoint, and Prometheus metrics.
func (s *Service) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.HealthHandler)
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/ws", s.WebSocketHandler)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
