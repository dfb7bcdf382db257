// Package server exposes the HTTP surface: the WebSocket upgrade endpoint
// and the read-only health check.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/covelab/spacehub/internal/hub"
)

// Service wires one hub instance to the HTTP handlers. Constructing services
// explicitly keeps every handler testable against an isolated hub.
type Service struct {
	hub       *hub.Hub
	cfg       *Config
	upgrader  websocket.Upgrader
	startedAt time.Time
}

// NewService creates the HTTP-facing service for a hub.
func NewService(h *hub.Hub, cfg *Config) *Service {
	origins := NewOriginPolicy(cfg.AllowedOrigins)

	return &Service{
		hub: h,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.Check,
		},
		startedAt: time.Now(),
	}
}

// WebSocketHandler upgrades the connection, registers the participant with
// the hub under the caller-supplied stable client id (the "clientId" query
// parameter, optional), and starts the client's pumps.
func (s *Service) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := newClient(conn, s.hub, r.RemoteAddr, s.cfg)

	id, err := s.hub.Connect(client, r.URL.Query().Get("clientId"))
	if err != nil {
		// Rejected connects are reported to this caller only, never
		// broadcast.
		log.Printf("Connect rejected for %s: %v", r.RemoteAddr, err)
		_ = conn.WriteMessage(websocket.TextMessage, hub.ErrorEvent("connect", err.Error()))
		_ = conn.Close()
		return
	}
	client.id = id

	go client.writePump()
	go client.readPump()
}

type healthResponse struct {
	Status        string  `json:"status"`
	Connections   int     `json:"connections"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
}

// HealthHandler reports the live connection count and process uptime. It is
// read-only and safe to poll.
func (s *Service) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	response := healthResponse{
		Status:        "ok",
		Connections:   s.hub.ConnectionCount(),
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error writing health response: %v", err)
	}
}
