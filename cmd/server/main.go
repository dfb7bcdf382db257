package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/covelab/spacehub/internal/hub"
	"github.com/covelab/spacehub/internal/server"
)

func main() {
	log.Println("Starting SpaceHub server...")

	cfg, err := server.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	opts, err := cfg.HubOptions()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	metrics := hub.NewMetrics(prometheus.DefaultRegisterer)
	h := hub.New(opts, metrics)
	go h.Run()

	svc := server.NewService(h, cfg)
	httpServer := server.CreateServer(cfg.Port, svc.Routes())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.StartServer(httpServer)
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	case <-ctx.Done():
	}

	if err := server.ShutdownServer(httpServer, cfg.ShutdownTimeout); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	if err := h.Shutdown(cfg.ShutdownTimeout); err != nil {
		log.Printf("Hub shutdown error: %v", err)
	}
}
