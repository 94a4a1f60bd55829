package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lobengine/internal/config"
	"lobengine/internal/feed"
)

// Server runs the HTTP/WebSocket monitoring API for a running engine.
type Server struct {
	cfg      config.MonitorConfig
	provider Provider
	hub      *feed.Hub
	handlers *Handlers
	server   *http.Server
	logger   *slog.Logger
}

// NewServer creates a new monitoring server. Every *perfmon.Monitor the
// provider reports is registered with a dedicated Prometheus registry and
// served from /metrics, alongside the snapshot and WebSocket routes.
func NewServer(cfg config.MonitorConfig, provider Provider, logger *slog.Logger) *Server {
	hub := feed.NewHub(logger)
	handlers := NewHandlers(provider, cfg, hub, logger)

	registry := prometheus.NewRegistry()
	for _, m := range provider.Monitors() {
		registry.MustRegister(m)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handlers.HandleHealth)
	mux.HandleFunc("/api/snapshot", handlers.HandleSnapshot)
	mux.HandleFunc("/ws", handlers.HandleWebSocket)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	addr := cfg.Addr
	if addr == "" {
		addr = ":8090"
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		cfg:      cfg,
		provider: provider,
		hub:      hub,
		handlers: handlers,
		server:   server,
		logger:   logger.With("component", "api-server"),
	}
}

// Start starts the WebSocket hub and the HTTP server, blocking until the
// server is stopped or fails.
func (s *Server) Start() error {
	go s.hub.Run()

	s.logger.Info("monitoring server starting", "addr", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	s.logger.Info("stopping monitoring server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// PushBookUpdate broadcasts a book-state update to every WebSocket
// subscriber. Callers own reading from internal/book.Book; the server only
// ever forwards the immutable value it's handed.
func (s *Server) PushBookUpdate(u feed.BookUpdate) {
	s.hub.BroadcastBookUpdate(u)
}
