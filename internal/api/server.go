package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"zombie-horde/internal/config"

	"github.com/go-chi/chi/v5"
)

// Engine is what the full server needs: the router surface plus the
// lock-free snapshot feed for the WebSocket broadcast.
type Engine interface {
	EngineInterface
	SnapshotSource
}

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with the WebSocket hub for live viewers.
type Server struct {
	engine      Engine
	cfg         config.ServerConfig
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// NewServer creates the API server.
//
// IMPORTANT: Background workers do NOT start until Start() is called, so
// tests can construct a Server and use Router() directly.
func NewServer(engine Engine, cfg config.ServerConfig) *Server {
	origins := NewOriginChecker(cfg.AllowedOrigins)
	s := &Server{
		engine:      engine,
		cfg:         cfg,
		wsHub:       NewWebSocketHub(origins),
		rateLimiter: NewIPRateLimiter(DefaultRateLimitConfig),
	}

	s.router = NewRouter(RouterConfig{
		Engine:      engine,
		RateLimiter: s.rateLimiter,
		CORSOrigins: cfg.AllowedOrigins,
		AdminToken:  cfg.AdminToken,
	})

	// The hub instance is per server, so its route lives here rather than
	// in the NewRouter factory.
	s.router.Get("/ws", s.wsHub.HandleWebSocket)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Start runs the hub and the broadcast loop, then serves HTTP until
// Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	go s.wsHub.Run()
	s.wsHub.StartBroadcastLoop(s.engine, s.cfg.BroadcastEvery)

	addr := s.httpServer.Addr
	log.Printf("🌐 API server starting on %s", addr)
	log.Printf("🗺️ Minimap: http://localhost%s/api/minimap.png", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Shutdown stops background workers and drains HTTP connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsHub.Stop()
	s.rateLimiter.Stop()
	return s.httpServer.Shutdown(ctx)
}
