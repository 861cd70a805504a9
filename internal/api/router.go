package api

import (
	"net/http"
	"time"

	"zombie-horde/internal/horde"
	"zombie-horde/internal/minimap"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// EngineInterface defines the simulation methods used by the API.
// This interface enables mocking for tests without spinning up the tick loop.
// Keep this minimal - only include methods the API layer actually calls.
type EngineInterface interface {
	// Snapshot builds a fresh copy of the state under the engine lock
	Snapshot() horde.Snapshot
	// LatestSnapshot copies the last published tick without locking (preferred for polling)
	LatestSnapshot(dst *horde.Snapshot) bool
	// Stats returns every engine counter
	Stats() horde.Stats
	// ApplyDamage hits an entity; unknown ids are a no-op
	ApplyDamage(id horde.EntityID, hit horde.Hit) horde.DamageResult
	// ResetWave clears the arena and restarts at wave 1
	ResetWave()
	// PlayerPosition returns the recorded (arena-clamped) player position
	PlayerPosition() horde.Vec3
	// SetPlayerPosition moves the player the horde is chasing
	SetPlayerPosition(p horde.Vec3)
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Engine: mockEngine,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the simulation (required)
	Engine EngineInterface

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is only used if RateLimiter is nil. If both are nil,
	// DefaultRateLimitConfig applies.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed origins; nil means DefaultOrigins.
	CORSOrigins []string

	// AdminToken protects the reset route. Empty disables the check.
	AdminToken string

	// Minimap renders /api/minimap.png. If nil, one is created.
	Minimap *minimap.Renderer

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

type routerHandlers struct {
	engine      EngineInterface
	minimap     *minimap.Renderer
	rateLimiter *IPRateLimiter
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: apart from the rate limiter's cleanup goroutine when no
// RateLimiter is supplied, this function has no side effects. No listeners
// are opened, so it is safe to use with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	origins := cfg.CORSOrigins
	if origins == nil {
		origins = DefaultOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	mm := cfg.Minimap
	if mm == nil {
		mm = minimap.NewRenderer()
	}
	h := &routerHandlers{
		engine:      cfg.Engine,
		minimap:     mm,
		rateLimiter: rateLimiter,
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.handleGetState)
		r.Get("/stats", h.handleGetStats)
		r.Get("/minimap.png", h.handleMinimap)

		r.Post("/player/position", h.handlePlayerPosition)
		r.Post("/entities/{id}/damage", h.handleDamage)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuth(cfg.AdminToken))
			r.Post("/wave/reset", h.handleResetWave)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/state", http.StatusFound)
	})

	return r
}

// metricsMiddleware records latency per route pattern so path parameters
// do not explode label cardinality.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				pattern = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordRequest(r.Method, pattern, status, time.Since(start))
	})
}
