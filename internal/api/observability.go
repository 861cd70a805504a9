package api

import (
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"zombie-horde/internal/config"
	"zombie-horde/internal/horde"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality (no per-entity labels)
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "horde_tick_duration_seconds",
		Help:    "Time spent in a simulation tick",
		Buckets: []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.016, 0.033},
	})

	// DoS detection metrics - use ONLY bounded label values
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter, origin check or auth",
	}, []string{"reason"}) // Bounded: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit", "auth"

	// HTTP metrics with bounded labels
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is the route pattern, not the URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket broadcasts sent",
	})
)

// StatsSource is what the engine gauges read from.
type StatsSource interface {
	Stats() horde.Stats
}

// RegisterEngineMetrics exposes the engine counters as scrape-time gauges
// on reg. Each scrape takes one Stats() call per metric, so keep the list
// short.
func RegisterEngineMetrics(reg prometheus.Registerer, src StatsSource) {
	f := promauto.With(reg)
	gauge := func(name, help string, read func(horde.Stats) float64) {
		f.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, func() float64 {
			return read(src.Stats())
		})
	}
	counter := func(name, help string, read func(horde.Stats) float64) {
		f.NewCounterFunc(prometheus.CounterOpts{Name: name, Help: help}, func() float64 {
			return read(src.Stats())
		})
	}

	gauge("horde_entities_active", "Active entities", func(s horde.Stats) float64 { return float64(s.Store.Active) })
	gauge("horde_entities_live", "Active plus dying entities", func(s horde.Stats) float64 { return float64(s.Store.Live) })
	gauge("horde_spawn_warnings", "Pending spawn warnings", func(s horde.Stats) float64 { return float64(s.Store.Warnings) })
	gauge("horde_wave", "Current wave number", func(s horde.Stats) float64 { return float64(s.Wave.Wave) })
	gauge("horde_average_fps", "Rolling average frame rate seen by the performance controller", func(s horde.Stats) float64 { return s.AverageFPS })
	gauge("horde_max_entities", "Entity cap of the current performance tier", func(s horde.Stats) float64 { return float64(s.Params.MaxEntities) })
	gauge("horde_visual_pool_free", "Idle visual containers", func(s horde.Stats) float64 { return float64(s.Store.Visuals.Free) })
	counter("horde_kills_total", "Entities killed since the last wave reset", func(s horde.Stats) float64 { return float64(s.Kills) })
	counter("horde_culled_total", "Entities removed by emergency culls", func(s horde.Stats) float64 { return float64(s.Culled) })
	counter("horde_journal_dropped_total", "Journal events dropped by rate limiting or overflow", func(s horde.Stats) float64 { return float64(s.Journal.Dropped) })
}

// DebugHandler builds the debug mux: pprof, /metrics and /health, behind
// basic auth when a user is configured.
func DebugHandler(cfg config.ObservabilityConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if cfg.BasicAuthUser != "" {
		return basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}
	return mux
}

// StartDebugServer starts the internal observability server.
// CRITICAL: it binds to loopback unless AllowExternal is set, since pprof
// endpoints are an easy DoS vector.
func StartDebugServer(cfg config.ObservabilityConfig) error {
	if !cfg.Enabled {
		log.Println("📊 Debug server disabled")
		return nil
	}

	if !cfg.AllowExternal && !isLoopback(cfg.ListenAddr) {
		log.Println("⚠️ Debug server forced to localhost for security")
		cfg.ListenAddr = config.DefaultObservability().ListenAddr
	}

	handler := DebugHandler(cfg)

	go func() {
		log.Printf("📊 Debug server starting on %s", cfg.ListenAddr)
		log.Printf("   - pprof:   http://%s/debug/pprof/", cfg.ListenAddr)
		log.Printf("   - metrics: http://%s/metrics", cfg.ListenAddr)

		if err := http.ListenAndServe(cfg.ListenAddr, handler); err != nil {
			log.Printf("⚠️ Debug server error: %v", err)
		}
	}()

	return nil
}

func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// basicAuthMiddleware adds basic authentication to the handler
func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || !tokensEqual(u, user) || !tokensEqual(p, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RecordTick records tick timing for metrics. Pass it to
// Engine.SetTickObserver.
func RecordTick(duration time.Duration) {
	tickDuration.Observe(duration.Seconds())
}

// RecordConnectionRejected increments the rejection counter.
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages increments WebSocket message counter
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}
