package api

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures the IP-based rate limiter
type RateLimitConfig struct {
	RequestsPerSecond float64       // Requests allowed per second per IP
	Burst             int           // Maximum burst size
	CleanupInterval   time.Duration // How often to clean up stale limiters
}

// DefaultRateLimitConfig allows a browser viewer polling state and the
// minimap several times a second.
var DefaultRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 30,
	Burst:             60,
	CleanupInterval:   5 * time.Minute,
}

type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// IPRateLimiter provides IP-based rate limiting for HTTP requests
type IPRateLimiter struct {
	limiters sync.Map // map[string]*ipLimiterEntry
	config   RateLimitConfig
	stopChan chan struct{}
	stopOnce sync.Once

	rejected atomic.Uint64
	allowed  atomic.Uint64
}

// NewIPRateLimiter creates a limiter and starts its cleanup goroutine.
func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultRateLimitConfig.CleanupInterval
	}
	rl := &IPRateLimiter{
		config:   cfg,
		stopChan: make(chan struct{}),
	}

	// abandoned IPs would otherwise accumulate forever
	go rl.cleanupLoop()

	return rl
}

// Stop stops the cleanup goroutine.
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
	})
}

func (rl *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	now := time.Now().UnixNano()

	if v, ok := rl.limiters.Load(ip); ok {
		e := v.(*ipLimiterEntry)
		e.lastSeen.Store(now)
		return e.limiter
	}

	entry := &ipLimiterEntry{
		limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst),
	}
	entry.lastSeen.Store(now)

	actual, _ := rl.limiters.LoadOrStore(ip, entry)
	return actual.(*ipLimiterEntry).limiter
}

func (rl *IPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.cleanup(time.Now())
		}
	}
}

// cleanup drops limiters idle for two cleanup intervals.
func (rl *IPRateLimiter) cleanup(now time.Time) int {
	cutoff := now.Add(-rl.config.CleanupInterval * 2).UnixNano()
	removed := 0
	rl.limiters.Range(func(key, value any) bool {
		if value.(*ipLimiterEntry).lastSeen.Load() < cutoff {
			rl.limiters.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// Allow checks if a request from the given IP should be allowed
func (rl *IPRateLimiter) Allow(ip string) bool {
	if rl.getLimiter(ip).Allow() {
		rl.allowed.Add(1)
		return true
	}
	rl.rejected.Add(1)
	return false
}

// Middleware rejects requests over the per-IP budget with 429.
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(GetClientIP(r)) {
			RecordConnectionRejected("rate_limit")
			w.Header().Set("Retry-After", "1")
			writeError(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimitStats is used for monitoring.
type RateLimitStats struct {
	Allowed  uint64 `json:"allowed"`
	Rejected uint64 `json:"rejected"`
}

// Stats returns rate limiter counters.
func (rl *IPRateLimiter) Stats() RateLimitStats {
	return RateLimitStats{Allowed: rl.allowed.Load(), Rejected: rl.rejected.Load()}
}

// GetClientIP extracts the client IP from an HTTP request.
// CAUTION: X-Forwarded-For can be spoofed when not behind a trusted proxy.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// WebSocketRateLimiter limits concurrent WebSocket connections per IP
type WebSocketRateLimiter struct {
	connections sync.Map // map[string]*atomic.Int32
	maxPerIP    int32
	rejected    atomic.Uint64
}

// NewWebSocketRateLimiter creates a WebSocket connection limiter
func NewWebSocketRateLimiter(maxPerIP int) *WebSocketRateLimiter {
	return &WebSocketRateLimiter{maxPerIP: int32(maxPerIP)}
}

// Allow reserves a connection slot for ip.
func (wrl *WebSocketRateLimiter) Allow(ip string) bool {
	actual, _ := wrl.connections.LoadOrStore(ip, new(atomic.Int32))
	counter := actual.(*atomic.Int32)

	for {
		current := counter.Load()
		if current >= wrl.maxPerIP {
			wrl.rejected.Add(1)
			return false
		}
		if counter.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

// Release frees a slot reserved by Allow.
func (wrl *WebSocketRateLimiter) Release(ip string) {
	if v, ok := wrl.connections.Load(ip); ok {
		v.(*atomic.Int32).Add(-1)
	}
}

// ConnectionCount returns the open connections for ip.
func (wrl *WebSocketRateLimiter) ConnectionCount(ip string) int {
	if v, ok := wrl.connections.Load(ip); ok {
		return int(v.(*atomic.Int32).Load())
	}
	return 0
}

// DefaultOrigins are the CORS / WebSocket origins allowed when none are
// configured: local viewers only.
var DefaultOrigins = []string{
	"http://localhost:*",
	"http://127.0.0.1:*",
}

// OriginChecker matches Origin headers against patterns where a trailing
// ":*" accepts any port.
type OriginChecker struct {
	patterns []string
}

// NewOriginChecker builds a checker. Nil patterns mean DefaultOrigins.
func NewOriginChecker(patterns []string) *OriginChecker {
	if patterns == nil {
		patterns = DefaultOrigins
	}
	return &OriginChecker{patterns: patterns}
}

// Allowed reports whether origin may connect.
func (o *OriginChecker) Allowed(origin string) bool {
	if origin == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	for _, p := range o.patterns {
		if p == "*" || p == origin {
			return true
		}
		if base, ok := strings.CutSuffix(p, ":*"); ok {
			if u.Scheme+"://"+u.Hostname() == base {
				return true
			}
		}
	}
	return false
}
