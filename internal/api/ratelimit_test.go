package api

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "10.0.0.1:5555", "10.0.0.1"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "10.0.0.1:1", "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": " 5.6.7.8 "}, "10.0.0.1:1", "5.6.7.8"},
		{"no port", nil, "weird", "weird"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetClientIP(r))
		})
	}
}

func TestIPRateLimiterPerIP(t *testing.T) {
	rl := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1, CleanupInterval: time.Hour})
	defer rl.Stop()

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "budgets are per IP")
	assert.Equal(t, RateLimitStats{Allowed: 2, Rejected: 1}, rl.Stats())
}

func TestIPRateLimiterCleanup(t *testing.T) {
	rl := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, CleanupInterval: time.Minute})
	defer rl.Stop()

	rl.Allow("stale")
	assert.Equal(t, 0, rl.cleanup(time.Now()))
	assert.Equal(t, 1, rl.cleanup(time.Now().Add(3*time.Minute)))
}

func TestWebSocketRateLimiter(t *testing.T) {
	wrl := NewWebSocketRateLimiter(2)
	assert.True(t, wrl.Allow("ip"))
	assert.True(t, wrl.Allow("ip"))
	assert.False(t, wrl.Allow("ip"))
	assert.Equal(t, 2, wrl.ConnectionCount("ip"))

	wrl.Release("ip")
	assert.True(t, wrl.Allow("ip"))
	assert.Equal(t, 0, wrl.ConnectionCount("other"))
}

func TestOriginChecker(t *testing.T) {
	def := NewOriginChecker(nil)
	custom := NewOriginChecker([]string{"https://horde.example", "https://dev.example:*"})

	tests := []struct {
		checker *OriginChecker
		origin  string
		want    bool
	}{
		{def, "http://localhost:3000", true},
		{def, "http://127.0.0.1:8080", true},
		{def, "http://localhost.evil.com", false},
		{def, "https://localhost:3000", false},
		{def, "", false},
		{def, "not a url", false},
		{custom, "https://horde.example", true},
		{custom, "https://dev.example:9000", true},
		{custom, "http://localhost:3000", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.checker.Allowed(tt.origin), "origin %q", tt.origin)
	}
}
