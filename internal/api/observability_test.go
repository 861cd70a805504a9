package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"zombie-horde/internal/config"
	"zombie-horde/internal/horde"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStats horde.Stats

func (f fixedStats) Stats() horde.Stats { return horde.Stats(f) }

func TestRegisterEngineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	var st horde.Stats
	st.Store.Active = 12
	st.Wave.Wave = 3
	st.Kills = 40
	RegisterEngineMetrics(reg, fixedStats(st))

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		m := mf.GetMetric()[0]
		switch {
		case m.GetGauge() != nil:
			values[mf.GetName()] = m.GetGauge().GetValue()
		case m.GetCounter() != nil:
			values[mf.GetName()] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 12.0, values["horde_entities_active"])
	assert.Equal(t, 3.0, values["horde_wave"])
	assert.Equal(t, 40.0, values["horde_kills_total"])
}

func TestDebugHandlerHealth(t *testing.T) {
	h := DebugHandler(config.DefaultObservability())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "horde_tick_duration_seconds")
}

func TestDebugHandlerBasicAuth(t *testing.T) {
	cfg := config.DefaultObservability()
	cfg.BasicAuthUser, cfg.BasicAuthPass = "ops", "pw"
	h := DebugHandler(cfg)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.SetBasicAuth("ops", "pw")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIsLoopback(t *testing.T) {
	assert.True(t, isLoopback("127.0.0.1:6060"))
	assert.True(t, isLoopback("localhost:7000"))
	assert.True(t, isLoopback("[::1]:6060"))
	assert.False(t, isLoopback("0.0.0.0:6060"))
	assert.False(t, isLoopback(":6060"))
	assert.False(t, isLoopback("garbage"))
}
