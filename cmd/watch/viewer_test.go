package main

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zombie-horde/internal/config"
)

func newTestViewer(t *testing.T) *viewer {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	t.Cleanup(screen.Fini)
	screen.SetSize(100, 40)

	cfg := config.DefaultSim()
	cfg.Seed = 5
	return newViewer(screen, cfg)
}

// TestViewerStepsAtTickRate verifies the viewer's step cadence keeps the
// controller in the Normal tier, independent of the redraw rate.
func TestViewerStepsAtTickRate(t *testing.T) {
	v := newTestViewer(t)
	assert.Equal(t, time.Second/60, v.tick)

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 120; i++ {
		now = now.Add(v.tick)
		v.step(now)
		if i%2 == 0 {
			v.draw()
		}
	}

	st := v.engine.Stats()
	assert.Equal(t, "normal", st.Tier)
	assert.Equal(t, 250, st.Params.MaxEntities)
	assert.Equal(t, 1, st.Params.BatchGroups)
}

func TestViewerPauseHoldsSimulation(t *testing.T) {
	v := newTestViewer(t)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	v.step(now)
	v.paused = true
	v.step(now.Add(v.tick))
	assert.Equal(t, uint64(1), v.engine.Stats().Tick)
}

func TestViewerDrawsPlayer(t *testing.T) {
	v := newTestViewer(t)
	v.step(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	v.draw()

	w, h := v.screen.Size()
	found := false
	for y := 0; y < h && !found; y++ {
		for x := 0; x < w; x++ {
			if r, _, _, _ := v.screen.GetContent(x, y); r == '@' {
				found = true
				break
			}
		}
	}
	assert.True(t, found, "player marker drawn")
}
