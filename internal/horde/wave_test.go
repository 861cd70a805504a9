package horde

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(burstScale int) *WaveScheduler {
	cfg := testConfig()
	cfg.Waves.BurstScale = burstScale
	return NewWaveScheduler(cfg.Waves, cfg.Arena.HalfExtent, rand.New(rand.NewSource(3)))
}

func normalParams() Params {
	return NewPerformance(testConfig().Performance).Params()
}

func TestFibonacci(t *testing.T) {
	tests := []struct{ n, want int }{
		{0, 0}, {1, 1}, {2, 1}, {3, 2}, {6, 8}, {7, 13}, {10, 55}, {20, 6765},
		{92, 7540113804746346429},
		{93, math.MaxInt},
		{500, math.MaxInt},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Fibonacci(tt.n), "fib(%d)", tt.n)
	}
}

// TestBurstSizing verifies burst = fib(wave+5) * scale.
func TestBurstSizing(t *testing.T) {
	tests := []struct {
		wave, scale, want int
	}{
		{1, 1, 8},
		{2, 1, 13},
		{3, 1, 21},
		{1, 2, 16},
		{4, 3, 102},
		{87, 1, 7540113804746346429},
		{88, 1, math.MaxInt},
		{87, 2, math.MaxInt},
	}
	for _, tt := range tests {
		w := newTestScheduler(tt.scale)
		assert.Equal(t, tt.want, w.BurstSize(tt.wave), "wave %d scale %d", tt.wave, tt.scale)
	}
}

func TestResetArmsFirstBurst(t *testing.T) {
	w := newTestScheduler(1)
	w.Reset(t0)

	st := w.State()
	assert.Equal(t, 1, st.Wave)
	assert.Equal(t, 8, st.BurstRemaining)
	assert.Equal(t, 30*time.Second, st.NextWaveInterval)
	assert.Equal(t, 3.0, st.BaseSpeed)
}

func TestBurstCadence(t *testing.T) {
	w := newTestScheduler(1)
	w.Reset(t0)
	p := normalParams()

	spawned := 0
	accept := func(Vec3) bool { spawned++; return true }

	// wave 1: 400ms - 20ms
	w.Update(t0.Add(379*time.Millisecond), 0, p, accept)
	assert.Equal(t, 0, spawned)
	w.Update(t0.Add(380*time.Millisecond), 0, p, accept)
	assert.Equal(t, 1, spawned)
	w.Update(t0.Add(381*time.Millisecond), 0, p, accept)
	assert.Equal(t, 1, spawned, "one spawn per interval")

	now := t0.Add(380 * time.Millisecond)
	for i := 0; i < 20; i++ {
		now = now.Add(380 * time.Millisecond)
		w.Update(now, 0, p, accept)
	}
	assert.Equal(t, 0, w.State().BurstRemaining)
	// Burst drained after 8; the trickle may have started.
	assert.GreaterOrEqual(t, spawned, 8)
	assert.Less(t, spawned, 8+5)
}

func TestSpawnDeratedBySpawnScale(t *testing.T) {
	w := newTestScheduler(1)
	w.Reset(t0)
	p := normalParams()
	p.SpawnScale = 2

	spawned := 0
	accept := func(Vec3) bool { spawned++; return true }
	w.Update(t0.Add(700*time.Millisecond), 0, p, accept)
	assert.Equal(t, 0, spawned)
	w.Update(t0.Add(760*time.Millisecond), 0, p, accept)
	assert.Equal(t, 1, spawned)
}

func TestCapacityBlocksSpawns(t *testing.T) {
	w := newTestScheduler(1)
	w.Reset(t0)
	p := normalParams()

	spawned := 0
	w.Update(t0.Add(time.Second), p.MaxEntities, p, func(Vec3) bool { spawned++; return true })
	assert.Equal(t, 0, spawned)
	assert.Equal(t, 8, w.State().BurstRemaining, "skipped, retried later")
}

func TestRefusedSpawnKeepsBurst(t *testing.T) {
	w := newTestScheduler(1)
	w.Reset(t0)
	w.Update(t0.Add(time.Second), 0, normalParams(), func(Vec3) bool { return false })
	assert.Equal(t, 8, w.State().BurstRemaining)
}

func TestWaveEscalation(t *testing.T) {
	w := newTestScheduler(1)
	w.Reset(t0)
	p := normalParams()
	none := func(Vec3) bool { return false }

	tick := w.Update(t0.Add(30*time.Second), 0, p, none)
	assert.False(t, tick.WaveStarted, "interval must be exceeded, not reached")

	tick = w.Update(t0.Add(30*time.Second+time.Millisecond), 0, p, none)
	require.True(t, tick.WaveStarted)
	st := w.State()
	assert.Equal(t, 2, st.Wave)
	assert.Equal(t, 13, st.BurstSize)
	assert.Equal(t, 13, st.BurstRemaining)
	assert.Equal(t, 28*time.Second, st.NextWaveInterval)
	assert.InDelta(t, 3.4, st.BaseSpeed, 1e-9)
}

func TestWaveScaleStretchesInterval(t *testing.T) {
	w := newTestScheduler(1)
	w.Reset(t0)
	p := normalParams()
	p.WaveScale = 2
	none := func(Vec3) bool { return false }

	assert.False(t, w.Update(t0.Add(45*time.Second), 0, p, none).WaveStarted)
	assert.True(t, w.Update(t0.Add(61*time.Second), 0, p, none).WaveStarted)
}

func TestWaveFloorsAndCaps(t *testing.T) {
	w := newTestScheduler(1)
	w.Reset(t0)
	now := t0
	for i := 0; i < 30; i++ {
		now = now.Add(time.Minute)
		w.startWave(now)
	}
	st := w.State()
	assert.Equal(t, 31, st.Wave)
	assert.Equal(t, 10*time.Second, st.NextWaveInterval)
	assert.Equal(t, 7.0, st.BaseSpeed)
	assert.Equal(t, 100*time.Millisecond, w.BurstInterval())
	assert.Equal(t, 500*time.Millisecond, w.BackgroundInterval())
}

// TestLateWavesStayPositive runs the scheduler far past the last burst size
// that fits an int.
func TestLateWavesStayPositive(t *testing.T) {
	w := newTestScheduler(1)
	w.Reset(t0)
	now := t0
	for i := 0; i < 120; i++ {
		now = now.Add(time.Minute)
		w.startWave(now)
		st := w.State()
		require.Positive(t, st.BurstSize, "wave %d", st.Wave)
		require.Equal(t, st.BurstSize, st.BurstRemaining)
	}
	assert.Equal(t, math.MaxInt, w.State().BurstSize)
}

func TestIntervalsShrinkWithWave(t *testing.T) {
	w := newTestScheduler(1)
	w.Reset(t0)
	assert.Equal(t, 380*time.Millisecond, w.BurstInterval())
	assert.Equal(t, 1900*time.Millisecond, w.BackgroundInterval())

	w.startWave(t0)
	assert.Equal(t, 360*time.Millisecond, w.BurstInterval())
	assert.Equal(t, 1800*time.Millisecond, w.BackgroundInterval())
}

func TestBackgroundScalesWithLoad(t *testing.T) {
	w := newTestScheduler(1)
	w.Reset(t0)
	w.state.BurstRemaining = 0
	p := normalParams()

	spawned := 0
	accept := func(Vec3) bool { spawned++; return true }

	// Half full: 1.9s * 1.5
	w.Update(t0.Add(2800*time.Millisecond), p.MaxEntities/2, p, accept)
	assert.Equal(t, 0, spawned)
	w.Update(t0.Add(2850*time.Millisecond), p.MaxEntities/2, p, accept)
	assert.Equal(t, 1, spawned)
}

func TestSpawnPointsOnEdges(t *testing.T) {
	w := newTestScheduler(1)
	h := testConfig().Arena.HalfExtent
	edges := map[string]int{}
	for i := 0; i < 400; i++ {
		p := w.SpawnPoint()
		onX := math.Abs(p.X) == h
		onZ := math.Abs(p.Z) == h
		require.True(t, onX || onZ, "point %+v is not on an edge", p)
		require.LessOrEqual(t, math.Abs(p.X), h)
		require.LessOrEqual(t, math.Abs(p.Z), h)
		switch {
		case p.Z == -h:
			edges["south"]++
		case p.Z == h:
			edges["north"]++
		case p.X == -h:
			edges["west"]++
		default:
			edges["east"]++
		}
	}
	assert.Len(t, edges, 4, "all four edges used")
}

func TestEntitySpeedVariance(t *testing.T) {
	w := newTestScheduler(1)
	w.Reset(t0)
	for i := 0; i < 200; i++ {
		s := w.EntitySpeed()
		assert.GreaterOrEqual(t, s, 3*0.85)
		assert.LessOrEqual(t, s, 3*1.15)
	}
}
