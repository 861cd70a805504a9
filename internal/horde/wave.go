package horde

import (
	"math"
	"math/rand"
	"time"

	"zombie-horde/internal/config"
)

// Fibonacci returns fib(n) with fib(1) = fib(2) = 1. n < 1 yields 0. Values
// past the int range saturate at math.MaxInt.
func Fibonacci(n int) int {
	if n < 1 {
		return 0
	}
	a, b := 0, 1
	for i := 1; i < n; i++ {
		if b > math.MaxInt-a {
			return math.MaxInt
		}
		a, b = b, a+b
	}
	return b
}

// WaveState is the scheduler's mutable state.
type WaveState struct {
	Wave             int           `json:"wave"`
	LastWaveStart    time.Time     `json:"lastWaveStart"`
	NextWaveInterval time.Duration `json:"nextWaveInterval"`
	BurstSize        int           `json:"burstSize"`
	BurstRemaining   int           `json:"burstRemaining"`
	LastBurstSpawn   time.Time     `json:"lastBurstSpawn"`
	LastBackground   time.Time     `json:"lastBackgroundSpawn"`
	BaseSpeed        float64       `json:"baseSpeed"`
}

// WaveTick reports what one Update did.
type WaveTick struct {
	WaveStarted bool
	Wave        int
	BurstSize   int
	Spawned     int
}

// WaveScheduler decides when and where to spawn. Three cadences interleave:
// waves escalate the burst size and speed, bursts spawn rapidly while a wave
// has spawns left, and a slower background trickle runs between bursts.
type WaveScheduler struct {
	cfg   config.WaveConfig
	arena float64
	rng   *rand.Rand
	state WaveState
}

// NewWaveScheduler creates a scheduler. Call Reset before the first Update.
func NewWaveScheduler(cfg config.WaveConfig, halfExtent float64, rng *rand.Rand) *WaveScheduler {
	return &WaveScheduler{cfg: cfg, arena: halfExtent, rng: rng}
}

// BurstSize is fib(wave+5) scaled, saturating at math.MaxInt.
func (w *WaveScheduler) BurstSize(wave int) int {
	fib, scale := Fibonacci(wave+5), w.cfg.BurstScale
	if scale > 1 && fib > math.MaxInt/scale {
		return math.MaxInt
	}
	return fib * scale
}

// Reset returns to wave 1 with its burst armed.
func (w *WaveScheduler) Reset(now time.Time) {
	burst := w.BurstSize(1)
	w.state = WaveState{
		Wave:             1,
		LastWaveStart:    now,
		NextWaveInterval: w.cfg.InitialWaveInterval,
		BurstSize:        burst,
		BurstRemaining:   burst,
		LastBurstSpawn:   now,
		LastBackground:   now,
		BaseSpeed:        w.cfg.BaseSpeed,
	}
}

// State returns a copy of the scheduler state.
func (w *WaveScheduler) State() WaveState { return w.state }

// BurstInterval is the spacing between burst spawns for the current wave
// before tier derating.
func (w *WaveScheduler) BurstInterval() time.Duration {
	d := w.cfg.BurstInterval - time.Duration(w.state.Wave)*w.cfg.BurstIntervalStep
	return max(d, w.cfg.MinBurstInterval)
}

// BackgroundInterval is the trickle spacing for the current wave before load
// and tier derating.
func (w *WaveScheduler) BackgroundInterval() time.Duration {
	d := w.cfg.BackgroundInterval - time.Duration(w.state.Wave)*w.cfg.BackgroundStep
	return max(d, w.cfg.MinBackgroundInterval)
}

func scaleDuration(d time.Duration, f float64) time.Duration {
	return time.Duration(float64(d) * f)
}

// Update runs the three cadences. live counts entities plus pending
// warnings; spawn is called for each new spawn point and reports whether it
// was accepted. At most one spawn is issued per call.
func (w *WaveScheduler) Update(now time.Time, live int, p Params, spawn func(Vec3) bool) WaveTick {
	var out WaveTick
	st := &w.state

	if now.Sub(st.LastWaveStart) > scaleDuration(st.NextWaveInterval, p.WaveScale) {
		w.startWave(now)
		out.WaveStarted = true
	}
	out.Wave = st.Wave
	out.BurstSize = st.BurstSize

	if live >= p.MaxEntities {
		return out
	}

	if st.BurstRemaining > 0 {
		if now.Sub(st.LastBurstSpawn) >= scaleDuration(w.BurstInterval(), p.SpawnScale) {
			st.LastBurstSpawn = now
			if spawn(w.SpawnPoint()) {
				st.BurstRemaining--
				out.Spawned++
			}
		}
		return out
	}

	load := 0.0
	if p.MaxEntities > 0 {
		load = float64(live) / float64(p.MaxEntities)
	}
	if now.Sub(st.LastBackground) >= scaleDuration(w.BackgroundInterval(), (1+load)*p.SpawnScale) {
		st.LastBackground = now
		if spawn(w.SpawnPoint()) {
			out.Spawned++
		}
	}
	return out
}

func (w *WaveScheduler) startWave(now time.Time) {
	st := &w.state
	st.Wave++
	st.BurstSize = w.BurstSize(st.Wave)
	st.BurstRemaining = st.BurstSize
	st.LastWaveStart = now
	st.NextWaveInterval = max(st.NextWaveInterval-w.cfg.WaveIntervalStep, w.cfg.MinWaveInterval)
	st.BaseSpeed = math.Min(st.BaseSpeed+w.cfg.SpeedStep, w.cfg.MaxSpeed)
}

// SpawnPoint picks a point uniformly along one of the four arena edges.
func (w *WaveScheduler) SpawnPoint() Vec3 {
	h := w.arena
	t := w.rng.Float64()*2*h - h
	switch w.rng.Intn(4) {
	case 0:
		return Vec3{X: t, Z: -h}
	case 1:
		return Vec3{X: t, Z: h}
	case 2:
		return Vec3{X: -h, Z: t}
	default:
		return Vec3{X: h, Z: t}
	}
}

// EntitySpeed draws a speed around the current base speed.
func (w *WaveScheduler) EntitySpeed() float64 {
	v := w.cfg.SpeedVariance
	return w.state.BaseSpeed * (1 - v/2 + w.rng.Float64()*v)
}
