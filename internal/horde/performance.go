package horde

import (
	"time"

	"zombie-horde/internal/config"
)

// Tier is a discrete performance classification. Higher is worse.
type Tier int

const (
	TierNormal Tier = iota
	TierLow
	TierCritical
	TierUltraLow
)

// String returns human-readable tier
func (t Tier) String() string {
	switch t {
	case TierNormal:
		return "normal"
	case TierLow:
		return "low"
	case TierCritical:
		return "critical"
	case TierUltraLow:
		return "ultralow"
	default:
		return "unknown"
	}
}

// Params are the derated knobs a tier feeds to the other components.
type Params struct {
	MaxEntities       int     `json:"maxEntities"`
	BatchGroups       int     `json:"batchGroups"`
	SeparationEvery   int     `json:"separationEvery"`
	SkipDistance      float64 `json:"skipDistance"`
	SkipTicks         int     `json:"skipTicks"`
	OrientationRadius float64 `json:"orientationRadius"`
	SpawnScale        float64 `json:"spawnScale"`
	WaveScale         float64 `json:"waveScale"`
}

// TierChange describes the outcome of one sample.
type TierChange struct {
	From, To Tier
	Changed  bool
}

// Performance keeps a rolling window of instantaneous fps and classifies a
// tier with hysteresis: dropping into a tier needs the average below its
// enter bound, leaving it needs the average above its (higher) exit bound.
type Performance struct {
	cfg    config.PerformanceConfig
	params []Params

	window []float64
	next   int
	filled int
	sum    float64

	tier Tier
	last time.Time
}

// NewPerformance creates a controller starting in the Normal tier.
func NewPerformance(cfg config.PerformanceConfig) *Performance {
	p := &Performance{
		cfg:    cfg,
		window: make([]float64, cfg.WindowSize),
		params: make([]Params, len(cfg.Tiers)),
	}
	for i, t := range cfg.Tiers {
		p.params[i] = Params{
			MaxEntities:       min(t.MaxEntities, cfg.HardMaxEntities),
			BatchGroups:       t.BatchGroups,
			SeparationEvery:   t.SeparationEvery,
			SkipDistance:      t.SkipDistance,
			SkipTicks:         t.SkipTicks,
			OrientationRadius: t.OrientationRadius,
			SpawnScale:        t.SpawnScale,
			WaveScale:         t.WaveScale,
		}
	}
	return p
}

// Sample records the wall-clock interval since the previous call. The first
// call only primes the clock.
func (p *Performance) Sample(now time.Time) TierChange {
	last := p.last
	p.last = now
	if last.IsZero() {
		return TierChange{From: p.tier, To: p.tier}
	}
	return p.Observe(now.Sub(last))
}

// Observe records one frame interval. Non-positive intervals are ignored.
func (p *Performance) Observe(interval time.Duration) TierChange {
	from := p.tier
	if interval <= 0 {
		return TierChange{From: from, To: from}
	}
	fps := float64(time.Second) / float64(interval)

	p.sum -= p.window[p.next]
	p.window[p.next] = fps
	p.sum += fps
	p.next = (p.next + 1) % len(p.window)
	if p.filled < len(p.window) {
		p.filled++
	}
	if p.filled < len(p.window) {
		return TierChange{From: from, To: from}
	}

	p.tier = p.classify(p.sum / float64(len(p.window)))
	return TierChange{From: from, To: p.tier, Changed: p.tier != from}
}

func (p *Performance) classify(avg float64) Tier {
	t := p.tier
	tiers := p.cfg.Tiers
	degraded := false
	for int(t)+1 < len(tiers) && avg < tiers[t+1].EnterBelow {
		t++
		degraded = true
	}
	if degraded {
		return t
	}
	for t > 0 && avg > tiers[t].ExitAbove {
		t--
	}
	return t
}

// AverageFPS is the window mean, or 0 until the window is full.
func (p *Performance) AverageFPS() float64 {
	if p.filled < len(p.window) {
		return 0
	}
	return p.sum / float64(len(p.window))
}

// Tier returns the current tier.
func (p *Performance) Tier() Tier { return p.tier }

// Params returns the derated parameters of the current tier.
func (p *Performance) Params() Params { return p.paramsFor(p.tier) }

func (p *Performance) paramsFor(t Tier) Params { return p.params[t] }

// IsWorst reports whether t is the most derated tier.
func (p *Performance) IsWorst(t Tier) bool { return int(t) == len(p.params)-1 }
