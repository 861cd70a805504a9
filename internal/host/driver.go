// Package host is a scripted stand-in for the collaborators around the
// simulation: a player walking an orbit, an auto-aiming gun, an ally pet and
// the player's own health bar.
package host

import (
	"context"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"zombie-horde/internal/horde"
)

// Engine is the slice of the simulation the driver talks to.
type Engine interface {
	SetPlayerPosition(p horde.Vec3)
	LatestSnapshot(dst *horde.Snapshot) bool
	ApplyDamage(id horde.EntityID, hit horde.Hit) horde.DamageResult
	ResetWave()
}

// Config tunes the scripted player.
type Config struct {
	OrbitRadius    float64
	OrbitSpeed     float64 // radians per second
	FireInterval   time.Duration
	FireRange      float64
	HeadshotChance float64
	PetInterval    time.Duration
	PetRange       float64
	PlayerHealth   int
	Seed           int64
}

// DefaultConfig returns a player that survives a few waves.
func DefaultConfig() Config {
	return Config{
		OrbitRadius:    10,
		OrbitSpeed:     0.35,
		FireInterval:   250 * time.Millisecond,
		FireRange:      18,
		HeadshotChance: 0.15,
		PetInterval:    900 * time.Millisecond,
		PetRange:       5,
		PlayerHealth:   200,
		Seed:           1,
	}
}

// Stats counts what the driver has done.
type Stats struct {
	Health  int    `json:"health"`
	Deaths  int    `json:"deaths"`
	Shots   uint64 `json:"shots"`
	Hits    uint64 `json:"hits"`
	PetHits uint64 `json:"petHits"`
	Kills   uint64 `json:"kills"`
}

// Driver plays the game. It implements horde.Hooks; hooks may arrive from
// any goroutine. Update must be called from one goroutine at a time.
type Driver struct {
	cfg Config
	rng *rand.Rand

	mu     sync.Mutex
	engine Engine
	stats  Stats

	// owned by the Update goroutine
	snap     horde.Snapshot
	angle    float64
	last     time.Time
	lastShot time.Time
	lastPet  time.Time
}

var _ horde.Hooks = (*Driver)(nil)

// New creates a driver. Attach the engine before the first Update.
func New(cfg Config) *Driver {
	return &Driver{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		stats: Stats{Health: cfg.PlayerHealth},
	}
}

// Attach sets the engine. The engine needs the driver as its Hooks at
// construction, so wiring is two-step.
func (d *Driver) Attach(e Engine) {
	d.mu.Lock()
	d.engine = e
	d.mu.Unlock()
}

func (d *Driver) target() Engine {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine
}

// Update advances the script to now: move, then fire and let the pet bite
// when their cooldowns allow.
func (d *Driver) Update(now time.Time) {
	eng := d.target()
	if eng == nil {
		return
	}

	if !d.last.IsZero() {
		dt := now.Sub(d.last).Seconds()
		d.angle = math.Mod(d.angle+d.cfg.OrbitSpeed*dt, 2*math.Pi)
	}
	d.last = now
	player := d.Position()
	eng.SetPlayerPosition(player)

	if !eng.LatestSnapshot(&d.snap) {
		return
	}

	if now.Sub(d.lastShot) >= d.cfg.FireInterval {
		if id, ok := nearest(d.snap.Entities, player, d.cfg.FireRange); ok {
			d.lastShot = now
			res := eng.ApplyDamage(id, horde.Hit{
				Source:   horde.SourcePlayer,
				Headshot: d.rng.Float64() < d.cfg.HeadshotChance,
			})
			d.mu.Lock()
			d.stats.Shots++
			if res.Applied {
				d.stats.Hits++
			}
			d.mu.Unlock()
		}
	}

	if now.Sub(d.lastPet) >= d.cfg.PetInterval {
		if id, ok := nearest(d.snap.Entities, player, d.cfg.PetRange); ok {
			d.lastPet = now
			res := eng.ApplyDamage(id, horde.Hit{Source: horde.SourceAlly})
			if res.Applied {
				d.mu.Lock()
				d.stats.PetHits++
				d.mu.Unlock()
			}
		}
	}
}

// Position is where the scripted player currently stands.
func (d *Driver) Position() horde.Vec3 {
	return horde.Vec3{
		X: d.cfg.OrbitRadius * math.Cos(d.angle),
		Z: d.cfg.OrbitRadius * math.Sin(d.angle),
	}
}

// nearest picks the closest non-dying entity within rng of p, lowest ID on
// ties.
func nearest(entities []horde.EntityView, p horde.Vec3, rng float64) (horde.EntityID, bool) {
	var best horde.EntityID
	var bestD float64
	found := false
	for _, e := range entities {
		if e.Dying {
			continue
		}
		dx, dz := e.X-p.X, e.Z-p.Z
		d := dx*dx + dz*dz
		if d > rng*rng {
			continue
		}
		if !found || d < bestD || (d == bestD && e.ID < best) {
			best, bestD, found = e.ID, d, true
		}
	}
	return best, found
}

// PlayerDamaged drains the health bar; at zero the run ends and the wave is
// reset.
func (d *Driver) PlayerDamaged(amount int) {
	d.mu.Lock()
	d.stats.Health -= amount
	dead := d.stats.Health <= 0
	var eng Engine
	if dead {
		d.stats.Deaths++
		d.stats.Health = d.cfg.PlayerHealth
		eng = d.engine
		log.Printf("💀 Player down (death %d, %d kills this run)", d.stats.Deaths, d.stats.Kills)
		d.stats.Kills = 0
	}
	d.mu.Unlock()

	if eng != nil {
		eng.ResetWave()
	}
}

// EntityKilled counts kills for the current run.
func (d *Driver) EntityKilled(horde.EntityID) {
	d.mu.Lock()
	d.stats.Kills++
	d.mu.Unlock()
}

// Stats returns a copy of the counters.
func (d *Driver) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Run calls Update every interval until ctx is done.
func (d *Driver) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	log.Printf("🎯 Demo player running (orbit r=%.0f, fire every %v)", d.cfg.OrbitRadius, d.cfg.FireInterval)
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			d.Update(now)
		}
	}
}
