package horde

import (
	"math"
	"math/rand"
	"slices"
	"time"

	"zombie-horde/internal/config"
)

// Health color ramp, healthiest first.
const (
	ColorHealthy   = "#2a3b24"
	ColorHurt      = "#493828"
	ColorWounded   = "#3d2121"
	ColorNearDeath = "#2a1c1c"
)

// HealthColor returns the body color for a health value.
func HealthColor(health int) string {
	switch {
	case health > 66:
		return ColorHealthy
	case health > 33:
		return ColorHurt
	case health > 0:
		return ColorWounded
	default:
		return ColorNearDeath
	}
}

// Hit is one damage application.
type Hit struct {
	Damage   int    // nominal amount; only Chain hits use it as-is
	Source   Source // who dealt it
	Headshot bool   // forces damage to the target's current health
}

// DamageResult reports what a hit did. Applied is false for unknown, Dying
// or Removed targets.
type DamageResult struct {
	Applied  bool `json:"applied"`
	Damage   int  `json:"damage"`
	Health   int  `json:"health"`
	Killed   bool `json:"killed"`
	Exploded bool `json:"exploded"`
	Chained  int  `json:"chained"` // secondary kills caused by the chain reaction
}

// combatObserver receives everything Combat reports: damage, deaths,
// explosions and melee contact.
type combatObserver interface {
	entityDamaged(e *Entity, dmg int, src Source)
	entityKilled(e *Entity)
	explosion(pos Vec3)
	playerDamaged(amount int)
}

// Combat applies damage, runs the death transition and resolves chain
// reactions. It also checks melee contact against the player.
type Combat struct {
	cfg   config.CombatConfig
	rng   *rand.Rand
	out   combatObserver
	kills uint64

	work  []EntityID
	cands []uint64
}

// NewCombat creates a combat system reporting through out.
func NewCombat(cfg config.CombatConfig, rng *rand.Rand, out combatObserver) *Combat {
	return &Combat{
		cfg:   cfg,
		rng:   rng,
		out:   out,
		work:  make([]EntityID, 0, 16),
		cands: make([]uint64, 0, 64),
	}
}

// Kills is the number of Active→Dying transitions caused by damage.
func (c *Combat) Kills() uint64 { return c.kills }

// effectiveDamage resolves the amount a hit removes.
func (c *Combat) effectiveDamage(e *Entity, hit Hit) int {
	if hit.Headshot {
		return e.Health
	}
	switch hit.Source {
	case SourceAlly:
		return c.cfg.AllyHitDamage
	case SourceChain:
		if hit.Damage > 0 {
			return hit.Damage
		}
		return c.cfg.ChainDamage
	default:
		return c.cfg.PlayerHitDamage
	}
}

// Apply deals hit to entity id. Lethal blows at or above the large-damage
// threshold, and every headshot kill, explode and may set off a chain
// reaction among nearby Active entities.
func (c *Combat) Apply(store *Store, id EntityID, hit Hit, now time.Time) DamageResult {
	e, ok := store.Get(id)
	if !ok || !e.Alive() {
		return DamageResult{}
	}

	res := c.strike(store, e, hit, now)
	if !res.Exploded {
		return res
	}

	// Chain reaction, breadth first. Every entity dies at most once, so the
	// worklist drains.
	c.work = append(c.work[:0], e.ID)
	for len(c.work) > 0 {
		src, _ := store.Get(c.work[0])
		c.work = c.work[1:]
		if src == nil {
			continue
		}
		for _, nid := range c.chainTargets(store, src) {
			if c.rng.Float64() >= c.cfg.ChainChance {
				continue
			}
			victim, _ := store.Get(nid)
			r := c.strike(store, victim, Hit{Damage: c.cfg.ChainDamage, Source: SourceChain}, now)
			if r.Killed {
				res.Chained++
			}
			if r.Exploded {
				c.work = append(c.work, victim.ID)
			}
		}
	}
	return res
}

// strike applies one hit to an Active entity without chaining.
func (c *Combat) strike(store *Store, e *Entity, hit Hit, now time.Time) DamageResult {
	dmg := c.effectiveDamage(e, hit)
	if dmg < 0 {
		dmg = 0
	}
	e.Health -= dmg
	c.out.entityDamaged(e, dmg, hit.Source)

	res := DamageResult{Applied: true, Damage: dmg, Health: e.Health}
	if v := e.Visual; v != nil {
		v.HealthFraction = math.Max(0, math.Min(1, float64(e.Health)/float64(c.cfg.StartHealth)))
		v.Color = HealthColor(e.Health)
	}

	if e.Health > 0 {
		c.addWound(e)
		return res
	}

	if !store.MarkDying(e, now) {
		return res
	}
	res.Killed = true
	res.Exploded = hit.Headshot || dmg >= c.cfg.LargeDamageThreshold
	e.Exploded = res.Exploded
	if v := e.Visual; v != nil {
		v.HealthBarVisible = false
	}
	if !e.scored {
		e.scored = true
		c.kills++
		c.out.entityKilled(e)
	}
	if res.Exploded {
		c.out.explosion(e.Position)
	}
	return res
}

// chainTargets returns the Active entities within the chain radius of src,
// in ID order so a seeded rng gives repeatable outcomes.
func (c *Combat) chainTargets(store *Store, src *Entity) []EntityID {
	c.cands = store.Nearby(src.Position, c.cfg.ChainRadius, c.cands[:0])
	r2 := c.cfg.ChainRadius * c.cfg.ChainRadius
	out := make([]EntityID, 0, len(c.cands))
	for _, raw := range c.cands {
		id := EntityID(raw)
		if id == src.ID {
			continue
		}
		n, ok := store.Get(id)
		if !ok || !n.Alive() || distSqXZ(n.Position, src.Position) > r2 {
			continue
		}
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (c *Combat) addWound(e *Entity) {
	v := e.Visual
	if v == nil || len(v.Wounds) >= c.cfg.MaxWounds {
		return
	}
	v.Wounds = append(v.Wounds, Wound{
		X: c.rng.Float64()*0.6 - 0.3,
		Y: 0.6 + c.rng.Float64()*0.9,
	})
}

// Contact damages the player once per cooldown for every Active entity in
// melee range. It returns the number of contacts this tick.
func (c *Combat) Contact(store *Store, player Vec3, now time.Time) int {
	c.cands = store.Nearby(player, c.cfg.MeleeRange, c.cands[:0])
	slices.Sort(c.cands)
	r2 := c.cfg.MeleeRange * c.cfg.MeleeRange
	hits := 0
	for _, raw := range c.cands {
		e, ok := store.Get(EntityID(raw))
		if !ok || !e.Alive() || distSqXZ(e.Position, player) > r2 {
			continue
		}
		if !e.LastContact.IsZero() && now.Sub(e.LastContact) < c.cfg.ContactCooldown {
			continue
		}
		e.LastContact = now
		c.out.playerDamaged(c.cfg.ContactDamage)
		hits++
	}
	return hits
}

// Reset zeroes the kill counter.
func (c *Combat) Reset() {
	c.kills = 0
}
