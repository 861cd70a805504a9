package horde

import "time"

// Explosion is the burst shown when an entity dies from a large blow.
type Explosion struct {
	Position  Vec3
	Radius    float64
	MaxRadius float64
	Life      time.Duration
	Remaining time.Duration
}

// Update grows the blast and reports whether it is still visible.
func (x *Explosion) Update(dt time.Duration) bool {
	x.Remaining -= dt
	if x.Remaining <= 0 {
		x.Remaining = 0
		return false
	}
	p := 1 - float64(x.Remaining)/float64(x.Life)
	x.Radius = x.MaxRadius * easeOutCubic(p)
	return true
}

// Intensity fades from 1 to 0 over the explosion's life.
func (x *Explosion) Intensity() float64 {
	if x.Life <= 0 {
		return 0
	}
	return float64(x.Remaining) / float64(x.Life)
}

// Effects holds the live explosions, capped so chain reactions cannot
// accumulate unbounded state.
type Effects struct {
	list      []*Explosion
	max       int
	radius    float64
	life      time.Duration
	triggered uint64
	dropped   uint64
}

// NewEffects creates an effect list.
func NewEffects(capacity int, radius float64, life time.Duration) *Effects {
	return &Effects{
		list:   make([]*Explosion, 0, capacity),
		max:    capacity,
		radius: radius,
		life:   life,
	}
}

// AddExplosion starts an explosion at pos. Past the cap the oldest one is
// replaced.
func (f *Effects) AddExplosion(pos Vec3) {
	f.triggered++
	x := &Explosion{Position: pos, MaxRadius: f.radius, Life: f.life, Remaining: f.life}
	if len(f.list) >= f.max {
		if f.max <= 0 {
			f.dropped++
			return
		}
		copy(f.list, f.list[1:])
		f.list[len(f.list)-1] = x
		f.dropped++
		return
	}
	f.list = append(f.list, x)
}

// Update ages every explosion and drops finished ones in place.
func (f *Effects) Update(dt time.Duration) {
	alive := f.list[:0]
	for _, x := range f.list {
		if x.Update(dt) {
			alive = append(alive, x)
		}
	}
	clear(f.list[len(alive):])
	f.list = alive
}

// Explosions returns the live explosions; valid until the next Update.
func (f *Effects) Explosions() []*Explosion { return f.list }

// Triggered is the total number of explosions started.
func (f *Effects) Triggered() uint64 { return f.triggered }

// Clear removes every explosion.
func (f *Effects) Clear() {
	clear(f.list)
	f.list = f.list[:0]
}
