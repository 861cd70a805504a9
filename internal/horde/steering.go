package horde

import (
	"math"

	"zombie-horde/internal/config"
)

// Steering moves Active entities toward the player while pushing them apart.
//
// Entities are split into BatchGroups groups by Seq. One group is serviced
// per tick: its members get fresh seek and orientation, and separation when
// their throttle allows. Everyone else keeps moving along the cached
// direction, so every entity moves every tick and is serviced at least once
// every BatchGroups ticks.
type Steering struct {
	cfg    config.SteeringConfig
	groups int
	cursor int
	cands  []uint64

	serviced uint64
	sepCalls uint64
}

// NewSteering creates a steering module.
func NewSteering(cfg config.SteeringConfig) *Steering {
	return &Steering{cfg: cfg, groups: 1, cands: make([]uint64, 0, 64)}
}

// SeparationRadius shrinks as the population grows to bound query cost.
func (s *Steering) SeparationRadius(count int) float64 {
	r := s.cfg.SeparationRadius
	switch {
	case count > 200:
		return r * 0.5
	case count > 100:
		return r * 0.75
	default:
		return r
	}
}

// SeparationEvery adds throttling on top of the tier value for large crowds.
func SeparationEvery(tierEvery, count int) int {
	n := max(tierEvery, 1)
	switch {
	case count > 250:
		n += 2
	case count > 150:
		n++
	}
	return n
}

// Reset restarts the batch cursor.
func (s *Steering) Reset() {
	s.cursor = 0
}

// Update steers and moves every Active entity for one tick of length dt
// seconds.
func (s *Steering) Update(store *Store, player Vec3, p Params, dt float64) {
	groups := max(p.BatchGroups, 1)
	if groups != s.groups {
		s.groups = groups
		s.cursor = 0
	}
	current := uint64(s.cursor)
	s.cursor = (s.cursor + 1) % groups

	count := store.ActiveCount()
	radius := s.SeparationRadius(count)
	every := uint64(SeparationEvery(p.SeparationEvery, count))
	skipTicks := uint64(max(p.SkipTicks, 1))
	turnTime := s.cfg.TurnSmoothTime.Seconds()
	groupDT := dt * float64(groups)

	for _, e := range store.Entities() {
		if !e.Alive() {
			continue
		}
		if e.Seq%uint64(groups) == current {
			s.service(store, e, player, p, radius, every, skipTicks, turnTime, groupDT)
		}
		e.Velocity = e.Direction.Scale(e.Speed * dt)
		store.Move(e, e.Velocity)
	}
}

func (s *Steering) service(store *Store, e *Entity, player Vec3, p Params, radius float64, every, skipTicks uint64, turnTime, dt float64) {
	n := e.serviceTicks
	e.serviceTicks++
	s.serviced++

	dist := DistXZ(e.Position, player)
	far := p.SkipDistance > 0 && dist > p.SkipDistance
	if far && n%skipTicks != 0 {
		return
	}

	seek := player.Sub(e.Position).NormalizeXZ()
	if n%every == 0 {
		e.Separation = s.separation(store, e, radius)
		s.sepCalls++
	}
	e.Direction = seek.Scale(s.cfg.SeekWeight).Add(e.Separation.Scale(s.cfg.SeparationWeight)).NormalizeXZ()

	if dist <= p.OrientationRadius && dist > 1e-6 {
		e.Facing = SmoothDampAngle(e.Facing, BearingTo(e.Position, player), &e.TurnVelocity, turnTime, dt)
		if e.Visual != nil {
			e.Visual.Facing = e.Facing
		}
	}
}

// separation sums normalize(self-other)/max(dist, 0.1) over neighbors within
// radius and returns the normalized sum.
func (s *Steering) separation(store *Store, e *Entity, radius float64) Vec3 {
	s.cands = store.Nearby(e.Position, radius, s.cands[:0])
	r2 := radius * radius
	var sum Vec3
	for _, raw := range s.cands {
		id := EntityID(raw)
		if id == e.ID {
			continue
		}
		o, ok := store.Get(id)
		if !ok || !o.Alive() {
			continue
		}
		d2 := distSqXZ(e.Position, o.Position)
		if d2 > r2 {
			continue
		}
		away := e.Position.Sub(o.Position).NormalizeXZ()
		if away == (Vec3{}) {
			// Coincident: push along a fixed per-entity axis.
			a := float64(e.ID%16) * math.Pi / 8
			away = Vec3{X: math.Cos(a), Z: math.Sin(a)}
		}
		sum = sum.Add(away.Scale(1 / math.Max(math.Sqrt(d2), 0.1)))
	}
	return sum.NormalizeXZ()
}

// SteeringStats counts serviced entities and separation recomputations.
type SteeringStats struct {
	Serviced       uint64 `json:"serviced"`
	SeparationRuns uint64 `json:"separationRuns"`
	BatchGroups    int    `json:"batchGroups"`
	Cursor         int    `json:"cursor"`
}

// Stats returns steering counters.
func (s *Steering) Stats() SteeringStats {
	return SteeringStats{
		Serviced:       s.serviced,
		SeparationRuns: s.sepCalls,
		BatchGroups:    s.groups,
		Cursor:         s.cursor,
	}
}
