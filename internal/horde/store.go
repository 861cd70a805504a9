package horde

import (
	"cmp"
	"math"
	"slices"
	"time"

	"zombie-horde/internal/config"
	"zombie-horde/internal/horde/pool"
	"zombie-horde/internal/horde/spatial"
)

// Store owns the canonical entity and warning collections. Every mutation of
// those collections goes through it, so the spatial index and the pools stay
// in step with the entity map.
//
// Not safe for concurrent use; the Engine serializes access.
type Store struct {
	arena    config.ArenaConfig
	combat   config.CombatConfig
	warnDur  time.Duration
	hardMax  int
	grid     *spatial.Grid
	visuals  *pool.Pool[*Visual]
	markers  *pool.Pool[*Marker]
	entities map[EntityID]*Entity
	warnings map[EntityID]*SpawnWarning

	// ordered views, kept sorted by ID
	entityOrder  []*Entity
	warningOrder []*SpawnWarning

	nextID  EntityID
	nextSeq uint64
	active  int

	spawned  uint64
	promoted uint64
	removed  uint64
	refused  uint64
}

// NewStore creates an empty store with pre-warmed pools.
func NewStore(cfg config.SimConfig) *Store {
	hardMax := cfg.Performance.HardMaxEntities
	maxWounds := cfg.Combat.MaxWounds
	return &Store{
		arena:   cfg.Arena,
		combat:  cfg.Combat,
		warnDur: cfg.Lifecycle.WarningDuration,
		hardMax: hardMax,
		grid:    spatial.NewGrid(cfg.Arena.CellSize, hardMax),
		visuals: pool.New(
			func() *Visual { return newVisual(maxWounds) },
			(*Visual).Reset,
			cfg.Pools.VisualPrewarm, cfg.Pools.VisualMaxRetained,
		),
		markers: pool.New(
			func() *Marker { return &Marker{} },
			(*Marker).Reset,
			cfg.Pools.MarkerPrewarm, cfg.Pools.MarkerMaxRetained,
		),
		entities:     make(map[EntityID]*Entity, hardMax),
		warnings:     make(map[EntityID]*SpawnWarning),
		entityOrder:  make([]*Entity, 0, hardMax),
		warningOrder: make([]*SpawnWarning, 0, 64),
	}
}

// SpawnWarning registers a telegraphed spawn at pos.
func (s *Store) SpawnWarning(pos Vec3, now time.Time) *SpawnWarning {
	s.nextID++
	pos.Y = 0
	s.ApplyBounds(&pos)

	m := s.markers.Acquire()
	m.Owner = s.nextID
	m.Position = pos
	m.Scale = 1
	m.Opacity = 1

	w := &SpawnWarning{ID: s.nextID, Position: pos, Start: now, Marker: m}
	s.warnings[w.ID] = w
	s.warningOrder = append(s.warningOrder, w) // IDs only grow
	s.spawned++
	return w
}

// PromoteWarning replaces an expired warning with an entity at the same
// position. It refuses, leaving the warning in place for a later tick, when
// the store already holds the hard maximum of entities.
func (s *Store) PromoteWarning(id EntityID, speed float64) (*Entity, bool) {
	w, ok := s.warnings[id]
	if !ok {
		return nil, false
	}
	if len(s.entities) >= s.hardMax {
		s.refused++
		return nil, false
	}
	s.RemoveWarning(id)

	s.nextSeq++
	e := &Entity{
		ID:       w.ID,
		Seq:      s.nextSeq,
		State:    StateActive,
		Position: Vec3{X: w.Position.X, Y: s.arena.StandingHeight, Z: w.Position.Z},
		Speed:    speed,
		Health:   s.combat.StartHealth,
	}
	v := s.visuals.Acquire()
	v.Owner = e.ID
	v.Position = e.Position
	v.Height = s.arena.StandingHeight
	v.Color = HealthColor(e.Health)
	v.HealthFraction = 1
	v.HealthBarVisible = true
	e.Visual = v

	s.entities[e.ID] = e
	s.insertOrdered(e)
	s.grid.Insert(uint64(e.ID), e.Position.X, e.Position.Z)
	s.active++
	s.promoted++
	return e, true
}

// RemoveWarning drops a warning and releases its marker.
func (s *Store) RemoveWarning(id EntityID) bool {
	w, ok := s.warnings[id]
	if !ok {
		return false
	}
	delete(s.warnings, id)
	if i, found := slices.BinarySearchFunc(s.warningOrder, id, func(w *SpawnWarning, id EntityID) int {
		return cmp.Compare(w.ID, id)
	}); found {
		s.warningOrder = slices.Delete(s.warningOrder, i, i+1)
	}
	if w.Marker != nil {
		s.markers.Release(w.Marker)
		w.Marker = nil
	}
	return true
}

// RemoveEntity detaches an entity from the index, returns its visual to the
// pool and marks it Removed. Unknown ids are ignored.
func (s *Store) RemoveEntity(id EntityID) bool {
	e, ok := s.entities[id]
	if !ok {
		return false
	}
	s.grid.Remove(uint64(id), e.Position.X, e.Position.Z)
	if e.Visual != nil {
		s.visuals.Release(e.Visual)
		e.Visual = nil
	}
	if e.State == StateActive {
		s.active--
	}
	e.State = StateRemoved
	e.Velocity = Vec3{}

	delete(s.entities, id)
	if i, found := slices.BinarySearchFunc(s.entityOrder, id, func(e *Entity, id EntityID) int {
		return cmp.Compare(e.ID, id)
	}); found {
		s.entityOrder = slices.Delete(s.entityOrder, i, i+1)
	}
	s.removed++
	return true
}

// MarkDying moves an Active entity to Dying. It reports false when the entity
// was not Active.
func (s *Store) MarkDying(e *Entity, now time.Time) bool {
	if e.State != StateActive {
		return false
	}
	e.State = StateDying
	e.DyingStart = now
	e.Velocity = Vec3{}
	s.active--
	return true
}

// ApplyBounds clamps a ground position into the arena.
func (s *Store) ApplyBounds(p *Vec3) {
	h := s.arena.HalfExtent
	p.X = math.Max(-h, math.Min(h, p.X))
	p.Z = math.Max(-h, math.Min(h, p.Z))
}

// ApplyArenaBounds clamps an entity's x/z so it cannot leave the arena.
func (s *Store) ApplyArenaBounds(e *Entity) {
	s.ApplyBounds(&e.Position)
}

// Move applies delta to an entity, clamps it to the arena and updates the
// spatial index incrementally.
func (s *Store) Move(e *Entity, delta Vec3) {
	if e.State != StateActive {
		return
	}
	old := e.Position
	e.Position.X += delta.X
	e.Position.Z += delta.Z
	s.ApplyArenaBounds(e)
	s.grid.Update(uint64(e.ID), old.X, old.Z, e.Position.X, e.Position.Z)
	if e.Visual != nil {
		e.Visual.Position = e.Position
	}
}

// Get returns a live (Active or Dying) entity.
func (s *Store) Get(id EntityID) (*Entity, bool) {
	e, ok := s.entities[id]
	return e, ok
}

// Warning returns a pending warning.
func (s *Store) Warning(id EntityID) (*SpawnWarning, bool) {
	w, ok := s.warnings[id]
	return w, ok
}

// Entities returns live entities ordered by ID. The slice is owned by the
// store and only valid until the next mutation.
func (s *Store) Entities() []*Entity {
	return s.entityOrder
}

// Warnings returns pending warnings ordered by ID, with the same ownership
// rules as Entities.
func (s *Store) Warnings() []*SpawnWarning {
	return s.warningOrder
}

// Nearby appends the ids of entities whose cells lie within radius of pos.
// The result is a candidate set; narrow it by exact distance.
func (s *Store) Nearby(pos Vec3, radius float64, dst []uint64) []uint64 {
	return s.grid.FindNearby(pos.X, pos.Z, radius, dst)
}

// ExpiredWarnings appends the ids of warnings whose countdown has run out.
func (s *Store) ExpiredWarnings(now time.Time, dst []EntityID) []EntityID {
	for _, w := range s.warningOrder {
		if now.Sub(w.Start) >= s.warnDur {
			dst = append(dst, w.ID)
		}
	}
	return dst
}

// PulseWarnings advances the telegraph markers of pending warnings.
func (s *Store) PulseWarnings(now time.Time) {
	for _, w := range s.warningOrder {
		if w.Marker == nil {
			continue
		}
		p := 1.0
		if s.warnDur > 0 {
			p = math.Min(1, float64(now.Sub(w.Start))/float64(s.warnDur))
		}
		w.Marker.Progress = p
		// Four pulses over the countdown, growing as the spawn nears.
		pulse := 0.5 + 0.5*math.Sin(p*8*math.Pi)
		w.Marker.Scale = 0.6 + 0.4*p + 0.15*pulse
		w.Marker.Opacity = 0.4 + 0.6*pulse
	}
}

// ActiveCount is the number of Active entities.
func (s *Store) ActiveCount() int { return s.active }

// LiveCount is the number of Active and Dying entities.
func (s *Store) LiveCount() int { return len(s.entities) }

// WarningCount is the number of pending warnings.
func (s *Store) WarningCount() int { return len(s.warnings) }

// Clear removes every entity and warning. Containers go back to their pools
// and outstanding tracking is reset; the pools' free lists are kept.
func (s *Store) Clear() {
	for _, e := range s.entityOrder {
		if e.Visual != nil {
			s.visuals.Release(e.Visual)
			e.Visual = nil
		}
		e.State = StateRemoved
	}
	for _, w := range s.warningOrder {
		if w.Marker != nil {
			s.markers.Release(w.Marker)
			w.Marker = nil
		}
	}
	s.visuals.ResetOutstanding()
	s.markers.ResetOutstanding()

	clear(s.entities)
	clear(s.warnings)
	clear(s.entityOrder)
	clear(s.warningOrder)
	s.entityOrder = s.entityOrder[:0]
	s.warningOrder = s.warningOrder[:0]
	s.grid.Clear()
	s.active = 0
}

// StoreStats is a point-in-time view of the store counters.
type StoreStats struct {
	Active   int              `json:"active"`
	Live     int              `json:"live"`
	Warnings int              `json:"warnings"`
	Spawned  uint64           `json:"spawned"`
	Promoted uint64           `json:"promoted"`
	Removed  uint64           `json:"removed"`
	Refused  uint64           `json:"refused"`
	Grid     spatial.GridStats `json:"grid"`
	Visuals  pool.Stats       `json:"visualPool"`
	Markers  pool.Stats       `json:"markerPool"`
}

// Stats returns the store counters.
func (s *Store) Stats() StoreStats {
	return StoreStats{
		Active:   s.active,
		Live:     len(s.entities),
		Warnings: len(s.warnings),
		Spawned:  s.spawned,
		Promoted: s.promoted,
		Removed:  s.removed,
		Refused:  s.refused,
		Grid:     s.grid.Stats(),
		Visuals:  s.visuals.Stats(),
		Markers:  s.markers.Stats(),
	}
}

func (s *Store) insertOrdered(e *Entity) {
	i, _ := slices.BinarySearchFunc(s.entityOrder, e.ID, func(e *Entity, id EntityID) int {
		return cmp.Compare(e.ID, id)
	})
	s.entityOrder = slices.Insert(s.entityOrder, i, e)
}
