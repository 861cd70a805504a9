package horde

import (
	"time"
)

// EntityID identifies an entity or spawn warning. IDs are assigned from one
// monotonically increasing counter and never reused within a process; a
// promoted warning hands its ID to the entity that replaces it.
type EntityID uint64

// State is the entity lifecycle state.
type State uint8

const (
	StateActive State = iota
	StateDying
	StateRemoved
)

// String returns human-readable state
func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateDying:
		return "dying"
	case StateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Source tags who dealt a hit.
type Source uint8

const (
	SourcePlayer Source = iota
	SourceAlly
	SourceChain
)

// String returns human-readable source
func (s Source) String() string {
	switch s {
	case SourcePlayer:
		return "player"
	case SourceAlly:
		return "ally"
	case SourceChain:
		return "chain"
	default:
		return "unknown"
	}
}

// ParseSource maps an external source name. Chain damage is internal only.
func ParseSource(name string) (Source, bool) {
	switch name {
	case "", "player":
		return SourcePlayer, true
	case "ally", "pet":
		return SourceAlly, true
	default:
		return 0, false
	}
}

// Entity is a single zombie.
//
// Health is only written by Combat; Position and Velocity only by Steering
// and the store's arena clamp. Once Dying, Velocity stays zero and Health
// no longer changes.
type Entity struct {
	ID    EntityID
	Seq   uint64 // promotion order, selects the batch group
	State State

	Position   Vec3
	Velocity   Vec3 // displacement applied this tick
	Direction  Vec3 // cached steering result
	Separation Vec3 // cached separation push
	Speed      float64

	Health     int
	DyingStart time.Time
	Exploded   bool // lethal blow took the explosion path

	Facing       float64 // yaw, radians
	TurnVelocity float64
	Tilt         float64 // forward fall rotation, radians

	LastContact time.Time

	serviceTicks uint64 // batches this entity has been serviced in
	scored       bool

	Visual *Visual
}

// Alive reports whether the entity still takes part in steering and combat.
func (e *Entity) Alive() bool {
	return e.State == StateActive
}

// Wound is a hit decoration on the body, in body-local coordinates.
type Wound struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Visual is the pooled presentation container attached to an entity.
type Visual struct {
	Owner    EntityID
	Position Vec3
	Facing   float64
	Tilt     float64
	Height   float64

	Color            string
	HealthFraction   float64
	HealthBarVisible bool
	Wounds           []Wound
}

func newVisual(maxWounds int) *Visual {
	return &Visual{Wounds: make([]Wound, 0, maxWounds)}
}

// Reset clears every piece of transient state. Wound backing storage is kept.
func (v *Visual) Reset() {
	wounds := v.Wounds[:0]
	*v = Visual{Wounds: wounds}
}

// Marker is the pooled telegraph shown at a pending spawn point.
type Marker struct {
	Owner    EntityID
	Position Vec3
	Progress float64 // 0 at creation, 1 at promotion
	Scale    float64
	Opacity  float64
}

// Reset clears the marker for reuse.
func (m *Marker) Reset() {
	*m = Marker{}
}

// SpawnWarning telegraphs a spawn point. It is replaced 1:1 by an entity
// once its countdown expires.
type SpawnWarning struct {
	ID       EntityID
	Position Vec3
	Start    time.Time
	Marker   *Marker
}
