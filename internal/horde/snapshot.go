package horde

import (
	"sync"
	"sync/atomic"
	"time"
)

// EntityView is an immutable copy of one live entity for presentation.
type EntityView struct {
	ID     EntityID `json:"id"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Z      float64  `json:"z"`
	Dying  bool     `json:"dying"`
	Facing float64  `json:"facing"`
	Tilt   float64  `json:"tilt"`
	Health int      `json:"health"` // never negative
	Color  string   `json:"color"`
}

// WarningView is a pending spawn point.
type WarningView struct {
	ID       EntityID `json:"id"`
	X        float64  `json:"x"`
	Z        float64  `json:"z"`
	Progress float64  `json:"progress"`
	Scale    float64  `json:"scale"`
	Opacity  float64  `json:"opacity"`
}

// ExplosionView is a live explosion.
type ExplosionView struct {
	X         float64 `json:"x"`
	Z         float64 `json:"z"`
	Radius    float64 `json:"radius"`
	Intensity float64 `json:"intensity"`
}

// Snapshot is a complete copy of the simulation state for readers that must
// not hold entity references past a tick. Entities and warnings are ordered
// by ID.
type Snapshot struct {
	Sequence   uint64    `json:"sequence"`
	Timestamp  time.Time `json:"timestamp"`
	Tick       uint64    `json:"tick"`
	Wave       int       `json:"wave"`
	Tier       string    `json:"tier"`
	AverageFPS float64   `json:"averageFps"`
	ArenaSize  float64   `json:"arenaSize"`
	Player     Vec3      `json:"player"`

	Entities   []EntityView    `json:"entities"`
	Warnings   []WarningView   `json:"warnings"`
	Explosions []ExplosionView `json:"explosions"`

	ActiveCount int    `json:"activeCount"`
	DyingCount  int    `json:"dyingCount"`
	Kills       uint64 `json:"kills"`
}

// CopyInto deep-copies s into dst, reusing dst's slice capacity.
func (s *Snapshot) CopyInto(dst *Snapshot) {
	entities, warnings, explosions := dst.Entities[:0], dst.Warnings[:0], dst.Explosions[:0]
	*dst = *s
	dst.Entities = append(entities, s.Entities...)
	dst.Warnings = append(warnings, s.Warnings...)
	dst.Explosions = append(explosions, s.Explosions...)
}

// SnapshotPool pre-allocates snapshots to avoid GC pressure.
// Triple buffered: the tick writes one slot while readers copy the last
// published one. Each slot carries its own lock so a slow reader can never
// observe a half-written slot.
type SnapshotPool struct {
	slots    [3]snapshotSlot
	writeIdx uint32 // atomic - producer index
	readIdx  uint32 // atomic - last published slot
	sequence uint64 // atomic - monotonic sequence
	ready    atomic.Bool
}

type snapshotSlot struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewSnapshotPool creates a pool with slices sized for maxEntities.
func NewSnapshotPool(maxEntities, maxExplosions int) *SnapshotPool {
	p := &SnapshotPool{}
	for i := range p.slots {
		p.slots[i].snap = Snapshot{
			Entities:   make([]EntityView, 0, maxEntities),
			Warnings:   make([]WarningView, 0, 64),
			Explosions: make([]ExplosionView, 0, maxExplosions),
		}
	}
	return p
}

// AcquireWrite locks the next write slot (producer only, called from the
// tick) and returns it with reset slices but preserved capacity. It must be
// followed by PublishWrite.
func (p *SnapshotPool) AcquireWrite() *Snapshot {
	idx := (atomic.LoadUint32(&p.writeIdx) + 1) % 3
	atomic.StoreUint32(&p.writeIdx, idx)
	slot := &p.slots[idx]
	slot.mu.Lock()

	snap := &slot.snap
	snap.Entities = snap.Entities[:0]
	snap.Warnings = snap.Warnings[:0]
	snap.Explosions = snap.Explosions[:0]
	snap.Sequence = atomic.AddUint64(&p.sequence, 1)
	snap.Timestamp = time.Now()
	return snap
}

// PublishWrite unlocks the slot filled since AcquireWrite and makes it the
// one readers see.
func (p *SnapshotPool) PublishWrite() {
	idx := atomic.LoadUint32(&p.writeIdx)
	p.slots[idx].mu.Unlock()
	atomic.StoreUint32(&p.readIdx, idx)
	p.ready.Store(true)
}

// Read copies the latest published snapshot into dst (consumer side).
// It reports false when nothing has been published yet.
func (p *SnapshotPool) Read(dst *Snapshot) bool {
	if !p.ready.Load() {
		return false
	}
	slot := &p.slots[atomic.LoadUint32(&p.readIdx)]
	slot.mu.RLock()
	slot.snap.CopyInto(dst)
	slot.mu.RUnlock()
	return true
}
