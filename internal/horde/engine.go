package horde

import (
	"cmp"
	"log"
	"math/rand"
	"slices"
	"sync"
	"time"

	"zombie-horde/internal/config"
)

// maxStep caps dt so a stalled host does not teleport the horde.
const maxStep = 100 * time.Millisecond

// Hooks are the collaborator callbacks. They are invoked on the calling
// goroutine after the engine lock is released, so they may call back into
// the Engine.
type Hooks interface {
	// PlayerDamaged fires when an entity in melee range lands a hit.
	PlayerDamaged(amount int)
	// EntityKilled fires exactly once per entity, at its Dying transition.
	EntityKilled(id EntityID)
}

// NopHooks ignores every notification.
type NopHooks struct{}

func (NopHooks) PlayerDamaged(int)     {}
func (NopHooks) EntityKilled(EntityID) {}

// HookFuncs adapts plain functions to Hooks. Nil fields are skipped.
type HookFuncs struct {
	OnPlayerDamaged func(amount int)
	OnEntityKilled  func(id EntityID)
}

func (h HookFuncs) PlayerDamaged(amount int) {
	if h.OnPlayerDamaged != nil {
		h.OnPlayerDamaged(amount)
	}
}

func (h HookFuncs) EntityKilled(id EntityID) {
	if h.OnEntityKilled != nil {
		h.OnEntityKilled(id)
	}
}

type noticeKind uint8

const (
	noticePlayerDamaged noticeKind = iota
	noticeEntityKilled
)

type notice struct {
	kind   noticeKind
	amount int
	id     EntityID
}

// Engine is the entity-lifecycle manager. It owns the store, runs the fixed
// tick order and is the only entry point collaborators use.
type Engine struct {
	mu sync.Mutex

	cfg       config.SimConfig
	store     *Store
	steering  *Steering
	combat    *Combat
	death     DeathAnimator
	waves     *WaveScheduler
	perf      *Performance
	effects   *Effects
	snapshots *SnapshotPool
	journal   *Journal

	hooks   Hooks
	pending []notice

	rng  *rand.Rand
	seed int64

	player    Vec3
	started   bool
	lastStep  time.Time
	tickCount uint64
	culled    uint64
	lastTick  time.Duration

	expired []EntityID
	done    []EntityID

	tickRate int
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}
	onTick   func(time.Duration)
}

// NewEngine creates an engine. A nil hooks value means NopHooks. cfg.Seed 0
// seeds the rng from the clock.
func NewEngine(cfg config.SimConfig, hooks Hooks) *Engine {
	if hooks == nil {
		hooks = NopHooks{}
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	e := &Engine{
		cfg:   cfg,
		store: NewStore(cfg),
		death: DeathAnimator{
			Fall:           cfg.Lifecycle.FallDuration,
			StandingHeight: cfg.Arena.StandingHeight,
		},
		steering:  NewSteering(cfg.Steering),
		waves:     NewWaveScheduler(cfg.Waves, cfg.Arena.HalfExtent, rng),
		perf:      NewPerformance(cfg.Performance),
		effects:   NewEffects(cfg.Combat.MaxExplosions, cfg.Combat.ExplosionRadius, cfg.Combat.ExplosionLife),
		snapshots: NewSnapshotPool(cfg.Performance.HardMaxEntities, cfg.Combat.MaxExplosions),
		journal:   NewJournal(),
		hooks:     hooks,
		rng:       rng,
		seed:      seed,
		tickRate:  cfg.TickRate,
		stopChan:  make(chan struct{}),
	}
	e.combat = NewCombat(cfg.Combat, rng, (*engineObserver)(e))
	// Wave 1 until the first tick re-arms it against the host's clock.
	e.waves.Reset(time.Now())
	return e
}

// Start begins the tick loop at the configured rate.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	ticker := time.NewTicker(time.Second / time.Duration(e.tickRate))
	e.ticker = ticker
	onTick, stop := e.onTick, e.stopChan
	e.mu.Unlock()

	go func() {
		for {
			select {
			case <-ticker.C:
				start := time.Now()
				e.Step(start)
				if onTick != nil {
					onTick(time.Since(start))
				}
			case <-stop:
				return
			}
		}
	}()

	log.Printf("🧟 Horde engine started at %d TPS (seed %d)", e.tickRate, e.seed)
}

// Stop stops the tick loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	e.running = false
	if e.ticker != nil {
		e.ticker.Stop()
	}
	close(e.stopChan)
	e.stopChan = make(chan struct{})
	log.Println("🛑 Horde engine stopped")
}

// SetTickObserver registers a callback receiving each loop tick's duration.
// It takes effect at the next Start.
func (e *Engine) SetTickObserver(fn func(time.Duration)) {
	e.mu.Lock()
	e.onTick = fn
	e.mu.Unlock()
}

// Step advances the simulation to now. Hosts that drive their own frame loop
// call it once per frame instead of using Start.
func (e *Engine) Step(now time.Time) {
	e.mu.Lock()
	began := time.Now()
	e.step(now)
	e.lastTick = time.Since(began)
	pending := e.takePending()
	e.mu.Unlock()

	e.dispatch(pending)
}

// step runs one tick in the fixed order: performance sample, cull, waves,
// warning promotion, steering and motion, melee contact, death animation,
// removal, effects, snapshot.
func (e *Engine) step(now time.Time) {
	dt := time.Second / time.Duration(e.cfg.TickRate)
	if !e.started {
		e.started = true
		e.waves.Reset(now)
	} else if d := now.Sub(e.lastStep); d >= 0 {
		dt = min(d, maxStep)
	} else {
		dt = 0
	}
	e.lastStep = now
	e.tickCount++

	if change := e.perf.Sample(now); change.Changed {
		e.tierChanged(change)
	}
	params := e.perf.Params()

	wt := e.waves.Update(now, e.store.LiveCount()+e.store.WarningCount(), params, func(pos Vec3) bool {
		if e.store.LiveCount()+e.store.WarningCount() >= e.cfg.Performance.HardMaxEntities {
			return false
		}
		w := e.store.SpawnWarning(pos, now)
		e.journal.EmitSimple(EventSpawn, e.tickCount, w.ID, SpawnPayload{X: w.Position.X, Z: w.Position.Z})
		return true
	})
	if wt.WaveStarted {
		st := e.waves.State()
		log.Printf("🌊 Wave %d: burst of %d, base speed %.1f", st.Wave, st.BurstSize, st.BaseSpeed)
		e.journal.EmitSimple(EventWaveStart, e.tickCount, 0, WaveStartPayload{
			Wave: st.Wave, BurstSize: st.BurstSize, BaseSpeed: st.BaseSpeed,
		})
	}

	e.expired = e.store.ExpiredWarnings(now, e.expired[:0])
	for _, id := range e.expired {
		e.store.PromoteWarning(id, e.waves.EntitySpeed())
	}
	e.store.PulseWarnings(now)

	e.steering.Update(e.store, e.player, params, dt.Seconds())

	e.combat.Contact(e.store, e.player, now)

	e.done = e.done[:0]
	for _, ent := range e.store.Entities() {
		if ent.State == StateDying && e.death.Advance(ent, now) {
			e.done = append(e.done, ent.ID)
		}
	}
	for _, id := range e.done {
		if e.store.RemoveEntity(id) {
			e.journal.EmitSimple(EventRemoved, e.tickCount, id, nil)
		}
	}

	e.effects.Update(dt)

	snap := e.snapshots.AcquireWrite()
	e.fillSnapshot(snap)
	e.snapshots.PublishWrite()
}

func (e *Engine) tierChanged(change TierChange) {
	avg := e.perf.AverageFPS()
	log.Printf("⚙️ Performance tier %s → %s (avg %.1f fps)", change.From, change.To, avg)
	e.journal.EmitSimple(EventTierChange, e.tickCount, 0, TierChangePayload{
		From: change.From.String(), To: change.To.String(), AverageFPS: avg,
	})
	if e.perf.IsWorst(change.To) {
		e.cull()
	}
}

// cull removes the most distant fraction of Active entities outright. Culled
// entities are not kills.
func (e *Engine) cull() int {
	active := make([]*Entity, 0, e.store.ActiveCount())
	for _, ent := range e.store.Entities() {
		if ent.Alive() {
			active = append(active, ent)
		}
	}
	n := int(float64(len(active)) * e.cfg.Performance.CullFraction)
	if n == 0 {
		return 0
	}
	slices.SortFunc(active, func(a, b *Entity) int {
		if c := cmp.Compare(distSqXZ(b.Position, e.player), distSqXZ(a.Position, e.player)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	for _, ent := range active[:n] {
		e.store.RemoveEntity(ent.ID)
	}
	e.culled += uint64(n)

	log.Printf("✂️ Emergency cull: removed %d distant entities, %d remain", n, e.store.ActiveCount())
	e.journal.EmitSimple(EventCull, e.tickCount, 0, CullPayload{Removed: n, Remaining: e.store.ActiveCount()})
	return n
}

// SetPlayerPosition records where the player is. Steering and melee contact
// read it once per tick.
func (e *Engine) SetPlayerPosition(p Vec3) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p.Y = 0
	e.store.ApplyBounds(&p)
	e.player = p
}

// PlayerPosition returns the last recorded player position.
func (e *Engine) PlayerPosition() Vec3 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.player
}

// ApplyDamage deals a hit to an entity. Unknown, Dying and Removed targets
// are a no-op reported as Applied == false.
func (e *Engine) ApplyDamage(id EntityID, hit Hit) DamageResult {
	e.mu.Lock()
	now := e.lastStep
	if !e.started {
		now = time.Now()
	}
	res := e.combat.Apply(e.store, id, hit, now)
	pending := e.takePending()
	e.mu.Unlock()

	e.dispatch(pending)
	return res
}

// ResetWave clears every entity, warning and effect and returns the wave
// state to its initial values. Pool free lists survive. Idempotent.
func (e *Engine) ResetWave() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.store.Clear()
	e.effects.Clear()
	e.steering.Reset()
	e.combat.Reset()
	if e.started {
		e.waves.Reset(e.lastStep)
	}

	log.Println("🔄 Wave reset")
	e.journal.EmitSimple(EventReset, e.tickCount, 0, nil)

	snap := e.snapshots.AcquireWrite()
	e.fillSnapshot(snap)
	e.snapshots.PublishWrite()
}

// Snapshot builds a fresh copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	var snap Snapshot
	e.fillSnapshot(&snap)
	snap.Timestamp = time.Now()
	return snap
}

// LatestSnapshot copies the snapshot published by the last tick without
// taking the engine lock. It reports false before the first tick.
func (e *Engine) LatestSnapshot(dst *Snapshot) bool {
	return e.snapshots.Read(dst)
}

func (e *Engine) fillSnapshot(snap *Snapshot) {
	st := e.waves.State()
	snap.Tick = e.tickCount
	snap.Wave = st.Wave
	snap.Tier = e.perf.Tier().String()
	snap.AverageFPS = e.perf.AverageFPS()
	snap.ArenaSize = e.cfg.Arena.HalfExtent
	snap.Player = e.player
	snap.ActiveCount = e.store.ActiveCount()
	snap.DyingCount = e.store.LiveCount() - e.store.ActiveCount()
	snap.Kills = e.combat.Kills()

	for _, ent := range e.store.Entities() {
		color := HealthColor(ent.Health)
		if ent.Visual != nil {
			color = ent.Visual.Color
		}
		snap.Entities = append(snap.Entities, EntityView{
			ID:     ent.ID,
			X:      ent.Position.X,
			Y:      ent.Position.Y,
			Z:      ent.Position.Z,
			Dying:  ent.State == StateDying,
			Facing: ent.Facing,
			Tilt:   ent.Tilt,
			Health: max(ent.Health, 0),
			Color:  color,
		})
	}
	for _, w := range e.store.Warnings() {
		v := WarningView{ID: w.ID, X: w.Position.X, Z: w.Position.Z}
		if m := w.Marker; m != nil {
			v.Progress, v.Scale, v.Opacity = m.Progress, m.Scale, m.Opacity
		}
		snap.Warnings = append(snap.Warnings, v)
	}
	for _, x := range e.effects.Explosions() {
		snap.Explosions = append(snap.Explosions, ExplosionView{
			X: x.Position.X, Z: x.Position.Z, Radius: x.Radius, Intensity: x.Intensity(),
		})
	}
}

// Stats is a point-in-time view of every engine counter.
type Stats struct {
	Tick       uint64        `json:"tick"`
	Seed       int64         `json:"seed"`
	Wave       WaveState     `json:"wave"`
	Tier       string        `json:"tier"`
	AverageFPS float64       `json:"averageFps"`
	Params     Params        `json:"params"`
	Player     Vec3          `json:"player"`
	Kills      uint64        `json:"kills"`
	Explosions uint64        `json:"explosions"`
	Culled     uint64        `json:"culled"`
	LastTickMs float64       `json:"lastTickMs"`
	Store      StoreStats    `json:"store"`
	Steering   SteeringStats `json:"steering"`
	Journal    JournalStats  `json:"journal"`
}

// Stats returns the engine counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		Tick:       e.tickCount,
		Seed:       e.seed,
		Wave:       e.waves.State(),
		Tier:       e.perf.Tier().String(),
		AverageFPS: e.perf.AverageFPS(),
		Params:     e.perf.Params(),
		Player:     e.player,
		Kills:      e.combat.Kills(),
		Explosions: e.effects.Triggered(),
		Culled:     e.culled,
		LastTickMs: float64(e.lastTick) / float64(time.Millisecond),
		Store:      e.store.Stats(),
		Steering:   e.steering.Stats(),
		Journal:    e.journal.Stats(),
	}
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() config.SimConfig { return e.cfg }

// StartJournal starts the event journal writing to path ("" keeps it in
// memory).
func (e *Engine) StartJournal(path string) error {
	return e.journal.Start(path)
}

// StopJournal flushes and closes the event journal.
func (e *Engine) StopJournal() {
	e.journal.Stop()
}

func (e *Engine) takePending() []notice {
	if len(e.pending) == 0 {
		return nil
	}
	p := e.pending
	e.pending = nil
	return p
}

func (e *Engine) dispatch(pending []notice) {
	for _, n := range pending {
		switch n.kind {
		case noticePlayerDamaged:
			e.hooks.PlayerDamaged(n.amount)
		case noticeEntityKilled:
			e.hooks.EntityKilled(n.id)
		}
	}
}

// engineObserver is the Engine seen as Combat's observer. It runs under the
// engine lock; hook notifications are queued for dispatch after unlock.
type engineObserver Engine

func (o *engineObserver) entityDamaged(ent *Entity, dmg int, src Source) {
	e := (*Engine)(o)
	e.journal.EmitSimple(EventDamage, e.tickCount, ent.ID, DamagePayload{
		Source: src.String(), Damage: dmg, Health: max(ent.Health, 0),
	})
}

func (o *engineObserver) entityKilled(ent *Entity) {
	e := (*Engine)(o)
	e.pending = append(e.pending, notice{kind: noticeEntityKilled, id: ent.ID})
	e.journal.EmitSimple(EventKill, e.tickCount, ent.ID, KillPayload{
		Exploded: ent.Exploded, Kills: e.combat.Kills(),
	})
}

func (o *engineObserver) explosion(pos Vec3) {
	(*Engine)(o).effects.AddExplosion(pos)
}

func (o *engineObserver) playerDamaged(amount int) {
	e := (*Engine)(o)
	e.pending = append(e.pending, notice{kind: noticePlayerDamaged, amount: amount})
}
