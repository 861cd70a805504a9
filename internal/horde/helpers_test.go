package horde

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"zombie-horde/internal/config"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

const frame = 16 * time.Millisecond

func testConfig() config.SimConfig {
	cfg := config.DefaultSim()
	cfg.Seed = 42
	return cfg
}

// spawnAt puts an Active entity at pos, bypassing the warning countdown.
func spawnAt(t testing.TB, s *Store, pos Vec3) *Entity {
	t.Helper()
	w := s.SpawnWarning(pos, t0)
	e, ok := s.PromoteWarning(w.ID, 3)
	require.True(t, ok, "promotion refused")
	return e
}

// recorder is a combatObserver that remembers every notification.
type recorder struct {
	damaged    []int
	kills      []EntityID
	explosions []Vec3
	contacts   []int
}

func (r *recorder) entityDamaged(_ *Entity, dmg int, _ Source) { r.damaged = append(r.damaged, dmg) }
func (r *recorder) entityKilled(e *Entity)                     { r.kills = append(r.kills, e.ID) }
func (r *recorder) explosion(pos Vec3)                         { r.explosions = append(r.explosions, pos) }
func (r *recorder) playerDamaged(amount int)                   { r.contacts = append(r.contacts, amount) }

// hookCounter counts Hooks notifications per entity.
type hookCounter struct {
	kills        map[EntityID]int
	playerDamage int
}

func newHookCounter() *hookCounter {
	return &hookCounter{kills: make(map[EntityID]int)}
}

func (h *hookCounter) PlayerDamaged(amount int) { h.playerDamage += amount }
func (h *hookCounter) EntityKilled(id EntityID) { h.kills[id]++ }
