package horde

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplosionGrowsAndFades(t *testing.T) {
	f := NewEffects(4, 3, 500*time.Millisecond)
	f.AddExplosion(Vec3{X: 1, Z: 2})

	f.Update(250 * time.Millisecond)
	require.Len(t, f.Explosions(), 1)
	x := f.Explosions()[0]
	assert.InDelta(t, 3*easeOutCubic(0.5), x.Radius, 1e-9)
	assert.InDelta(t, 0.5, x.Intensity(), 1e-9)

	f.Update(250 * time.Millisecond)
	assert.Empty(t, f.Explosions())
	assert.Equal(t, uint64(1), f.Triggered())
}

func TestEffectsCapReplacesOldest(t *testing.T) {
	f := NewEffects(2, 3, time.Second)
	f.AddExplosion(Vec3{X: 1})
	f.AddExplosion(Vec3{X: 2})
	f.AddExplosion(Vec3{X: 3})

	xs := f.Explosions()
	require.Len(t, xs, 2)
	assert.Equal(t, 2.0, xs[0].Position.X)
	assert.Equal(t, 3.0, xs[1].Position.X)
	assert.Equal(t, uint64(3), f.Triggered())
}

func TestEffectsZeroCapacity(t *testing.T) {
	f := NewEffects(0, 3, time.Second)
	f.AddExplosion(Vec3{})
	assert.Empty(t, f.Explosions())
}

func TestEffectsClear(t *testing.T) {
	f := NewEffects(4, 3, time.Second)
	f.AddExplosion(Vec3{})
	f.AddExplosion(Vec3{})
	f.Clear()
	assert.Empty(t, f.Explosions())
	f.Update(time.Millisecond)
	assert.Empty(t, f.Explosions())
}
