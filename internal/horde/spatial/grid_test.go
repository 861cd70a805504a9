package spatial

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellKeyRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		cx, cz int32
	}{
		{"origin", 0, 0},
		{"positive", 3, 7},
		{"negative x", -4, 2},
		{"negative both", -1, -1},
		{"extremes", -2147483648, 2147483647},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cx, cz := MakeCellKey(tt.cx, tt.cz).Coords()
			assert.Equal(t, tt.cx, cx)
			assert.Equal(t, tt.cz, cz)
		})
	}
}

func TestKeyForNegativeCoordinatesFloor(t *testing.T) {
	g := NewGrid(5, 16)

	cx, cz := g.KeyFor(-0.1, 4.9).Coords()
	assert.Equal(t, int32(-1), cx, "negative x must floor, not truncate toward zero")
	assert.Equal(t, int32(0), cz)
}

func TestFindNearbyEmptyIndex(t *testing.T) {
	g := NewGrid(5, 16)
	assert.Empty(t, g.FindNearby(0, 0, 10, nil))
}

func TestFindNearbyRings(t *testing.T) {
	g := NewGrid(5, 16)
	g.Insert(1, 1, 1)   // cell (0,0)
	g.Insert(2, 6, 1)   // cell (1,0)
	g.Insert(3, 12, 1)  // cell (2,0)
	g.Insert(4, -21, 1) // cell (-5,0)

	got := g.FindNearby(1, 1, 0, nil)
	assert.ElementsMatch(t, []uint64{1}, got)

	got = g.FindNearby(1, 1, 5, nil)
	assert.ElementsMatch(t, []uint64{1, 2}, got)

	got = g.FindNearby(1, 1, 5.5, nil)
	assert.ElementsMatch(t, []uint64{1, 2, 3}, got, "ceil(5.5/5)=2 rings")
}

func TestUpdateSameCellIsNoop(t *testing.T) {
	g := NewGrid(5, 16)
	g.Insert(7, 1, 1)
	before, _ := g.CellOf(7)

	g.Update(7, 1, 1, 4, 4)

	after, ok := g.CellOf(7)
	require.True(t, ok)
	assert.Equal(t, before, after)
	assert.Equal(t, 1, g.Len())
}

func TestUpdateMovesBetweenCells(t *testing.T) {
	g := NewGrid(5, 16)
	g.Insert(7, 1, 1)
	g.Update(7, 1, 1, 11, -3)

	assert.Empty(t, g.FindNearby(1, 1, 0, nil))
	assert.ElementsMatch(t, []uint64{7}, g.FindNearby(11, -3, 0, nil))

	key, ok := g.CellOf(7)
	require.True(t, ok)
	assert.Equal(t, g.KeyFor(11, -3), key)
}

func TestRemoveUnknownIsIgnored(t *testing.T) {
	g := NewGrid(5, 16)
	g.Insert(1, 0, 0)

	g.Remove(99, 0, 0)
	assert.Equal(t, 1, g.Len())

	g.Remove(1, 100, 100) // stale position, recorded cell wins
	assert.Equal(t, 0, g.Len())
	assert.Empty(t, g.FindNearby(0, 0, 10, nil))
}

// Every indexed entity must find itself at radius 0 after arbitrary updates.
func TestReflexivityAfterRandomWalk(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	g := NewGrid(5, 256)

	type pos struct{ x, z float64 }
	positions := make(map[uint64]pos)
	for id := uint64(1); id <= 200; id++ {
		p := pos{rng.Float64()*48 - 24, rng.Float64()*48 - 24}
		positions[id] = p
		g.Insert(id, p.x, p.z)
	}

	for step := 0; step < 50; step++ {
		for id, p := range positions {
			next := pos{p.x + rng.Float64()*4 - 2, p.z + rng.Float64()*4 - 2}
			g.Update(id, p.x, p.z, next.x, next.z)
			positions[id] = next
		}
	}

	for id, p := range positions {
		got := g.FindNearby(p.x, p.z, 0, nil)
		require.True(t, slices.Contains(got, id), "entity %d not found in its own cell", id)

		key, _ := g.CellOf(id)
		assert.Equal(t, g.KeyFor(p.x, p.z), key)
	}
	assert.Equal(t, len(positions), g.Stats().TotalEntities)
}

func TestClearKeepsGridUsable(t *testing.T) {
	g := NewGrid(5, 16)
	for id := uint64(1); id <= 10; id++ {
		g.Insert(id, float64(id), 0)
	}
	g.Clear()
	assert.Equal(t, 0, g.Len())
	assert.Empty(t, g.FindNearby(5, 0, 20, nil))

	g.Insert(3, 2, 2)
	assert.ElementsMatch(t, []uint64{3}, g.FindNearby(2, 2, 0, nil))
}

func TestStats(t *testing.T) {
	g := NewGrid(5, 16)
	g.Insert(1, 1, 1)
	g.Insert(2, 2, 2)
	g.Insert(3, 20, 20)

	s := g.Stats()
	assert.Equal(t, 2, s.NonEmptyCells)
	assert.Equal(t, 3, s.TotalEntities)
	assert.Equal(t, 2, s.MaxInCell)
	assert.InDelta(t, 1.5, s.AvgPerNonEmpty, 1e-9)
}

func BenchmarkFindNearby(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	g := NewGrid(DefaultCellSize, 512)
	for id := uint64(0); id < 400; id++ {
		g.Insert(id, rng.Float64()*48-24, rng.Float64()*48-24)
	}
	buf := make([]uint64, 0, 64)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf = g.FindNearby(rng.Float64()*48-24, rng.Float64()*48-24, 2, buf[:0])
	}
}
