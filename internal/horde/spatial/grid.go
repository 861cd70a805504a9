// Package spatial provides the uniform-grid index used for neighbor queries.
//
// The grid is maintained incrementally: entities are inserted once, moved
// between cells only when their cell key changes, and removed on death.
// There is no per-tick rebuild.
package spatial

import (
	"math"

	"github.com/kamstrup/intmap"
)

// DefaultCellSize keeps the expected neighbor count per query small at the
// densities the wave scheduler produces (a few hundred entities in a 48x48 arena).
const DefaultCellSize = 5.0

// CellKey packs signed cell coordinates (cx, cz) into one integer key.
type CellKey int64

// MakeCellKey packs a cell coordinate pair.
func MakeCellKey(cx, cz int32) CellKey {
	return CellKey(int64(cx)<<32 | int64(uint32(cz)))
}

// Coords unpacks a cell key.
func (k CellKey) Coords() (cx, cz int32) {
	return int32(int64(k) >> 32), int32(uint32(int64(k)))
}

// Grid is an unbounded uniform grid over the ground plane (x, z).
//
// Memory layout: one id set per touched cell, plus an id -> cell map so
// removals and updates never need the caller's stale position to be exact.
// Not safe for concurrent use; the engine serializes access.
type Grid struct {
	cellSize    float64
	invCellSize float64
	cells       *intmap.Map[CellKey, *intmap.Set[uint64]]
	owners      *intmap.Map[uint64, CellKey]
	spare       []*intmap.Set[uint64] // emptied cell sets kept for reuse
}

// NewGrid creates a grid with the given cell size. capacity pre-sizes the
// id map for the expected entity count.
func NewGrid(cellSize float64, capacity int) *Grid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	if capacity < 16 {
		capacity = 16
	}
	return &Grid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cells:       intmap.New[CellKey, *intmap.Set[uint64]](capacity / 4),
		owners:      intmap.New[uint64, CellKey](capacity),
	}
}

// KeyFor returns the cell key containing (x, z).
func (g *Grid) KeyFor(x, z float64) CellKey {
	return MakeCellKey(int32(math.Floor(x*g.invCellSize)), int32(math.Floor(z*g.invCellSize)))
}

// Insert records id at (x, z). Inserting an id that is already present
// behaves like Update.
func (g *Grid) Insert(id uint64, x, z float64) {
	key := g.KeyFor(x, z)
	if old, ok := g.owners.Get(id); ok {
		if old == key {
			return
		}
		g.detach(id, old)
	}
	g.attach(id, key)
}

// Remove drops id from the index. Unknown ids are ignored.
// The position is only consulted when the id has no recorded cell.
func (g *Grid) Remove(id uint64, x, z float64) {
	key, ok := g.owners.Get(id)
	if !ok {
		key = g.KeyFor(x, z)
		if set, found := g.cells.Get(key); found {
			set.Del(id)
		}
		return
	}
	g.detach(id, key)
	g.owners.Del(id)
}

// Update moves id from its recorded cell to the cell containing (newX, newZ).
// It is a no-op when the cell key is unchanged.
func (g *Grid) Update(id uint64, oldX, oldZ, newX, newZ float64) {
	next := g.KeyFor(newX, newZ)
	prev, ok := g.owners.Get(id)
	if !ok {
		prev = g.KeyFor(oldX, oldZ)
		if prev == next {
			g.attach(id, next)
			return
		}
	} else if prev == next {
		return
	}
	g.detach(id, prev)
	g.attach(id, next)
}

// FindNearby appends to dst the ids in the cell containing (x, z) and in
// every cell within ceil(radius/cellSize) rings of it.
//
// The result is a candidate set: ids can lie outside radius, callers must
// narrow by exact distance.
func (g *Grid) FindNearby(x, z, radius float64, dst []uint64) []uint64 {
	if g.owners.Len() == 0 {
		return dst
	}
	rings := int32(0)
	if radius > 0 {
		rings = int32(math.Ceil(radius * g.invCellSize))
	}
	cx, cz := g.KeyFor(x, z).Coords()
	for dx := -rings; dx <= rings; dx++ {
		for dz := -rings; dz <= rings; dz++ {
			set, ok := g.cells.Get(MakeCellKey(cx+dx, cz+dz))
			if !ok || set.Len() == 0 {
				continue
			}
			set.ForEach(func(id uint64) bool {
				dst = append(dst, id)
				return true
			})
		}
	}
	return dst
}

// CellOf returns the recorded cell for id.
func (g *Grid) CellOf(id uint64) (CellKey, bool) {
	return g.owners.Get(id)
}

// Contains reports whether id is indexed.
func (g *Grid) Contains(id uint64) bool {
	return g.owners.Has(id)
}

// Len returns the number of indexed ids.
func (g *Grid) Len() int {
	return g.owners.Len()
}

// CellSize returns the configured cell edge length.
func (g *Grid) CellSize() float64 {
	return g.cellSize
}

// Clear empties the index but keeps allocated cell sets for reuse.
func (g *Grid) Clear() {
	g.cells.ForEach(func(_ CellKey, set *intmap.Set[uint64]) bool {
		set.Clear()
		g.spare = append(g.spare, set)
		return true
	})
	g.cells.Clear()
	g.owners.Clear()
}

func (g *Grid) attach(id uint64, key CellKey) {
	set, ok := g.cells.Get(key)
	if !ok {
		if n := len(g.spare); n > 0 {
			set = g.spare[n-1]
			g.spare = g.spare[:n-1]
		} else {
			set = intmap.NewSet[uint64](8)
		}
		g.cells.Put(key, set)
	}
	set.Add(id)
	g.owners.Put(id, key)
}

func (g *Grid) detach(id uint64, key CellKey) {
	set, ok := g.cells.Get(key)
	if !ok {
		return
	}
	set.Del(id)
	if set.Len() == 0 {
		g.cells.Del(key)
		g.spare = append(g.spare, set)
	}
}

// Stats returns grid statistics for debugging/profiling.
func (g *Grid) Stats() GridStats {
	var maxInCell, nonEmpty, total int
	g.cells.ForEach(func(_ CellKey, set *intmap.Set[uint64]) bool {
		n := set.Len()
		if n == 0 {
			return true
		}
		nonEmpty++
		total += n
		if n > maxInCell {
			maxInCell = n
		}
		return true
	})

	avg := 0.0
	if nonEmpty > 0 {
		avg = float64(total) / float64(nonEmpty)
	}
	return GridStats{
		NonEmptyCells:  nonEmpty,
		TotalEntities:  total,
		MaxInCell:      maxInCell,
		AvgPerNonEmpty: avg,
	}
}

// GridStats contains grid statistics for debugging.
type GridStats struct {
	NonEmptyCells  int     `json:"nonEmptyCells"`
	TotalEntities  int     `json:"totalEntities"`
	MaxInCell      int     `json:"maxInCell"`
	AvgPerNonEmpty float64 `json:"avgPerNonEmpty"`
}
