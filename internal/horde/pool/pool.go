// Package pool provides a bounded free-list cache for reusable containers.
//
// Spawn and death churn under heavy waves is the largest allocation source in
// the simulation; pools are pre-warmed so the first waves do not allocate.
package pool

// Pool hands out reusable items of type T. T must be comparable (typically a
// pointer) so outstanding handles can be tracked and a handle is never given
// to two owners at once.
//
// Not safe for concurrent use; the owning store serializes access.
type Pool[T comparable] struct {
	create      func() T
	reset       func(T)
	free        []T
	outstanding map[T]struct{}
	maxRetained int

	prewarmed uint64
	created   uint64
	reused    uint64
	acquired  uint64
	released  uint64
	dropped   uint64
}

// Stats is a point-in-time copy of the pool counters.
type Stats struct {
	Prewarmed   uint64 `json:"prewarmed"`
	Created     uint64 `json:"created"`
	Reused      uint64 `json:"reused"`
	Acquired    uint64 `json:"acquired"`
	Released    uint64 `json:"released"`
	Dropped     uint64 `json:"dropped"`
	Outstanding int    `json:"outstanding"`
	Free        int    `json:"free"`
}

// New creates a pool and pre-warms it with prewarm items (never more than
// maxRetained). Pre-warmed items are not counted as Created; invariant:
// Created+Reused == Acquired.
func New[T comparable](create func() T, reset func(T), prewarm, maxRetained int) *Pool[T] {
	if maxRetained < 0 {
		maxRetained = 0
	}
	if prewarm > maxRetained {
		prewarm = maxRetained
	}
	p := &Pool[T]{
		create:      create,
		reset:       reset,
		free:        make([]T, 0, maxRetained),
		outstanding: make(map[T]struct{}, prewarm),
		maxRetained: maxRetained,
	}
	for i := 0; i < prewarm; i++ {
		p.free = append(p.free, create())
		p.prewarmed++
	}
	return p
}

// Acquire returns a free item, or a newly created one when the free list is empty.
func (p *Pool[T]) Acquire() T {
	var item T
	if n := len(p.free); n > 0 {
		item = p.free[n-1]
		var zero T
		p.free[n-1] = zero
		p.free = p.free[:n-1]
		p.reused++
	} else {
		item = p.create()
		p.created++
	}
	p.acquired++
	p.outstanding[item] = struct{}{}
	return item
}

// Release resets item and returns it to the free list. It reports false when
// the item was not retained: either the free list is full (the caller
// disposes of it) or the item is not currently outstanding, in which case
// nothing happens at all.
func (p *Pool[T]) Release(item T) bool {
	if _, ok := p.outstanding[item]; !ok {
		return false
	}
	delete(p.outstanding, item)
	p.released++
	p.reset(item)

	if len(p.free) >= p.maxRetained {
		p.dropped++
		return false
	}
	p.free = append(p.free, item)
	return true
}

// ResetOutstanding forgets every outstanding handle without touching the
// free list. Used when the owner drops all of its items at once.
func (p *Pool[T]) ResetOutstanding() {
	clear(p.outstanding)
}

// Stats returns the pool counters.
func (p *Pool[T]) Stats() Stats {
	return Stats{
		Prewarmed:   p.prewarmed,
		Created:     p.created,
		Reused:      p.reused,
		Acquired:    p.acquired,
		Released:    p.released,
		Dropped:     p.dropped,
		Outstanding: len(p.outstanding),
		Free:        len(p.free),
	}
}
