package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type box struct {
	tag   string
	items []int
}

func newBoxPool(prewarm, max int) *Pool[*box] {
	return New(
		func() *box { return &box{items: make([]int, 0, 4)} },
		func(b *box) {
			b.tag = ""
			b.items = b.items[:0]
		},
		prewarm, max,
	)
}

func TestPrewarmServesFirstAcquires(t *testing.T) {
	p := newBoxPool(3, 10)

	for i := 0; i < 3; i++ {
		p.Acquire()
	}
	s := p.Stats()
	assert.Equal(t, uint64(3), s.Prewarmed)
	assert.Equal(t, uint64(0), s.Created)
	assert.Equal(t, uint64(3), s.Reused)

	p.Acquire()
	s = p.Stats()
	assert.Equal(t, uint64(1), s.Created)
	assert.Equal(t, 4, s.Outstanding)
}

func TestPrewarmCappedByMaxRetained(t *testing.T) {
	p := newBoxPool(50, 5)
	assert.Equal(t, 5, p.Stats().Free)
}

func TestReleaseResetsItem(t *testing.T) {
	p := newBoxPool(0, 4)
	b := p.Acquire()
	b.tag = "zombie-7"
	b.items = append(b.items, 1, 2, 3)

	require.True(t, p.Release(b))
	assert.Equal(t, "", b.tag)
	assert.Empty(t, b.items)

	again := p.Acquire()
	assert.Same(t, b, again)
}

func TestReleaseAtCapacityDrops(t *testing.T) {
	p := newBoxPool(0, 1)
	a, b := p.Acquire(), p.Acquire()

	assert.True(t, p.Release(a))
	assert.False(t, p.Release(b), "free list is full")

	s := p.Stats()
	assert.Equal(t, uint64(1), s.Dropped)
	assert.Equal(t, 1, s.Free)
	assert.Equal(t, 0, s.Outstanding)
}

func TestDoubleReleaseIgnored(t *testing.T) {
	p := newBoxPool(0, 8)
	a := p.Acquire()

	assert.True(t, p.Release(a))
	assert.False(t, p.Release(a))
	assert.Equal(t, 1, p.Stats().Free, "a double release must not duplicate the handle")

	x, y := p.Acquire(), p.Acquire()
	assert.NotSame(t, x, y)
}

func TestConservationAndUniqueHandles(t *testing.T) {
	p := newBoxPool(8, 16)
	held := make(map[*box]bool)
	var order []*box

	for round := 0; round < 200; round++ {
		if round%3 == 2 && len(order) > 0 {
			victim := order[0]
			order = order[1:]
			delete(held, victim)
			p.Release(victim)
			continue
		}
		b := p.Acquire()
		require.False(t, held[b], "handle handed to two owners")
		held[b] = true
		order = append(order, b)
	}

	s := p.Stats()
	assert.Equal(t, s.Acquired, s.Created+s.Reused)
	assert.Equal(t, len(held), s.Outstanding)
}

func TestResetOutstandingKeepsFreeList(t *testing.T) {
	p := newBoxPool(4, 8)
	p.Acquire()
	p.Acquire()

	p.ResetOutstanding()
	s := p.Stats()
	assert.Equal(t, 0, s.Outstanding)
	assert.Equal(t, 2, s.Free)
}
