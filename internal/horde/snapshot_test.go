package horde

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotPoolNotReadyBeforePublish(t *testing.T) {
	p := NewSnapshotPool(8, 4)
	var dst Snapshot
	assert.False(t, p.Read(&dst))
}

func TestSnapshotPoolPublishesLatest(t *testing.T) {
	p := NewSnapshotPool(8, 4)

	for i := 1; i <= 5; i++ {
		s := p.AcquireWrite()
		s.Tick = uint64(i)
		s.Entities = append(s.Entities, EntityView{ID: EntityID(i)})
		p.PublishWrite()
	}

	var dst Snapshot
	require.True(t, p.Read(&dst))
	assert.Equal(t, uint64(5), dst.Tick)
	assert.Equal(t, uint64(5), dst.Sequence)
	require.Len(t, dst.Entities, 1, "slices are reset per write")
	assert.Equal(t, EntityID(5), dst.Entities[0].ID)
}

func TestSnapshotCopyIsIndependent(t *testing.T) {
	p := NewSnapshotPool(8, 4)
	s := p.AcquireWrite()
	s.Entities = append(s.Entities, EntityView{ID: 1, Health: 100})
	p.PublishWrite()

	var dst Snapshot
	require.True(t, p.Read(&dst))
	dst.Entities[0].Health = 0

	var again Snapshot
	require.True(t, p.Read(&again))
	assert.Equal(t, 100, again.Entities[0].Health)
}

func TestSnapshotPoolConcurrentReaders(t *testing.T) {
	p := NewSnapshotPool(64, 4)
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var dst Snapshot
			for {
				select {
				case <-stop:
					return
				default:
				}
				if p.Read(&dst) {
					// every published slot holds Tick entities
					if len(dst.Entities) != int(dst.Tick%64) {
						t.Errorf("torn snapshot: tick %d has %d entities", dst.Tick, len(dst.Entities))
						return
					}
				}
			}
		}()
	}

	for i := 1; i <= 2000; i++ {
		s := p.AcquireWrite()
		s.Tick = uint64(i)
		for n := 0; n < i%64; n++ {
			s.Entities = append(s.Entities, EntityView{ID: EntityID(n)})
		}
		p.PublishWrite()
	}
	close(stop)
	wg.Wait()
}
