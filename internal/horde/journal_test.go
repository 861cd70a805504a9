package horde

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestJournalWritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	j := NewJournal()
	require.NoError(t, j.Start(path))

	for i := 1; i <= 3; i++ {
		assert.True(t, j.EmitSimple(EventSpawn, uint64(i), EntityID(i), SpawnPayload{X: float64(i)}))
	}
	j.Stop()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		lines = append(lines, m)
	}
	require.Len(t, lines, 3)
	for i, m := range lines {
		assert.Equal(t, "spawn", m["kind"])
		assert.Equal(t, float64(i+1), m["sequence"])
		assert.Equal(t, float64(i+1), m["entityId"])
	}

	st := j.Stats()
	assert.Equal(t, uint64(3), st.Total)
	assert.Equal(t, uint64(3), st.Written)
	assert.Equal(t, uint64(0), st.Pending)
	assert.False(t, st.Running)
}

func TestJournalStoppedRejects(t *testing.T) {
	j := NewJournal()
	assert.False(t, j.EmitSimple(EventReset, 1, 0, nil), "never started")

	require.NoError(t, j.Start(""))
	assert.True(t, j.EmitSimple(EventReset, 1, 0, nil))
	j.Stop()
	j.Stop()
	assert.False(t, j.EmitSimple(EventReset, 2, 0, nil))
}

func TestJournalStartBadPath(t *testing.T) {
	j := NewJournal()
	err := j.Start(filepath.Join(t.TempDir(), "missing", "events.jsonl"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestJournalOverflowDropsOldest(t *testing.T) {
	j := NewJournal()
	// Running without a writer goroutine so nothing drains.
	j.running.Store(true)
	// Unlimited limiters so every emit reaches the ring.
	for i := range j.kindLimiters {
		j.kindLimiters[i] = rate.NewLimiter(rate.Inf, 0)
	}
	j.globalLimiter = rate.NewLimiter(rate.Inf, 0)

	for i := 0; i < JournalBufferSize+10; i++ {
		j.EmitSimple(EventDamage, uint64(i), 1, nil)
	}
	st := j.Stats()
	assert.Equal(t, uint64(JournalBufferSize), st.Pending)
	assert.Equal(t, uint64(10), st.Dropped)
}

func TestEventKindJSON(t *testing.T) {
	data, err := json.Marshal(NewEvent(EventTierChange, 7, 0, TierChangePayload{From: "normal", To: "low"}))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"tier_change"`)
	assert.Contains(t, string(data), `"payload":{"from":"normal","to":"low","averageFps":0}`)
	assert.NotContains(t, string(data), "entityId")
}
