package horde

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	JournalBufferSize   = 1024                   // Circular buffer size
	MaxEventsPerSec     = 10000                  // Global rate limit
	MaxEventsPerKind    = 2000                   // Per-kind rate limit per second
	BatchFlushSize      = 64                     // Events per batch write
	BatchFlushInterval  = 100 * time.Millisecond // How often to flush
	journalFilePerm     = 0o644
	journalFileOpenFlag = os.O_CREATE | os.O_APPEND | os.O_WRONLY
)

// Journal is a bounded, rate-limited diagnostic event log with an async
// JSONL writer. Under pressure it drops events rather than blocking the tick.
type Journal struct {
	mu     sync.Mutex // guards buffer heads; Emit runs under the engine lock anyway
	buffer [JournalBufferSize]Event
	write  uint64
	read   uint64

	globalLimiter *rate.Limiter
	kindLimiters  [eventKindCount]*rate.Limiter

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	file   *os.File
	out    *bufio.Writer
	fileMu sync.Mutex

	dropped atomic.Uint64
	total   atomic.Uint64
	written atomic.Uint64
}

// NewJournal creates a stopped journal.
func NewJournal() *Journal {
	j := &Journal{
		globalLimiter: rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		stopChan:      make(chan struct{}),
	}
	for i := range j.kindLimiters {
		j.kindLimiters[i] = rate.NewLimiter(MaxEventsPerKind, MaxEventsPerKind/10)
	}
	return j
}

// Start begins the async writer. An empty path keeps events in memory only.
func (j *Journal) Start(path string) error {
	if j.running.Load() {
		return nil
	}
	if path != "" {
		f, err := os.OpenFile(path, journalFileOpenFlag, journalFilePerm)
		if err != nil {
			return fmt.Errorf("open event journal %s: %w", path, err)
		}
		j.file = f
		j.out = bufio.NewWriter(f)
	}

	j.running.Store(true)
	j.writerWg.Add(1)
	go j.writerLoop()
	return nil
}

// Stop flushes pending events and closes the file. Safe to call twice.
func (j *Journal) Stop() {
	j.stopOnce.Do(func() {
		j.running.Store(false)
		close(j.stopChan)
		j.writerWg.Wait()

		j.fileMu.Lock()
		if j.out != nil {
			j.out.Flush()
		}
		if j.file != nil {
			j.file.Close()
		}
		j.fileMu.Unlock()
	})
}

// Emit adds an event. It returns false when the journal is stopped or the
// event was rate limited.
func (j *Journal) Emit(ev Event) bool {
	if !j.running.Load() {
		return false
	}
	if !j.globalLimiter.Allow() {
		j.dropped.Add(1)
		return false
	}
	if ev.Kind < eventKindCount && !j.kindLimiters[ev.Kind].Allow() {
		j.dropped.Add(1)
		return false
	}

	j.mu.Lock()
	j.write++
	if j.write-j.read > JournalBufferSize {
		// Overwrite the oldest pending event.
		j.read++
		j.dropped.Add(1)
	}
	ev.Sequence = j.write
	j.buffer[j.write%JournalBufferSize] = ev
	j.mu.Unlock()

	j.total.Add(1)
	return true
}

// EmitSimple builds and emits an event.
func (j *Journal) EmitSimple(kind EventKind, tick uint64, id EntityID, payload any) bool {
	if !j.running.Load() {
		return false
	}
	return j.Emit(NewEvent(kind, tick, id, payload))
}

func (j *Journal) writerLoop() {
	defer j.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, BatchFlushSize)
	for {
		select {
		case <-j.stopChan:
			for {
				batch = j.collectBatch(batch[:0])
				if len(batch) == 0 {
					return
				}
				j.flushBatch(batch)
			}
		case <-ticker.C:
			batch = j.collectBatch(batch[:0])
			if len(batch) > 0 {
				j.flushBatch(batch)
			}
		}
	}
}

func (j *Journal) collectBatch(batch []Event) []Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	for j.read < j.write && len(batch) < BatchFlushSize {
		j.read++
		batch = append(batch, j.buffer[j.read%JournalBufferSize])
	}
	return batch
}

// flushBatch writes events as newline-delimited JSON.
func (j *Journal) flushBatch(batch []Event) {
	j.fileMu.Lock()
	defer j.fileMu.Unlock()

	j.written.Add(uint64(len(batch)))
	if j.out == nil {
		return
	}
	for _, ev := range batch {
		data, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		j.out.Write(data)
		j.out.WriteByte('\n')
	}
	j.out.Flush()
}

// JournalStats is used for monitoring.
type JournalStats struct {
	Total   uint64 `json:"total"`
	Dropped uint64 `json:"dropped"`
	Written uint64 `json:"written"`
	Pending uint64 `json:"pending"`
	Running bool   `json:"running"`
}

// Stats returns journal counters.
func (j *Journal) Stats() JournalStats {
	j.mu.Lock()
	pending := j.write - j.read
	j.mu.Unlock()
	return JournalStats{
		Total:   j.total.Load(),
		Dropped: j.dropped.Load(),
		Written: j.written.Load(),
		Pending: pending,
		Running: j.running.Load(),
	}
}
