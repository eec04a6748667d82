// Package memengine is a pure-Go implementation of engine.Engine.
//
// Each queue reserves a fixed slice of the internal memory budget when it is
// created. Entries beyond what fits in that reservation are spilled to
// lz4-compressed files in the temporary directory: FIFO queues page out
// their middle section, priority queues write sorted runs that are merged
// on read.
//
// The engine is safe for concurrent use across different tokens. Operations
// on the same token must be serialized by the caller.
package memengine

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/obinnaokechukwu/tpgo/engine"
	"golang.org/x/sync/semaphore"
)

// DefaultQueueReserve is the internal memory each queue reserves by default.
const DefaultQueueReserve = 1 << 20

// Options configures an Engine.
type Options struct {
	// QueueReserveBytes is the internal memory reserved by each queue.
	// If 0, DefaultQueueReserve is used.
	QueueReserveBytes int64

	// MaxMemoryEntries caps the number of entries a queue keeps in memory
	// before spilling. If 0, it is derived from QueueReserveBytes.
	MaxMemoryEntries int
}

// Engine is a pure-Go external-memory engine.
type Engine struct {
	opts Options

	mu       sync.RWMutex
	running  bool
	budget   int64
	mem      *semaphore.Weighted
	tempDir  string
	next     uint64
	pqs      map[engine.Token]*priorityQueue
	fifos    map[engine.Token]*fifoQueue
	external atomic.Int64
}

// Compile-time interface check.
var _ engine.Engine = (*Engine)(nil)

// New creates an engine. It must be initialized with Init before use.
func New(opts Options) *Engine {
	if opts.QueueReserveBytes <= 0 {
		opts.QueueReserveBytes = DefaultQueueReserve
	}
	return &Engine{opts: opts}
}

// Init starts a running period with the given internal memory budget.
func (e *Engine) Init(internalBytes uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return nil
	}
	e.budget = int64(internalBytes)
	e.mem = semaphore.NewWeighted(e.budget)
	e.pqs = make(map[engine.Token]*priorityQueue)
	e.fifos = make(map[engine.Token]*fifoQueue)
	if e.tempDir == "" {
		e.tempDir = os.TempDir()
	}
	e.running = true
	return nil
}

// Teardown ends the running period. Queues still alive are discarded along
// with their spill files.
func (e *Engine) Teardown() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return nil
	}
	var firstErr error
	for t, q := range e.pqs {
		if err := q.discard(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(e.pqs, t)
	}
	for t, q := range e.fifos {
		if err := q.discard(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(e.fifos, t)
	}
	e.mem = nil
	e.running = false
	return firstErr
}

// SetTempDir sets the directory spill files are written to.
func (e *Engine) SetTempDir(dir, subdir string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return engine.ErrNotInitialized
	}

	path := dir
	if subdir != "" {
		path = filepath.Join(dir, subdir)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("memengine: creating temp dir: %w", err)
	}
	e.tempDir = path
	return nil
}

// TempDir returns the directory spill files are written to.
func (e *Engine) TempDir() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tempDir
}

// ExternalBytes returns the total size of live spill files.
func (e *Engine) ExternalBytes() uint64 {
	return uint64(e.external.Load())
}

// PriorityQueues returns the priority queue operations.
func (e *Engine) PriorityQueues() engine.PriorityQueueOps {
	return pqOps{e: e}
}

// FIFOQueues returns the FIFO queue operations.
func (e *Engine) FIFOQueues() engine.FIFOQueueOps {
	return fifoOps{e: e}
}

// reserve claims one queue's share of the memory budget and a new token.
// Caller holds e.mu.
func (e *Engine) reserve(numBytes int) (engine.Token, error) {
	if !e.running {
		return engine.InvalidToken, engine.ErrNotInitialized
	}
	if !engine.IsSupportedEntrySize(numBytes) {
		return engine.InvalidToken, fmt.Errorf("%w: %d", engine.ErrUnsupportedEntrySize, numBytes)
	}
	if !e.mem.TryAcquire(e.opts.QueueReserveBytes) {
		return engine.InvalidToken, engine.ErrOutOfMemory
	}
	e.next++
	return engine.Token(e.next), nil
}

// unreserve returns one queue's share of the memory budget. Caller holds e.mu.
func (e *Engine) unreserve() {
	if e.mem != nil {
		e.mem.Release(e.opts.QueueReserveBytes)
	}
}

// memoryEntries returns how many records of recSize fit in one reservation,
// split across parts in-memory buffers.
func (e *Engine) memoryEntries(recSize, parts int) int {
	if e.opts.MaxMemoryEntries > 0 {
		return e.opts.MaxMemoryEntries
	}
	n := int(e.opts.QueueReserveBytes) / (recSize * parts)
	if n < 1 {
		n = 1
	}
	return n
}

// Bounds on the spill runs a priority queue keeps open at once.
const (
	minOpenRuns = 2
	maxOpenRuns = 16
)

// pqLayout splits one reservation between a priority queue's in-memory heap
// and the reader buffers of its open spill runs.
func (e *Engine) pqLayout(recSize int) (memEntries, maxRuns int) {
	runBytes := int(e.opts.QueueReserveBytes) / 2
	maxRuns = min(max(runBytes/runReaderBytes, minOpenRuns), maxOpenRuns)
	return e.memoryEntries(recSize, 2), maxRuns
}

func (e *Engine) spill() *spiller {
	return &spiller{dir: e.tempDir, external: &e.external}
}

func checkPayload(payload []byte, numBytes int) error {
	if len(payload) != numBytes {
		return fmt.Errorf("memengine: payload is %d bytes, queue entries are %d", len(payload), numBytes)
	}
	return nil
}
