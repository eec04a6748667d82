package tpgo

import (
	"fmt"
	"runtime"

	"github.com/obinnaokechukwu/tpgo/engine"
)

// PriorityQueue is an external-memory min-priority queue of fixed-size
// entries. It may hold far more entries than fit in the internal memory
// budget.
//
// The order of entries with equal priority is not specified and may differ
// between engines.
//
// A PriorityQueue must not be used from multiple goroutines at once without
// external synchronization. Close may be called concurrently with itself.
type PriorityQueue struct {
	h       *Handle
	ops     engine.PriorityQueueOps
	size    EntrySize
	cleanup runtime.Cleanup
}

// NewPriorityQueue creates a priority queue on the default lifecycle.
func NewPriorityQueue(size EntrySize) (*PriorityQueue, error) {
	return defaultLifecycle.NewPriorityQueue(size)
}

// NewPriorityQueue creates a priority queue whose entries are size bytes.
// It fails with ErrEngineNotRunning outside a running period.
func (lc *Lifecycle) NewPriorityQueue(size EntrySize) (*PriorityQueue, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedEntrySize, int(size))
	}

	var ops engine.PriorityQueueOps
	h, err := lc.acquire("priority queue",
		func(e engine.Engine) (engine.Token, error) {
			ops = e.PriorityQueues()
			return ops.Create(size.NumBytes())
		},
		func(t engine.Token) error { return ops.Destroy(t) },
	)
	if err != nil {
		return nil, err
	}

	q := &PriorityQueue{h: h, ops: ops, size: size}
	q.cleanup = runtime.AddCleanup(q, (*Handle).finalize, h)
	return q, nil
}

// EntrySize returns the payload length of every entry.
func (q *PriorityQueue) EntrySize() EntrySize {
	return q.size
}

// Handle returns the queue's engine handle.
func (q *PriorityQueue) Handle() *Handle {
	return q.h
}

// NewEntry returns a zeroed payload buffer of the queue's entry size.
func (q *PriorityQueue) NewEntry() []byte {
	return make([]byte, q.size.NumBytes())
}

// Push adds an entry. A payload shorter than the entry size is zero-filled;
// a longer one fails with ErrPayloadTooLarge.
func (q *PriorityQueue) Push(priority float64, payload []byte) error {
	buf, err := fitPayload(payload, q.size)
	if err != nil {
		return err
	}
	err = q.h.do(func(t engine.Token) error {
		return q.ops.Push(t, priority, buf)
	})
	runtime.KeepAlive(q)
	return err
}

// Top returns the entry with the smallest priority without removing it.
// It fails with ErrEmptyQueue if the queue is empty.
func (q *PriorityQueue) Top() (float64, []byte, error) {
	buf := q.NewEntry()
	p, err := q.TopInto(buf)
	if err != nil {
		return 0, nil, err
	}
	return p, buf, nil
}

// TopInto is Top without allocation. dst must be exactly EntrySize bytes.
func (q *PriorityQueue) TopInto(dst []byte) (float64, error) {
	if len(dst) != q.size.NumBytes() {
		return 0, fmt.Errorf("tpgo: destination is %d bytes, entries are %d", len(dst), q.size.NumBytes())
	}
	var p float64
	err := q.h.do(func(t engine.Token) error {
		var err error
		p, err = q.ops.Top(t, dst)
		return err
	})
	runtime.KeepAlive(q)
	return p, err
}

// Pop removes the entry Top returns. It fails with ErrEmptyQueue if the
// queue is empty.
func (q *PriorityQueue) Pop() error {
	err := q.h.do(q.ops.Pop)
	runtime.KeepAlive(q)
	return err
}

// Size returns the number of entries, wherever they are stored.
func (q *PriorityQueue) Size() (uint64, error) {
	var n uint64
	err := q.h.do(func(t engine.Token) error {
		var err error
		n, err = q.ops.Size(t)
		return err
	})
	runtime.KeepAlive(q)
	return n, err
}

// Empty reports whether the queue has no entries.
func (q *PriorityQueue) Empty() (bool, error) {
	var empty bool
	err := q.h.do(func(t engine.Token) error {
		var err error
		empty, err = q.ops.Empty(t)
		return err
	})
	runtime.KeepAlive(q)
	return empty, err
}

// Close releases the queue's engine resources. It is safe to call more than
// once; later calls return nil.
func (q *PriorityQueue) Close() error {
	q.cleanup.Stop()
	err := q.h.Release()
	runtime.KeepAlive(q)
	return err
}

// IsClosed reports whether the queue has been released, by Close, by the
// garbage collector, or by Stop.
func (q *PriorityQueue) IsClosed() bool {
	return q.h.IsReleased()
}

// fitPayload returns payload widened to the full entry size.
func fitPayload(payload []byte, size EntrySize) ([]byte, error) {
	n := size.NumBytes()
	switch {
	case len(payload) == n:
		return payload, nil
	case len(payload) > n:
		return nil, fmt.Errorf("%w: %d bytes into %s", ErrPayloadTooLarge, len(payload), size)
	default:
		buf := make([]byte, n)
		copy(buf, payload)
		return buf, nil
	}
}
