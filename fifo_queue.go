package tpgo

import (
	"fmt"
	"runtime"

	"github.com/obinnaokechukwu/tpgo/engine"
)

// FIFOQueue is an external-memory first-in-first-out queue of fixed-size
// entries.
//
// Like PriorityQueue, it must not be used from multiple goroutines at once
// without external synchronization, except for Close.
type FIFOQueue struct {
	h       *Handle
	ops     engine.FIFOQueueOps
	size    EntrySize
	cleanup runtime.Cleanup
}

// NewFIFOQueue creates a FIFO queue on the default lifecycle.
func NewFIFOQueue(size EntrySize) (*FIFOQueue, error) {
	return defaultLifecycle.NewFIFOQueue(size)
}

// NewFIFOQueue creates a FIFO queue whose entries are size bytes.
// It fails with ErrEngineNotRunning outside a running period.
func (lc *Lifecycle) NewFIFOQueue(size EntrySize) (*FIFOQueue, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedEntrySize, int(size))
	}

	var ops engine.FIFOQueueOps
	h, err := lc.acquire("fifo queue",
		func(e engine.Engine) (engine.Token, error) {
			ops = e.FIFOQueues()
			return ops.Create(size.NumBytes())
		},
		func(t engine.Token) error { return ops.Destroy(t) },
	)
	if err != nil {
		return nil, err
	}

	q := &FIFOQueue{h: h, ops: ops, size: size}
	q.cleanup = runtime.AddCleanup(q, (*Handle).finalize, h)
	return q, nil
}

// EntrySize returns the payload length of every entry.
func (q *FIFOQueue) EntrySize() EntrySize {
	return q.size
}

// Handle returns the queue's engine handle.
func (q *FIFOQueue) Handle() *Handle {
	return q.h
}

// NewEntry returns a zeroed payload buffer of the queue's entry size.
func (q *FIFOQueue) NewEntry() []byte {
	return make([]byte, q.size.NumBytes())
}

// Push appends an entry. A payload shorter than the entry size is
// zero-filled; a longer one fails with ErrPayloadTooLarge.
func (q *FIFOQueue) Push(payload []byte) error {
	buf, err := fitPayload(payload, q.size)
	if err != nil {
		return err
	}
	err = q.h.do(func(t engine.Token) error {
		return q.ops.Push(t, buf)
	})
	runtime.KeepAlive(q)
	return err
}

// Front returns the oldest entry without removing it. It fails with
// ErrEmptyQueue if the queue is empty.
func (q *FIFOQueue) Front() ([]byte, error) {
	buf := q.NewEntry()
	if err := q.FrontInto(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// FrontInto is Front without allocation. dst must be exactly EntrySize bytes.
func (q *FIFOQueue) FrontInto(dst []byte) error {
	if len(dst) != q.size.NumBytes() {
		return fmt.Errorf("tpgo: destination is %d bytes, entries are %d", len(dst), q.size.NumBytes())
	}
	err := q.h.do(func(t engine.Token) error {
		return q.ops.Front(t, dst)
	})
	runtime.KeepAlive(q)
	return err
}

// Pop removes the oldest entry. It fails with ErrEmptyQueue if the queue is
// empty.
func (q *FIFOQueue) Pop() error {
	err := q.h.do(q.ops.Pop)
	runtime.KeepAlive(q)
	return err
}

// Size returns the number of entries, wherever they are stored.
func (q *FIFOQueue) Size() (uint64, error) {
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
func (q *FIFOQueue) Empty() (bool, error) {
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
// once.
func (q *FIFOQueue) Close() error {
	q.cleanup.Stop()
	err := q.h.Release()
	runtime.KeepAlive(q)
	return err
}

// IsClosed reports whether the queue has been released.
func (q *FIFOQueue) IsClosed() bool {
	return q.h.IsReleased()
}
