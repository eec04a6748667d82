// Package serialization wraps tpgo queues with codecs so they hold Go values
// instead of raw payloads.
//
// A codec writes one value into a zeroed, full-width entry buffer and reads
// it back. Bytes the codec does not write stay zero. The adapters own their
// queue and carry no other state.
package serialization

import (
	"sync"

	"go.uber.org/zap"

	"github.com/obinnaokechukwu/tpgo"
)

var (
	poolsMu sync.Mutex
	pools   = make(map[tpgo.EntrySize]*tpgo.EntryPool)
)

// entryPool returns the process-wide buffer pool for size.
func entryPool(size tpgo.EntrySize) *tpgo.EntryPool {
	poolsMu.Lock()
	defer poolsMu.Unlock()
	p, ok := pools[size]
	if !ok {
		p = tpgo.NewEntryPool(size, 0)
		pools[size] = p
	}
	return p
}

// putEntry returns buf to pool. Every buffer the adapters hold came from the
// same pool, so a rejected Put is a bug in this package.
func putEntry(pool *tpgo.EntryPool, buf []byte) {
	if err := pool.Put(buf); err != nil {
		tpgo.Logger().DPanic("returning entry buffer", zap.Stringer("entry_size", pool.EntrySize()), zap.Error(err))
	}
}

// PriorityCodec converts values of T to and from priority queue entries.
type PriorityCodec[T any] interface {
	// EntrySize is the payload length the codec needs.
	EntrySize() tpgo.EntrySize

	// Encode writes v into buf, which is EntrySize bytes and zeroed, and
	// returns v's priority.
	Encode(v T, buf []byte) (float64, error)

	// Decode rebuilds a value from its priority and payload. It must not
	// retain buf.
	Decode(priority float64, buf []byte) (T, error)
}

// FIFOCodec converts values of T to and from FIFO queue entries.
// The buffer rules are those of PriorityCodec.
type FIFOCodec[T any] interface {
	EntrySize() tpgo.EntrySize
	Encode(v T, buf []byte) error
	Decode(buf []byte) (T, error)
}

// PriorityQueue is a tpgo.PriorityQueue of T values, smallest priority first.
// Like the underlying queue, it is not safe for concurrent use.
type PriorityQueue[T any] struct {
	q     *tpgo.PriorityQueue
	codec PriorityCodec[T]
	pool  *tpgo.EntryPool
}

// NewPriorityQueue creates a queue on lc, or on the default lifecycle if lc
// is nil.
func NewPriorityQueue[T any](lc *tpgo.Lifecycle, codec PriorityCodec[T]) (*PriorityQueue[T], error) {
	if lc == nil {
		lc = tpgo.Default()
	}
	q, err := lc.NewPriorityQueue(codec.EntrySize())
	if err != nil {
		return nil, err
	}
	return &PriorityQueue[T]{q: q, codec: codec, pool: entryPool(q.EntrySize())}, nil
}

// Codec returns the queue's codec.
func (s *PriorityQueue[T]) Codec() PriorityCodec[T] {
	return s.codec
}

// Queue returns the underlying queue.
func (s *PriorityQueue[T]) Queue() *tpgo.PriorityQueue {
	return s.q
}

// Push encodes v and adds it.
func (s *PriorityQueue[T]) Push(v T) error {
	buf, err := s.pool.Get()
	if err != nil {
		return err
	}
	defer putEntry(s.pool, buf)

	p, err := s.codec.Encode(v, buf)
	if err != nil {
		return err
	}
	return s.q.Push(p, buf)
}

// Top decodes the value with the smallest priority without removing it.
func (s *PriorityQueue[T]) Top() (T, error) {
	var zero T
	buf, err := s.pool.Get()
	if err != nil {
		return zero, err
	}
	defer putEntry(s.pool, buf)

	p, err := s.q.TopInto(buf)
	if err != nil {
		return zero, err
	}
	return s.codec.Decode(p, buf)
}

// Pop removes the value Top returns.
func (s *PriorityQueue[T]) Pop() error {
	return s.q.Pop()
}

// Size returns the number of values in the queue.
func (s *PriorityQueue[T]) Size() (uint64, error) {
	return s.q.Size()
}

// Empty reports whether the queue holds no values.
func (s *PriorityQueue[T]) Empty() (bool, error) {
	return s.q.Empty()
}

// Close releases the underlying queue.
func (s *PriorityQueue[T]) Close() error {
	return s.q.Close()
}

// IsClosed reports whether the underlying queue has been released.
func (s *PriorityQueue[T]) IsClosed() bool {
	return s.q.IsClosed()
}

// FIFOQueue is a tpgo.FIFOQueue of T values.
type FIFOQueue[T any] struct {
	q     *tpgo.FIFOQueue
	codec FIFOCodec[T]
	pool  *tpgo.EntryPool
}

// NewFIFOQueue creates a queue on lc, or on the default lifecycle if lc is nil.
func NewFIFOQueue[T any](lc *tpgo.Lifecycle, codec FIFOCodec[T]) (*FIFOQueue[T], error) {
	if lc == nil {
		lc = tpgo.Default()
	}
	q, err := lc.NewFIFOQueue(codec.EntrySize())
	if err != nil {
		return nil, err
	}
	return &FIFOQueue[T]{q: q, codec: codec, pool: entryPool(q.EntrySize())}, nil
}

// Codec returns the queue's codec.
func (s *FIFOQueue[T]) Codec() FIFOCodec[T] {
	return s.codec
}

// Queue returns the underlying queue.
func (s *FIFOQueue[T]) Queue() *tpgo.FIFOQueue {
	return s.q
}

// Push encodes v and appends it.
func (s *FIFOQueue[T]) Push(v T) error {
	buf, err := s.pool.Get()
	if err != nil {
		return err
	}
	defer putEntry(s.pool, buf)

	if err := s.codec.Encode(v, buf); err != nil {
		return err
	}
	return s.q.Push(buf)
}

// Front decodes the oldest value without removing it.
func (s *FIFOQueue[T]) Front() (T, error) {
	var zero T
	buf, err := s.pool.Get()
	if err != nil {
		return zero, err
	}
	defer putEntry(s.pool, buf)

	if err := s.q.FrontInto(buf); err != nil {
		return zero, err
	}
	return s.codec.Decode(buf)
}

// Pop removes the oldest value.
func (s *FIFOQueue[T]) Pop() error {
	return s.q.Pop()
}

// Size returns the number of values in the queue.
func (s *FIFOQueue[T]) Size() (uint64, error) {
	return s.q.Size()
}

// Empty reports whether the queue holds no values.
func (s *FIFOQueue[T]) Empty() (bool, error) {
	return s.q.Empty()
}

// Close releases the underlying queue.
func (s *FIFOQueue[T]) Close() error {
	return s.q.Close()
}

// IsClosed reports whether the underlying queue has been released.
func (s *FIFOQueue[T]) IsClosed() bool {
	return s.q.IsClosed()
}
