package tpgo

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrPoolClosed is returned by EntryPool.Get after Close.
	ErrPoolClosed = errors.New("tpgo: entry pool is closed")

	// ErrPoolExhausted is returned when a bounded pool has every buffer in use.
	ErrPoolExhausted = errors.New("tpgo: entry pool exhausted")
)

// EntryPool reuses full-width payload buffers for one entry size.
//
// Buffers returned from Get are OWNED by the caller and should be returned
// via Put.
type EntryPool struct {
	mu       sync.Mutex
	size     EntrySize
	idle     [][]byte
	closed   bool
	inUse    int
	maxInUse int
}

// NewEntryPool creates a pool of size-byte buffers. If maxInUse <= 0, the
// pool is unbounded.
func NewEntryPool(size EntrySize, maxInUse int) *EntryPool {
	return &EntryPool{size: size, maxInUse: maxInUse}
}

// EntrySize returns the length of the pool's buffers.
func (p *EntryPool) EntrySize() EntrySize {
	return p.size
}

// Get returns a zeroed buffer from the pool.
func (p *EntryPool) Get() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}
	if p.maxInUse > 0 && p.inUse >= p.maxInUse {
		return nil, ErrPoolExhausted
	}

	var buf []byte
	if n := len(p.idle); n > 0 {
		buf = p.idle[n-1]
		p.idle[n-1] = nil
		p.idle = p.idle[:n-1]
		clear(buf)
	} else {
		buf = make([]byte, p.size.NumBytes())
	}
	p.inUse++
	return buf, nil
}

// Put returns a buffer obtained from Get. Putting into a closed pool drops
// the buffer.
func (p *EntryPool) Put(buf []byte) error {
	if p == nil || buf == nil {
		return nil
	}
	if len(buf) != p.size.NumBytes() {
		return fmt.Errorf("tpgo: cannot put %d-byte buffer into %s pool", len(buf), p.size)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inUse > 0 {
		p.inUse--
	}
	if p.closed {
		return nil
	}
	p.idle = append(p.idle, buf)
	return nil
}

// InUse returns the number of buffers handed out and not yet returned.
func (p *EntryPool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse
}

// Close drops all idle buffers. Buffers still in use are not affected.
func (p *EntryPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.idle = nil
	return nil
}
