// Package handles provides a thread-safe, non-owning registry of live
// objects.
//
// Each registered object gets a slot ID assigned from a monotonically
// increasing counter. The registry stores only weak pointers, so a
// registered object remains collectable; once collected, its slot simply
// resolves to nil. Slots are removed explicitly with Unregister, or all at
// once with Drain.
//
// tpgo uses this to find every still-live engine handle at shutdown without
// extending any handle's lifetime.
package handles

import (
	"maps"
	"slices"
	"sync"
	"weak"
)

// Registry is a weak registry of *T values. The zero value is not usable;
// create one with New.
type Registry[T any] struct {
	mu      sync.Mutex
	entries map[uint64]weak.Pointer[T]
	nextID  uint64
}

// New creates an empty registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{
		entries: make(map[uint64]weak.Pointer[T]),
		nextID:  1,
	}
}

// Register weakly records v and returns its slot ID. IDs are never reused.
//
// Thread-safe.
func (r *Registry[T]) Register(v *T) uint64 {
	wp := weak.Make(v)
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.entries[id] = wp
	return id
}

// Lookup returns the object in slot id, or nil if the slot is empty or the
// object has been collected.
//
// Thread-safe.
func (r *Registry[T]) Lookup(id uint64) *T {
	r.mu.Lock()
	defer r.mu.Unlock()
	wp, ok := r.entries[id]
	if !ok {
		return nil
	}
	return wp.Value()
}

// Unregister empties slot id.
//
// Thread-safe.
func (r *Registry[T]) Unregister(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Count returns the number of occupied slots, including slots whose object
// has been collected but not yet unregistered.
//
// Thread-safe.
func (r *Registry[T]) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Drain empties the registry and returns the objects that were still
// reachable, in slot order.
//
// Thread-safe.
func (r *Registry[T]) Drain() []*T {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[uint64]weak.Pointer[T])
	r.mu.Unlock()

	live := make([]*T, 0, len(entries))
	for _, id := range slices.Sorted(maps.Keys(entries)) {
		if v := entries[id].Value(); v != nil {
			live = append(live, v)
		}
	}
	return live
}
