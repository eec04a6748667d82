package handles

import (
	"runtime"
	"sync"
	"testing"
	"time"
)

type testData struct {
	Name  string
	Value int
	_     *int // keep the allocation out of the tiny allocator
}

func TestRegisterAndLookup(t *testing.T) {
	r := New[testData]()
	data := &testData{Name: "test", Value: 42}
	id := r.Register(data)

	if id == 0 {
		t.Error("Register should return non-zero id")
	}

	got := r.Lookup(id)
	if got != data {
		t.Errorf("Lookup returned %p, want %p", got, data)
	}
	runtime.KeepAlive(data)
}

func TestUnregister(t *testing.T) {
	r := New[testData]()
	data := &testData{Name: "test"}
	id := r.Register(data)

	r.Unregister(id)

	if r.Lookup(id) != nil {
		t.Error("Expected nil after Unregister")
	}
	if r.Count() != 0 {
		t.Errorf("Count = %d after Unregister, want 0", r.Count())
	}
	runtime.KeepAlive(data)
}

func TestLookupNonExistent(t *testing.T) {
	r := New[testData]()
	if r.Lookup(999999) != nil {
		t.Error("Lookup of non-existent id should return nil")
	}
}

func TestRegistryDoesNotRetain(t *testing.T) {
	r := New[testData]()
	id := r.Register(&testData{Name: "garbage"})

	deadline := time.Now().Add(2 * time.Second)
	for r.Lookup(id) != nil {
		if time.Now().After(deadline) {
			t.Fatal("registered object was never collected")
		}
		runtime.GC()
		time.Sleep(5 * time.Millisecond)
	}
	if r.Count() != 1 {
		t.Errorf("collected slot should stay occupied until unregistered, Count = %d", r.Count())
	}
}

func TestDrain(t *testing.T) {
	r := New[testData]()
	a := &testData{Value: 1}
	b := &testData{Value: 2}
	c := &testData{Value: 3}
	r.Register(a)
	idB := r.Register(b)
	r.Register(c)
	r.Unregister(idB)

	live := r.Drain()
	if len(live) != 2 || live[0] != a || live[1] != c {
		t.Fatalf("Drain returned %v, want [a c] in slot order", live)
	}
	if r.Count() != 0 {
		t.Errorf("Count = %d after Drain, want 0", r.Count())
	}
	if got := r.Drain(); len(got) != 0 {
		t.Errorf("second Drain returned %d objects", len(got))
	}
	runtime.KeepAlive(b)
}

func TestConcurrentAccess(t *testing.T) {
	const numGoroutines = 100
	const numOps = 100

	r := New[testData]()
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numOps; j++ {
				data := &testData{Value: id*numOps + j}
				h := r.Register(data)
				if r.Lookup(h) != data {
					t.Errorf("Lookup returned wrong object for id %d", h)
				}
				r.Unregister(h)
			}
		}(i)
	}

	wg.Wait()
	if r.Count() != 0 {
		t.Errorf("Count = %d, want 0", r.Count())
	}
}

func TestIDsAreUnique(t *testing.T) {
	r := New[testData]()
	seen := make(map[uint64]bool)
	keep := make([]*testData, 0, 1000)

	for i := 0; i < 1000; i++ {
		v := &testData{Value: i}
		keep = append(keep, v)
		id := r.Register(v)
		if seen[id] {
			t.Errorf("id %d was returned twice", id)
		}
		seen[id] = true
		r.Unregister(id)
	}
	runtime.KeepAlive(keep)
}
