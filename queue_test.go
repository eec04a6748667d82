package tpgo

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/rand/v2"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/obinnaokechukwu/tpgo/engine/memengine"
	"github.com/obinnaokechukwu/tpgo/enginetest"
)

func putFloat(buf []byte, v float64) {
	binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
}

func getFloat(buf []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(buf))
}

func patterned(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i*7)
	}
	return b
}

func TestRoundTripAllSizes(t *testing.T) {
	lc, _ := startLifecycle(t, memengine.Options{})

	for _, size := range Sizes() {
		t.Run(size.String(), func(t *testing.T) {
			want := patterned(size.NumBytes(), byte(size))

			pq, err := lc.NewPriorityQueue(size)
			require.NoError(t, err)
			defer pq.Close()
			require.NoError(t, pq.Push(1.5, want))
			p, got, err := pq.Top()
			require.NoError(t, err)
			assert.Equal(t, 1.5, p)
			assert.Equal(t, want, got)

			fifo, err := lc.NewFIFOQueue(size)
			require.NoError(t, err)
			defer fifo.Close()
			require.NoError(t, fifo.Push(want))
			got, err = fifo.Front()
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestPrioritySortScenario(t *testing.T) {
	lc, _ := startLifecycle(t, memengine.Options{})

	markers := map[float64]float64{9: 5.3, 3: 4.2, 5: 7.3, 7: 2.9, 4: 1.0, 2: 8.5}
	for _, size := range []EntrySize{Bytes8, Bytes16, Bytes32} {
		t.Run(size.String(), func(t *testing.T) {
			q, err := lc.NewPriorityQueue(size)
			require.NoError(t, err)
			defer q.Close()

			for _, p := range []float64{9, 3, 5, 7, 4, 2} {
				entry := q.NewEntry()
				putFloat(entry, markers[p])
				require.NoError(t, q.Push(p, entry))
			}

			for _, want := range []float64{2, 3, 4, 5, 7, 9} {
				p, entry, err := q.Top()
				require.NoError(t, err)
				assert.Equal(t, want, p)
				assert.Equal(t, markers[want], getFloat(entry))
				require.NoError(t, q.Pop())
			}
			empty, err := q.Empty()
			require.NoError(t, err)
			assert.True(t, empty)
		})
	}
}

func TestPriorityOrderAcrossSpill(t *testing.T) {
	lc, _ := startLifecycle(t, memengine.Options{MaxMemoryEntries: 16})
	q, err := lc.NewPriorityQueue(Bytes16)
	require.NoError(t, err)
	defer q.Close()

	const n = 500
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < n; i++ {
		p := math.Floor(rng.Float64() * 100)
		entry := q.NewEntry()
		putFloat(entry, p)
		require.NoError(t, q.Push(p, entry))
	}

	ext, err := lc.ExternalBytes()
	require.NoError(t, err)
	assert.Positive(t, ext, "entries beyond memory must spill")

	prev := math.Inf(-1)
	for remaining := uint64(n); remaining > 0; remaining-- {
		size, err := q.Size()
		require.NoError(t, err)
		require.Equal(t, remaining, size)
		empty, err := q.Empty()
		require.NoError(t, err)
		require.False(t, empty)

		p, entry, err := q.Top()
		require.NoError(t, err)
		require.GreaterOrEqual(t, p, prev)
		require.Equal(t, p, getFloat(entry), "payload travels with its priority")
		prev = p
		require.NoError(t, q.Pop())
	}
	size, err := q.Size()
	require.NoError(t, err)
	assert.Zero(t, size)
	empty, err := q.Empty()
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestFIFOOrderAcrossSpill(t *testing.T) {
	lc, _ := startLifecycle(t, memengine.Options{MaxMemoryEntries: 8})
	q, err := lc.NewFIFOQueue(Bytes64)
	require.NoError(t, err)
	defer q.Close()

	const n = 200
	for i := 0; i < n; i++ {
		require.NoError(t, q.Push(patterned(64, byte(i))))
	}
	ext, err := lc.ExternalBytes()
	require.NoError(t, err)
	assert.Positive(t, ext)

	buf := q.NewEntry()
	for i := 0; i < n; i++ {
		require.NoError(t, q.FrontInto(buf))
		require.True(t, bytes.Equal(patterned(64, byte(i)), buf), "entry %d out of order", i)
		require.NoError(t, q.Pop())
	}
	empty, err := q.Empty()
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestShortPayloadIsZeroFilled(t *testing.T) {
	lc, _ := startLifecycle(t, memengine.Options{})

	pq, err := lc.NewPriorityQueue(Bytes32)
	require.NoError(t, err)
	defer pq.Close()
	require.NoError(t, pq.Push(0, []byte{1, 2, 3}))
	_, got, err := pq.Top()
	require.NoError(t, err)
	want := make([]byte, 32)
	copy(want, []byte{1, 2, 3})
	assert.Equal(t, want, got)

	fifo, err := lc.NewFIFOQueue(Bytes8)
	require.NoError(t, err)
	defer fifo.Close()
	require.NoError(t, fifo.Push(nil))
	got, err = fifo.Front()
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 8), got)
}

func TestPayloadTooLarge(t *testing.T) {
	lc, eng := startLifecycle(t, memengine.Options{})

	pq, err := lc.NewPriorityQueue(Bytes8)
	require.NoError(t, err)
	defer pq.Close()
	assert.ErrorIs(t, pq.Push(0, make([]byte, 9)), ErrPayloadTooLarge)

	fifo, err := lc.NewFIFOQueue(Bytes8)
	require.NoError(t, err)
	defer fifo.Close()
	assert.ErrorIs(t, fifo.Push(make([]byte, 16)), ErrPayloadTooLarge)

	assert.Zero(t, eng.Calls(enginetest.OpPQPush)+eng.Calls(enginetest.OpFIFOPush))
}

func TestEmptyQueueErrors(t *testing.T) {
	lc, _ := startLifecycle(t, memengine.Options{})

	pq, err := lc.NewPriorityQueue(Bytes8)
	require.NoError(t, err)
	defer pq.Close()
	_, _, err = pq.Top()
	assert.ErrorIs(t, err, ErrEmptyQueue)
	assert.ErrorIs(t, pq.Pop(), ErrEmptyQueue)

	fifo, err := lc.NewFIFOQueue(Bytes8)
	require.NoError(t, err)
	defer fifo.Close()
	_, err = fifo.Front()
	assert.ErrorIs(t, err, ErrEmptyQueue)
	assert.ErrorIs(t, fifo.Pop(), ErrEmptyQueue)
}

func TestUnsupportedEntrySize(t *testing.T) {
	lc, eng := startLifecycle(t, memengine.Options{})
	_, err := lc.NewPriorityQueue(EntrySize(12))
	assert.ErrorIs(t, err, ErrUnsupportedEntrySize)
	_, err = lc.NewFIFOQueue(EntrySize(2048))
	assert.ErrorIs(t, err, ErrUnsupportedEntrySize)
	assert.Zero(t, eng.Calls(enginetest.OpPQCreate))
}

func TestClosedQueue(t *testing.T) {
	lc, eng := startLifecycle(t, memengine.Options{})

	pq, err := lc.NewPriorityQueue(Bytes8)
	require.NoError(t, err)
	require.NoError(t, pq.Push(1, nil))
	assert.Equal(t, 1, lc.LiveHandles())

	require.NoError(t, pq.Close())
	require.NoError(t, pq.Close())
	assert.True(t, pq.IsClosed())
	assert.Equal(t, 1, eng.Calls(enginetest.OpPQDestroy))
	assert.Equal(t, 0, lc.LiveHandles())

	_, err = pq.Handle().Token()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, pq.Push(2, nil), ErrClosed)
	_, _, err = pq.Top()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, pq.Pop(), ErrClosed)
	_, err = pq.Size()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = pq.Empty()
	assert.ErrorIs(t, err, ErrClosed)

	fifo, err := lc.NewFIFOQueue(Bytes8)
	require.NoError(t, err)
	require.NoError(t, fifo.Close())
	require.NoError(t, fifo.Close())
	assert.Equal(t, 1, eng.Calls(enginetest.OpFIFODestroy))
	assert.ErrorIs(t, fifo.Push(nil), ErrClosed)
	_, err = fifo.Front()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, fifo.Pop(), ErrClosed)
	_, err = fifo.Size()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConcurrentCloseDestroysOnce(t *testing.T) {
	lc, eng := startLifecycle(t, memengine.Options{})

	for round := 0; round < 20; round++ {
		pq, err := lc.NewPriorityQueue(Bytes8)
		require.NoError(t, err)
		fifo, err := lc.NewFIFOQueue(Bytes8)
		require.NoError(t, err)

		var g errgroup.Group
		for i := 0; i < 16; i++ {
			g.Go(pq.Close)
			g.Go(fifo.Close)
		}
		require.NoError(t, g.Wait())
	}
	assert.Equal(t, 20, eng.Calls(enginetest.OpPQDestroy))
	assert.Equal(t, 20, eng.Calls(enginetest.OpFIFODestroy))
}

func TestCloseRacesStop(t *testing.T) {
	for round := 0; round < 20; round++ {
		eng := enginetest.NewMemory(memengine.Options{})
		lc := NewLifecycle()
		require.NoError(t, lc.Start(0, WithEngine(eng), WithoutExitHook()))

		var queues []*FIFOQueue
		for i := 0; i < 8; i++ {
			q, err := lc.NewFIFOQueue(Bytes8)
			require.NoError(t, err)
			queues = append(queues, q)
		}

		var g errgroup.Group
		for _, q := range queues {
			g.Go(q.Close)
		}
		g.Go(lc.Stop)
		require.NoError(t, g.Wait())
		assert.Equal(t, 8, eng.Destroys())
	}
}

// abandonQueue creates a queue and drops the only reference to it.
func abandonQueue(t *testing.T, lc *Lifecycle) {
	q, err := lc.NewPriorityQueue(Bytes64)
	require.NoError(t, err)
	require.NoError(t, q.Push(3, nil))
}

func TestUnreachableQueueIsReleased(t *testing.T) {
	lc, eng := startLifecycle(t, memengine.Options{})

	abandonQueue(t, lc)
	require.Equal(t, 1, lc.LiveHandles())

	require.Eventually(t, func() bool {
		runtime.GC()
		return eng.Calls(enginetest.OpPQDestroy) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, lc.LiveHandles())

	require.NoError(t, lc.Stop())
	assert.Equal(t, 1, eng.Destroys(), "Stop must not destroy a collected queue again")
}
