package serialization

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/obinnaokechukwu/tpgo"
	"github.com/obinnaokechukwu/tpgo/engine/memengine"
	"github.com/obinnaokechukwu/tpgo/enginetest"
)

func startLifecycle(t *testing.T) (*tpgo.Lifecycle, *enginetest.Engine) {
	t.Helper()
	eng := enginetest.NewMemory(memengine.Options{MaxMemoryEntries: 8})
	lc := tpgo.NewLifecycle()
	require.NoError(t, lc.Start(0, tpgo.WithEngine(eng), tpgo.WithoutExitHook(), tpgo.WithTempDir(t.TempDir(), "")))
	t.Cleanup(func() { _ = lc.Stop() })
	return lc, eng
}

type thing struct {
	Num   int64
	Score float64
}

func TestPriorityQueueOfStructs(t *testing.T) {
	lc, _ := startLifecycle(t)
	codec, err := NewKeyedCodec(func(v thing) float64 { return v.Score })
	require.NoError(t, err)
	assert.Equal(t, tpgo.Bytes16, codec.EntrySize())

	q, err := NewPriorityQueue[thing](lc, codec)
	require.NoError(t, err)
	defer q.Close()

	in := []thing{{0, 9}, {5, 3}, {math.MinInt64, 5}, {math.MaxInt64, 7}, {42, 4}, {-1, 2}}
	for _, v := range in {
		require.NoError(t, q.Push(v))
	}
	size, err := q.Size()
	require.NoError(t, err)
	assert.Equal(t, uint64(len(in)), size)

	want := []thing{{-1, 2}, {5, 3}, {42, 4}, {math.MinInt64, 5}, {math.MaxInt64, 7}, {0, 9}}
	for _, w := range want {
		got, err := q.Top()
		require.NoError(t, err)
		assert.Equal(t, w, got)
		require.NoError(t, q.Pop())
	}
	empty, err := q.Empty()
	require.NoError(t, err)
	assert.True(t, empty)

	_, err = q.Top()
	assert.ErrorIs(t, err, tpgo.ErrEmptyQueue)
}

func TestFloat64Sort(t *testing.T) {
	lc, _ := startLifecycle(t)
	q, err := NewPriorityQueue[float64](lc, Float64Codec{})
	require.NoError(t, err)
	defer q.Close()

	for i := 100; i > 0; i-- {
		require.NoError(t, q.Push(float64(i)/4))
	}
	for i := 1; i <= 100; i++ {
		got, err := q.Top()
		require.NoError(t, err)
		require.Equal(t, float64(i)/4, got)
		require.NoError(t, q.Pop())
	}
}

func TestFIFOQueueOfInts(t *testing.T) {
	lc, _ := startLifecycle(t)
	codec, err := NewBinaryCodec[int64]()
	require.NoError(t, err)
	assert.Equal(t, tpgo.Bytes8, codec.EntrySize())

	q, err := NewFIFOQueue[int64](lc, codec)
	require.NoError(t, err)
	defer q.Close()

	in := []int64{0, 5, math.MinInt64, math.MaxInt64}
	for _, v := range in {
		require.NoError(t, q.Push(v))
	}
	size, err := q.Size()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), size)

	for _, want := range in {
		got, err := q.Front()
		require.NoError(t, err)
		assert.Equal(t, want, got)
		require.NoError(t, q.Pop())
	}
	empty, err := q.Empty()
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestStringFIFO(t *testing.T) {
	lc, _ := startLifecycle(t)
	codec, err := NewStringCodec(40)
	require.NoError(t, err)
	assert.Equal(t, tpgo.Bytes64, codec.EntrySize())
	assert.GreaterOrEqual(t, codec.MaxLen(), 40)

	q, err := NewFIFOQueue[string](lc, codec)
	require.NoError(t, err)
	defer q.Close()

	lines := []string{"", "alpha", "a somewhat longer line of text", strings.Repeat("z", codec.MaxLen())}
	for i := 0; i < 10; i++ {
		for _, l := range lines {
			require.NoError(t, q.Push(l))
		}
	}
	for i := 0; i < 10; i++ {
		for _, want := range lines {
			got, err := q.Front()
			require.NoError(t, err)
			require.Equal(t, want, got)
			require.NoError(t, q.Pop())
		}
	}

	err = q.Push(strings.Repeat("x", codec.MaxLen()+1))
	assert.ErrorIs(t, err, ErrValueTooLarge)
}

func TestCodecValidation(t *testing.T) {
	_, err := NewBinaryCodec[[]byte]()
	assert.Error(t, err, "slices have no fixed size")

	_, err = NewKeyedCodec(func(v []float64) float64 { return v[0] })
	assert.Error(t, err)

	type withSlice struct {
		ID   uint32
		Tags []uint16
	}
	_, err = NewBinaryCodec[withSlice]()
	assert.Error(t, err, "struct with a slice field")

	_, err = NewBinaryCodec[int]()
	assert.Error(t, err, "int has a platform-dependent size")

	_, err = NewBinaryCodec[string]()
	assert.Error(t, err)

	c, err := NewBinaryCodec[[3]uint64]()
	require.NoError(t, err)
	assert.Equal(t, tpgo.Bytes32, c.EntrySize())

	_, err = NewBinaryCodec[[2048]byte]()
	assert.ErrorIs(t, err, tpgo.ErrNoFittingSizeClass)

	_, err = NewStringCodec(2000)
	assert.ErrorIs(t, err, tpgo.ErrNoFittingSizeClass)

	_, err = NewStringCodec(-1)
	assert.Error(t, err)

	_, err = StringCodec{}.Decode([]byte{0xff, 0xff})
	assert.Error(t, err)
}

func TestAdapterClose(t *testing.T) {
	lc, eng := startLifecycle(t)
	q, err := NewFIFOQueue[string](lc, mustStringCodec(t, 8))
	require.NoError(t, err)

	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
	assert.True(t, q.IsClosed())
	assert.Equal(t, 1, eng.Destroys())
	assert.ErrorIs(t, q.Push("x"), tpgo.ErrClosed)
	_, err = q.Front()
	assert.ErrorIs(t, err, tpgo.ErrClosed)
}

func TestAdapterReleasedByStop(t *testing.T) {
	lc, _ := startLifecycle(t)
	q, err := NewPriorityQueue[float64](lc, Float64Codec{})
	require.NoError(t, err)
	require.NoError(t, q.Push(1))

	require.NoError(t, lc.Stop())
	assert.True(t, q.IsClosed())
	_, err = q.Size()
	assert.ErrorIs(t, err, tpgo.ErrClosed)
}

func mustStringCodec(t *testing.T, maxLen int) StringCodec {
	t.Helper()
	c, err := NewStringCodec(maxLen)
	require.NoError(t, err)
	return c
}

func TestPutEntryReportsRejectedBuffer(t *testing.T) {
	core, logs := observer.New(zapcore.DPanicLevel)
	prev := tpgo.Logger()
	tpgo.SetLogger(zap.New(core))
	t.Cleanup(func() { tpgo.SetLogger(prev) })

	pool := tpgo.NewEntryPool(tpgo.Bytes8, 0)
	buf, err := pool.Get()
	require.NoError(t, err)
	putEntry(pool, buf)
	assert.Equal(t, 0, logs.Len())

	putEntry(pool, make([]byte, 3))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "returning entry buffer", logs.All()[0].Message)
}
