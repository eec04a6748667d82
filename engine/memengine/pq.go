package memengine

import (
	"cmp"
	"container/heap"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"slices"

	"github.com/obinnaokechukwu/tpgo/engine"
)

const priorityBytes = 8

type pqItem struct {
	priority float64
	data     []byte
}

type pqHeap []pqItem

func (h pqHeap) Len() int           { return len(h) }
func (h pqHeap) Less(i, j int) bool { return h[i].priority < h[j].priority }
func (h pqHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *pqHeap) Push(x any)        { *h = append(*h, x.(pqItem)) }
func (h *pqHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = pqItem{}
	*h = old[:n-1]
	return it
}

// sortedRun is a spilled, priority-ordered run with its smallest remaining
// record loaded.
type sortedRun struct {
	r    *run
	head []byte
}

func (s *sortedRun) priority() float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(s.head))
}

// runHeap orders sorted runs by their loaded head.
type runHeap []*sortedRun

func (h runHeap) Len() int           { return len(h) }
func (h runHeap) Less(i, j int) bool { return h[i].priority() < h[j].priority() }
func (h runHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *runHeap) Push(x any)        { *h = append(*h, x.(*sortedRun)) }
func (h *runHeap) Pop() any {
	old := *h
	n := len(old)
	sr := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return sr
}

// priorityQueue keeps up to maxMem entries in a heap and at most maxRuns
// sorted runs open on disk.
type priorityQueue struct {
	numBytes int
	maxMem   int
	maxRuns  int
	spill    *spiller
	mem      pqHeap
	runs     []*sortedRun
}

func newPriorityQueue(numBytes, maxMem, maxRuns int, sp *spiller) *priorityQueue {
	return &priorityQueue{
		numBytes: numBytes,
		maxMem:   maxMem,
		maxRuns:  max(maxRuns, minOpenRuns),
		spill:    sp,
		mem:      make(pqHeap, 0, min(maxMem, 1024)),
	}
}

func (q *priorityQueue) push(priority float64, payload []byte) error {
	if err := checkPayload(payload, q.numBytes); err != nil {
		return err
	}
	if len(q.mem) >= q.maxMem {
		if err := q.flush(); err != nil {
			return err
		}
	}
	heap.Push(&q.mem, pqItem{priority: priority, data: slices.Clone(payload)})
	return nil
}

// flush writes the in-memory entries to a new sorted run.
func (q *priorityQueue) flush() error {
	items := []pqItem(q.mem)
	slices.SortFunc(items, func(a, b pqItem) int { return cmp.Compare(a.priority, b.priority) })

	recSize := priorityBytes + q.numBytes
	buf := make([]byte, len(items)*recSize)
	for i, it := range items {
		rec := buf[i*recSize : (i+1)*recSize]
		binary.LittleEndian.PutUint64(rec, math.Float64bits(it.priority))
		copy(rec[priorityBytes:], it.data)
	}

	r, err := q.spill.writeRun(buf, recSize)
	if err != nil {
		return err
	}
	sr := &sortedRun{r: r, head: make([]byte, recSize)}
	if err := r.next(sr.head); err != nil && !errors.Is(err, io.EOF) {
		_ = r.remove()
		return err
	}
	q.runs = append(q.runs, sr)
	q.mem = q.mem[:0]
	if len(q.runs) > q.maxRuns {
		return q.compact()
	}
	return nil
}

// compact merges the smallest half of the open runs into one, keeping the
// number of open files and reader buffers within maxRuns. Merging the
// smallest runs first means each entry is rewritten O(log n) times.
func (q *priorityQueue) compact() error {
	slices.SortFunc(q.runs, func(a, b *sortedRun) int { return cmp.Compare(a.r.remaining, b.r.remaining) })
	k := max(len(q.runs)/2+1, 2)
	merged, err := q.merge(q.runs[:k])
	if err != nil {
		return err
	}
	q.runs = append(q.runs[:0], append([]*sortedRun{merged}, q.runs[k:]...)...)
	return nil
}

// merge writes the entries of srcs, in priority order, to a new run. The
// sources are consumed and their files removed.
func (q *priorityQueue) merge(srcs []*sortedRun) (*sortedRun, error) {
	recSize := priorityBytes + q.numBytes
	w, err := q.spill.create(recSize)
	if err != nil {
		return nil, err
	}

	h := runHeap(slices.Clone(srcs))
	heap.Init(&h)
	for h.Len() > 0 {
		sr := h[0]
		if err := w.write(sr.head); err != nil {
			w.abort()
			return nil, err
		}
		switch err := sr.r.next(sr.head); {
		case errors.Is(err, io.EOF):
			heap.Pop(&h)
		case err != nil:
			w.abort()
			return nil, err
		default:
			heap.Fix(&h, 0)
		}
	}

	r, err := w.finish()
	if err != nil {
		return nil, err
	}
	out := &sortedRun{r: r, head: make([]byte, recSize)}
	if err := r.next(out.head); err != nil {
		_ = r.remove()
		return nil, err
	}
	return out, nil
}

// minSource returns -1 for the in-memory heap or the index of the run
// holding the smallest entry. ok is false when the queue is empty.
func (q *priorityQueue) minSource() (src int, ok bool) {
	src = -2
	var best float64
	if len(q.mem) > 0 {
		src, best = -1, q.mem[0].priority
	}
	for i, sr := range q.runs {
		if p := sr.priority(); src == -2 || p < best {
			src, best = i, p
		}
	}
	return src, src != -2
}

func (q *priorityQueue) top(dst []byte) (float64, error) {
	src, ok := q.minSource()
	if !ok {
		return 0, engine.ErrEmptyQueue
	}
	if src == -1 {
		copy(dst, q.mem[0].data)
		return q.mem[0].priority, nil
	}
	sr := q.runs[src]
	copy(dst, sr.head[priorityBytes:])
	return sr.priority(), nil
}

func (q *priorityQueue) pop() error {
	src, ok := q.minSource()
	if !ok {
		return engine.ErrEmptyQueue
	}
	if src == -1 {
		heap.Pop(&q.mem)
		return nil
	}
	sr := q.runs[src]
	err := sr.r.next(sr.head)
	if errors.Is(err, io.EOF) {
		q.runs = slices.Delete(q.runs, src, src+1)
		return nil
	}
	return err
}

func (q *priorityQueue) size() uint64 {
	n := uint64(len(q.mem))
	for _, sr := range q.runs {
		// The loaded head is no longer counted in remaining.
		n += uint64(sr.r.remaining) + 1
	}
	return n
}

func (q *priorityQueue) discard() error {
	var firstErr error
	for _, sr := range q.runs {
		if err := sr.r.remove(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	q.runs = nil
	q.mem = nil
	return firstErr
}

type pqOps struct{ e *Engine }

func (o pqOps) Create(numBytes int) (engine.Token, error) {
	e := o.e
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.reserve(numBytes)
	if err != nil {
		return engine.InvalidToken, err
	}
	mem, runs := e.pqLayout(priorityBytes + numBytes)
	e.pqs[t] = newPriorityQueue(numBytes, mem, runs, e.spill())
	return t, nil
}

func (o pqOps) Destroy(t engine.Token) error {
	e := o.e
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return engine.ErrNotInitialized
	}
	q, ok := e.pqs[t]
	if !ok {
		return engine.ErrInvalidToken
	}
	delete(e.pqs, t)
	e.unreserve()
	return q.discard()
}

func (o pqOps) queue(t engine.Token) (*priorityQueue, error) {
	e := o.e
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.running {
		return nil, engine.ErrNotInitialized
	}
	q, ok := e.pqs[t]
	if !ok {
		return nil, engine.ErrInvalidToken
	}
	return q, nil
}

func (o pqOps) Push(t engine.Token, priority float64, payload []byte) error {
	q, err := o.queue(t)
	if err != nil {
		return err
	}
	return q.push(priority, payload)
}

func (o pqOps) Top(t engine.Token, dst []byte) (float64, error) {
	q, err := o.queue(t)
	if err != nil {
		return 0, err
	}
	return q.top(dst)
}

func (o pqOps) Pop(t engine.Token) error {
	q, err := o.queue(t)
	if err != nil {
		return err
	}
	return q.pop()
}

func (o pqOps) Size(t engine.Token) (uint64, error) {
	q, err := o.queue(t)
	if err != nil {
		return 0, err
	}
	return q.size(), nil
}

func (o pqOps) Empty(t engine.Token) (bool, error) {
	q, err := o.queue(t)
	if err != nil {
		return false, err
	}
	return q.size() == 0, nil
}
