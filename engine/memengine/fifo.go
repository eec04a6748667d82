package memengine

import (
	"github.com/obinnaokechukwu/tpgo/engine"
)

// fifoQueue keeps the oldest entries in head and the newest in tail.
// Everything between them lives in spilled pages, oldest first.
type fifoQueue struct {
	numBytes int
	maxMem   int
	spill    *spiller

	head    []byte
	headPos int
	pages   []*run
	tail    []byte
}

func newFIFOQueue(numBytes, maxMem int, sp *spiller) *fifoQueue {
	return &fifoQueue{numBytes: numBytes, maxMem: maxMem, spill: sp}
}

func (q *fifoQueue) headCount() int { return (len(q.head) - q.headPos) / q.numBytes }
func (q *fifoQueue) tailCount() int { return len(q.tail) / q.numBytes }

func (q *fifoQueue) push(payload []byte) error {
	if err := checkPayload(payload, q.numBytes); err != nil {
		return err
	}
	if len(q.pages) == 0 && len(q.tail) == 0 && q.headCount() < q.maxMem {
		if q.headPos >= q.maxMem*q.numBytes {
			q.head = append(q.head[:0], q.head[q.headPos:]...)
			q.headPos = 0
		}
		q.head = append(q.head, payload...)
		return nil
	}
	q.tail = append(q.tail, payload...)
	if q.tailCount() >= q.maxMem {
		r, err := q.spill.writeRun(q.tail, q.numBytes)
		if err != nil {
			q.tail = q.tail[:len(q.tail)-q.numBytes]
			return err
		}
		q.pages = append(q.pages, r)
		q.tail = q.tail[:0]
	}
	return nil
}

// fill makes sure head holds the oldest entries if there are any.
func (q *fifoQueue) fill() error {
	if q.headCount() > 0 {
		return nil
	}
	q.head, q.headPos = q.head[:0], 0
	if len(q.pages) > 0 {
		buf, err := q.pages[0].readAll(q.head)
		if err != nil {
			return err
		}
		q.head = buf
		q.pages[0] = nil
		q.pages = q.pages[1:]
		return nil
	}
	q.head, q.tail = q.tail, q.head[:0]
	return nil
}

func (q *fifoQueue) front(dst []byte) error {
	if err := q.fill(); err != nil {
		return err
	}
	if q.headCount() == 0 {
		return engine.ErrEmptyQueue
	}
	copy(dst, q.head[q.headPos:q.headPos+q.numBytes])
	return nil
}

func (q *fifoQueue) pop() error {
	if err := q.fill(); err != nil {
		return err
	}
	if q.headCount() == 0 {
		return engine.ErrEmptyQueue
	}
	q.headPos += q.numBytes
	return nil
}

func (q *fifoQueue) size() uint64 {
	n := q.headCount() + q.tailCount()
	for _, p := range q.pages {
		n += p.remaining
	}
	return uint64(n)
}

func (q *fifoQueue) discard() error {
	var firstErr error
	for _, p := range q.pages {
		if err := p.remove(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	q.pages = nil
	q.head, q.tail = nil, nil
	return firstErr
}

type fifoOps struct{ e *Engine }

func (o fifoOps) Create(numBytes int) (engine.Token, error) {
	e := o.e
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.reserve(numBytes)
	if err != nil {
		return engine.InvalidToken, err
	}
	e.fifos[t] = newFIFOQueue(numBytes, e.memoryEntries(numBytes, 2), e.spill())
	return t, nil
}

func (o fifoOps) Destroy(t engine.Token) error {
	e := o.e
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return engine.ErrNotInitialized
	}
	q, ok := e.fifos[t]
	if !ok {
		return engine.ErrInvalidToken
	}
	delete(e.fifos, t)
	e.unreserve()
	return q.discard()
}

func (o fifoOps) queue(t engine.Token) (*fifoQueue, error) {
	e := o.e
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.running {
		return nil, engine.ErrNotInitialized
	}
	q, ok := e.fifos[t]
	if !ok {
		return nil, engine.ErrInvalidToken
	}
	return q, nil
}

func (o fifoOps) Push(t engine.Token, payload []byte) error {
	q, err := o.queue(t)
	if err != nil {
		return err
	}
	return q.push(payload)
}

func (o fifoOps) Front(t engine.Token, dst []byte) error {
	q, err := o.queue(t)
	if err != nil {
		return err
	}
	return q.front(dst)
}

func (o fifoOps) Pop(t engine.Token) error {
	q, err := o.queue(t)
	if err != nil {
		return err
	}
	return q.pop()
}

func (o fifoOps) Size(t engine.Token) (uint64, error) {
	q, err := o.queue(t)
	if err != nil {
		return 0, err
	}
	return q.size(), nil
}

func (o fifoOps) Empty(t engine.Token) (bool, error) {
	q, err := o.queue(t)
	if err != nil {
		return false, err
	}
	return q.size() == 0, nil
}
