//go:build (darwin || linux || freebsd) && (amd64 || arm64)

package native

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/obinnaokechukwu/tpgo/engine"
)

// Engine is the TPIE-backed engine.Engine.
//
// There is only one TPIE instance per process; every Engine value drives it.
type Engine struct {
	// sizes maps live tokens to their entry size so payload lengths can be
	// checked before raw pointers cross into C.
	sizes sync.Map // map[engine.Token]int
}

// Compile-time interface check.
var _ engine.Engine = (*Engine)(nil)

// Open loads libtpiego if necessary and returns an engine bound to it.
func Open() (*Engine, error) {
	if err := Load(); err != nil {
		return nil, err
	}
	return &Engine{}, nil
}

func statusErr(op string, code int32) error {
	switch code {
	case statusOK:
		return nil
	case statusEmpty:
		return engine.ErrEmptyQueue
	case statusUnsupportedSize:
		return engine.ErrUnsupportedEntrySize
	case statusOutOfMemory:
		return engine.ErrOutOfMemory
	default:
		return fmt.Errorf("tpgo: native %s failed: %s", op, tpiegoLastError())
	}
}

// Init calls tpie_init and sets the memory manager limit.
func (e *Engine) Init(internalBytes uint64) error {
	return statusErr("init", tpiegoInit(internalBytes))
}

// Teardown calls tpie_finish.
func (e *Engine) Teardown() error {
	tpiegoFinish()
	e.sizes.Clear()
	return nil
}

// SetTempDir forwards to tpie::tempname::set_default_path.
func (e *Engine) SetTempDir(dir, subdir string) error {
	return statusErr("set temp dir", tpiegoSetTempDir(dir, subdir))
}

// ExternalBytes returns TPIE's temporary file usage.
func (e *Engine) ExternalBytes() uint64 {
	return tpiegoExternalBytes()
}

// PriorityQueues returns the tpie::priority_queue operations.
func (e *Engine) PriorityQueues() engine.PriorityQueueOps {
	return dpqOps{e: e}
}

// FIFOQueues returns the tpie::queue operations.
func (e *Engine) FIFOQueues() engine.FIFOQueueOps {
	return fifoOps{e: e}
}

func (e *Engine) checkPayload(t engine.Token, payload []byte) error {
	v, ok := e.sizes.Load(t)
	if !ok {
		return engine.ErrInvalidToken
	}
	if n := v.(int); len(payload) != n {
		return fmt.Errorf("tpgo: native payload is %d bytes, queue entries are %d", len(payload), n)
	}
	return nil
}

func (e *Engine) create(op string, numBytes int, fn func(uint32, *uint64) int32) (engine.Token, error) {
	if !engine.IsSupportedEntrySize(numBytes) {
		return engine.InvalidToken, fmt.Errorf("%w: %d", engine.ErrUnsupportedEntrySize, numBytes)
	}
	var h uint64
	if err := statusErr(op, fn(uint32(numBytes), &h)); err != nil {
		return engine.InvalidToken, err
	}
	if h == 0 {
		return engine.InvalidToken, fmt.Errorf("tpgo: native %s returned a null handle", op)
	}
	t := engine.Token(h)
	e.sizes.Store(t, numBytes)
	return t, nil
}

func (e *Engine) destroy(op string, t engine.Token, fn func(uint64) int32) error {
	if _, ok := e.sizes.LoadAndDelete(t); !ok {
		return engine.ErrInvalidToken
	}
	return statusErr(op, fn(uint64(t)))
}

type dpqOps struct{ e *Engine }

func (o dpqOps) Create(numBytes int) (engine.Token, error) {
	return o.e.create("priority queue create", numBytes, dpqCreate)
}

func (o dpqOps) Destroy(t engine.Token) error {
	return o.e.destroy("priority queue destroy", t, dpqDestroy)
}

func (o dpqOps) Push(t engine.Token, priority float64, payload []byte) error {
	if err := o.e.checkPayload(t, payload); err != nil {
		return err
	}
	return statusErr("priority queue push", dpqPush(uint64(t), priority, unsafe.Pointer(unsafe.SliceData(payload))))
}

func (o dpqOps) Top(t engine.Token, dst []byte) (float64, error) {
	if err := o.e.checkPayload(t, dst); err != nil {
		return 0, err
	}
	var p float64
	err := statusErr("priority queue top", dpqTop(uint64(t), &p, unsafe.Pointer(unsafe.SliceData(dst))))
	return p, err
}

func (o dpqOps) Pop(t engine.Token) error {
	return statusErr("priority queue pop", dpqPop(uint64(t)))
}

func (o dpqOps) Size(t engine.Token) (uint64, error) {
	return dpqSize(uint64(t)), nil
}

func (o dpqOps) Empty(t engine.Token) (bool, error) {
	return dpqEmpty(uint64(t)), nil
}

type fifoOps struct{ e *Engine }

func (o fifoOps) Create(numBytes int) (engine.Token, error) {
	return o.e.create("fifo create", numBytes, fifoCreate)
}

func (o fifoOps) Destroy(t engine.Token) error {
	return o.e.destroy("fifo destroy", t, fifoDestroy)
}

func (o fifoOps) Push(t engine.Token, payload []byte) error {
	if err := o.e.checkPayload(t, payload); err != nil {
		return err
	}
	return statusErr("fifo push", fifoPush(uint64(t), unsafe.Pointer(unsafe.SliceData(payload))))
}

func (o fifoOps) Front(t engine.Token, dst []byte) error {
	if err := o.e.checkPayload(t, dst); err != nil {
		return err
	}
	return statusErr("fifo front", fifoFront(uint64(t), unsafe.Pointer(unsafe.SliceData(dst))))
}

func (o fifoOps) Pop(t engine.Token) error {
	return statusErr("fifo pop", fifoPop(uint64(t)))
}

func (o fifoOps) Size(t engine.Token) (uint64, error) {
	return fifoSize(uint64(t)), nil
}

func (o fifoOps) Empty(t engine.Token) (bool, error) {
	return fifoEmpty(uint64(t)), nil
}
