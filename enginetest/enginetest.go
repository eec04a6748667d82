// Package enginetest provides an engine.Engine decorator for tests.
//
// The decorator counts every call, tracks which tokens are live, and panics
// on anything the native engine would crash on: a call outside a running
// period, or a destroy of a token that is not live. A test that completes
// without a panic never crossed the native engine's safety boundary.
package enginetest

import (
	"fmt"
	"slices"
	"sync"

	"github.com/obinnaokechukwu/tpgo/engine"
	"github.com/obinnaokechukwu/tpgo/engine/memengine"
)

// Operation names reported by Calls and Log.
const (
	OpInit          = "init"
	OpTeardown      = "teardown"
	OpSetTempDir    = "set_temp_dir"
	OpExternalBytes = "external_bytes"

	OpPQCreate  = "pq.create"
	OpPQDestroy = "pq.destroy"
	OpPQPush    = "pq.push"
	OpPQTop     = "pq.top"
	OpPQPop     = "pq.pop"
	OpPQSize    = "pq.size"
	OpPQEmpty   = "pq.empty"

	OpFIFOCreate  = "fifo.create"
	OpFIFODestroy = "fifo.destroy"
	OpFIFOPush    = "fifo.push"
	OpFIFOFront   = "fifo.front"
	OpFIFOPop     = "fifo.pop"
	OpFIFOSize    = "fifo.size"
	OpFIFOEmpty   = "fifo.empty"
)

// Engine wraps another engine and records how it is used.
type Engine struct {
	inner engine.Engine

	mu          sync.Mutex
	running     bool
	calls       map[string]int
	log         []string
	live        map[engine.Token]string
	destroyErr  error
	teardownErr error
}

// Compile-time interface check.
var _ engine.Engine = (*Engine)(nil)

// Wrap decorates inner.
func Wrap(inner engine.Engine) *Engine {
	return &Engine{
		inner: inner,
		calls: make(map[string]int),
		live:  make(map[engine.Token]string),
	}
}

// NewMemory wraps a fresh memengine with opts.
func NewMemory(opts memengine.Options) *Engine {
	return Wrap(memengine.New(opts))
}

// Inner returns the wrapped engine.
func (e *Engine) Inner() engine.Engine {
	return e.inner
}

// FailDestroy makes every later destroy return err after destroying the
// queue. Pass nil to stop failing.
func (e *Engine) FailDestroy(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroyErr = err
}

// FailTeardown makes every later teardown return err after tearing down.
func (e *Engine) FailTeardown(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.teardownErr = err
}

// Calls returns how many times op was called.
func (e *Engine) Calls(op string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[op]
}

// Destroys returns the total number of queue destroys of either kind.
func (e *Engine) Destroys() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[OpPQDestroy] + e.calls[OpFIFODestroy]
}

// Live returns the number of queues created and not yet destroyed.
func (e *Engine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.live)
}

// Log returns every operation in call order.
func (e *Engine) Log() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.log)
}

// Running reports whether the engine is between Init and Teardown.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// enter records op and faults if the engine is not running.
// Callers hold e.mu.
func (e *Engine) enter(op string) {
	if !e.running {
		panic(fmt.Sprintf("enginetest: %s called outside a running period", op))
	}
	e.record(op)
}

func (e *Engine) record(op string) {
	e.calls[op]++
	e.log = append(e.log, op)
}

func (e *Engine) check(op string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enter(op)
}

func (e *Engine) checkToken(op string, t engine.Token) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enter(op)
	if _, ok := e.live[t]; !ok {
		panic(fmt.Sprintf("enginetest: %s on token %d which is not live", op, t))
	}
}

func (e *Engine) Init(internalBytes uint64) error {
	e.mu.Lock()
	e.record(OpInit)
	e.mu.Unlock()

	if err := e.inner.Init(internalBytes); err != nil {
		return err
	}
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()
	return nil
}

func (e *Engine) Teardown() error {
	e.mu.Lock()
	e.record(OpTeardown)
	wasRunning := e.running
	e.running = false
	clear(e.live)
	failErr := e.teardownErr
	e.mu.Unlock()

	if !wasRunning {
		return nil
	}
	if err := e.inner.Teardown(); err != nil {
		return err
	}
	return failErr
}

func (e *Engine) SetTempDir(dir, subdir string) error {
	e.check(OpSetTempDir)
	return e.inner.SetTempDir(dir, subdir)
}

func (e *Engine) ExternalBytes() uint64 {
	e.check(OpExternalBytes)
	return e.inner.ExternalBytes()
}

func (e *Engine) PriorityQueues() engine.PriorityQueueOps {
	return pqOps{e: e, inner: e.inner.PriorityQueues()}
}

func (e *Engine) FIFOQueues() engine.FIFOQueueOps {
	return fifoOps{e: e, inner: e.inner.FIFOQueues()}
}

func (e *Engine) created(kind string, t engine.Token, err error) (engine.Token, error) {
	if err != nil {
		return t, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.live[t] = kind
	return t, nil
}

// claim checks that t is live, forgets it, and returns the injected destroy
// error. A fault leaves e.mu unlocked.
func (e *Engine) claim(op string, t engine.Token) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enter(op)
	if _, ok := e.live[t]; !ok {
		panic(fmt.Sprintf("enginetest: %s on token %d which is not live", op, t))
	}
	delete(e.live, t)
	return e.destroyErr
}

func (e *Engine) destroyed(op string, t engine.Token, destroy func(engine.Token) error) error {
	failErr := e.claim(op, t)
	if err := destroy(t); err != nil {
		return err
	}
	return failErr
}

type pqOps struct {
	e     *Engine
	inner engine.PriorityQueueOps
}

func (o pqOps) Create(numBytes int) (engine.Token, error) {
	o.e.check(OpPQCreate)
	t, err := o.inner.Create(numBytes)
	return o.e.created("pq", t, err)
}

func (o pqOps) Destroy(t engine.Token) error {
	return o.e.destroyed(OpPQDestroy, t, o.inner.Destroy)
}

func (o pqOps) Push(t engine.Token, priority float64, payload []byte) error {
	o.e.checkToken(OpPQPush, t)
	return o.inner.Push(t, priority, payload)
}

func (o pqOps) Top(t engine.Token, dst []byte) (float64, error) {
	o.e.checkToken(OpPQTop, t)
	return o.inner.Top(t, dst)
}

func (o pqOps) Pop(t engine.Token) error {
	o.e.checkToken(OpPQPop, t)
	return o.inner.Pop(t)
}

func (o pqOps) Size(t engine.Token) (uint64, error) {
	o.e.checkToken(OpPQSize, t)
	return o.inner.Size(t)
}

func (o pqOps) Empty(t engine.Token) (bool, error) {
	o.e.checkToken(OpPQEmpty, t)
	return o.inner.Empty(t)
}

type fifoOps struct {
	e     *Engine
	inner engine.FIFOQueueOps
}

func (o fifoOps) Create(numBytes int) (engine.Token, error) {
	o.e.check(OpFIFOCreate)
	t, err := o.inner.Create(numBytes)
	return o.e.created("fifo", t, err)
}

func (o fifoOps) Destroy(t engine.Token) error {
	return o.e.destroyed(OpFIFODestroy, t, o.inner.Destroy)
}

func (o fifoOps) Push(t engine.Token, payload []byte) error {
	o.e.checkToken(OpFIFOPush, t)
	return o.inner.Push(t, payload)
}

func (o fifoOps) Front(t engine.Token, dst []byte) error {
	o.e.checkToken(OpFIFOFront, t)
	return o.inner.Front(t, dst)
}

func (o fifoOps) Pop(t engine.Token) error {
	o.e.checkToken(OpFIFOPop, t)
	return o.inner.Pop(t)
}

func (o fifoOps) Size(t engine.Token) (uint64, error) {
	o.e.checkToken(OpFIFOSize, t)
	return o.inner.Size(t)
}

func (o fifoOps) Empty(t engine.Token) (bool, error) {
	o.e.checkToken(OpFIFOEmpty, t)
	return o.inner.Empty(t)
}
