// Package engine defines the boundary between tpgo and an external-memory
// storage engine.
//
// An engine owns the actual queue data structures, which may live partly in
// a fixed internal memory budget and partly in temporary files. tpgo never
// looks inside them; it only holds opaque tokens and forwards calls.
//
// Two implementations ship with tpgo:
//   - engine/native binds the libtpiego shim around TPIE through purego.
//   - engine/memengine is a pure-Go engine with the same contract.
//
// Engines are not required to be safe for concurrent operations on the same
// token. Callers (tpgo's queue types) serialize access per queue.
package engine

import "errors"

// Token identifies one queue instance inside an engine.
// It is meaningless outside the engine that returned it.
type Token uint64

// InvalidToken is never returned by Create. tpgo uses it as the released
// sentinel for a handle.
const InvalidToken Token = 0

var (
	// ErrEmptyQueue is returned by Top, Front and Pop on an empty queue.
	ErrEmptyQueue = errors.New("engine: queue is empty")

	// ErrUnsupportedEntrySize is returned by Create for a payload size the
	// engine was not built for.
	ErrUnsupportedEntrySize = errors.New("engine: unsupported entry size")

	// ErrInvalidToken is returned when a token does not name a live queue.
	ErrInvalidToken = errors.New("engine: invalid token")

	// ErrOutOfMemory is returned when the internal memory budget cannot
	// accommodate another data structure.
	ErrOutOfMemory = errors.New("engine: internal memory budget exhausted")

	// ErrNotInitialized is returned for calls made before Init or after Teardown.
	ErrNotInitialized = errors.New("engine: not initialized")
)

// Engine is the process-wide external-memory engine.
//
// Init and Teardown bracket a running period. No other method may be
// called outside a running period; native engines fault hard if they are.
type Engine interface {
	// Init starts the engine with the given internal memory budget in bytes.
	Init(internalBytes uint64) error

	// Teardown releases all engine-global state. Every queue must already
	// have been destroyed.
	Teardown() error

	// SetTempDir points temporary storage at dir, or dir/subdir when subdir
	// is non-empty. subdir is created if necessary.
	SetTempDir(dir, subdir string) error

	// ExternalBytes returns the number of bytes currently held in temporary storage.
	ExternalBytes() uint64

	// PriorityQueues returns the priority queue operations.
	PriorityQueues() PriorityQueueOps

	// FIFOQueues returns the FIFO queue operations.
	FIFOQueues() FIFOQueueOps
}

// PriorityQueueOps operates on min-priority queues of fixed-size entries.
// Ordering among equal priorities is engine-defined and not stable.
type PriorityQueueOps interface {
	Create(numBytes int) (Token, error)
	Destroy(t Token) error

	// Push copies payload, which must be exactly numBytes long.
	Push(t Token, priority float64, payload []byte) error

	// Top copies the smallest entry's payload into dst and returns its priority.
	Top(t Token, dst []byte) (float64, error)

	Pop(t Token) error
	Size(t Token) (uint64, error)
	Empty(t Token) (bool, error)
}

// FIFOQueueOps operates on first-in-first-out queues of fixed-size entries.
type FIFOQueueOps interface {
	Create(numBytes int) (Token, error)
	Destroy(t Token) error

	// Push copies payload, which must be exactly numBytes long.
	Push(t Token, payload []byte) error

	// Front copies the oldest entry's payload into dst.
	Front(t Token, dst []byte) error

	Pop(t Token) error
	Size(t Token) (uint64, error)
	Empty(t Token) (bool, error)
}

// SupportedEntrySizes lists the payload sizes every engine must accept.
var SupportedEntrySizes = []int{8, 16, 32, 64, 128, 256, 512, 1024}

// IsSupportedEntrySize reports whether n is one of SupportedEntrySizes.
func IsSupportedEntrySize(n int) bool {
	for _, s := range SupportedEntrySizes {
		if s == n {
			return true
		}
	}
	return false
}
