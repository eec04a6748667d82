package tpgo

import (
	"errors"

	"github.com/obinnaokechukwu/tpgo/engine"
)

// Common errors
var (
	// ErrClosed indicates the queue or handle has already been released.
	ErrClosed = errors.New("tpgo: resource is closed")

	// ErrEngineNotRunning indicates a call that needs a running engine was
	// made before Start or after Stop.
	ErrEngineNotRunning = errors.New("tpgo: engine is not running")

	// ErrNoFittingSizeClass indicates a payload larger than the largest
	// entry size.
	ErrNoFittingSizeClass = errors.New("tpgo: no entry size fits")

	// ErrPayloadTooLarge indicates a payload longer than the queue's entry size.
	ErrPayloadTooLarge = errors.New("tpgo: payload larger than entry size")

	// ErrUnknownEngine indicates an unrecognized engine name in a Config.
	ErrUnknownEngine = errors.New("tpgo: unknown engine")
)

// Engine errors re-exported so callers need not import the engine package.
var (
	// ErrEmptyQueue is returned by Top, Front and Pop on an empty queue.
	// Check Empty first.
	ErrEmptyQueue = engine.ErrEmptyQueue

	// ErrOutOfMemory indicates the internal memory budget cannot hold
	// another queue.
	ErrOutOfMemory = engine.ErrOutOfMemory

	// ErrUnsupportedEntrySize indicates a size that is not an EntrySize.
	ErrUnsupportedEntrySize = engine.ErrUnsupportedEntrySize
)
