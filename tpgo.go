// Package tpgo provides Go access to TPIE, an external-memory algorithms
// engine, without cgo.
//
// TPIE keeps its data structures in a fixed internal memory budget and moves
// whatever does not fit into temporary files. tpgo exposes two of them, a
// min-priority queue and a FIFO queue of fixed-size entries, and takes care
// of the part that is easy to get wrong from a garbage-collected language:
// every engine resource is destroyed exactly once, and nothing ever touches
// the engine after it has been torn down.
//
// A program brackets its use of the engine with Start and Stop (or Use):
//
//	if err := tpgo.Start(64 * tpgo.MiB); err != nil {
//		return err
//	}
//	defer tpgo.Stop()
//
//	q, err := tpgo.NewPriorityQueue(tpgo.Bytes8)
//	if err != nil {
//		return err
//	}
//	defer q.Close()
//
// Queues should be closed explicitly. A queue that becomes unreachable is
// eventually released by the garbage collector, and Stop force-releases any
// queue still open, but neither happens at a predictable time.
//
// The engine is loaded from libtpiego when it can be found (see
// engine/native). Otherwise tpgo falls back to engine/memengine, a pure-Go
// engine with the same contract.
//
// For typed values, use the serialization package.
package tpgo

import "github.com/obinnaokechukwu/tpgo/engine"

// Version is the tpgo release.
const Version = "0.3.0"

// Byte-size helpers for memory budgets.
const (
	KiB uint64 = 1 << 10
	MiB uint64 = 1 << 20
	GiB uint64 = 1 << 30
)

// MinInternalMemory is the smallest internal memory budget TPIE accepts.
// Smaller requests to Start are raised to it.
const MinInternalMemory = 16 * MiB

// Re-export the engine contract for convenience.
type (
	// Engine is an external-memory engine implementation.
	Engine = engine.Engine

	// Token identifies one queue inside an engine.
	Token = engine.Token
)
