//go:build (darwin || linux || freebsd) && (amd64 || arm64)

package native

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"
)

// Status codes returned by the shim.
const (
	statusOK              int32 = 0
	statusEmpty           int32 = 1
	statusUnsupportedSize int32 = 2
	statusOutOfMemory     int32 = 3
	statusError           int32 = -1
)

// Global function bindings
var (
	tpiegoInit           func(internalBytes uint64) int32
	tpiegoFinish         func()
	tpiegoSetTempDir     func(dir, subdir string) int32
	tpiegoExternalBytes  func() uint64
	tpiegoLastError      func() string
	tpiegoSetLogCallback func(cb uintptr)
)

// Priority queue bindings
var (
	dpqCreate  func(numBytes uint32, out *uint64) int32
	dpqDestroy func(h uint64) int32
	dpqPush    func(h uint64, priority float64, bytes unsafe.Pointer) int32
	dpqTop     func(h uint64, priority *float64, bytes unsafe.Pointer) int32
	dpqPop     func(h uint64) int32
	dpqSize    func(h uint64) uint64
	dpqEmpty   func(h uint64) bool
)

// FIFO queue bindings
var (
	fifoCreate  func(numBytes uint32, out *uint64) int32
	fifoDestroy func(h uint64) int32
	fifoPush    func(h uint64, bytes unsafe.Pointer) int32
	fifoFront   func(h uint64, bytes unsafe.Pointer) int32
	fifoPop     func(h uint64) int32
	fifoSize    func(h uint64) uint64
	fifoEmpty   func(h uint64) bool
)

func registerBindings(h uintptr) (err error) {
	// purego.RegisterLibFunc panics if a symbol is missing; every symbol is required.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tpgo: native engine library is incomplete: %v", r)
		}
	}()

	purego.RegisterLibFunc(&tpiegoInit, h, "tpiego_init")
	purego.RegisterLibFunc(&tpiegoFinish, h, "tpiego_finish")
	purego.RegisterLibFunc(&tpiegoSetTempDir, h, "tpiego_set_temp_dir")
	purego.RegisterLibFunc(&tpiegoExternalBytes, h, "tpiego_external_bytes")
	purego.RegisterLibFunc(&tpiegoLastError, h, "tpiego_last_error")
	purego.RegisterLibFunc(&tpiegoSetLogCallback, h, "tpiego_set_log_callback")

	purego.RegisterLibFunc(&dpqCreate, h, "tpiego_dpq_create")
	purego.RegisterLibFunc(&dpqDestroy, h, "tpiego_dpq_destroy")
	purego.RegisterLibFunc(&dpqPush, h, "tpiego_dpq_push")
	purego.RegisterLibFunc(&dpqTop, h, "tpiego_dpq_top")
	purego.RegisterLibFunc(&dpqPop, h, "tpiego_dpq_pop")
	purego.RegisterLibFunc(&dpqSize, h, "tpiego_dpq_size")
	purego.RegisterLibFunc(&dpqEmpty, h, "tpiego_dpq_empty")

	purego.RegisterLibFunc(&fifoCreate, h, "tpiego_fifo_create")
	purego.RegisterLibFunc(&fifoDestroy, h, "tpiego_fifo_destroy")
	purego.RegisterLibFunc(&fifoPush, h, "tpiego_fifo_push")
	purego.RegisterLibFunc(&fifoFront, h, "tpiego_fifo_front")
	purego.RegisterLibFunc(&fifoPop, h, "tpiego_fifo_pop")
	purego.RegisterLibFunc(&fifoSize, h, "tpiego_fifo_size")
	purego.RegisterLibFunc(&fifoEmpty, h, "tpiego_fifo_empty")
	return nil
}

// Lib returns the libtpiego handle, or 0 if it is not loaded.
func Lib() uintptr {
	loadMu.Lock()
	defer loadMu.Unlock()
	return lib
}
