//go:build (darwin || linux || freebsd) && (amd64 || arm64)

package native

import (
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// LogLevel mirrors tpie::log_level.
type LogLevel int32

// Log level constants matching TPIE's LOG_* values.
const (
	LogFatal    LogLevel = 0 // Something went wrong, exit now
	LogError    LogLevel = 1 // Something went wrong, recovery possible
	LogWarning  LogLevel = 2 // Something unexpected but recovery possible
	LogInfo     LogLevel = 3 // Standard information
	LogAppDebug LogLevel = 4 // Application-level debugging
	LogDebug    LogLevel = 5 // TPIE internals
	LogMemDebug LogLevel = 6 // Memory manager tracing
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch {
	case l <= LogFatal:
		return "fatal"
	case l == LogError:
		return "error"
	case l == LogWarning:
		return "warning"
	case l == LogInfo:
		return "info"
	case l == LogAppDebug:
		return "app-debug"
	case l == LogDebug:
		return "debug"
	default:
		return "mem-debug"
	}
}

// LogCallback is called for each TPIE log message.
type LogCallback func(level LogLevel, message string)

var (
	logCallbackMu sync.Mutex
	logCallback   LogCallback
	logCBHandle   uintptr
)

// SetLogCallback routes TPIE log output to cb. Pass nil to restore
// TPIE's default stderr logging. The library must be loaded.
func SetLogCallback(cb LogCallback) error {
	if !IsLoaded() {
		return ErrNotLoaded
	}

	logCallbackMu.Lock()
	defer logCallbackMu.Unlock()

	if cb == nil {
		logCallback = nil
		tpiegoSetLogCallback(0)
		return nil
	}

	logCallback = cb

	// purego callbacks are never freed; create exactly one.
	if logCBHandle == 0 {
		logCBHandle = purego.NewCallback(logCallbackTrampoline)
	}
	tpiegoSetLogCallback(logCBHandle)
	return nil
}

// logCallbackTrampoline is called by the shim and forwards to the Go callback.
// Signature: void (*)(int32_t level, const char *msg)
func logCallbackTrampoline(_ purego.CDecl, level int32, msg *byte) {
	logCallbackMu.Lock()
	cb := logCallback
	logCallbackMu.Unlock()

	if cb == nil {
		return
	}
	cb(LogLevel(level), goString(msg, 4096))
}

// goString copies a NUL-terminated C string of at most limit bytes.
func goString(p *byte, limit int) string {
	if p == nil {
		return ""
	}
	n := 0
	for n < limit && *(*byte)(unsafe.Add(unsafe.Pointer(p), n)) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}
