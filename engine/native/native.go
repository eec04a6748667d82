//go:build (darwin || linux || freebsd) && (amd64 || arm64)

// Package native binds the libtpiego shim around the TPIE external-memory
// library using purego, without cgo.
//
// The shim exports a flat C ABI:
//
//	int32_t     tpiego_init(uint64_t internal_bytes);
//	void        tpiego_finish(void);
//	int32_t     tpiego_set_temp_dir(const char *dir, const char *subdir);
//	uint64_t    tpiego_external_bytes(void);
//	const char *tpiego_last_error(void);
//	void        tpiego_set_log_callback(void (*cb)(int32_t level, const char *msg));
//
//	int32_t     tpiego_dpq_create(uint32_t num_bytes, uint64_t *out);
//	int32_t     tpiego_dpq_destroy(uint64_t h);
//	int32_t     tpiego_dpq_push(uint64_t h, double priority, const uint8_t *bytes);
//	int32_t     tpiego_dpq_top(uint64_t h, double *priority, uint8_t *bytes);
//	int32_t     tpiego_dpq_pop(uint64_t h);
//	uint64_t    tpiego_dpq_size(uint64_t h);
//	bool        tpiego_dpq_empty(uint64_t h);
//
//	(tpiego_fifo_* mirrors tpiego_dpq_* with front instead of top and no priority)
//
// Status codes are 0 on success, 1 for an empty queue, 2 for an unsupported
// entry size, 3 when TPIE's memory manager refuses an allocation, and -1 for
// anything else, with details from tpiego_last_error.
//
// TPIE terminates the process if any of these are called after
// tpiego_finish. This package does not guard against that; tpgo's lifecycle
// does.
//
// The library is searched for in the following locations (in order):
//  1. TPGO_LIB_DIR environment variable
//  2. LD_LIBRARY_PATH / DYLD_LIBRARY_PATH / PATH
//  3. Executable directory
//  4. Standard library paths (/usr/local/lib, /usr/lib, etc.)
//  5. The system loader's default search
package native

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ebitengine/purego"
	"github.com/obinnaokechukwu/tpgo/internal/platform"
)

// LibraryName is the base name of the shim library.
const LibraryName = "tpiego"

// ErrLibraryNotFound is returned when libtpiego cannot be found.
var ErrLibraryNotFound = errors.New("tpgo: native engine library not found")

// ErrNotLoaded is returned when engine functions are used before Load succeeds.
var ErrNotLoaded = errors.New("tpgo: native engine library not loaded")

var (
	loadMu  sync.Mutex
	lib     uintptr
	loaded  bool
	loadErr error
	libPath string
)

// Load finds and opens libtpiego and registers its functions.
// It is safe to call multiple times; the outcome of the first attempt is
// remembered.
func Load() error {
	loadMu.Lock()
	defer loadMu.Unlock()

	if loaded {
		return nil
	}
	if loadErr != nil {
		return loadErr
	}

	path, err := FindLibrary()
	if err != nil {
		loadErr = err
		return err
	}
	h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		loadErr = fmt.Errorf("tpgo: opening native engine at %s: %w", path, err)
		return loadErr
	}
	if err := registerBindings(h); err != nil {
		loadErr = err
		return err
	}

	lib = h
	libPath = path
	loaded = true
	return nil
}

// IsLoaded returns true if libtpiego has been loaded.
func IsLoaded() bool {
	loadMu.Lock()
	defer loadMu.Unlock()
	return loaded
}

// Path returns the path libtpiego was loaded from, or "" if it is not loaded.
func Path() string {
	loadMu.Lock()
	defer loadMu.Unlock()
	return libPath
}

// Status returns a human-readable description of the library state.
func Status() string {
	loadMu.Lock()
	defer loadMu.Unlock()

	if loaded {
		return fmt.Sprintf("loaded from %s", libPath)
	}
	if loadErr != nil {
		return fmt.Sprintf("not loaded: %s", loadErr)
	}
	return "not loaded (Load() not called)"
}

// FindLibrary returns the path of the first libtpiego found.
//
// If TPGO_LIB_DIR is set, only that directory is searched.
func FindLibrary() (string, error) {
	name := platform.FormatLibraryName(LibraryName)

	if dir := os.Getenv("TPGO_LIB_DIR"); dir != "" {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("%w: %s not in TPGO_LIB_DIR=%s", ErrLibraryNotFound, name, dir)
	}

	for _, dir := range platform.SearchPaths() {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	// Let the system loader try its own configuration (ld.so.cache etc.).
	if h, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL); err == nil {
		_ = purego.Dlclose(h)
		return name, nil
	}
	return "", fmt.Errorf("%w: %s", ErrLibraryNotFound, name)
}
