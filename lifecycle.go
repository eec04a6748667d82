package tpgo

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/obinnaokechukwu/tpgo/engine"
	"github.com/obinnaokechukwu/tpgo/internal/handles"
)

// Lifecycle owns one running period of an engine: Start initializes it,
// Stop force-releases every queue still open and then tears it down.
//
// Every engine call made through a Lifecycle holds its gate for reading, and
// Start and Stop hold it for writing, so no queue operation can reach an
// engine that has been torn down. Almost all programs use the package-level
// functions, which operate on Default().
type Lifecycle struct {
	mu      sync.RWMutex
	running bool
	eng     engine.Engine
	log     *zap.Logger
	budget  uint64
	hook    *exitHook
	handles *handles.Registry[Handle]
}

// NewLifecycle returns a stopped lifecycle. TPIE itself is process-wide, so
// separate lifecycles are only useful with separate in-process engines.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{handles: handles.New[Handle]()}
}

var defaultLifecycle = NewLifecycle()

// Default returns the lifecycle used by the package-level functions.
func Default() *Lifecycle {
	return defaultLifecycle
}

// Start initializes the engine with an internal memory budget of
// internalBytes, raised to MinInternalMemory if smaller. A zero budget uses
// Config.InternalMiB when one is configured.
//
// Start is a no-op if the lifecycle is already running, whatever the options.
//
// Unless WithoutExitHook is given, Start also watches for SIGINT and SIGTERM
// and stops the engine before letting the signal terminate the process.
func (lc *Lifecycle) Start(internalBytes uint64, opts ...Option) error {
	o := defaultStartOptions()
	for _, opt := range opts {
		opt(&o)
	}
	cfg := o.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()

	if lc.running {
		return nil
	}

	log := o.logger
	if log == nil && cfg.LogLevel != "" {
		l, err := NewLogger(cfg.LogLevel)
		if err != nil {
			return err
		}
		log = l
	}
	if log == nil {
		log = Logger()
	}

	if internalBytes == 0 {
		internalBytes = cfg.InternalBytes()
	}
	if internalBytes < MinInternalMemory {
		internalBytes = MinInternalMemory
	}

	eng := o.engine
	if eng == nil {
		var err error
		if eng, err = selectEngine(cfg, log); err != nil {
			return err
		}
	}
	if err := eng.Init(internalBytes); err != nil {
		return fmt.Errorf("tpgo: starting engine: %w", err)
	}

	dir, subdir := cfg.TempDir, cfg.TempSubdir
	if o.tempSet {
		dir, subdir = o.tempDir, o.tempSubdir
	}
	if dir != "" {
		if err := eng.SetTempDir(dir, subdir); err != nil {
			return multierr.Append(fmt.Errorf("tpgo: setting temp dir: %w", err), eng.Teardown())
		}
	}

	lc.eng = eng
	lc.log = log
	lc.budget = internalBytes
	lc.running = true
	if o.exitHook {
		lc.hook = installExitHook(lc)
	}

	log.Info("engine started",
		zap.String("engine", engineName(eng)),
		zap.Uint64("internal_bytes", internalBytes),
		zap.String("temp_dir", dir),
	)
	return nil
}

// Stop releases every queue that is still open, then tears the engine down.
// It is a no-op if the lifecycle is not running.
//
// Every step runs even if an earlier one fails; the returned error combines
// all failures. Queues released here report ErrClosed from then on.
func (lc *Lifecycle) Stop() error {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if !lc.running {
		return nil
	}
	if lc.hook != nil {
		lc.hook.remove()
		lc.hook = nil
	}

	var errs error
	forced := 0
	for _, h := range lc.handles.Drain() {
		released, err := h.releaseLocked()
		if released {
			forced++
		}
		errs = multierr.Append(errs, err)
	}
	if err := lc.eng.Teardown(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("tpgo: engine teardown: %w", err))
	}

	lc.log.Info("engine stopped", zap.Int("force_released", forced), zap.Error(errs))

	lc.running = false
	lc.eng = nil
	lc.budget = 0
	return errs
}

// Use starts the lifecycle, runs fn, and always stops it afterwards, even if
// fn panics. The result combines fn's error with Stop's.
func (lc *Lifecycle) Use(internalBytes uint64, fn func() error, opts ...Option) (err error) {
	if err := lc.Start(internalBytes, opts...); err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, lc.Stop())
	}()
	return fn()
}

// SetTempDir points the engine's temporary files at dir, or dir/subdir with
// a non-empty subdir. subdir is created if necessary.
func (lc *Lifecycle) SetTempDir(dir, subdir string) error {
	lc.mu.RLock()
	defer lc.mu.RUnlock()

	if !lc.running {
		return ErrEngineNotRunning
	}
	return lc.eng.SetTempDir(dir, subdir)
}

// ExternalBytes returns the bytes the engine currently holds in temporary
// files.
func (lc *Lifecycle) ExternalBytes() (uint64, error) {
	lc.mu.RLock()
	defer lc.mu.RUnlock()

	if !lc.running {
		return 0, ErrEngineNotRunning
	}
	return lc.eng.ExternalBytes(), nil
}

// Running reports whether the lifecycle is between Start and Stop.
func (lc *Lifecycle) Running() bool {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return lc.running
}

// InternalBytes returns the budget the engine was started with, after
// clamping, or 0 if stopped.
func (lc *Lifecycle) InternalBytes() uint64 {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return lc.budget
}

// LiveHandles returns the number of handles not yet released.
func (lc *Lifecycle) LiveHandles() int {
	return lc.handles.Count()
}

// Tracks reports whether h is registered with lc, so that Stop will release
// it if nothing else does first.
func (lc *Lifecycle) Tracks(h *Handle) bool {
	if h == nil || h.lc != lc {
		return false
	}
	return lc.handles.Lookup(h.slot) == h
}

func (lc *Lifecycle) logger() *zap.Logger {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return lc.loggerLocked()
}

// loggerLocked is logger for callers already holding the gate.
func (lc *Lifecycle) loggerLocked() *zap.Logger {
	if lc.log != nil {
		return lc.log
	}
	return Logger()
}

// Start starts the default lifecycle. See Lifecycle.Start.
func Start(internalBytes uint64, opts ...Option) error {
	return defaultLifecycle.Start(internalBytes, opts...)
}

// Stop stops the default lifecycle. See Lifecycle.Stop.
func Stop() error {
	return defaultLifecycle.Stop()
}

// Use runs fn inside a running period of the default lifecycle.
// See Lifecycle.Use.
func Use(internalBytes uint64, fn func() error, opts ...Option) error {
	return defaultLifecycle.Use(internalBytes, fn, opts...)
}

// SetTempDir configures the default lifecycle's engine.
// See Lifecycle.SetTempDir.
func SetTempDir(dir, subdir string) error {
	return defaultLifecycle.SetTempDir(dir, subdir)
}

// ExternalBytes queries the default lifecycle's engine.
func ExternalBytes() (uint64, error) {
	return defaultLifecycle.ExternalBytes()
}

// Running reports whether the default lifecycle is running.
func Running() bool {
	return defaultLifecycle.Running()
}
