package tpgo

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/obinnaokechukwu/tpgo/engine"
)

// Handle is exclusive ownership of one engine resource.
//
// The engine's destroy function runs at most once per handle, however many
// of Release, the garbage-collector cleanup and Lifecycle.Stop race to
// trigger it. Once released, the token is never passed to the engine again.
type Handle struct {
	// token is engine.InvalidToken once released.
	token   atomic.Uint64
	lc      *Lifecycle
	slot    uint64
	kind    string
	destroy func(engine.Token) error
}

// acquire creates an engine resource and wraps it in a registered handle.
func (lc *Lifecycle) acquire(kind string, create func(engine.Engine) (engine.Token, error), destroy func(engine.Token) error) (*Handle, error) {
	lc.mu.RLock()
	defer lc.mu.RUnlock()

	if !lc.running {
		return nil, ErrEngineNotRunning
	}
	t, err := create(lc.eng)
	if err != nil {
		return nil, err
	}
	if t == engine.InvalidToken {
		return nil, fmt.Errorf("tpgo: engine returned the invalid token for a new %s", kind)
	}

	h := &Handle{lc: lc, kind: kind, destroy: destroy}
	h.token.Store(uint64(t))
	h.slot = lc.handles.Register(h)
	return h, nil
}

// Token returns the engine token, or ErrClosed once released.
func (h *Handle) Token() (engine.Token, error) {
	t := engine.Token(h.token.Load())
	if t == engine.InvalidToken {
		return engine.InvalidToken, ErrClosed
	}
	return t, nil
}

// IsReleased reports whether the handle has been released.
func (h *Handle) IsReleased() bool {
	return h.token.Load() == uint64(engine.InvalidToken)
}

// Release destroys the engine resource. Calls after the first, including
// concurrent ones, do nothing and return nil.
func (h *Handle) Release() error {
	h.lc.mu.RLock()
	defer h.lc.mu.RUnlock()

	_, err := h.releaseLocked()
	return err
}

// releaseLocked performs the release transition. The caller holds the
// lifecycle gate, for reading or writing. It reports whether this call was
// the one that released the handle.
func (h *Handle) releaseLocked() (bool, error) {
	t := engine.Token(h.token.Swap(uint64(engine.InvalidToken)))
	if t == engine.InvalidToken {
		return false, nil
	}
	h.lc.handles.Unregister(h.slot)

	if !h.lc.running {
		// Stop sweeps every registered handle, so this means one escaped
		// registration. The engine is gone; destroying would crash.
		h.lc.loggerLocked().DPanic("live handle outside a running period",
			zap.String("kind", h.kind), zap.Uint64("token", uint64(t)))
		return true, nil
	}
	if err := h.destroy(t); err != nil {
		return true, fmt.Errorf("tpgo: destroying %s: %w", h.kind, err)
	}
	return true, nil
}

// do runs fn with the live token while holding the lifecycle gate.
func (h *Handle) do(fn func(engine.Token) error) error {
	h.lc.mu.RLock()
	defer h.lc.mu.RUnlock()

	t := engine.Token(h.token.Load())
	if t == engine.InvalidToken {
		return ErrClosed
	}
	if !h.lc.running {
		h.lc.loggerLocked().DPanic("live handle outside a running period",
			zap.String("kind", h.kind), zap.Uint64("token", uint64(t)))
		return ErrClosed
	}
	return fn(t)
}

// finalize is the garbage-collector cleanup for the handle's owner. It runs
// on a runtime goroutine, so nothing may escape it.
func (h *Handle) finalize() {
	log := h.lc.logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic releasing unreachable queue", zap.String("kind", h.kind), zap.Any("panic", r))
		}
	}()

	if h.IsReleased() {
		return
	}
	if err := h.Release(); err != nil {
		log.Warn("releasing unreachable queue", zap.String("kind", h.kind), zap.Error(err))
		return
	}
	log.Debug("released unreachable queue", zap.String("kind", h.kind))
}
