package tpgo

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/obinnaokechukwu/tpgo/engine"
	"github.com/obinnaokechukwu/tpgo/engine/memengine"
)

// selectEngine picks the engine named by cfg.Engine.
func selectEngine(cfg Config, log *zap.Logger) (engine.Engine, error) {
	switch cfg.Engine {
	case EngineMemory:
		return newMemoryEngine(cfg), nil
	case EngineNative:
		return openNative(cfg, log)
	case "", EngineAuto:
		e, err := openNative(cfg, log)
		if err == nil {
			return e, nil
		}
		log.Warn("native engine unavailable, using memory engine", zap.Error(err))
		return newMemoryEngine(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, cfg.Engine)
	}
}

func newMemoryEngine(cfg Config) *memengine.Engine {
	return memengine.New(memengine.Options{
		QueueReserveBytes: cfg.Memory.QueueReserveBytes,
		MaxMemoryEntries:  cfg.Memory.MaxMemoryEntries,
	})
}

// engineName describes e for logs.
func engineName(e engine.Engine) string {
	if _, ok := e.(*memengine.Engine); ok {
		return "memory"
	}
	if isNative(e) {
		return "native"
	}
	return fmt.Sprintf("%T", e)
}
