package tpgo

import (
	"go.uber.org/zap"

	"github.com/obinnaokechukwu/tpgo/engine"
)

// Option configures Start.
type Option func(*startOptions)

type startOptions struct {
	cfg        Config
	engine     engine.Engine
	logger     *zap.Logger
	tempDir    string
	tempSubdir string
	tempSet    bool
	exitHook   bool
}

func defaultStartOptions() startOptions {
	return startOptions{
		cfg:      DefaultConfig(),
		exitHook: true,
	}
}

// WithConfig applies cfg. Explicit options take precedence over it
// regardless of order.
func WithConfig(cfg Config) Option {
	return func(o *startOptions) {
		o.cfg = cfg
	}
}

// WithEngine uses e instead of selecting an engine from the config.
func WithEngine(e engine.Engine) Option {
	return func(o *startOptions) {
		o.engine = e
	}
}

// WithTempDir points TPIE's temporary files at dir, or dir/subdir with a
// non-empty subdir.
func WithTempDir(dir, subdir string) Option {
	return func(o *startOptions) {
		o.tempDir = dir
		o.tempSubdir = subdir
		o.tempSet = true
	}
}

// WithLogger logs lifecycle events to l for this running period instead of
// the package logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *startOptions) {
		o.logger = l
	}
}

// WithoutExitHook disables the SIGINT/SIGTERM watcher that stops the engine
// before the process dies. Use it when the program handles those signals
// itself.
func WithoutExitHook() Option {
	return func(o *startOptions) {
		o.exitHook = false
	}
}
