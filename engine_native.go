//go:build (darwin || linux || freebsd) && (amd64 || arm64)

package tpgo

import (
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/obinnaokechukwu/tpgo/engine"
	"github.com/obinnaokechukwu/tpgo/engine/native"
)

func openNative(cfg Config, log *zap.Logger) (engine.Engine, error) {
	if cfg.LibDir != "" && os.Getenv(EnvLibDir) == "" {
		if err := os.Setenv(EnvLibDir, cfg.LibDir); err != nil {
			return nil, err
		}
	}
	e, err := native.Open()
	if err != nil {
		return nil, err
	}
	if err := native.SetLogCallback(nativeLogger(log)); err != nil {
		log.Warn("routing TPIE log output failed", zap.Error(err))
	}
	return e, nil
}

func nativeLogger(log *zap.Logger) native.LogCallback {
	log = log.Named("tpie")
	return func(level native.LogLevel, msg string) {
		msg = strings.TrimRight(msg, "\n")
		if msg == "" {
			return
		}
		switch {
		case level <= native.LogError:
			log.Error(msg)
		case level == native.LogWarning:
			log.Warn(msg)
		case level == native.LogInfo:
			log.Info(msg)
		default:
			log.Debug(msg, zap.Stringer("tpie_level", level))
		}
	}
}

func isNative(e engine.Engine) bool {
	_, ok := e.(*native.Engine)
	return ok
}

// NativeStatus describes whether libtpiego is loaded, and from where.
func NativeStatus() string {
	return native.Status()
}

// FindNativeLibrary returns the libtpiego path the native engine would load.
func FindNativeLibrary() (string, error) {
	return native.FindLibrary()
}
