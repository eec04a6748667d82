//go:build !((darwin || linux || freebsd) && (amd64 || arm64))

package tpgo

import (
	"errors"

	"go.uber.org/zap"

	"github.com/obinnaokechukwu/tpgo/engine"
)

var errNativeUnsupported = errors.New("tpgo: native engine is not supported on this platform")

func openNative(Config, *zap.Logger) (engine.Engine, error) {
	return nil, errNativeUnsupported
}

func isNative(engine.Engine) bool { return false }

// NativeStatus describes whether libtpiego is loaded, and from where.
func NativeStatus() string {
	return "unsupported on this platform"
}

// FindNativeLibrary returns the libtpiego path the native engine would load.
func FindNativeLibrary() (string, error) {
	return "", errNativeUnsupported
}
