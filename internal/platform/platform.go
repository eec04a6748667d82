//go:build !ios && !android && (amd64 || arm64)

// Package platform provides platform detection for locating the native
// engine library.
package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"unsafe"
)

// Is64Bit indicates whether the platform is 64-bit.
// The native engine is only supported on 64-bit platforms because tokens are
// 64-bit pointers.
const Is64Bit = unsafe.Sizeof(uintptr(0)) == 8

// LibraryExtension is the file extension for shared libraries on this platform.
var LibraryExtension string

// LibraryPrefix is the prefix for shared library names on this platform.
var LibraryPrefix string

func init() {
	switch runtime.GOOS {
	case "darwin":
		LibraryExtension = ".dylib"
		LibraryPrefix = "lib"
	case "windows":
		LibraryExtension = ".dll"
		LibraryPrefix = ""
	default: // linux, freebsd, etc.
		LibraryExtension = ".so"
		LibraryPrefix = "lib"
	}
}

// FormatLibraryName returns the platform-specific library filename.
//
// Examples:
//   - Linux:   FormatLibraryName("tpiego") -> "libtpiego.so"
//   - macOS:   FormatLibraryName("tpiego") -> "libtpiego.dylib"
//   - Windows: FormatLibraryName("tpiego") -> "tpiego.dll"
func FormatLibraryName(name string) string {
	return fmt.Sprintf("%s%s%s", LibraryPrefix, name, LibraryExtension)
}

// SearchPaths returns the directories searched for shared libraries, in
// order: the loader path variable for this OS, the executable's directory
// and the usual system locations.
func SearchPaths() []string {
	var paths []string

	switch runtime.GOOS {
	case "darwin":
		if p := os.Getenv("DYLD_LIBRARY_PATH"); p != "" {
			paths = append(paths, filepath.SplitList(p)...)
		}
	case "windows":
		if p := os.Getenv("PATH"); p != "" {
			paths = append(paths, filepath.SplitList(p)...)
		}
	default:
		if p := os.Getenv("LD_LIBRARY_PATH"); p != "" {
			paths = append(paths, filepath.SplitList(p)...)
		}
	}

	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Dir(exe))
	}

	switch runtime.GOOS {
	case "darwin":
		paths = append(paths, "/opt/homebrew/lib", "/usr/local/lib")
	case "windows":
	default:
		paths = append(paths,
			"/usr/local/lib",
			"/usr/lib/x86_64-linux-gnu",
			"/usr/lib/aarch64-linux-gnu",
			"/usr/lib",
		)
	}
	return paths
}
