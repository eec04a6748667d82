//go:build (darwin || linux || freebsd) && (amd64 || arm64)

package native

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/obinnaokechukwu/tpgo/engine"
	"github.com/obinnaokechukwu/tpgo/internal/platform"
)

// requireLibrary skips the test when libtpiego is not installed.
func requireLibrary(t *testing.T) *Engine {
	t.Helper()
	e, err := Open()
	if err != nil {
		t.Skipf("native engine not available: %v", err)
		return nil
	}
	return e
}

func TestFindLibrary_RespectsTPGOLibDir(t *testing.T) {
	dir := t.TempDir()
	fake := filepath.Join(dir, platform.FormatLibraryName(LibraryName))
	if err := os.WriteFile(fake, []byte("not a real library"), 0o644); err != nil {
		t.Fatalf("write fake library: %v", err)
	}
	t.Setenv("TPGO_LIB_DIR", dir)

	got, err := FindLibrary()
	if err != nil {
		t.Fatalf("FindLibrary error: %v", err)
	}
	if got != fake {
		t.Fatalf("expected %q, got %q", fake, got)
	}
}

func TestFindLibrary_TPGOLibDirNotFound(t *testing.T) {
	t.Setenv("TPGO_LIB_DIR", t.TempDir())

	_, err := FindLibrary()
	if err == nil {
		t.Fatal("expected error when TPGO_LIB_DIR doesn't contain the library")
	}
	if !strings.Contains(err.Error(), "TPGO_LIB_DIR") {
		t.Errorf("error should mention TPGO_LIB_DIR: %v", err)
	}
}

func TestLogLevelString(t *testing.T) {
	cases := map[LogLevel]string{
		LogFatal:    "fatal",
		LogError:    "error",
		LogWarning:  "warning",
		LogInfo:     "info",
		LogDebug:    "debug",
		LogMemDebug: "mem-debug",
	}
	for lvl, want := range cases {
		if got := lvl.String(); got != want {
			t.Errorf("LogLevel(%d).String() = %q, want %q", lvl, got, want)
		}
	}
}

func TestStatusErr(t *testing.T) {
	if err := statusErr("op", statusOK); err != nil {
		t.Errorf("statusOK should map to nil, got %v", err)
	}
	if err := statusErr("op", statusEmpty); err != engine.ErrEmptyQueue {
		t.Errorf("statusEmpty should map to ErrEmptyQueue, got %v", err)
	}
	if err := statusErr("op", statusUnsupportedSize); err != engine.ErrUnsupportedEntrySize {
		t.Errorf("statusUnsupportedSize should map to ErrUnsupportedEntrySize, got %v", err)
	}
	if err := statusErr("op", statusOutOfMemory); err != engine.ErrOutOfMemory {
		t.Errorf("statusOutOfMemory should map to ErrOutOfMemory, got %v", err)
	}
}

// Integration test - only runs if libtpiego is available
func TestPriorityQueueRoundTrip(t *testing.T) {
	e := requireLibrary(t)
	if e == nil {
		return
	}
	if err := e.Init(16 << 20); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer e.Teardown()

	ops := e.PriorityQueues()
	tok, err := ops.Create(8)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer ops.Destroy(tok)

	buf := make([]byte, 8)
	for _, p := range []float64{3, 1, 2} {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(p*10))
		if err := ops.Push(tok, p, buf); err != nil {
			t.Fatalf("Push failed: %v", err)
		}
	}
	for _, want := range []float64{1, 2, 3} {
		p, err := ops.Top(tok, buf)
		if err != nil {
			t.Fatalf("Top failed: %v", err)
		}
		if p != want {
			t.Errorf("priority: got %v want %v", p, want)
		}
		if got := math.Float64frombits(binary.LittleEndian.Uint64(buf)); got != want*10 {
			t.Errorf("payload: got %v want %v", got, want*10)
		}
		if err := ops.Pop(tok); err != nil {
			t.Fatalf("Pop failed: %v", err)
		}
	}
	if empty, _ := ops.Empty(tok); !empty {
		t.Error("queue should be empty")
	}
}
