package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obinnaokechukwu/tpgo"
)

// run executes the CLI on the memory engine with stdin set to input.
func run(t *testing.T, input string, args ...string) (string, string, error) {
	t.Helper()
	for _, k := range []string{tpgo.EnvEngine, tpgo.EnvInternalMiB, tpgo.EnvTempDir, tpgo.EnvTempSubdir, tpgo.EnvLogLevel} {
		t.Setenv(k, "")
	}

	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--engine", "memory", "--tmpdir", t.TempDir()))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "tpgo", cmd.Use)
	assert.Equal(t, tpgo.Version, cmd.Version)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"sort", "spool", "info"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)

	for _, name := range []string{"config", "engine", "mem-mib", "tmpdir"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "flag --%s", name)
	}
}

func TestInvalidEngine(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"info", "--engine", "quantum"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSort(t *testing.T) {
	out, _, err := run(t, "9\n3\n\n5\n7\n4\n2\n-1.5\n", "sort")
	require.NoError(t, err)
	assert.Equal(t, "-1.5\n2\n3\n4\n5\n7\n9\n", out)
	assert.False(t, tpgo.Running(), "engine stopped after the command")
}

func TestSortReverse(t *testing.T) {
	out, _, err := run(t, "1\n3\n2\n", "sort", "--reverse")
	require.NoError(t, err)
	assert.Equal(t, "3\n2\n1\n", out)
}

func TestSortFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nums.txt")
	var in strings.Builder
	for i := 2000; i > 0; i-- {
		fmt.Fprintln(&in, i)
	}
	require.NoError(t, os.WriteFile(path, []byte(in.String()), 0o644))

	out, _, err := run(t, "", "sort", path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2000)
	assert.Equal(t, "1", lines[0])
	assert.Equal(t, "2000", lines[1999])
}

func TestSortBadInput(t *testing.T) {
	_, _, err := run(t, "1\nseven\n", "sort")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "line 2")
	assert.False(t, tpgo.Running())
}

func TestSortMissingFile(t *testing.T) {
	_, _, err := run(t, "", "sort", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSpool(t *testing.T) {
	input := "first\n\nthird line\nfourth\n"
	out, _, err := run(t, input, "spool", "--max-line", "16")
	require.NoError(t, err)
	assert.Equal(t, input, out)
}

func TestSpoolLineTooLong(t *testing.T) {
	_, _, err := run(t, "short\n"+strings.Repeat("x", 200)+"\n", "spool", "--max-line", "16")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "line 2")
}

func TestSpoolInvalidMaxLine(t *testing.T) {
	_, _, err := run(t, "", "spool", "--max-line", "5000")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestVerboseLogsToStderr(t *testing.T) {
	_, stderr, err := run(t, "2\n1\n", "sort", "-v")
	require.NoError(t, err)
	assert.Contains(t, stderr, "engine started")
	assert.Contains(t, stderr, "input queued")
	assert.Contains(t, stderr, "engine stopped")
}

func TestInfo(t *testing.T) {
	out, _, err := run(t, "", "info", "--mem-mib", "64")
	require.NoError(t, err)
	assert.Contains(t, out, "tpgo "+tpgo.Version)
	assert.Contains(t, out, "engine:         memory")
	assert.Contains(t, out, "memory budget:  64 MiB (minimum 16 MiB)")
	assert.Contains(t, out, "entry sizes:    8 16 32 64 128 256 512 1024")
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tpgo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("internal_mib: 48\n"), 0o644))

	out, _, err := run(t, "", "info", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "memory budget:  48 MiB")
}
