package tpgo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// EngineKind selects which engine Start uses when none is given explicitly.
type EngineKind string

const (
	// EngineAuto uses the native engine if libtpiego loads, otherwise the
	// in-process memory engine.
	EngineAuto EngineKind = "auto"

	// EngineNative requires libtpiego.
	EngineNative EngineKind = "native"

	// EngineMemory uses the pure-Go engine.
	EngineMemory EngineKind = "memory"
)

// Config is the file and environment configuration for Start.
//
// Fields left at their zero value keep the defaults.
type Config struct {
	Engine EngineKind `yaml:"engine"`

	// InternalMiB is the internal memory budget used when Start is called
	// with a zero budget.
	InternalMiB uint64 `yaml:"internal_mib"`

	TempDir    string `yaml:"temp_dir"`
	TempSubdir string `yaml:"temp_subdir"`

	// LibDir is the only directory searched for libtpiego when set.
	LibDir string `yaml:"lib_dir"`

	// LogLevel builds a production zap logger at this level when no logger
	// was configured by other means.
	LogLevel string `yaml:"log_level"`

	Memory MemoryConfig `yaml:"memory"`
}

// MemoryConfig tunes the pure-Go engine.
type MemoryConfig struct {
	QueueReserveBytes int64 `yaml:"queue_reserve_bytes"`
	MaxMemoryEntries  int   `yaml:"max_memory_entries"`
}

// Environment variables read by ApplyEnv.
const (
	EnvEngine      = "TPGO_ENGINE"
	EnvInternalMiB = "TPGO_INTERNAL_MIB"
	EnvTempDir     = "TPGO_TMPDIR"
	EnvTempSubdir  = "TPGO_TMPSUBDIR"
	EnvLibDir      = "TPGO_LIB_DIR"
	EnvLogLevel    = "TPGO_LOG_LEVEL"
)

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{Engine: EngineAuto}
}

// LoadConfig reads a YAML config file and applies environment overrides.
// A missing file is not an error; the defaults are used.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("tpgo: reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("tpgo: parsing config %s: %w", path, err)
			}
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides c with any TPGO_* environment variables that are set.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvEngine); v != "" {
		c.Engine = EngineKind(v)
	}
	if v := os.Getenv(EnvInternalMiB); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("tpgo: %s: %w", EnvInternalMiB, err)
		}
		c.InternalMiB = n
	}
	if v := os.Getenv(EnvTempDir); v != "" {
		c.TempDir = v
	}
	if v := os.Getenv(EnvTempSubdir); v != "" {
		c.TempSubdir = v
	}
	if v := os.Getenv(EnvLibDir); v != "" {
		c.LibDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate checks field values.
func (c Config) Validate() error {
	switch c.Engine {
	case "", EngineAuto, EngineNative, EngineMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEngine, c.Engine)
	}
	if c.TempSubdir != "" && c.TempDir == "" {
		return errors.New("tpgo: temp_subdir requires temp_dir")
	}
	if c.Memory.QueueReserveBytes < 0 || c.Memory.MaxMemoryEntries < 0 {
		return errors.New("tpgo: memory engine limits must not be negative")
	}
	return nil
}

// InternalBytes returns the configured budget in bytes, or 0 if unset.
func (c Config) InternalBytes() uint64 {
	return c.InternalMiB * MiB
}
