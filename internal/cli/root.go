// Package cli implements the tpgo command.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/obinnaokechukwu/tpgo"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	ConfigPath string
	Engine     string
	MemMiB     uint64
	TempDir    string
}

// NewRootCommand creates the root command for the tpgo CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "tpgo",
		Short: "External-memory sorting and spooling with TPIE",
		Long: `tpgo runs data through TPIE's external-memory queues.

Inputs larger than the internal memory budget spill to temporary files,
so sort and spool handle inputs of any size in bounded memory.`,
		Version: tpgo.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch tpgo.EngineKind(opts.Engine) {
			case "", tpgo.EngineAuto, tpgo.EngineNative, tpgo.EngineMemory:
				return nil
			default:
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid engine %q: must be auto, native or memory", opts.Engine))
			}
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log engine activity to stderr")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Engine, "engine", "", "engine to use (auto|native|memory)")
	cmd.PersistentFlags().Uint64Var(&opts.MemMiB, "mem-mib", 0, "internal memory budget in MiB (minimum 16)")
	cmd.PersistentFlags().StringVar(&opts.TempDir, "tmpdir", "", "directory for temporary files")

	cmd.AddCommand(NewSortCommand(opts))
	cmd.AddCommand(NewSpoolCommand(opts))
	cmd.AddCommand(NewInfoCommand(opts))

	return cmd
}

// config merges the config file, environment and flags, in increasing
// precedence.
func (o *RootOptions) config() (tpgo.Config, error) {
	cfg, err := tpgo.LoadConfig(o.ConfigPath)
	if err != nil {
		return cfg, WrapExitError(ExitCommandError, "loading config", err)
	}
	if o.Engine != "" {
		cfg.Engine = tpgo.EngineKind(o.Engine)
	}
	if o.MemMiB != 0 {
		cfg.InternalMiB = o.MemMiB
	}
	if o.TempDir != "" {
		cfg.TempDir = o.TempDir
		cfg.TempSubdir = ""
	}
	return cfg, nil
}

// logger returns the logger for a command run: a console logger on stderr
// with --verbose, one at the configured level if set, otherwise nothing.
func (o *RootOptions) logger(cfg tpgo.Config, stderr io.Writer) (*zap.Logger, error) {
	if o.Verbose {
		enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		return zap.New(zapcore.NewCore(enc, zapcore.AddSync(stderr), zapcore.DebugLevel)), nil
	}
	if cfg.LogLevel != "" {
		return tpgo.NewLogger(cfg.LogLevel)
	}
	return zap.NewNop(), nil
}

// withEngine runs fn inside a running period configured from the flags.
func (o *RootOptions) withEngine(cmd *cobra.Command, fn func(lc *tpgo.Lifecycle, log *zap.Logger) error) error {
	cfg, err := o.config()
	if err != nil {
		return err
	}
	log, err := o.logger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "configuring logger", err)
	}
	defer func() { _ = log.Sync() }()

	lc := tpgo.Default()
	err = lc.Use(cfg.InternalBytes(), func() error {
		return fn(lc, log)
	}, tpgo.WithConfig(cfg), tpgo.WithLogger(log))
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return err
		}
		return WrapExitError(ExitFailure, cmd.Name()+" failed", err)
	}
	return nil
}
