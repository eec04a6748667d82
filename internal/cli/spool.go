package cli

import (
	"bufio"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/obinnaokechukwu/tpgo"
	"github.com/obinnaokechukwu/tpgo/serialization"
)

// NewSpoolCommand creates the spool command.
func NewSpoolCommand(rootOpts *RootOptions) *cobra.Command {
	var maxLine int

	cmd := &cobra.Command{
		Use:   "spool [file]",
		Short: "Buffer lines through an external FIFO queue",
		Long: `Read every line of file (or stdin) into a FIFO queue before writing
any of them out, in their original order. Useful for holding back a
stream larger than memory.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := serialization.NewStringCodec(maxLine)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --max-line", err)
			}
			in, closeIn, err := openInput(cmd, args)
			if err != nil {
				return err
			}
			defer closeIn()
			return rootOpts.withEngine(cmd, func(lc *tpgo.Lifecycle, log *zap.Logger) error {
				return runSpool(lc, log, codec, in, cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().IntVar(&maxLine, "max-line", 120, "longest line accepted, in bytes (at most 1022)")

	return cmd
}

func runSpool(lc *tpgo.Lifecycle, log *zap.Logger, codec serialization.StringCodec, in io.Reader, out io.Writer) error {
	q, err := serialization.NewFIFOQueue[string](lc, codec)
	if err != nil {
		return err
	}
	defer q.Close()

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), max(codec.MaxLen()+1, bufio.MaxScanTokenSize))
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) > codec.MaxLen() {
			return NewExitError(ExitCommandError, fmt.Sprintf("line %d is %d bytes, longer than --max-line %d", line, len(sc.Bytes()), codec.MaxLen()))
		}
		if err := q.Push(sc.Text()); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return WrapExitError(ExitFailure, "reading input", err)
	}

	ext, _ := lc.ExternalBytes()
	log.Info("input spooled",
		zap.Int("lines", line),
		zap.Stringer("entry_size", codec.EntrySize()),
		zap.Uint64("external_bytes", ext),
	)

	w := bufio.NewWriter(out)
	for {
		empty, err := q.Empty()
		if err != nil {
			return err
		}
		if empty {
			break
		}
		s, err := q.Front()
		if err != nil {
			return err
		}
		if err := q.Pop(); err != nil {
			return err
		}
		w.WriteString(s)
		w.WriteByte('\n')
	}
	return w.Flush()
}
