package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/obinnaokechukwu/tpgo"
	"github.com/obinnaokechukwu/tpgo/serialization"
)

// NewSortCommand creates the sort command.
func NewSortCommand(rootOpts *RootOptions) *cobra.Command {
	var reverse bool

	cmd := &cobra.Command{
		Use:   "sort [file]",
		Short: "Sort numbers through an external priority queue",
		Long: `Read one number per line from file (or stdin) and write them in
ascending order. Blank lines are skipped.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, closeIn, err := openInput(cmd, args)
			if err != nil {
				return err
			}
			defer closeIn()
			return rootOpts.withEngine(cmd, func(lc *tpgo.Lifecycle, log *zap.Logger) error {
				return runSort(lc, log, in, cmd.OutOrStdout(), reverse)
			})
		},
	}

	cmd.Flags().BoolVarP(&reverse, "reverse", "r", false, "write in descending order")

	return cmd
}

func runSort(lc *tpgo.Lifecycle, log *zap.Logger, in io.Reader, out io.Writer, reverse bool) error {
	q, err := serialization.NewPriorityQueue[float64](lc, serialization.Float64Codec{})
	if err != nil {
		return err
	}
	defer q.Close()

	sign := 1.0
	if reverse {
		sign = -1
	}

	sc := bufio.NewScanner(in)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return NewExitError(ExitCommandError, fmt.Sprintf("line %d: %q is not a number", line, text))
		}
		if err := q.Push(sign * v); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return WrapExitError(ExitFailure, "reading input", err)
	}

	n, err := q.Size()
	if err != nil {
		return err
	}
	ext, _ := lc.ExternalBytes()
	log.Info("input queued", zap.Uint64("values", n), zap.Uint64("external_bytes", ext))

	w := bufio.NewWriter(out)
	for {
		empty, err := q.Empty()
		if err != nil {
			return err
		}
		if empty {
			break
		}
		v, err := q.Top()
		if err != nil {
			return err
		}
		if err := q.Pop(); err != nil {
			return err
		}
		w.WriteString(strconv.FormatFloat(sign*v, 'g', -1, 64))
		w.WriteByte('\n')
	}
	return w.Flush()
}

// openInput opens the file named by args, or stdin when there is none or it
// is "-".
func openInput(cmd *cobra.Command, args []string) (io.Reader, func(), error) {
	if len(args) == 0 || args[0] == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "opening input", err)
	}
	return f, func() { _ = f.Close() }, nil
}
