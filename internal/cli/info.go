package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/obinnaokechukwu/tpgo"
)

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "info",
		Short:         "Show engine selection and limits",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.config()
			if err != nil {
				return err
			}

			native := "not found"
			if path, err := tpgo.FindNativeLibrary(); err == nil {
				native = path
			} else if rootOpts.Verbose {
				native = err.Error()
			}

			sizes := make([]string, 0, len(tpgo.Sizes()))
			for _, s := range tpgo.Sizes() {
				sizes = append(sizes, fmt.Sprint(s.NumBytes()))
			}

			budget := cfg.InternalBytes()
			if budget < tpgo.MinInternalMemory {
				budget = tpgo.MinInternalMemory
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tpgo %s\n", tpgo.Version)
			fmt.Fprintf(out, "engine:         %s\n", cfg.Engine)
			fmt.Fprintf(out, "native library: %s\n", native)
			fmt.Fprintf(out, "native status:  %s\n", tpgo.NativeStatus())
			fmt.Fprintf(out, "memory budget:  %d MiB (minimum %d MiB)\n", budget/tpgo.MiB, tpgo.MinInternalMemory/tpgo.MiB)
			fmt.Fprintf(out, "entry sizes:    %s\n", strings.Join(sizes, " "))
			return nil
		},
	}

	return cmd
}
