// Command tpgo sorts and spools data through TPIE's external-memory queues.
package main

import (
	"fmt"
	"os"

	"github.com/obinnaokechukwu/tpgo/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tpgo:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
