// Command incr checks declaration files with the incremental query engine.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/incr/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
