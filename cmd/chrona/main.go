// Command chrona runs, records and replays discrete-event scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/chrona/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
