// Command denorm rebuilds nested values from a normalized entity store.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/denorm/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
