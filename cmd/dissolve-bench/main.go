// Command dissolve-bench exercises the simulation core end-to-end
// without the production input-deck parser (see internal/interfaces/cli
// for the subcommand implementations).
package main

import (
	"fmt"
	"os"

	"github.com/dissolveproject/dissolve/internal/interfaces/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
