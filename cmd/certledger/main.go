// Command certledger runs the certificate registry: the HTTP server, local
// calls against its store, event log inspection and scenario runs.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/certledger/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
