// The sumaiwise binary is the command line tool for one-off evaluations,
// spec bundle validation, and benchmark index builds.
package main

import (
	"fmt"
	"os"

	"github.com/sumaiwise/sumaiwise/internal/interfaces/cli"
)

// Injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
