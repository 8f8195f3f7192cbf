// Package cli implements the sumaiwise command line tool: one-off listing
// evaluations, spec bundle validation, and benchmark index builds without a
// running server.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sumaiwise/sumaiwise/internal/infrastructure/monitoring/logging"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// RootOptions holds global CLI flags.
type RootOptions struct {
	LogLevel string
}

// NewRootCommand creates the root command with all subcommands attached.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "sumaiwise",
		Short:   "sumaiwise evaluates Japanese rental listings against a versioned rule spec",
		Long: "sumaiwise scores rental listings for affordability, condition, and location,\n" +
			"compares them against collected market rents, and renders a Korean-language\n" +
			"report with negotiation suggestions and what-if scenarios.",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newEvaluateCommand(opts))
	cmd.AddCommand(newSpecCommand())
	cmd.AddCommand(newBenchmarkCommand(opts))

	return cmd
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCommand().Execute()
}

// newLogger builds a console logger honoring the global log level.  CLI
// results go to stdout; logs stay on stderr.
func newLogger(opts *RootOptions) (logging.Logger, error) {
	return logging.NewLogger(logging.LogConfig{
		Level:       opts.LogLevel,
		Format:      "console",
		OutputPaths: []string{"stderr"},
	})
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
