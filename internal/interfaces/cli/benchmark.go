package cli

import (
	"github.com/spf13/cobra"

	"github.com/sumaiwise/sumaiwise/internal/config"
	"github.com/sumaiwise/sumaiwise/internal/domain/benchmark"
	"github.com/sumaiwise/sumaiwise/internal/infrastructure/marketdata"
	"github.com/sumaiwise/sumaiwise/internal/infrastructure/monitoring/logging"
	"github.com/sumaiwise/sumaiwise/pkg/errors"
)

func newBenchmarkCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Manage the market benchmark index",
	}
	cmd.AddCommand(newBenchmarkBuildCommand(root))
	return cmd
}

// buildSummary is what build prints on success.
type buildSummary struct {
	Out       string `json:"out"`
	Rows      int    `json:"rows"`
	Segments  int    `json:"segments"`
	RawFiles  int    `json:"raw_files"`
}

func newBenchmarkBuildCommand(root *RootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "build <raw-file>...",
		Short: "Aggregate raw rent observations into a benchmark index",
		Long: "Build reads raw rent observation files (JSON or CSV), aggregates them\n" +
			"into per-segment medians at every fallback level, and writes the index\n" +
			"the server loads at startup.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(root)
			if err != nil {
				return err
			}

			var rows []benchmark.Row
			for _, path := range args {
				fileRows, err := marketdata.LoadRaw(path)
				if err != nil {
					return err
				}
				logger.Info("loaded benchmark raw file",
					logging.String("path", path),
					logging.Int("rows", len(fileRows)))
				rows = append(rows, fileRows...)
			}

			index, err := benchmark.BuildIndex(rows)
			if err != nil {
				return err
			}
			if err := marketdata.WriteIndex(out, index); err != nil {
				return errors.Wrapf(err, errors.CodeBenchmarkIndexUnavailable, "write index %s", out)
			}

			return printJSON(cmd.OutOrStdout(), buildSummary{
				Out:      out,
				Rows:     len(rows),
				Segments: len(index.ByPrefMuniLayoutStruc),
				RawFiles: len(args),
			})
		},
	}

	cmd.Flags().StringVar(&out, "out", config.DefaultBenchmarkIndexPath, "output index path")

	return cmd
}
