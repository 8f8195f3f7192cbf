package cli

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sumaiwise/sumaiwise/internal/application/evaluation"
	"github.com/sumaiwise/sumaiwise/internal/config"
	"github.com/sumaiwise/sumaiwise/internal/infrastructure/marketdata"
	"github.com/sumaiwise/sumaiwise/internal/specstore"
	"github.com/sumaiwise/sumaiwise/pkg/errors"
)

type evaluateOptions struct {
	specPath  string
	indexPath string
	rawPaths  []string
	year      int
}

func newEvaluateCommand(root *RootOptions) *cobra.Command {
	opts := &evaluateOptions{}

	cmd := &cobra.Command{
		Use:   "evaluate <listing.json>",
		Short: "Evaluate one listing payload and print the full report",
		Long: "Evaluate reads a listing payload from a JSON file (or stdin when the\n" +
			"argument is \"-\"), runs the full scoring pipeline against the spec bundle\n" +
			"and benchmark data, and prints the report as JSON.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd, root, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.specPath, "spec", config.DefaultSpecBundlePath, "spec bundle path")
	cmd.Flags().StringVar(&opts.indexPath, "index", config.DefaultBenchmarkIndexPath, "benchmark index path")
	cmd.Flags().StringSliceVar(&opts.rawPaths, "raw", nil, "benchmark raw files, used when the index is absent")
	cmd.Flags().IntVar(&opts.year, "year", 0, "evaluation year for building-age math (0 = current year)")

	return cmd
}

func runEvaluate(cmd *cobra.Command, root *RootOptions, opts *evaluateOptions, payloadPath string) error {
	logger, err := newLogger(root)
	if err != nil {
		return err
	}

	payload, err := readPayload(cmd.InOrStdin(), payloadPath)
	if err != nil {
		return err
	}

	specs, err := specstore.Open(opts.specPath, logger)
	if err != nil {
		return err
	}

	index, err := marketdata.LoadOrBuild(marketdata.LoadOptions{
		IndexPath: opts.indexPath,
		RawPaths:  opts.rawPaths,
	}, logger)
	if err != nil {
		return err
	}
	source := marketdata.NewSource(index, specs.Current().Hedonic, logger)

	svc := evaluation.NewService(specs, source, evaluation.Config{
		MgmtFeeEstimateRatio:  config.DefaultMgmtFeeEstimateRatio,
		MgmtFeeEstimateCapYen: config.DefaultMgmtFeeEstimateCapYen,
		EvaluationYear:        opts.year,
	}, logger)

	report, err := svc.Evaluate(cmd.Context(), payload)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), report)
}

// readPayload loads the listing payload from path, or from stdin when path
// is "-".
func readPayload(stdin io.Reader, path string) (map[string]interface{}, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeInputInvalid, "read listing payload %s", path)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, errors.Wrap(err, errors.CodeInputInvalid, "listing payload must be a JSON object")
	}
	return payload, nil
}
