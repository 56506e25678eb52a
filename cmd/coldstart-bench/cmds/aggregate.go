package cmds

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/streamfold/coldstart-bench/internal/benchmark/benchexport"
	"github.com/streamfold/coldstart-bench/internal/benchmark/chart"
	"github.com/streamfold/coldstart-bench/internal/benchmark/stats"
)

type aggregateFlags struct {
	baseline string
	samples  int
	markdown string
	chart    string
	title    string
}

func newAggregateCmd() *cobra.Command {
	flags := &aggregateFlags{}

	cmd := &cobra.Command{
		Use:   "aggregate <results.csv>...",
		Short: "Compute trimmed means per configuration and compare them against a baseline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := aggregateFiles(args, flags.samples, flags.baseline)
			if err != nil {
				return err
			}

			table, err := benchexport.ComparisonTable(records, flags.baseline)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)

			if flags.markdown != "" {
				err := benchexport.SaveAsMarkdown(benchexport.SaveAsMarkdownInput{
					Records:         records,
					Baseline:        flags.baseline,
					ExpectedSamples: flags.samples,
					CurrentDate:     time.Now(),
					Title:           flags.title,
					FilePath:        flags.markdown,
				})
				if err != nil {
					return err
				}
			}

			if flags.chart != "" {
				if flags.baseline == "" {
					return errors.New("--chart requires --baseline")
				}
				err := chart.SaveDifferenceChart(chart.DifferenceChartInput{
					Records:  records,
					Baseline: flags.baseline,
					Title:    flags.title,
					FilePath: flags.chart,
				})
				if err != nil {
					return err
				}
				zap.L().Info("saved chart", zap.String("path", flags.chart))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.baseline, "baseline", "", "base name the other configurations are compared against")
	cmd.Flags().IntVar(&flags.samples, "samples", stats.DefaultExpectedSamples, "samples a group must have for its trimmed mean to be defined")
	cmd.Flags().StringVar(&flags.markdown, "markdown", "", "append the comparison table to this markdown file")
	cmd.Flags().StringVar(&flags.chart, "chart", "", "draw the difference chart to this file (.png, .svg or .pdf)")
	cmd.Flags().StringVar(&flags.title, "title", "", "title of the markdown section and chart")
	return cmd
}

// aggregateFiles loads every CSV record store in paths and reduces them into
// compared records.
func aggregateFiles(paths []string, samples int, baseline string) ([]stats.AggregatedRecord, error) {
	var rows []benchexport.SavedResults
	for _, path := range paths {
		loaded, err := loadResultsFile(path)
		if err != nil {
			return nil, err
		}
		rows = append(rows, loaded...)
	}
	if len(rows) == 0 {
		return nil, errors.New("no results to aggregate")
	}

	records := stats.Aggregate(benchexport.ToSamples(rows), samples)
	if baseline != "" {
		records = stats.Compare(records, baseline)
	}
	return records, nil
}

func loadResultsFile(path string) ([]benchexport.SavedResults, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := benchexport.LoadCSV[benchexport.SavedResults](f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", path)
	}
	return rows, nil
}
