package benchexport

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/fbiville/markdown-table-formatter/pkg/markdown"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/streamfold/coldstart-bench/internal/benchmark/stats"
)

type SaveAsMarkdownInput struct {
	Records         []stats.AggregatedRecord
	Baseline        string
	ExpectedSamples int
	CurrentDate     time.Time
	// Title names the section, e.g. the run id or the source CSV.
	Title    string
	FilePath string
}

// SaveAsMarkdown appends a comparison table to FilePath: one row per memory
// tier, one trimmed-mean column per configuration and one difference column
// per non-baseline configuration. The file header is written only when the
// file is empty.
func SaveAsMarkdown(input SaveAsMarkdownInput) error {
	if len(input.Records) == 0 {
		return errors.New("no aggregated records to render")
	}

	zap.L().Info("Saving markdown report", zap.String("path", input.FilePath))

	file, err := os.OpenFile(input.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return err
	}

	if stat.Size() == 0 {
		date := input.CurrentDate.Format("2006-01-02 15:04:05")
		header := fmt.Sprintf("Date: %s\n\n## Cold start comparison\n\n", date) +
			fmt.Sprintf("Samples per group: %d (min and max dropped)\n", input.ExpectedSamples) +
			fmt.Sprintf("Baseline: %s\n", input.Baseline) +
			"Trimmed mean of client duration in milliseconds\n\n"
		if _, err = file.WriteString(header); err != nil {
			return err
		}
	}

	table, err := ComparisonTable(input.Records, input.Baseline)
	if err != nil {
		return err
	}

	if input.Title != "" {
		if _, err = file.WriteString(fmt.Sprintf("### %s\n\n", input.Title)); err != nil {
			return err
		}
	}
	_, err = file.WriteString(table + "\n\n")
	return err
}

// ComparisonTable renders records as a markdown table, baseline column first.
func ComparisonTable(records []stats.AggregatedRecord, baseline string) (string, error) {
	names := stats.BaseNames(records)
	// baseline first, then the rest in name order
	if lo.Contains(names, baseline) {
		names = append([]string{baseline}, lo.Without(names, baseline)...)
	}

	headers := []string{"memory (MB)"}
	for _, name := range names {
		headers = append(headers, name)
	}
	for _, name := range names {
		if baseline != "" && name != baseline {
			headers = append(headers, fmt.Sprintf("%s vs %s", name, baseline))
		}
	}

	byKey := lo.KeyBy(records, func(r stats.AggregatedRecord) stats.GroupKey {
		return stats.GroupKey{BaseName: r.BaseName, Memory: r.Memory}
	})

	rows := make([][]string, 0)
	for _, memory := range stats.MemoryTiers(records) {
		row := []string{fmt.Sprintf("%d", memory)}
		for _, name := range names {
			row = append(row, cell(byKey, name, memory, func(r stats.AggregatedRecord) float64 { return r.TrimmedClientMs }))
		}
		for _, name := range names {
			if baseline != "" && name != baseline {
				row = append(row, cell(byKey, name, memory, func(r stats.AggregatedRecord) float64 { return r.Difference }))
			}
		}
		rows = append(rows, row)
	}

	return markdown.NewTableFormatterBuilder().
		WithPrettyPrint().
		Build(headers...).
		Format(rows)
}

func cell(byKey map[stats.GroupKey]stats.AggregatedRecord, name string, memory int, value func(stats.AggregatedRecord) float64) string {
	r, ok := byKey[stats.GroupKey{BaseName: name, Memory: memory}]
	if !ok {
		return ""
	}
	return FormatMs(value(r))
}

// FormatMs renders a millisecond value with two decimals, or "n/a" when undefined.
func FormatMs(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}
