package benchexport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamfold/coldstart-bench/internal/benchmark/stats"
)

func TestSaveAsMarkdown(t *testing.T) {
	var samples []stats.Sample
	for _, c := range []float64{400, 390, 410, 1000, 10} {
		samples = append(samples, stats.Sample{BaseName: "coldstart", Memory: 128, ClientDurationMs: c})
	}
	for _, c := range []float64{600, 590, 610, 2000, 20} {
		samples = append(samples, stats.Sample{BaseName: "coldstart-otel", Memory: 128, ClientDurationMs: c})
	}
	for _, c := range []float64{300, 310, 290} {
		samples = append(samples, stats.Sample{BaseName: "coldstart-otel", Memory: 256, ClientDurationMs: c})
	}
	records := stats.Compare(stats.Aggregate(samples, 5), "coldstart")

	filePath := filepath.Join(t.TempDir(), "report.md")
	input := SaveAsMarkdownInput{
		Records:         records,
		Baseline:        "coldstart",
		ExpectedSamples: 5,
		CurrentDate:     time.Date(2025, 4, 15, 12, 0, 0, 0, time.UTC),
		Title:           "run-1",
		FilePath:        filePath,
	}

	require.NoError(t, SaveAsMarkdown(input))
	input.Title = "run-2"
	require.NoError(t, SaveAsMarkdown(input))

	raw, err := os.ReadFile(filePath)
	require.NoError(t, err)
	content := string(raw)

	assert.True(t, strings.HasPrefix(content, "Date: 2025-04-15 12:00:00\n\n## Cold start comparison\n"))
	assert.Equal(t, 1, strings.Count(content, "Date:"), "header must be written once")
	assert.Contains(t, content, "### run-1")
	assert.Contains(t, content, "### run-2")
	assert.Contains(t, content, "coldstart-otel vs coldstart")
	assert.Contains(t, content, "400.00")
	assert.Contains(t, content, "600.00")
	assert.Contains(t, content, "200.00")
	assert.Contains(t, content, "n/a")

	lines := strings.Split(content, "\n")
	var tableRows []string
	for _, l := range lines {
		if strings.HasPrefix(l, "| 128") || strings.HasPrefix(l, "| 256") {
			tableRows = append(tableRows, l)
		}
	}
	assert.Len(t, tableRows, 4)
}

func TestSaveAsMarkdownNoRecords(t *testing.T) {
	err := SaveAsMarkdown(SaveAsMarkdownInput{FilePath: filepath.Join(t.TempDir(), "report.md")})
	assert.Error(t, err)
}

func TestFormatMs(t *testing.T) {
	assert.Equal(t, "12.35", FormatMs(12.345))
	assert.Equal(t, "n/a", FormatMs(stats.TrimmedMean(nil, 5)))
}
