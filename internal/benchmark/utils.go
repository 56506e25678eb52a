package benchmark

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/streamfold/coldstart-bench/internal/benchmark/benchexport"
)

// DefaultPayload is the request sent to every instance.
func DefaultPayload(now time.Time) map[string]any {
	return NewPayload("list_buckets", now)
}

func NewPayload(operation string, now time.Time) map[string]any {
	return map[string]any{
		"operation": operation,
		"payload": map[string]any{
			"dog":       "boxer",
			"cat":       "siamese",
			"timestamp": now.Unix(),
		},
	}
}

// PrintResults writes the sorted init durations of each base name.
func PrintResults(w io.Writer, results []InvocationResult) {
	byName := lo.GroupBy(results, func(r InvocationResult) string { return r.BaseName })
	for _, name := range lo.Uniq(lo.Map(results, func(r InvocationResult, _ int) string { return r.BaseName })) {
		rows := ToSavedResults(byName[name])
		benchexport.SortByInitDuration(rows)
		durations := lo.Map(rows, func(r benchexport.SavedResults, _ int) string {
			return strconv.FormatFloat(r.InitDurationMs, 'f', -1, 64)
		})
		fmt.Fprintf(w, "Summary of lambda init durations (cold start) for %s:\n", name)
		fmt.Fprintf(w, "Durations: %s\n", strings.Join(durations, ", "))
	}
}

// ToSavedResults converts results into record store rows, keeping their order.
func ToSavedResults(results []InvocationResult) []benchexport.SavedResults {
	return lo.Map(results, func(r InvocationResult, _ int) benchexport.SavedResults {
		return benchexport.SavedResults{
			BaseName:         r.BaseName,
			Memory:           int(r.MemorySize),
			ClientDurationMs: r.ClientDurationMs,
			InitDurationMs:   r.InitDuration(),
		}
	})
}

// saveResults appends one group's results to the record store, ordered by
// init duration.
func saveResults(results []InvocationResult, filePath string) error {
	if len(results) == 0 {
		return nil
	}
	rows := ToSavedResults(results)
	benchexport.SortByInitDuration(rows)
	return benchexport.SaveOrAppendToCSV(rows, filePath)
}

// SaveJSON writes the full invocation results, replacing the file.
func SaveJSON(results []InvocationResult, filePath string) error {
	data, err := json.MarshalIndent(lo.Ternary(results == nil, []InvocationResult{}, results), "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode results")
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", filePath)
	}
	return nil
}
