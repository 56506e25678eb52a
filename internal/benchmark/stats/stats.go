// Package stats reduces raw cold-start samples into per-configuration
// trimmed means and compares them against a baseline configuration.
//
// Undefined values are NaN. A group that does not hold exactly the expected
// number of samples is not an error, it is simply left out of comparisons.
package stats

import (
	"math"
	"slices"
)

// DefaultExpectedSamples is the group size a trimmed mean is defined for.
const DefaultExpectedSamples = 5

// TrimmedMean sorts samples ascending, drops the single minimum and maximum
// and averages what remains. It returns NaN unless len(samples) equals
// expected. The input slice is not modified.
func TrimmedMean(samples []float64, expected int) float64 {
	if len(samples) != expected || expected < 3 {
		return math.NaN()
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)
	return Average(sorted[1 : len(sorted)-1])
}

// Average returns the arithmetic mean, NaN for an empty slice.
func Average(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// BaselineTable maps a memory size in MB to the baseline's trimmed mean.
type BaselineTable map[int]float64

// BaselineDiff subtracts the baseline value recorded for memory from value.
// A missing baseline entry yields NaN, never zero.
func BaselineDiff(value float64, memory int, baseline BaselineTable) float64 {
	base, ok := baseline[memory]
	if !ok {
		return math.NaN()
	}
	return value - base
}
