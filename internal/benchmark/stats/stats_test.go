package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimmedMean(t *testing.T) {
	tests := []struct {
		name     string
		samples  []float64
		expected int
		want     float64
	}{
		{name: "DropsMinAndMax", samples: []float64{1000, 30, 10, 40, 20}, expected: 5, want: 30},
		{name: "AlreadySorted", samples: []float64{1, 2, 3, 4, 100}, expected: 5, want: 3},
		{name: "Ties", samples: []float64{5, 5, 5, 5, 5}, expected: 5, want: 5},
		{name: "TooFew", samples: []float64{10, 20, 30, 40}, expected: 5, want: math.NaN()},
		{name: "TooMany", samples: []float64{1, 2, 3, 4, 5, 6}, expected: 5, want: math.NaN()},
		{name: "Empty", samples: nil, expected: 5, want: math.NaN()},
		{name: "DegenerateExpected", samples: []float64{1}, expected: 1, want: math.NaN()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TrimmedMean(tt.samples, tt.expected)
			if math.IsNaN(tt.want) {
				assert.True(t, math.IsNaN(got), "expected NaN, got %v", got)
				return
			}
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestTrimmedMeanDoesNotReorderInput(t *testing.T) {
	samples := []float64{1000, 30, 10, 40, 20}
	TrimmedMean(samples, 5)
	assert.Equal(t, []float64{1000, 30, 10, 40, 20}, samples)
}

func TestBaselineDiff(t *testing.T) {
	baseline := BaselineTable{256: 400}

	assert.InDelta(t, 100, BaselineDiff(500, 256, baseline), 1e-9)
	assert.True(t, math.IsNaN(BaselineDiff(500, 512, baseline)))
	assert.True(t, math.IsNaN(BaselineDiff(500, 256, nil)))
}

func TestAggregateAndCompare(t *testing.T) {
	var samples []Sample
	add := func(base string, memory int, client ...float64) {
		for i, c := range client {
			samples = append(samples, Sample{BaseName: base, Memory: memory, ClientDurationMs: c, InitDurationMs: float64(100 + i)})
		}
	}
	add("coldstart", 128, 400, 390, 410, 1000, 10)
	add("coldstart-otel", 128, 600, 590, 610, 2000, 20)
	add("coldstart-otel", 256, 300, 310, 290, 5, 900)
	add("coldstart", 512, 1, 2, 3)

	records := Compare(Aggregate(samples, DefaultExpectedSamples), "coldstart")
	require.Len(t, records, 4)

	assert.Equal(t, "coldstart", records[0].BaseName)
	assert.Equal(t, 128, records[0].Memory)
	assert.InDelta(t, 400, records[0].TrimmedClientMs, 1e-9)
	assert.InDelta(t, 102, records[0].TrimmedInitMs, 1e-9)
	assert.InDelta(t, 0, records[0].Difference, 1e-9)

	assert.Equal(t, 512, records[1].Memory)
	assert.Equal(t, 3, records[1].Samples)
	assert.True(t, math.IsNaN(records[1].TrimmedClientMs))

	assert.Equal(t, "coldstart-otel", records[2].BaseName)
	assert.InDelta(t, 600, records[2].TrimmedClientMs, 1e-9)
	assert.InDelta(t, 200, records[2].Difference, 1e-9)

	// no baseline at 256
	assert.Equal(t, 256, records[3].Memory)
	assert.InDelta(t, 300, records[3].TrimmedClientMs, 1e-9)
	assert.True(t, math.IsNaN(records[3].Difference))

	assert.Equal(t, []int{128, 256, 512}, MemoryTiers(records))
	assert.Equal(t, []string{"coldstart", "coldstart-otel"}, BaseNames(records))
}
