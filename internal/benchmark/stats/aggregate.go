package stats

import (
	"cmp"
	"math"
	"slices"

	"github.com/samber/lo"
)

// Sample is one cold-start measurement of a (base name, memory) configuration.
type Sample struct {
	BaseName         string
	Memory           int
	ClientDurationMs float64
	InitDurationMs   float64
}

// GroupKey identifies a configuration.
type GroupKey struct {
	BaseName string
	Memory   int
}

// AggregatedRecord is derived from the full sample set on demand and is never
// persisted on its own.
type AggregatedRecord struct {
	BaseName string
	Memory   int
	Samples  int
	// TrimmedClientMs is the trimmed mean of the client-observed durations.
	TrimmedClientMs float64
	// TrimmedInitMs is the trimmed mean of the provider-reported init durations.
	TrimmedInitMs float64
	// Difference is TrimmedClientMs minus the baseline at the same memory.
	Difference float64
}

// Aggregate groups samples by (base name, memory) and computes trimmed means
// for each group. Records are sorted by base name, then memory. Difference is
// NaN until Compare is applied.
func Aggregate(samples []Sample, expected int) []AggregatedRecord {
	groups := lo.GroupBy(samples, func(s Sample) GroupKey {
		return GroupKey{BaseName: s.BaseName, Memory: s.Memory}
	})

	records := make([]AggregatedRecord, 0, len(groups))
	for key, group := range groups {
		records = append(records, AggregatedRecord{
			BaseName: key.BaseName,
			Memory:   key.Memory,
			Samples:  len(group),
			TrimmedClientMs: TrimmedMean(lo.Map(group, func(s Sample, _ int) float64 {
				return s.ClientDurationMs
			}), expected),
			TrimmedInitMs: TrimmedMean(lo.Map(group, func(s Sample, _ int) float64 {
				return s.InitDurationMs
			}), expected),
			Difference: math.NaN(),
		})
	}

	slices.SortFunc(records, func(a, b AggregatedRecord) int {
		return cmp.Or(cmp.Compare(a.BaseName, b.BaseName), cmp.Compare(a.Memory, b.Memory))
	})
	return records
}

// NewBaselineTable collects the trimmed client means of baseName per memory.
// Groups whose trimmed mean is undefined are still recorded, so comparisons
// against them stay undefined.
func NewBaselineTable(records []AggregatedRecord, baseName string) BaselineTable {
	table := make(BaselineTable)
	for _, r := range records {
		if r.BaseName == baseName {
			table[r.Memory] = r.TrimmedClientMs
		}
	}
	return table
}

// Compare returns a copy of records with Difference set against baseName.
func Compare(records []AggregatedRecord, baseName string) []AggregatedRecord {
	baseline := NewBaselineTable(records, baseName)
	return lo.Map(records, func(r AggregatedRecord, _ int) AggregatedRecord {
		r.Difference = BaselineDiff(r.TrimmedClientMs, r.Memory, baseline)
		return r
	})
}

// MemoryTiers returns the distinct memory sizes present in records, ascending.
func MemoryTiers(records []AggregatedRecord) []int {
	tiers := lo.Uniq(lo.Map(records, func(r AggregatedRecord, _ int) int { return r.Memory }))
	slices.Sort(tiers)
	return tiers
}

// BaseNames returns the distinct base names present in records, ascending.
func BaseNames(records []AggregatedRecord) []string {
	names := lo.Uniq(lo.Map(records, func(r AggregatedRecord, _ int) string { return r.BaseName }))
	slices.Sort(names)
	return names
}
