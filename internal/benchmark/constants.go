package benchmark

import "time"

const (
	// SamplesPerGroup is the number of instances deployed per (configuration, memory) group.
	SamplesPerGroup    = 5
	DefaultSettleDelay = 5 * time.Second
	DefaultTimeout     = 10
	DefaultResultPath  = "./lambda_benchmark_results.csv"
	DefaultJSONPath    = "./lambda_benchmark_results.json"

	// DefaultMaxActiveWait bounds the optional wait for State=Active.
	DefaultMaxActiveWait = 2 * time.Minute

	defaultActivePollInterval = 2 * time.Second
)

// MemoryTiers are the memory sizes, in MB, compared by default.
var MemoryTiers = []int64{128, 256, 512, 1024, 2048, 4096}
