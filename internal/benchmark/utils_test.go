package benchmark

import (
	"bytes"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
)

func float(v float64) *float64 { return &v }

// run with -update to regenerate testdata/print_results.golden
func TestPrintResults(t *testing.T) {
	results := []InvocationResult{
		{BaseName: "base", MemorySize: 128, InitDurationMs: float(120.5)},
		{BaseName: "otel", MemorySize: 128, InitDurationMs: float(300)},
		{BaseName: "base", MemorySize: 128, InitDurationMs: float(80)},
		{BaseName: "base", MemorySize: 256, InitDurationMs: float(95.25)},
	}

	var buf bytes.Buffer
	PrintResults(&buf, results)

	g := goldie.New(t)
	g.Assert(t, "print_results", buf.Bytes())
}

func TestNewPayload(t *testing.T) {
	now := time.Unix(1700000000, 0)
	payload := NewPayload("echo", now)

	assert.Equal(t, "echo", payload["operation"])
	assert.Equal(t, map[string]any{
		"dog":       "boxer",
		"cat":       "siamese",
		"timestamp": int64(1700000000),
	}, payload["payload"])
	assert.Equal(t, "list_buckets", DefaultPayload(now)["operation"])
}
