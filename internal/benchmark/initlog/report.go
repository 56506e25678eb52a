package initlog

import (
	"strconv"
	"strings"
)

const reportPrefix = "REPORT"

// Report holds the fields of a REPORT line. Missing fields are left zero.
type Report struct {
	RequestID        string  `json:"request_id,omitempty"`
	DurationMs       float64 `json:"duration_ms,omitempty"`
	BilledDurationMs float64 `json:"billed_duration_ms,omitempty"`
	MemorySizeMB     int     `json:"memory_size_mb,omitempty"`
	MaxMemoryUsedMB  int     `json:"max_memory_used_mb,omitempty"`
	InitDurationMs   float64 `json:"init_duration_ms,omitempty"`
}

// ParseReport reads the first REPORT line of the log. It is best effort: the
// fields it cannot read stay zero, and ok is false when no REPORT line exists.
// Use ExtractInitDuration to get a trusted init duration.
func ParseReport(log string) (report Report, ok bool) {
	for _, line := range splitLines(log) {
		if !strings.HasPrefix(strings.TrimSpace(line), reportPrefix) {
			continue
		}
		for _, field := range strings.Split(line, "\t") {
			label, value, found := strings.Cut(strings.TrimSpace(field), ":")
			if !found {
				continue
			}
			label = strings.TrimSpace(strings.TrimPrefix(label, reportPrefix))
			value = strings.TrimSpace(value)
			switch label {
			case "RequestId":
				report.RequestID = value
			case "Duration":
				report.DurationMs = parseUnit(value, "ms")
			case "Billed Duration":
				report.BilledDurationMs = parseUnit(value, "ms")
			case "Init Duration":
				report.InitDurationMs = parseUnit(value, "ms")
			case "Memory Size":
				report.MemorySizeMB = int(parseUnit(value, "MB"))
			case "Max Memory Used":
				report.MaxMemoryUsedMB = int(parseUnit(value, "MB"))
			}
		}
		return report, true
	}
	return Report{}, false
}

func parseUnit(value, unit string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(value, unit)), 64)
	if err != nil {
		return 0
	}
	return v
}
