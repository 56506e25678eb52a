// Package initlog recovers the provider-reported initialization time from a
// Lambda execution log tail.
//
// The log tail is returned by the Invoke API base64 encoded. Once decoded, a
// cold invocation carries a REPORT line such as:
//
//	REPORT RequestId: 3f0c... Duration: 2.13 ms Billed Duration: 3 ms Memory Size: 128 MB Max Memory Used: 40 MB Init Duration: 123.45 ms
//
// An extension that crashed during init leaves an `Extension.Crash` marker
// somewhere in the tail; a crashed run is never trusted, whatever numbers it
// printed.
package initlog

import (
	"bufio"
	"encoding/base64"
	"errors"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	// InitDurationMarker labels the init duration field on the REPORT line.
	InitDurationMarker = "Init Duration:"
	// ExtensionCrashMarker is printed by the runtime when an extension dies.
	ExtensionCrashMarker = "Extension.Crash"

	msSuffix = "ms"
)

var (
	ErrExtensionCrash        = errors.New("lambda extension has crashed")
	ErrMissingInitDuration   = errors.New("could not extract the init duration from the execution log")
	ErrMalformedNumericField = errors.New("malformed numeric field")
)

// DecodeTail decodes the transport encoding of an execution log tail.
func DecodeTail(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// ExtractInitDuration returns the init duration in milliseconds reported on
// the first line carrying InitDurationMarker with a parseable value.
//
// A crash marker anywhere in the log wins over any match. Lines whose value
// does not parse are skipped. ErrMissingInitDuration is returned only once
// every line has been scanned.
func ExtractInitDuration(log string) (float64, error) {
	lines := splitLines(log)

	for _, line := range lines {
		if strings.Contains(line, ExtensionCrashMarker) {
			return 0, ErrExtensionCrash
		}
	}

	for _, line := range lines {
		if !strings.Contains(line, InitDurationMarker) {
			continue
		}
		value, err := parseField(line, InitDurationMarker)
		if err != nil {
			zap.L().Debug("skipping init duration candidate", zap.String("line", line), zap.Error(err))
			continue
		}
		return value, nil
	}

	return 0, ErrMissingInitDuration
}

// parseField reads the `<label> <number> ms` value following label on line.
func parseField(line, label string) (float64, error) {
	_, rest, found := strings.Cut(line, label)
	if !found {
		return 0, ErrMalformedNumericField
	}
	raw, _, found := strings.Cut(rest, msSuffix)
	if !found {
		return 0, ErrMalformedNumericField
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, ErrMalformedNumericField
	}
	return value, nil
}

func splitLines(log string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(log))
	// REPORT lines of functions with large extensions can get long
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if scanner.Err() != nil {
		// fall back to a plain split; a truncated tail is still worth scanning
		return strings.Split(log, "\n")
	}
	return lines
}
