package initlog

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const coldLog = "START RequestId: 8d2b Version: $LATEST\n" +
	"END RequestId: 8d2b\n" +
	"REPORT RequestId: 8d2b\tDuration: 2.13 ms\tBilled Duration: 3 ms\tMemory Size: 128 MB\tMax Memory Used: 40 MB\tInit Duration: 123.45 ms\t\n"

func TestExtractInitDuration(t *testing.T) {
	tests := []struct {
		name    string
		log     string
		want    float64
		wantErr error
	}{
		{
			name: "ReportLine",
			log:  "REPORT Init Duration: 123.45 ms\tMax Memory Used: 40 MB",
			want: 123.45,
		},
		{
			name: "FullColdLog",
			log:  coldLog,
			want: 123.45,
		},
		{
			name: "NoSpaceBeforeUnit",
			log:  "Init Duration: 88ms",
			want: 88,
		},
		{
			name: "FirstValidMatchWins",
			log:  "Init Duration: 10.5 ms\nInit Duration: 99 ms\n",
			want: 10.5,
		},
		{
			name: "MalformedLineIsSkipped",
			log:  "Init Duration: n/a ms\nREPORT Init Duration: 42.1 ms\n",
			want: 42.1,
		},
		{
			name: "NegativeValueIsSkipped",
			log:  "Init Duration: -3 ms\nInit Duration: 7 ms\n",
			want: 7,
		},
		{
			name: "NaNIsSkipped",
			log:  "REPORT Init Duration: NaN ms\nREPORT Init Duration: 42 ms\n",
			want: 42,
		},
		{
			name:    "InfIsSkipped",
			log:     "REPORT Init Duration: +Inf ms\nREPORT Init Duration: Inf ms\n",
			wantErr: ErrMissingInitDuration,
		},
		{
			name:    "CrashMarkerWinsOverMatch",
			log:     coldLog + "EXTENSION Name: otel State: Extension.Crash\n",
			wantErr: ErrExtensionCrash,
		},
		{
			name:    "CrashMarkerBeforeMatch",
			log:     "INIT_REPORT Init Duration: 300 ms Phase: init Status: error Error Type: Extension.Crash\nREPORT Init Duration: 12 ms\n",
			wantErr: ErrExtensionCrash,
		},
		{
			name:    "NoMarker",
			log:     "START RequestId: 1\nEND RequestId: 1\nREPORT RequestId: 1\tDuration: 1.00 ms\n",
			wantErr: ErrMissingInitDuration,
		},
		{
			name:    "OnlyMalformedCandidates",
			log:     "Init Duration: ms\nInit Duration: abc\n",
			wantErr: ErrMissingInitDuration,
		},
		{
			name:    "Empty",
			log:     "",
			wantErr: ErrMissingInitDuration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractInitDuration(tt.log)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestDecodeTail(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(coldLog))

	decoded, err := DecodeTail(encoded)
	require.NoError(t, err)
	assert.Equal(t, coldLog, decoded)

	_, err = DecodeTail("%%% not base64")
	assert.Error(t, err)
}

func TestParseReport(t *testing.T) {
	report, ok := ParseReport(coldLog)
	require.True(t, ok)
	assert.Equal(t, Report{
		RequestID:        "8d2b",
		DurationMs:       2.13,
		BilledDurationMs: 3,
		MemorySizeMB:     128,
		MaxMemoryUsedMB:  40,
		InitDurationMs:   123.45,
	}, report)

	_, ok = ParseReport("START RequestId: 1\n")
	assert.False(t, ok)
}
