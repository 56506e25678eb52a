package benchmark

import (
	"encoding/json"

	"github.com/streamfold/coldstart-bench/internal/benchmark/initlog"
)

type (
	InstanceState string

	// FunctionSpec is the full description of one function to deploy. The
	// deployed name depends only on BaseName, MemorySize and Index.
	FunctionSpec struct {
		BaseName    string
		Index       int
		MemorySize  int64
		Role        string
		Handler     string
		Runtime     string
		Artifact    []byte
		Layer       string
		Environment map[string]string
		Timeout     int64
	}

	// Instance is a function the Manager has acted on.
	Instance struct {
		Spec  FunctionSpec
		Name  string
		ARN   string
		State InstanceState
	}

	// InvocationResult is one successful cold-start measurement.
	InvocationResult struct {
		BaseName         string          `json:"base_name"`
		FunctionName     string          `json:"function_name"`
		MemorySize       int64           `json:"memory_size"`
		StatusCode       int64           `json:"status_code"`
		ClientDurationMs float64         `json:"client_duration_ms"`
		InitDurationMs   *float64        `json:"init_duration_ms"`
		FunctionError    string          `json:"function_error,omitempty"`
		Report           *initlog.Report `json:"report,omitempty"`
		Response         json.RawMessage `json:"response,omitempty"`
	}

	// Configuration is a deployment variant; every memory tier is benchmarked
	// for each one.
	Configuration struct {
		BaseName    string
		Layer       string
		Environment map[string]string
	}

	RunInput struct {
		Configurations  []Configuration
		Memory          []int64
		SamplesPerGroup int
		Role            string
		Handler         string
		Runtime         string
		Timeout         int64
		Artifact        []byte
		Payload         any
		// ResultPath is the CSV record store. Empty disables persistence.
		ResultPath string
		// KeepFunctions leaves each group's functions deployed after it is
		// measured. Cleanup still removes them.
		KeepFunctions bool
	}

	RunOutput struct {
		Results  []InvocationResult
		Rejected []string
		Failed   []string
	}
)

const (
	StateAbsent           InstanceState = "absent"
	StateDeploying        InstanceState = "deploying"
	StateSettling         InstanceState = "settling"
	StateInvocable        InstanceState = "invocable"
	StateInvoked          InstanceState = "invoked"
	StateInvocationFailed InstanceState = "invocation-failed"
	StateTornDown         InstanceState = "torn-down"
	StateRejected         InstanceState = "rejected"
)

// Live reports whether the instance may still exist at the provider.
func (i *Instance) Live() bool {
	switch i.State {
	case StateAbsent, StateRejected, StateTornDown:
		return false
	default:
		return true
	}
}

// InitDuration returns the init duration or 0 when absent.
func (r InvocationResult) InitDuration() float64 {
	if r.InitDurationMs == nil {
		return 0
	}
	return *r.InitDurationMs
}
