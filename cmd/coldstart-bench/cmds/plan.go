package cmds

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/streamfold/coldstart-bench/internal/benchmark"
	"github.com/streamfold/coldstart-bench/internal/config"
)

// planFlags can override any plan value from the command line.
type planFlags struct {
	artifact     string
	role         string
	count        int
	functionName string
	handler      string
	runtime      string
	environment  string
	layer        string
	memory       []int64
	settle       time.Duration
	waitActive   bool
	timeout      int64
	operation    string
	baseline     string
}

func (p *planFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&p.artifact, "path", "", "path to the function.zip artifact")
	fs.StringVar(&p.role, "role-arn", "", "ARN of the IAM role for Lambda execution")
	fs.IntVar(&p.count, "count", benchmark.SamplesPerGroup, "number of functions deployed per configuration and memory size")
	fs.StringVar(&p.functionName, "function-name", "test-function", "base name of a single configuration, replaces the plan's configurations")
	fs.StringVar(&p.handler, "handler", "", "Lambda function handler")
	fs.StringVar(&p.runtime, "runtime", "", "Lambda runtime")
	fs.StringVar(&p.environment, "environment", "", "function environment as KEY=VALUE,KEY2=VALUE2")
	fs.StringVar(&p.layer, "layer", "", "ARN of a layer to include")
	fs.Int64SliceVar(&p.memory, "memory", nil, "memory sizes in MB, e.g. 128,256,512")
	fs.DurationVar(&p.settle, "settle", benchmark.DefaultSettleDelay, "delay between creating a function and invoking it")
	fs.BoolVar(&p.waitActive, "wait-active", false, "after settling, poll until the function state is Active")
	fs.Int64Var(&p.timeout, "timeout", benchmark.DefaultTimeout, "function timeout in seconds")
	fs.StringVar(&p.operation, "operation", "", "operation sent to the function: echo or list_buckets")
	fs.StringVar(&p.baseline, "baseline", "", "base name the other configurations are compared against")
}

// resolvePlan loads the plan file when present and applies the flags the user
// set. A missing plan file is only an error when its path was given explicitly.
// The result is not validated.
func resolvePlan(path string, explicit bool, p *planFlags, fs *pflag.FlagSet) (config.Plan, error) {
	plan := config.DefaultPlan()
	if _, err := os.Stat(path); err == nil {
		if plan, err = config.DecodePlan(path); err != nil {
			return config.Plan{}, err
		}
	} else if explicit || !os.IsNotExist(err) {
		return config.Plan{}, errors.Wrapf(err, "failed to read plan %s", path)
	}

	if fs.Changed("path") {
		plan.Artifact = p.artifact
	}
	if fs.Changed("role-arn") {
		plan.Role = p.role
	}
	if fs.Changed("count") {
		plan.SamplesPerGroup = p.count
	}
	if fs.Changed("handler") {
		plan.Handler = p.handler
	}
	if fs.Changed("runtime") {
		plan.Runtime = p.runtime
	}
	if fs.Changed("memory") {
		plan.Memory = p.memory
	}
	if fs.Changed("settle") {
		plan.SettleDelay = config.Duration{Duration: p.settle}
	}
	if fs.Changed("wait-active") {
		plan.WaitActive = p.waitActive
	}
	if fs.Changed("timeout") {
		plan.Timeout = p.timeout
	}
	if fs.Changed("operation") {
		plan.Operation = p.operation
	}
	if fs.Changed("baseline") {
		plan.Baseline = p.baseline
	}

	if fs.Changed("function-name") || len(plan.Configurations) == 0 {
		plan.Configurations = []config.Configuration{{BaseName: p.functionName}}
	}
	if fs.Changed("layer") {
		for i := range plan.Configurations {
			plan.Configurations[i].Layer = p.layer
		}
	}
	if fs.Changed("environment") {
		env, err := config.ParseEnvironmentFlag(p.environment)
		if err != nil {
			return config.Plan{}, err
		}
		for i := range plan.Configurations {
			plan.Configurations[i].Environment = env
		}
	}

	return plan, nil
}

func configurations(plan config.Plan) []benchmark.Configuration {
	out := make([]benchmark.Configuration, len(plan.Configurations))
	for i, c := range plan.Configurations {
		out[i] = benchmark.Configuration{
			BaseName:    c.BaseName,
			Layer:       c.Layer,
			Environment: c.Environment,
		}
	}
	return out
}
