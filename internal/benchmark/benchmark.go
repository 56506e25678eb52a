package benchmark

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Runner drives the benchmark: for every configuration and memory size it
// deploys a group of instances, invokes each once, tears the group down and
// persists the group's results. Everything runs sequentially.
type Runner struct {
	manager *Manager
	invoker *Invoker
	l       *zap.Logger

	mu      sync.Mutex
	tracked []*Instance
}

func NewRunner(manager *Manager, invoker *Invoker) *Runner {
	return &Runner{manager: manager, invoker: invoker, l: zap.L().Named("runner")}
}

// group is one (configuration, memory) combination.
type group struct {
	config Configuration
	memory int64
}

func generateGroups(input RunInput) []group {
	var groups []group
	for _, c := range input.Configurations {
		for _, m := range input.Memory {
			groups = append(groups, group{config: c, memory: m})
		}
	}
	return groups
}

// Run benchmarks every group in input. A fatal error stops the run at once
// and is returned together with the results of the groups completed so far;
// call Cleanup afterwards to remove anything still deployed.
func (r *Runner) Run(ctx context.Context, input RunInput) (RunOutput, error) {
	if input.SamplesPerGroup <= 0 {
		input.SamplesPerGroup = SamplesPerGroup
	}

	var out RunOutput
	for _, g := range generateGroups(input) {
		results, err := r.runGroup(ctx, input, g, &out)
		if err != nil {
			return out, err
		}

		if input.ResultPath != "" {
			if err := saveResults(results, input.ResultPath); err != nil {
				return out, err
			}
		}
		out.Results = append(out.Results, results...)
	}
	return out, nil
}

func (r *Runner) runGroup(ctx context.Context, input RunInput, g group, out *RunOutput) ([]InvocationResult, error) {
	l := r.l.With(zap.String("base_name", g.config.BaseName), zap.Int64("memory", g.memory))
	l.Info("deploying group", zap.Int("count", input.SamplesPerGroup))

	var instances []*Instance
	for i := 1; i <= input.SamplesPerGroup; i++ {
		spec := FunctionSpec{
			BaseName:    g.config.BaseName,
			Index:       i,
			MemorySize:  g.memory,
			Role:        input.Role,
			Handler:     input.Handler,
			Runtime:     input.Runtime,
			Artifact:    input.Artifact,
			Layer:       g.config.Layer,
			Environment: g.config.Environment,
			Timeout:     input.Timeout,
		}

		inst, err := r.manager.Deploy(ctx, spec)
		if inst != nil && inst.Live() {
			r.track(inst)
		}
		if errors.Is(err, ErrProviderRejection) {
			out.Rejected = append(out.Rejected, inst.Name)
			continue
		}
		if err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	l.Info("deployed group", zap.Int("invocable", len(instances)))

	var results []InvocationResult
	for _, inst := range instances {
		res, err := r.invoker.Invoke(ctx, inst, input.Payload)
		if errors.Is(err, ErrInvocationFailed) {
			out.Failed = append(out.Failed, inst.Name)
			continue
		}
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}

	if !input.KeepFunctions {
		for _, inst := range instances {
			if err := r.manager.Teardown(ctx, inst); err != nil {
				l.Warn("failed to tear down function", zap.String("function", inst.Name), zap.Error(err))
			}
		}
	}
	return results, nil
}

func (r *Runner) track(inst *Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracked = append(r.tracked, inst)
}

// Cleanup tears down every instance created by this runner that is not torn
// down yet, whatever state the run stopped in. Failures are collected and
// returned together; instances that could not be removed stay tracked.
func (r *Runner) Cleanup(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs error
	remaining := r.tracked[:0]
	for _, inst := range r.tracked {
		if err := r.manager.Teardown(ctx, inst); err != nil {
			errs = multierr.Append(errs, err)
		}
		if inst.Live() {
			remaining = append(remaining, inst)
		}
	}
	r.tracked = remaining
	return errs
}
