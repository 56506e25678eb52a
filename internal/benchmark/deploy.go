package benchmark

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/lambda"
	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

var (
	ErrProviderRejection = errors.New("deployment rejected by provider")
	ErrFunctionFailed    = errors.New("function entered Failed state")
)

// ManagerOptions tune a Manager. Zero values are replaced by defaults.
type ManagerOptions struct {
	Namer       *Namer
	SettleDelay time.Duration
	// WaitActive polls the function configuration after the settle delay
	// until the function reports State=Active.
	WaitActive    bool
	PollInterval  time.Duration
	MaxActiveWait time.Duration
	Tracer        trace.Tracer
	Logger        *zap.Logger
	// Sleep waits for d or until ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Manager deploys and removes benchmark functions.
type Manager struct {
	client LambdaAPI
	opt    ManagerOptions
	l      *zap.Logger
}

func NewManager(client LambdaAPI, mods ...func(*ManagerOptions)) *Manager {
	opt := ManagerOptions{
		Namer:         defaultNamer,
		SettleDelay:   DefaultSettleDelay,
		PollInterval:  defaultActivePollInterval,
		MaxActiveWait: DefaultMaxActiveWait,
		Tracer:        noop.NewTracerProvider().Tracer(""),
		Logger:        zap.L(),
		Sleep:         sleepContext,
	}
	for _, mod := range mods {
		mod(&opt)
	}
	if opt.PollInterval <= 0 {
		opt.PollInterval = defaultActivePollInterval
	}
	return &Manager{client: client, opt: opt, l: opt.Logger.Named("deploy")}
}

// Name returns the deployed name of spec.
func (m *Manager) Name(spec FunctionSpec) (string, error) {
	return m.opt.Namer.Name(spec)
}

// EnsureAbsent deletes the function called name. A function that does not
// exist is not an error; any other failure is returned.
func (m *Manager) EnsureAbsent(ctx context.Context, name string) error {
	_, err := m.client.DeleteFunctionWithContext(ctx, &lambda.DeleteFunctionInput{
		FunctionName: aws.String(name),
	})
	switch {
	case err == nil:
		m.l.Info("deleted function", zap.String("function", name))
		return nil
	case isNotFound(err):
		m.l.Debug("function not found", zap.String("function", name))
		return nil
	default:
		return errors.Wrapf(err, "failed to delete function %s", name)
	}
}

// Deploy removes any function with the same name, creates it from spec and
// waits for it to settle.
//
// A provider refusal, or a function that ends up in the Failed state while
// waiting for Active, returns the instance in StateRejected together with an
// error wrapping ErrProviderRejection. Once the function has been created the
// returned instance is non-nil even when settling fails, so that the caller
// can tear it down.
func (m *Manager) Deploy(ctx context.Context, spec FunctionSpec) (*Instance, error) {
	name, err := m.Name(spec)
	if err != nil {
		return nil, err
	}

	ctx, span := m.opt.Tracer.Start(ctx, "deploy", trace.WithAttributes(
		attribute.String("faas.name", name),
		attribute.Int64("faas.max_memory", spec.MemorySize),
	))
	defer span.End()

	inst := &Instance{Spec: spec, Name: name, State: StateAbsent}
	if err := m.EnsureAbsent(ctx, name); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	inst.State = StateDeploying
	out, err := m.client.CreateFunctionWithContext(ctx, createFunctionInput(name, spec))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if isProviderError(err) {
			inst.State = StateRejected
			m.l.Warn("function creation rejected", zap.String("function", name), zap.Error(err))
			return inst, fmt.Errorf("%w: %s: %w", ErrProviderRejection, name, err)
		}
		return nil, errors.Wrapf(err, "failed to create function %s", name)
	}
	inst.ARN = aws.StringValue(out.FunctionArn)
	m.l.Info("created function", zap.String("function", name), zap.String("arn", inst.ARN))

	inst.State = StateSettling
	if err := m.settle(ctx, name); err != nil {
		span.SetStatus(codes.Error, err.Error())
		if !errors.Is(err, ErrFunctionFailed) {
			return inst, err
		}
		// a function the provider failed to initialize is excluded like a
		// refused create, once it is gone
		if derr := m.EnsureAbsent(ctx, name); derr != nil {
			return inst, fmt.Errorf("%w: %w", err, derr)
		}
		inst.State = StateRejected
		m.l.Warn("function failed to become active", zap.String("function", name), zap.Error(err))
		return inst, fmt.Errorf("%w: %s: %w", ErrProviderRejection, name, err)
	}

	inst.State = StateInvocable
	return inst, nil
}

func createFunctionInput(name string, spec FunctionSpec) *lambda.CreateFunctionInput {
	input := &lambda.CreateFunctionInput{
		FunctionName: aws.String(name),
		Runtime:      aws.String(spec.Runtime),
		Role:         aws.String(spec.Role),
		Handler:      aws.String(spec.Handler),
		Code:         &lambda.FunctionCode{ZipFile: spec.Artifact},
		Timeout:      aws.Int64(lo.Ternary(spec.Timeout > 0, spec.Timeout, DefaultTimeout)),
		MemorySize:   aws.Int64(spec.MemorySize),
		Environment: &lambda.Environment{
			Variables: aws.StringMap(lo.Ternary(spec.Environment != nil, spec.Environment, map[string]string{})),
		},
		Layers: []*string{},
	}
	if spec.Layer != "" {
		input.Layers = aws.StringSlice([]string{spec.Layer})
	}
	return input
}

func (m *Manager) settle(ctx context.Context, name string) error {
	if err := m.opt.Sleep(ctx, m.opt.SettleDelay); err != nil {
		return errors.Wrapf(err, "interrupted while settling %s", name)
	}
	if !m.opt.WaitActive {
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewConstantBackOff(m.opt.PollInterval),
		uint64(m.opt.MaxActiveWait/m.opt.PollInterval),
	), ctx)

	err := backoff.RetryNotify(func() error {
		cfg, err := m.client.GetFunctionConfigurationWithContext(ctx, &lambda.GetFunctionConfigurationInput{
			FunctionName: aws.String(name),
		})
		if err != nil {
			return errors.Wrap(err, "failed to get function configuration")
		}
		switch state := aws.StringValue(cfg.State); state {
		case lambda.StateActive:
			return nil
		case lambda.StateFailed:
			return backoff.Permanent(fmt.Errorf("%w: %s", ErrFunctionFailed, aws.StringValue(cfg.StateReason)))
		default:
			return fmt.Errorf("function state is %s", state)
		}
	}, b, func(err error, d time.Duration) {
		m.l.Debug("waiting for function to become active", zap.String("function", name), zap.Error(err), zap.String("retry_in", d.String()))
	})
	if err != nil {
		return errors.Wrapf(err, "function %s did not become active", name)
	}
	return nil
}

// Teardown deletes the instance's function and marks it torn down.
func (m *Manager) Teardown(ctx context.Context, inst *Instance) error {
	if !inst.Live() {
		return nil
	}
	if err := m.EnsureAbsent(ctx, inst.Name); err != nil {
		return err
	}
	inst.State = StateTornDown
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
