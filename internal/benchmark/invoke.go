package benchmark

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/lambda"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/streamfold/coldstart-bench/internal/benchmark/initlog"
)

var ErrInvocationFailed = errors.New("invocation failed")

// ExtractionError is returned when the init duration cannot be recovered from
// an invocation log. It halts the run.
type ExtractionError struct {
	FunctionName string
	Log          string
	Err          error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("function %s: %v\nexecution log:\n%s", e.FunctionName, e.Err, e.Log)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Invoker calls deployed functions once each and measures them.
type Invoker struct {
	client LambdaAPI
	tracer trace.Tracer
	l      *zap.Logger
	now    func() time.Time
}

func NewInvoker(client LambdaAPI, tracer trace.Tracer) *Invoker {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Invoker{client: client, tracer: tracer, l: zap.L().Named("invoke"), now: time.Now}
}

// responseEnvelope is the proxy-style body returned by the sample function.
type responseEnvelope struct {
	StatusCode int `json:"statusCode"`
}

// Invoke calls inst synchronously with payload and returns the measurement.
//
// Provider errors return an error wrapping ErrInvocationFailed and mark the
// instance invocation-failed. A log without a usable init duration returns an
// *ExtractionError.
func (i *Invoker) Invoke(ctx context.Context, inst *Instance, payload any) (*InvocationResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode payload")
	}

	ctx, span := i.tracer.Start(ctx, "invoke", trace.WithAttributes(
		attribute.String("faas.invoked_name", inst.Name),
		attribute.Int64("faas.max_memory", inst.Spec.MemorySize),
	))
	defer span.End()

	start := i.now()
	out, err := i.client.InvokeWithContext(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(inst.Name),
		InvocationType: aws.String(lambda.InvocationTypeRequestResponse),
		LogType:        aws.String(lambda.LogTypeTail),
		Payload:        body,
	})
	elapsed := i.now().Sub(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if !isProviderError(err) {
			return nil, errors.Wrapf(err, "failed to invoke %s", inst.Name)
		}
		inst.State = StateInvocationFailed
		i.l.Warn("invocation failed", zap.String("function", inst.Name), zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %w", ErrInvocationFailed, inst.Name, err)
	}
	inst.State = StateInvoked

	log, err := initlog.DecodeTail(aws.StringValue(out.LogResult))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		// the undecodable tail is reported as received
		return nil, &ExtractionError{FunctionName: inst.Name, Log: aws.StringValue(out.LogResult), Err: err}
	}

	initMs, err := initlog.ExtractInitDuration(log)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, &ExtractionError{FunctionName: inst.Name, Log: log, Err: err}
	}

	result := &InvocationResult{
		BaseName:         inst.Spec.BaseName,
		FunctionName:     inst.Name,
		MemorySize:       inst.Spec.MemorySize,
		StatusCode:       aws.Int64Value(out.StatusCode),
		ClientDurationMs: float64(elapsed.Microseconds()) / 1000,
		InitDurationMs:   &initMs,
		FunctionError:    aws.StringValue(out.FunctionError),
	}
	if report, ok := initlog.ParseReport(log); ok {
		result.Report = &report
	}
	if json.Valid(out.Payload) {
		result.Response = json.RawMessage(out.Payload)
	}

	fields := []zap.Field{
		zap.String("function", inst.Name),
		zap.Int64("status", result.StatusCode),
		zap.Float64("client_duration_ms", result.ClientDurationMs),
		zap.Float64("init_duration_ms", initMs),
	}
	var envelope responseEnvelope
	if err := json.Unmarshal(out.Payload, &envelope); err == nil && envelope.StatusCode != 0 {
		fields = append(fields, zap.Int("response_status", envelope.StatusCode))
	}
	if result.FunctionError != "" {
		fields = append(fields, zap.String("function_error", result.FunctionError))
	}
	i.l.Info("invoked function", fields...)

	span.SetAttributes(
		attribute.Float64("coldstart.init_duration_ms", initMs),
		attribute.Float64("coldstart.client_duration_ms", result.ClientDurationMs),
	)
	return result, nil
}
