// Package function is the sample workload deployed by the benchmark. It keeps
// its work trivial so that measured time is dominated by initialization.
package function

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Operation is the closed set of operations the function understands.
type Operation string

const (
	OperationEcho        Operation = "echo"
	OperationListBuckets Operation = "list_buckets"
)

var ErrUnknownOperation = errors.New("unrecognized operation")

// ParseOperation maps a wire value onto an Operation.
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(s); op {
	case OperationEcho, OperationListBuckets:
		return op, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownOperation, s)
	}
}

// Request is the invocation event: an operation and its parameters.
type Request struct {
	Operation string         `json:"operation"`
	Payload   map[string]any `json:"payload"`
}

// Response follows the API Gateway proxy shape. Body is itself JSON encoded.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// ListBucketsParams are the optional parameters of list_buckets.
type ListBucketsParams struct {
	Prefix string `mapstructure:"prefix"`
}

// S3API is the part of the S3 client the function calls.
type S3API interface {
	ListBucketsWithContext(aws.Context, *s3.ListBucketsInput, ...request.Option) (*s3.ListBucketsOutput, error)
}

type Handler struct {
	s3     S3API
	region string
	tracer trace.Tracer
}

func NewHandler(s3Client S3API, region string, tracer trace.Tracer) *Handler {
	return &Handler{s3: s3Client, region: region, tracer: tracer}
}

// Handle dispatches the request. Echo returns the payload untouched; every
// other operation returns a Response.
func (h *Handler) Handle(ctx context.Context, req Request) (any, error) {
	ctx, span := h.tracer.Start(ctx, "op-"+req.Operation)
	defer span.End()

	op, err := ParseOperation(req.Operation)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("faas.operation", string(op)))

	switch op {
	case OperationEcho:
		return req.Payload, nil
	case OperationListBuckets:
		return h.listBuckets(ctx, req.Payload)
	}
	// ParseOperation only returns known operations
	return nil, fmt.Errorf("%w %q", ErrUnknownOperation, op)
}

func (h *Handler) listBuckets(ctx context.Context, payload map[string]any) (*Response, error) {
	var params ListBucketsParams
	if err := mapstructure.Decode(payload, &params); err != nil {
		return nil, errors.Wrap(err, "failed to decode list_buckets payload")
	}

	out, err := h.s3.ListBucketsWithContext(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list buckets")
	}

	names := make([]string, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		name := aws.StringValue(b.Name)
		if strings.HasPrefix(name, params.Prefix) {
			names = append(names, name)
		}
	}

	body, err := json.Marshal(struct {
		Buckets []string `json:"Buckets"`
		Region  string   `json:"Region"`
	}{Buckets: names, Region: h.region})
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: 200,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}, nil
}
