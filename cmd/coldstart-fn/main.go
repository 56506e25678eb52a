package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"

	"github.com/streamfold/coldstart-bench/internal/function"
	"github.com/streamfold/coldstart-bench/internal/telemetry"
)

// everything below is built once per sandbox, so it is part of the measured
// init duration
var (
	handler  *function.Handler
	provider *telemetry.Provider
)

func HandleRequest(ctx context.Context, req function.Request) (any, error) {
	defer func() {
		// the sandbox can be frozen as soon as we return
		if err := provider.ForceFlush(ctx); err != nil {
			zap.L().Warn("failed to flush spans", zap.Error(err))
		}
	}()

	out, err := handler.Handle(ctx, req)
	if err != nil {
		zap.L().Error("operation failed", zap.String("operation", req.Operation), zap.Error(err))
		return nil, err
	}
	return out, nil
}

func init() {
	zap.ReplaceGlobals(zap.Must(zap.NewProduction()))
}

func main() {
	cfg, err := env.ParseAs[telemetry.Config]()
	if err != nil {
		panic(fmt.Errorf("failed to parse telemetry config: %w", err))
	}
	provider, err = telemetry.Init(context.Background(), cfg)
	if err != nil {
		panic(fmt.Errorf("failed to init telemetry: %w", err))
	}

	// we configure the AWS SDK clients outside of the handler to reuse connections
	sess, err := session.NewSession(&aws.Config{})
	if err != nil {
		panic(fmt.Errorf("failed to create new session: %w", err))
	}

	handler = function.NewHandler(s3.New(sess), os.Getenv("AWS_REGION"), provider.Tracer("coldstart-fn"))

	lambda.StartWithOptions(HandleRequest,
		lambda.WithEnableSIGTERM(func() {
			if err := provider.Shutdown(context.Background()); err != nil {
				zap.L().Warn("failed to shut down tracer provider", zap.Error(err))
			}
		}),
	)
}
