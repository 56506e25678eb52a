package benchmark

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/lambda"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type mockLambda struct {
	mock.Mock
}

func (m *mockLambda) CreateFunctionWithContext(ctx aws.Context, in *lambda.CreateFunctionInput, _ ...request.Option) (*lambda.FunctionConfiguration, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*lambda.FunctionConfiguration)
	return out, args.Error(1)
}

func (m *mockLambda) DeleteFunctionWithContext(ctx aws.Context, in *lambda.DeleteFunctionInput, _ ...request.Option) (*lambda.DeleteFunctionOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*lambda.DeleteFunctionOutput)
	return out, args.Error(1)
}

func (m *mockLambda) GetFunctionConfigurationWithContext(ctx aws.Context, in *lambda.GetFunctionConfigurationInput, _ ...request.Option) (*lambda.FunctionConfiguration, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*lambda.FunctionConfiguration)
	return out, args.Error(1)
}

func (m *mockLambda) InvokeWithContext(ctx aws.Context, in *lambda.InvokeInput, _ ...request.Option) (*lambda.InvokeOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*lambda.InvokeOutput)
	return out, args.Error(1)
}

func named(name string) func(in *lambda.CreateFunctionInput) bool {
	return func(in *lambda.CreateFunctionInput) bool { return aws.StringValue(in.FunctionName) == name }
}

func invokedName(name string) func(in *lambda.InvokeInput) bool {
	return func(in *lambda.InvokeInput) bool { return aws.StringValue(in.FunctionName) == name }
}

func notFound() error {
	return awserr.New(lambda.ErrCodeResourceNotFoundException, "Function not found", nil)
}

func coldStartLog(initMs float64) string {
	return fmt.Sprintf("START RequestId: 42 Version: $LATEST\nEND RequestId: 42\n"+
		"REPORT RequestId: 42\tDuration: 2.50 ms\tBilled Duration: 3 ms\tMemory Size: 128 MB\tMax Memory Used: 41 MB\tInit Duration: %.2f ms\t\n", initMs)
}

func invokeOutput(log string) *lambda.InvokeOutput {
	return &lambda.InvokeOutput{
		StatusCode: aws.Int64(200),
		LogResult:  aws.String(base64.StdEncoding.EncodeToString([]byte(log))),
		Payload:    []byte(`{"statusCode": 200, "headers": {"Content-Type": "application/json"}, "body": "{}"}`),
	}
}

func noSleep(context.Context, time.Duration) error { return nil }

func testManager(client LambdaAPI, mods ...func(*ManagerOptions)) *Manager {
	base := func(o *ManagerOptions) {
		o.Sleep = noSleep
		o.Logger = zap.NewNop()
	}
	return NewManager(client, append([]func(*ManagerOptions){base}, mods...)...)
}
