package stacks

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdklambdagoalpha/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/streamfold/coldstart-bench/infra/config"
	"github.com/streamfold/coldstart-bench/infra/lib/cdklogger"
)

const defaultResultsPrefix = "coldstart"

type ColdstartStackProps struct {
	awscdk.StackProps
	// ExportEntry is the path of the export-results command, relative to the
	// working directory of the synth.
	ExportEntry string
}

type ColdstartStackOutput struct {
	Stack         awscdk.Stack
	ResultsBucket awss3.IBucket
	ExecutionRole awsiam.IRole
	Exporter      awscdklambdagoalpha.GoFunction
}

// ColdstartStack holds what the benchmark needs around it: a bucket for the
// per-run CSV files, the execution role given to every benchmark function and
// the export-results lambda that turns one run into a report.
func ColdstartStack(scope constructs.Construct, id string, props *ColdstartStackProps) ColdstartStackOutput {
	var sprops awscdk.StackProps
	if props != nil {
		sprops = props.StackProps
	}
	stack := awscdk.NewStack(scope, jsii.String(id), &sprops)

	envVars := config.GetEnvironmentVariables[config.ColdstartStackEnvironmentVariables](stack)
	prefix := envVars.ResultsPrefix
	if prefix == "" {
		prefix = defaultResultsPrefix
	}

	resultsBucket := createBucket(stack, "ResultsBucket", envVars.ResultsBucketName, envVars.KeepResults)
	if !envVars.KeepResults {
		cdklogger.LogWarning(stack, id, "results bucket is emptied and removed together with the stack")
	}
	executionRole := createExecutionRole(stack)

	entry := "../../cmd/export-results"
	if props != nil && props.ExportEntry != "" {
		entry = props.ExportEntry
	}
	exporter := awscdklambdagoalpha.NewGoFunction(stack, jsii.String("ExportResults"), &awscdklambdagoalpha.GoFunctionProps{
		Entry:      jsii.String(entry),
		Timeout:    awscdk.Duration_Minutes(jsii.Number(5)),
		MemorySize: jsii.Number(512),
		Bundling: &awscdklambdagoalpha.BundlingOptions{
			// to make it work in CI and local ACT
			BundlingFileAccess: awscdk.BundlingFileAccess_VOLUME_COPY,
			GoBuildFlags: &[]*string{
				jsii.String("-ldflags \"-s -w\""),
			},
		},
	})
	resultsBucket.GrantReadWrite(exporter, nil)

	cdklogger.LogInfo(stack, id, "results are stored under s3://<bucket>/%s/", prefix)

	awscdk.NewCfnOutput(stack, jsii.String("ResultsBucketName"), &awscdk.CfnOutputProps{
		Value:       resultsBucket.BucketName(),
		Description: jsii.String("value for COLDSTART_RESULTS_BUCKET"),
	})
	awscdk.NewCfnOutput(stack, jsii.String("ResultsPrefix"), &awscdk.CfnOutputProps{
		Value:       jsii.String(prefix),
		Description: jsii.String("value for COLDSTART_RESULTS_PREFIX"),
	})
	awscdk.NewCfnOutput(stack, jsii.String("ExecutionRoleArn"), &awscdk.CfnOutputProps{
		Value:       executionRole.RoleArn(),
		Description: jsii.String("value for --role-arn"),
	})
	awscdk.NewCfnOutput(stack, jsii.String("ExportResultsFunctionName"), &awscdk.CfnOutputProps{
		Value: exporter.FunctionName(),
	})

	return ColdstartStackOutput{
		Stack:         stack,
		ResultsBucket: resultsBucket,
		ExecutionRole: executionRole,
		Exporter:      exporter,
	}
}

func createBucket(scope constructs.Construct, id string, name string, keep bool) awss3.IBucket {
	props := &awss3.BucketProps{
		// private
		PublicReadAccess:  jsii.Bool(false),
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		Encryption:        awss3.BucketEncryption_S3_MANAGED,
	}
	if name != "" {
		props.BucketName = jsii.String(name)
	}
	if !keep {
		props.RemovalPolicy = awscdk.RemovalPolicy_DESTROY
		props.AutoDeleteObjects = jsii.Bool(true)
	}
	return awss3.NewBucket(scope, jsii.String(id), props)
}

// createExecutionRole is assumed by the deployed benchmark functions. The
// list_buckets operation needs s3:ListAllMyBuckets.
func createExecutionRole(scope constructs.Construct) awsiam.IRole {
	role := awsiam.NewRole(scope, jsii.String("ExecutionRole"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("lambda.amazonaws.com"), nil),
		ManagedPolicies: &[]awsiam.IManagedPolicy{
			awsiam.ManagedPolicy_FromAwsManagedPolicyName(jsii.String("service-role/AWSLambdaBasicExecutionRole")),
		},
	})
	role.AddToPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
		Actions:   jsii.Strings("s3:ListAllMyBuckets"),
		Resources: jsii.Strings("*"),
	}))
	return role
}
