package stacks

import (
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
)

func newTestApp() awscdk.App {
	return awscdk.NewApp(&awscdk.AppProps{
		// skip docker bundling of the go function
		Context: &map[string]interface{}{
			"aws:cdk:bundling-stacks": []string{},
		},
	})
}

func TestColdstartStackSynth(t *testing.T) {
	app := newTestApp()
	out := ColdstartStack(app, "Coldstart", &ColdstartStackProps{
		StackProps: awscdk.StackProps{
			Env: &awscdk.Environment{
				Account: jsii.String("123456789012"),
				Region:  jsii.String("us-east-1"),
			},
		},
		ExportEntry: "../../../cmd/export-results",
	})

	template := assertions.Template_FromStack(out.Stack, nil)

	template.ResourceCountIs(jsii.String("AWS::S3::Bucket"), jsii.Number(1))
	template.HasResourceProperties(jsii.String("AWS::IAM::Role"), map[string]interface{}{
		"AssumeRolePolicyDocument": assertions.Match_ObjectLike(&map[string]interface{}{
			"Statement": assertions.Match_ArrayWith(&[]interface{}{
				assertions.Match_ObjectLike(&map[string]interface{}{
					"Principal": map[string]interface{}{"Service": "lambda.amazonaws.com"},
				}),
			}),
		}),
	})
	template.HasResourceProperties(jsii.String("AWS::IAM::Policy"), map[string]interface{}{
		"PolicyDocument": assertions.Match_ObjectLike(&map[string]interface{}{
			"Statement": assertions.Match_ArrayWith(&[]interface{}{
				assertions.Match_ObjectLike(&map[string]interface{}{
					"Action":   "s3:ListAllMyBuckets",
					"Resource": "*",
				}),
			}),
		}),
	})
	template.HasResourceProperties(jsii.String("AWS::Lambda::Function"), map[string]interface{}{
		"MemorySize": 512,
		"Timeout":    300,
	})
	template.HasOutput(jsii.String("ResultsPrefix"), map[string]interface{}{
		"Value": "coldstart",
	})
	template.HasOutput(jsii.String("ExecutionRoleArn"), map[string]interface{}{})
}

func TestCreateBucketDestroyable(t *testing.T) {
	app := newTestApp()
	stack := awscdk.NewStack(app, jsii.String("BucketStack"), nil)
	createBucket(stack, "ResultsBucket", "coldstart-results", false)

	template := assertions.Template_FromStack(stack, nil)
	template.HasResource(jsii.String("AWS::S3::Bucket"), map[string]interface{}{
		"DeletionPolicy": "Delete",
		"Properties": assertions.Match_ObjectLike(&map[string]interface{}{
			"BucketName": "coldstart-results",
		}),
	})
	// auto delete is backed by a custom resource
	template.ResourceCountIs(jsii.String("Custom::S3AutoDeleteObjects"), jsii.Number(1))
}
