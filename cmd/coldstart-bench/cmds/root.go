// Package cmds holds the coldstart-bench command tree.
package cmds

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/lambda"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/streamfold/coldstart-bench/internal/benchmark"
	"github.com/streamfold/coldstart-bench/internal/config"
)

// rootFlags are shared by every sub-command.
type rootFlags struct {
	planPath string
	region   string
	env      config.Environment
}

// newLambdaClient is replaced in tests.
var newLambdaClient = func(sess *session.Session) benchmark.LambdaAPI {
	return lambda.New(sess)
}

func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "coldstart-bench",
		Short:         "Benchmark AWS Lambda cold starts across configurations and memory sizes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			env, err := config.Load()
			if err != nil {
				return err
			}
			flags.env = env
			if !cmd.Flags().Changed("plan") {
				flags.planPath = env.PlanPath
			}
			if !cmd.Flags().Changed("region") {
				flags.region = env.Region
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flags.planPath, "plan", "coldstart.toml", "path to the TOML benchmark plan (env COLDSTART_PLAN)")
	cmd.PersistentFlags().StringVar(&flags.region, "region", "us-east-1", "AWS region (env AWS_REGION)")

	cmd.AddCommand(
		newRunCmd(flags),
		newAggregateCmd(),
		newTeardownCmd(flags),
	)
	return cmd
}

func newSession(region string) (*session.Session, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create new session")
	}
	return sess, nil
}
