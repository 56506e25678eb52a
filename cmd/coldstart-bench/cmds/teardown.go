package cmds

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/streamfold/coldstart-bench/internal/benchmark"
	"github.com/streamfold/coldstart-bench/internal/config"
)

func newTeardownCmd(root *rootFlags) *cobra.Command {
	flags := &planFlags{}

	cmd := &cobra.Command{
		Use:   "teardown",
		Short: "Delete every function the plan would deploy, for runs that were killed before cleaning up",
		RunE: func(cmd *cobra.Command, _ []string) error {
			plan, err := resolvePlan(root.planPath, cmd.Flags().Changed("plan"), flags, cmd.Flags())
			if err != nil {
				return err
			}
			region := root.region
			if plan.Region != "" && !cmd.Flags().Changed("region") {
				region = plan.Region
			}

			sess, err := newSession(region)
			if err != nil {
				return err
			}
			return teardown(cmd.Context(), newLambdaClient(sess), plan)
		},
	}

	flags.register(cmd.Flags())
	return cmd
}

// teardown removes every function name the plan produces. Names that do not
// exist are skipped; other failures are collected and returned together.
func teardown(ctx context.Context, client benchmark.LambdaAPI, plan config.Plan) error {
	namer, err := benchmark.NewNamer(plan.NameTemplate)
	if err != nil {
		return err
	}
	manager := benchmark.NewManager(client, func(o *benchmark.ManagerOptions) { o.Namer = namer })

	var errs error
	for _, c := range plan.Configurations {
		for _, memory := range plan.Memory {
			for i := 1; i <= plan.SamplesPerGroup; i++ {
				name, err := manager.Name(benchmark.FunctionSpec{BaseName: c.BaseName, MemorySize: memory, Index: i})
				if err != nil {
					return err
				}
				errs = multierr.Append(errs, manager.EnsureAbsent(ctx, name))
			}
		}
	}
	if errs == nil {
		zap.L().Info("teardown complete")
	}
	return errs
}
