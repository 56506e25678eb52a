package cmds

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/streamfold/coldstart-bench/internal/benchmark"
	"github.com/streamfold/coldstart-bench/internal/benchmark/benchexport"
	"github.com/streamfold/coldstart-bench/internal/config"
	"github.com/streamfold/coldstart-bench/internal/telemetry"
)

const cleanupTimeout = 2 * time.Minute

type runFlags struct {
	plan          planFlags
	resultsPath   string
	jsonOut       string
	keepFunctions bool
	upload        bool
}

func newRunCmd(root *rootFlags) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Deploy, invoke and measure every configuration of the plan",
		RunE: func(cmd *cobra.Command, _ []string) error {
			plan, err := resolvePlan(root.planPath, cmd.Flags().Changed("plan"), &flags.plan, cmd.Flags())
			if err != nil {
				return err
			}
			if err := plan.Validate(); err != nil {
				return err
			}
			if !cmd.Flags().Changed("results") {
				flags.resultsPath = root.env.ResultsPath
			}
			region := root.region
			if plan.Region != "" && !cmd.Flags().Changed("region") {
				region = plan.Region
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBenchmark(ctx, runParams{
				plan:   plan,
				region: region,
				env:    root.env,
				flags:  flags,
			})
		},
	}

	flags.plan.register(cmd.Flags())
	cmd.Flags().StringVar(&flags.resultsPath, "results", benchmark.DefaultResultPath, "CSV record store results are appended to (env COLDSTART_RESULTS_PATH)")
	cmd.Flags().StringVar(&flags.jsonOut, "json-out", "", "also write the full invocation results as JSON to this path")
	cmd.Flags().BoolVar(&flags.keepFunctions, "keep-functions", false, "leave functions deployed until the run ends")
	cmd.Flags().BoolVar(&flags.upload, "upload", false, "upload this run's results to COLDSTART_RESULTS_BUCKET")
	return cmd
}

type runParams struct {
	plan   config.Plan
	region string
	env    config.Environment
	flags  *runFlags
}

func runBenchmark(ctx context.Context, p runParams) error {
	if p.flags.upload && p.env.ResultsBucket == "" {
		return errors.New("--upload requires COLDSTART_RESULTS_BUCKET")
	}

	artifact, err := os.ReadFile(p.plan.Artifact)
	if err != nil {
		return errors.Wrapf(err, "failed to read artifact %s", p.plan.Artifact)
	}

	namer, err := benchmark.NewNamer(p.plan.NameTemplate)
	if err != nil {
		return err
	}

	tp, err := telemetry.Init(ctx, p.env.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			zap.L().Warn("failed to shut down tracer provider", zap.Error(err))
		}
	}()

	sess, err := newSession(p.region)
	if err != nil {
		return err
	}
	client := newLambdaClient(sess)
	tracer := tp.Tracer("coldstart-bench")

	manager := benchmark.NewManager(client, func(o *benchmark.ManagerOptions) {
		o.Namer = namer
		o.SettleDelay = p.plan.SettleDelay.Duration
		o.WaitActive = p.plan.WaitActive
		o.MaxActiveWait = p.plan.MaxActiveWait.Duration
		o.Tracer = tracer
	})
	runner := benchmark.NewRunner(manager, benchmark.NewInvoker(client, tracer))

	// the run context may already be cancelled here
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		if cerr := runner.Cleanup(ctx); cerr != nil {
			zap.L().Error("failed to tear down functions", zap.Error(cerr))
		}
	}()

	runID := newRunID(time.Now())
	zap.L().Info("starting benchmark",
		zap.String("run_id", runID),
		zap.String("region", p.region),
		zap.Int("configurations", len(p.plan.Configurations)),
		zap.Int64s("memory", p.plan.Memory),
		zap.Int("samples_per_group", p.plan.SamplesPerGroup),
	)

	out, runErr := runner.Run(ctx, benchmark.RunInput{
		Configurations:  configurations(p.plan),
		Memory:          p.plan.Memory,
		SamplesPerGroup: p.plan.SamplesPerGroup,
		Role:            p.plan.Role,
		Handler:         p.plan.Handler,
		Runtime:         p.plan.Runtime,
		Timeout:         p.plan.Timeout,
		Artifact:        artifact,
		Payload:         benchmark.NewPayload(p.plan.Operation, time.Now()),
		ResultPath:      p.flags.resultsPath,
		KeepFunctions:   p.flags.keepFunctions,
	})

	if len(out.Rejected) > 0 {
		zap.L().Warn("functions rejected by provider", zap.Strings("functions", out.Rejected))
	}
	if len(out.Failed) > 0 {
		zap.L().Warn("invocations failed", zap.Strings("functions", out.Failed))
	}
	benchmark.PrintResults(os.Stdout, out.Results)

	if p.flags.jsonOut != "" {
		if err := benchmark.SaveJSON(out.Results, p.flags.jsonOut); err != nil {
			return err
		}
		zap.L().Info("saved results", zap.String("path", p.flags.jsonOut))
	}

	if p.flags.upload && len(out.Results) > 0 {
		uploader := s3manager.NewUploader(sess)
		if err := uploadRun(ctx, uploader, p.env.ResultsBucket, p.env.ResultsPrefix, runID, out.Results); err != nil {
			return err
		}
	}

	if runErr != nil {
		return errors.Wrap(runErr, "benchmark halted")
	}
	return nil
}

// newRunID sorts by start time and is unique across concurrent runs.
func newRunID(now time.Time) string {
	return fmt.Sprintf("%s-%s", now.UTC().Format("20060102T150405Z"), uuid.NewString()[:8])
}

// uploadRun writes one CSV per base name and uploads it under the run's key.
func uploadRun(ctx context.Context, uploader s3manageriface.UploaderAPI, bucket, prefix, runID string, results []benchmark.InvocationResult) error {
	dir, err := os.MkdirTemp("", "coldstart-"+runID)
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	byName := lo.GroupBy(results, func(r benchmark.InvocationResult) string { return r.BaseName })
	for _, name := range lo.Uniq(lo.Map(results, func(r benchmark.InvocationResult, _ int) string { return r.BaseName })) {
		rows := benchmark.ToSavedResults(byName[name])
		benchexport.SortByInitDuration(rows)

		filePath := filepath.Join(dir, name+".csv")
		if err := benchexport.SaveOrAppendToCSV(rows, filePath); err != nil {
			return err
		}
		if err := benchexport.UploadToS3(ctx, uploader, bucket, benchexport.ResultKey(prefix, runID, name), filePath); err != nil {
			return err
		}
	}
	return nil
}
