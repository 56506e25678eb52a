package main

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"slices"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/streamfold/coldstart-bench/internal/benchmark/benchexport"
	"github.com/streamfold/coldstart-bench/internal/benchmark/chart"
	"github.com/streamfold/coldstart-bench/internal/benchmark/stats"
)

// -------------------------------------------------------------------------------------------------
// Export Results Lambda
// - collects the per-configuration CSV files of one run from the results bucket
// - aggregates them into trimmed means compared against the baseline
// - saves the merged rows, a markdown report, and a chart when a baseline is given, under <prefix>/reports/
// - errors if there's no CSV files to process
// -------------------------------------------------------------------------------------------------

type Event struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix"`
	RunID  string `json:"runId"`
	// Baseline is optional; without it only trimmed means are reported.
	Baseline string `json:"baseline"`
	Samples  int    `json:"samples"`
}

const workDir = "/tmp/export-results"

type exporter struct {
	s3       s3iface.S3API
	uploader s3manageriface.UploaderAPI
	workDir  string
	now      func() time.Time
}

func (e *exporter) HandleRequest(ctx context.Context, event Event) error {
	l := zap.L().With(zap.String("bucket", event.Bucket), zap.String("run_id", event.RunID))
	if event.Bucket == "" || event.RunID == "" {
		return errors.New("bucket and runId are required")
	}
	if event.Samples <= 0 {
		event.Samples = stats.DefaultExpectedSamples
	}

	// lambdas can share the same filesystem across invocations
	if err := os.RemoveAll(e.workDir); err != nil {
		return err
	}
	if err := os.MkdirAll(e.workDir, 0755); err != nil {
		return err
	}

	keys, err := e.resultKeys(ctx, event)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return errors.New("no CSV files to process")
	}
	l.Info("found result files", zap.Strings("base_names", lo.Map(keys, func(key string, _ int) string {
		return benchexport.BaseNameFromKey(key)
	})))

	var rows []benchexport.SavedResults
	for _, key := range keys {
		loaded, err := e.load(ctx, event.Bucket, key)
		if err != nil {
			return errors.Wrapf(err, "failed to process %s", key)
		}
		rows = append(rows, loaded...)
	}

	// the merged rows let later runs be re-aggregated from one object
	mergedPath := filepath.Join(e.workDir, "results.csv")
	if err := writeMerged(mergedPath, rows); err != nil {
		return err
	}
	mergedKey := path.Join(event.Prefix, "reports", event.RunID+".csv")
	if err := benchexport.UploadToS3(ctx, e.uploader, event.Bucket, mergedKey, mergedPath); err != nil {
		return err
	}

	records := stats.Aggregate(benchexport.ToSamples(rows), event.Samples)
	if event.Baseline != "" {
		records = stats.Compare(records, event.Baseline)
	}

	reportPath := filepath.Join(e.workDir, "report.md")
	err = benchexport.SaveAsMarkdown(benchexport.SaveAsMarkdownInput{
		Records:         records,
		Baseline:        event.Baseline,
		ExpectedSamples: event.Samples,
		CurrentDate:     e.now(),
		Title:           event.RunID,
		FilePath:        reportPath,
	})
	if err != nil {
		return err
	}
	reportKey := path.Join(event.Prefix, "reports", event.RunID+".md")
	if err := benchexport.UploadToS3(ctx, e.uploader, event.Bucket, reportKey, reportPath); err != nil {
		return err
	}

	if event.Baseline != "" {
		chartPath := filepath.Join(e.workDir, "chart.png")
		err := chart.SaveDifferenceChart(chart.DifferenceChartInput{
			Records:  records,
			Baseline: event.Baseline,
			Title:    "Coldstart Comparison " + event.RunID,
			FilePath: chartPath,
		})
		switch {
		case errors.Is(err, chart.ErrNoChartData):
			l.Warn("nothing to chart")
		case err != nil:
			return err
		default:
			chartKey := path.Join(event.Prefix, "reports", event.RunID+".png")
			if err := benchexport.UploadToS3(ctx, e.uploader, event.Bucket, chartKey, chartPath); err != nil {
				return err
			}
		}
	}

	l.Info("export completed", zap.String("report", reportKey))
	return nil
}

// resultKeys lists the CSV keys of the run, sorted.
func (e *exporter) resultKeys(ctx context.Context, event Event) ([]string, error) {
	var keys []string
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(event.Bucket),
		Prefix: aws.String(path.Join(event.Prefix, event.RunID+"_")),
	}
	for {
		resp, err := e.s3.ListObjectsV2WithContext(ctx, input)
		if err != nil {
			return nil, errors.Wrap(err, "failed to list objects")
		}
		for _, obj := range resp.Contents {
			if key := aws.StringValue(obj.Key); benchexport.IsResultKey(key) {
				keys = append(keys, key)
			}
		}
		if !aws.BoolValue(resp.IsTruncated) {
			break
		}
		input.ContinuationToken = resp.NextContinuationToken
	}
	slices.Sort(keys)
	return keys, nil
}

func writeMerged(filePath string, rows []benchexport.SavedResults) error {
	f, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer f.Close()
	benchexport.SortByInitDuration(rows)
	return benchexport.WriteCSV(f, rows)
}

func (e *exporter) load(ctx context.Context, bucket, key string) ([]benchexport.SavedResults, error) {
	resp, err := e.s3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return benchexport.LoadCSV[benchexport.SavedResults](resp.Body)
}

func init() {
	zap.ReplaceGlobals(zap.Must(zap.NewProduction()))
}

func main() {
	sess := session.Must(session.NewSession())
	e := &exporter{
		s3:       s3.New(sess),
		uploader: s3manager.NewUploader(sess),
		workDir:  workDir,
		now:      time.Now,
	}
	lambda.Start(e.HandleRequest)
}
