package benchexport

import (
	"context"
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// resultKeyPattern matches <prefix>/<run id>_<base name>.csv
var resultKeyPattern = regexp.MustCompile(`^.*_.*\.csv$`)

var contentTypes = map[string]string{
	".csv": "text/csv",
	".md":  "text/markdown",
	".png": "image/png",
	".svg": "image/svg+xml",
}

// ResultKey is the object key a run's CSV is stored under.
func ResultKey(prefix, runID, baseName string) string {
	return path.Join(prefix, fmt.Sprintf("%s_%s.csv", runID, baseName))
}

// IsResultKey reports whether key looks like a key produced by ResultKey.
func IsResultKey(key string) bool {
	return resultKeyPattern.MatchString(key)
}

// BaseNameFromKey extracts the base name part of a result key.
func BaseNameFromKey(key string) string {
	name := path.Base(key)
	name = strings.TrimSuffix(name, ".csv")
	if i := strings.Index(name, "_"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// UploadToS3 uploads the file at filePath to s3://bucket/key.
func UploadToS3(ctx context.Context, uploader s3manageriface.UploaderAPI, bucket, key, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	out, err := uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType(filePath)),
	})
	if err != nil {
		return errors.Wrapf(err, "upload %s to s3://%s/%s", filePath, bucket, key)
	}

	zap.L().Info("Uploaded results", zap.String("location", out.Location))
	return nil
}

func contentType(filePath string) string {
	if ct, ok := contentTypes[path.Ext(filePath)]; ok {
		return ct
	}
	return "application/octet-stream"
}
