package benchexport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockUploader struct {
	mock.Mock
	s3manageriface.UploaderAPI
}

func (m *mockUploader) UploadWithContext(ctx aws.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*s3manager.UploadOutput)
	return out, args.Error(1)
}

func TestResultKey(t *testing.T) {
	key := ResultKey("coldstart", "2025-04-15T12:00:00.000Z", "coldstart-otel")
	assert.Equal(t, "coldstart/2025-04-15T12:00:00.000Z_coldstart-otel.csv", key)
	assert.True(t, IsResultKey(key))
	assert.False(t, IsResultKey("coldstart/reports/summary.md"))
	assert.Equal(t, "coldstart-otel", BaseNameFromKey(key))
}

func TestUploadToS3(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, os.WriteFile(filePath, []byte("base_name,memory\n"), 0644))

	uploader := new(mockUploader)
	uploader.On("UploadWithContext", mock.Anything, mock.MatchedBy(func(in *s3manager.UploadInput) bool {
		return aws.StringValue(in.Bucket) == "results" && aws.StringValue(in.Key) == "runs/a_b.csv" &&
			aws.StringValue(in.ContentType) == "text/csv"
	})).Return(&s3manager.UploadOutput{Location: "s3://results/runs/a_b.csv"}, nil)

	err := UploadToS3(context.Background(), uploader, "results", "runs/a_b.csv", filePath)
	require.NoError(t, err)
	uploader.AssertExpectations(t)

	err = UploadToS3(context.Background(), uploader, "results", "runs/a_b.csv", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/markdown", contentType("/tmp/report.md"))
	assert.Equal(t, "image/png", contentType("chart.png"))
	assert.Equal(t, "application/octet-stream", contentType("results.json"))
}
