package storage

import (
	"context"
	"testing"

	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewS3Client_RequiresBucket(t *testing.T) {
	_, err := NewS3Client(context.Background(), S3ClientConfig{Region: "us-east-1"})
	assert.ErrorContains(t, err, "bucket is required")
}

func TestNewS3Client_StaticCredentials(t *testing.T) {
	client, err := NewS3Client(context.Background(), S3ClientConfig{
		Endpoint:        "http://127.0.0.1:9000",
		Region:          "us-east-1",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Bucket:          "copilot-documents",
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "copilot-documents", *client.bucket)
	assert.True(t, client.api.Options().UsePathStyle)
}

func TestS3Client_FailuresAreStorageErrors(t *testing.T) {
	client, err := NewS3Client(context.Background(), S3ClientConfig{
		Endpoint:        "http://127.0.0.1:9000",
		Region:          "us-east-1",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Bucket:          "copilot-documents",
		UsePathStyle:    true,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = client.Put(ctx, "documents/p/d", []byte("x"), "text/plain")
	assert.ErrorIs(t, err, domain.ErrStorageOperationFail)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = client.Get(ctx, "documents/p/d")
	assert.ErrorIs(t, err, domain.ErrStorageOperationFail)
	assert.NotErrorIs(t, err, domain.ErrBlobNotFound)
}
