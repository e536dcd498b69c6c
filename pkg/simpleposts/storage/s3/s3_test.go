package s3

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Backend_BasicConfiguration(t *testing.T) {
	t.Run("EmptyBucket", func(t *testing.T) {
		_, err := New(Config{Region: "us-east-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket name is required")
	})

	t.Run("StaticCredentialsAndEndpoint", func(t *testing.T) {
		backend, err := New(Config{
			Bucket:          "test-bucket",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
			Endpoint:        "http://localhost:9000",
			UsePathStyle:    true,
		})
		require.NoError(t, err)
		assert.Equal(t, "test-bucket", backend.bucket)
		assert.Equal(t, "us-east-1", backend.config.Region)
		assert.NotNil(t, backend.uploader)
	})
}

func TestBatchKeys(t *testing.T) {
	keys := make([]string, 2501)
	for i := range keys {
		keys[i] = fmt.Sprintf("posts/resources/%d", i)
	}

	batches := batchKeys(keys, maxDeleteBatch)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 1000)
	assert.Len(t, batches[1], 1000)
	assert.Len(t, batches[2], 501)
	assert.Equal(t, "posts/resources/2500", batches[2][500])

	assert.Empty(t, batchKeys(nil, maxDeleteBatch))
}

func TestApplySSE(t *testing.T) {
	b := &Backend{config: Config{EnableSSE: true, SSEAlgorithm: "aws:kms", SSEKMSKeyID: "key-1"}}
	input := &s3.PutObjectInput{}
	b.applySSE(input)
	assert.Equal(t, "aws:kms", string(input.ServerSideEncryption))
	assert.Equal(t, "key-1", *input.SSEKMSKeyId)

	b = &Backend{config: Config{}}
	input = &s3.PutObjectInput{}
	b.applySSE(input)
	assert.Empty(t, input.ServerSideEncryption)
}

func TestErrorCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &smithy.GenericAPIError{Code: "NoSuchBucket", Message: "missing"})
	assert.Equal(t, "NoSuchBucket", errorCode(err))
	assert.Equal(t, "", errorCode(errors.New("plain")))
}
