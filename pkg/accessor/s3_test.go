package accessor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecmwf/gribjump/pkg/block"
)

type fakeS3Client struct {
	data []byte
}

func (f *fakeS3Client) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	var start, end int
	if _, err := fmt.Sscanf(aws.ToString(in.Range), "bytes=%d-%d", &start, &end); err != nil {
		return nil, err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(f.data[start : end+1]))}, nil
}

func (f *fakeS3Client) HeadObject(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	size := int64(len(f.data))
	return &s3.HeadObjectOutput{ContentLength: &size}, nil
}

func TestS3ReadAndSize(t *testing.T) {
	client := &fakeS3Client{data: []byte("hello world")}
	a := &S3{client: client, bucket: "bucket", key: "key"}

	size, err := a.Size(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 11, size)

	data, err := a.Read(context.Background(), block.Span{Offset: 0, Size: 5})
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	all, err := a.ReadAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(all))
}
