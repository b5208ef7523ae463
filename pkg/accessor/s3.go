package accessor

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ecmwf/gribjump/pkg/block"
)

// NewS3Auto builds an Accessor for s3://bucket/key, trying anonymous
// credentials first -- the common case for public open-data archives --
// and falling back to the default authenticated credential chain if the
// object's metadata isn't readable anonymously.
func NewS3Auto(ctx context.Context, bucket, key string) (*S3, error) {
	anonCfg, err := config.LoadDefaultConfig(ctx, config.WithCredentialsProvider(aws.AnonymousCredentials{}))
	if err != nil {
		return nil, fmt.Errorf("accessor: load anonymous AWS config: %w", err)
	}
	anon := NewS3(s3.NewFromConfig(anonCfg), bucket, key)
	if _, err := anon.Size(ctx); err == nil {
		return anon, nil
	}

	authCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("accessor: load authenticated AWS config: %w", err)
	}
	return NewS3(s3.NewFromConfig(authCfg), bucket, key), nil
}

// s3API is the subset of *s3.Client used here, so tests can fake it.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3 is an Accessor over an S3 (or S3-compatible) object, grounded on
// mc::PosixAccessor but issuing ranged GetObject calls instead of pread.
type S3 struct {
	client s3API
	bucket string
	key    string

	mu   sync.Mutex
	size uint64
	have bool
}

// NewS3 builds an S3 accessor for s3://bucket/key using client.
func NewS3(client *s3.Client, bucket, key string) *S3 {
	return &S3{client: client, bucket: bucket, key: key}
}

func (a *S3) Read(ctx context.Context, span block.Span) ([]byte, error) {
	if span.Size == 0 {
		return nil, nil
	}
	rng := fmt.Sprintf("bytes=%d-%d", span.Offset, span.End()-1)
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key),
		Range:  aws.String(rng),
	})
	if err != nil {
		return nil, fmt.Errorf("accessor: s3 GetObject %s/%s %s: %w", a.bucket, a.key, rng, err)
	}
	defer out.Body.Close()
	buf := make([]byte, span.Size)
	if _, err := io.ReadFull(out.Body, buf); err != nil {
		return nil, fmt.Errorf("accessor: s3 read body %s/%s: %w", a.bucket, a.key, err)
	}
	return buf, nil
}

func (a *S3) ReadAll(ctx context.Context) ([]byte, error) {
	size, err := a.Size(ctx)
	if err != nil {
		return nil, err
	}
	return a.Read(ctx, block.Span{Offset: 0, Size: size})
}

func (a *S3) Size(ctx context.Context) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.have {
		return a.size, nil
	}
	out, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key),
	})
	if err != nil {
		return 0, fmt.Errorf("accessor: s3 HeadObject %s/%s: %w", a.bucket, a.key, err)
	}
	if out.ContentLength == nil {
		return 0, fmt.Errorf("accessor: s3 HeadObject %s/%s: missing content length", a.bucket, a.key)
	}
	a.size = uint64(*out.ContentLength)
	a.have = true
	return a.size, nil
}

func (a *S3) Close() error { return nil }
