package accessor

import (
	"context"
	"fmt"
	"io"
	"sync"

	"cloud.google.com/go/storage"

	"github.com/ecmwf/gribjump/pkg/block"
)

// gcsObjectHandle is the subset of *storage.ObjectHandle used here, so
// tests can fake it without a real client.
type gcsObjectHandle interface {
	NewRangeReader(ctx context.Context, offset, length int64) (*storage.Reader, error)
	Attrs(ctx context.Context) (*storage.ObjectAttrs, error)
}

// GCS is an Accessor over a Google Cloud Storage object.
type GCS struct {
	obj    gcsObjectHandle
	bucket string
	name   string

	mu   sync.Mutex
	size uint64
	have bool
}

// NewGCS builds a GCS accessor for gs://bucket/name using client.
func NewGCS(client *storage.Client, bucket, name string) *GCS {
	return &GCS{obj: client.Bucket(bucket).Object(name), bucket: bucket, name: name}
}

func (a *GCS) Read(ctx context.Context, span block.Span) ([]byte, error) {
	if span.Size == 0 {
		return nil, nil
	}
	r, err := a.obj.NewRangeReader(ctx, int64(span.Offset), int64(span.Size))
	if err != nil {
		return nil, fmt.Errorf("accessor: gcs NewRangeReader gs://%s/%s: %w", a.bucket, a.name, err)
	}
	defer r.Close()
	buf := make([]byte, span.Size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("accessor: gcs read gs://%s/%s: %w", a.bucket, a.name, err)
	}
	return buf, nil
}

func (a *GCS) ReadAll(ctx context.Context) ([]byte, error) {
	size, err := a.Size(ctx)
	if err != nil {
		return nil, err
	}
	return a.Read(ctx, block.Span{Offset: 0, Size: size})
}

func (a *GCS) Size(ctx context.Context) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.have {
		return a.size, nil
	}
	attrs, err := a.obj.Attrs(ctx)
	if err != nil {
		return 0, fmt.Errorf("accessor: gcs Attrs gs://%s/%s: %w", a.bucket, a.name, err)
	}
	a.size = uint64(attrs.Size)
	a.have = true
	return a.size, nil
}

func (a *GCS) Close() error { return nil }
