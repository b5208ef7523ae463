package accessor

import (
	"context"
	"fmt"

	"github.com/ecmwf/gribjump/pkg/block"
)

// window clamps an Accessor to a sub-range [base, base+size) of an
// underlying accessor, so a decoder can be handed an accessor whose
// offset 0 is the start of its own section, the same narrowing the
// original Jumper::readValues performs over eckit::DataHandle.
type window struct {
	inner Accessor
	base  uint64
	size  uint64
}

// NewWindow returns an Accessor whose reads are relative to base within
// inner, and whose Size() never exceeds size.
func NewWindow(inner Accessor, base, size uint64) Accessor {
	return &window{inner: inner, base: base, size: size}
}

func (w *window) Read(ctx context.Context, span block.Span) ([]byte, error) {
	if err := checkRange(span, w.size); err != nil {
		return nil, fmt.Errorf("accessor: window: %w", err)
	}
	return w.inner.Read(ctx, block.Span{Offset: w.base + span.Offset, Size: span.Size})
}

func (w *window) ReadAll(ctx context.Context) ([]byte, error) {
	return w.Read(ctx, block.Span{Offset: 0, Size: w.size})
}

func (w *window) Size(ctx context.Context) (uint64, error) {
	return w.size, nil
}

func (w *window) Close() error { return nil }
