package accessor

import (
	"context"

	"github.com/ecmwf/gribjump/pkg/block"
)

// Memory is an in-memory Accessor, grounded on mc::MemoryAccessor. Used
// by tests and by callers that already hold the message bytes (e.g. a
// catalogue entry that inlines small messages).
type Memory struct {
	buf []byte
}

// NewMemory wraps buf. buf is not copied; callers must not mutate it
// after handing it to NewMemory.
func NewMemory(buf []byte) *Memory {
	return &Memory{buf: buf}
}

func (a *Memory) Read(ctx context.Context, span block.Span) ([]byte, error) {
	if err := checkRange(span, uint64(len(a.buf))); err != nil {
		return nil, err
	}
	out := make([]byte, span.Size)
	copy(out, a.buf[span.Offset:span.End()])
	return out, nil
}

func (a *Memory) ReadAll(ctx context.Context) ([]byte, error) {
	out := make([]byte, len(a.buf))
	copy(out, a.buf)
	return out, nil
}

func (a *Memory) Size(ctx context.Context) (uint64, error) {
	return uint64(len(a.buf)), nil
}

func (a *Memory) Close() error { return nil }
