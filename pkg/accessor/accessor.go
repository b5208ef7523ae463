// Package accessor gives the decode path a single narrow interface for
// bounded byte-range reads, backed by a local file, an in-memory buffer,
// or an object-store bucket. It is the Go counterpart of mc::DataAccessor
// and its Posix/Memory implementations, widened with S3 and GCS variants
// so a catalogue entry can point straight at object storage.
package accessor

import (
	"context"
	"fmt"
	"io"

	"github.com/ecmwf/gribjump/pkg/block"
)

// Accessor reads bounded byte ranges from one underlying data file. All
// methods must be safe for concurrent use: the engine calls Read from
// many goroutines against the same Accessor for a given file.
type Accessor interface {
	// Read returns exactly span.Size bytes starting at span.Offset.
	Read(ctx context.Context, span block.Span) ([]byte, error)
	// ReadAll returns the entire underlying object.
	ReadAll(ctx context.Context) ([]byte, error)
	// Size returns the total length of the underlying object.
	Size(ctx context.Context) (uint64, error)
	// Close releases any held resources (file handles, clients).
	Close() error
}

// outOfRangeError is returned when a requested span exceeds the object size.
type outOfRangeError struct {
	span block.Span
	size uint64
}

func (e *outOfRangeError) Error() string {
	return fmt.Sprintf("accessor: span %s out of range for object of size %d", e.span, e.size)
}

func checkRange(span block.Span, size uint64) error {
	if span.End() > size {
		return &outOfRangeError{span: span, size: size}
	}
	return nil
}

// readFullAt reads exactly len(buf) bytes at off from r, treating a
// short read as an error the way the teacher's lexer does for prefixed
// records (io.ErrShortBuffer) rather than silently returning a partial
// buffer.
func readFullAt(r io.ReaderAt, buf []byte, off int64) error {
	n, err := r.ReadAt(buf, off)
	if err != nil && !(err == io.EOF && n == len(buf)) {
		return err
	}
	if n != len(buf) {
		return io.ErrUnexpectedEOF
	}
	return nil
}
