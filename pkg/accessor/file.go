package accessor

import (
	"context"
	"os"
	"sync"

	"github.com/ecmwf/gribjump/pkg/block"
)

// File is a POSIX-file-backed Accessor, grounded on mc::PosixAccessor.
// *os.File already implements io.ReaderAt safely for concurrent reads
// (each ReadAt uses pread under the hood), so unlike the C++ original
// there is no need for a mutex around the file handle itself; a mutex is
// still used to cache the file size, which is fetched lazily.
type File struct {
	path string

	mu   sync.Mutex
	f    *os.File
	size uint64
	have bool
}

// NewFile opens path for reading.
func NewFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &File{path: path, f: f}, nil
}

func (a *File) Read(ctx context.Context, span block.Span) ([]byte, error) {
	if span.Size == 0 {
		return nil, nil
	}
	buf := make([]byte, span.Size)
	if err := readFullAt(a.f, buf, int64(span.Offset)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (a *File) ReadAll(ctx context.Context) ([]byte, error) {
	size, err := a.Size(ctx)
	if err != nil {
		return nil, err
	}
	return a.Read(ctx, block.Span{Offset: 0, Size: size})
}

func (a *File) Size(ctx context.Context) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.have {
		return a.size, nil
	}
	fi, err := a.f.Stat()
	if err != nil {
		return 0, err
	}
	a.size = uint64(fi.Size())
	a.have = true
	return a.size, nil
}

func (a *File) Close() error {
	return a.f.Close()
}
