package cache

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/ecmwf/gribjump/pkg/jumpinfo"
)

// indexFileVersion is the on-disk format version, bumped whenever the
// record framing below changes shape. Grounded on FileCache::currentVersion_.
const indexFileVersion uint8 = 1

// IndexFile holds every JumpInfo scanned out of one GRIB file, keyed by
// the byte offset of the message it describes. It is the Go counterpart
// of gribjump::FileCache: one IndexFile per source file, persisted as a
// single sidecar on disk. Grounded on InfoCache.h/.cc's FileCache.
type IndexFile struct {
	mu        sync.Mutex
	path      string
	loaded    bool
	entries   map[uint64]*jumpinfo.JumpInfo
	persisted map[uint64]bool
}

// NewIndexFile returns an IndexFile backed by path. Load must be called
// before Get returns anything persisted from a previous run.
func NewIndexFile(path string) *IndexFile {
	return &IndexFile{
		path:      path,
		entries:   make(map[uint64]*jumpinfo.JumpInfo),
		persisted: make(map[uint64]bool),
	}
}

// Loaded reports whether Load has completed (successfully or because the
// file did not yet exist).
func (f *IndexFile) Loaded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded
}

// Get returns the JumpInfo scanned for the message at offset, if cached.
func (f *IndexFile) Get(offset uint64) (*jumpinfo.JumpInfo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.entries[offset]
	return info, ok
}

// Insert records info against offset, replacing any prior entry.
func (f *IndexFile) Insert(offset uint64, info *jumpinfo.JumpInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[offset] = info
}

// Count returns the number of cached entries.
func (f *IndexFile) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

// Merge copies every entry of other into f, other's entries winning on
// conflict, mirroring FileCache::merge.
func (f *IndexFile) Merge(other *IndexFile) {
	other.mu.Lock()
	defer other.mu.Unlock()
	f.mu.Lock()
	defer f.mu.Unlock()
	for off, info := range other.entries {
		f.entries[off] = info
	}
}

// Load reads f.path from disk, if it exists, decompressing with zstd
// when compressed is true. A missing file is not an error: Load simply
// leaves f empty and marks it loaded, matching FileCache::load()'s
// "no cache file yet" case.
func (f *IndexFile) Load(compressed bool) error {
	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			f.mu.Lock()
			f.loaded = true
			f.mu.Unlock()
			return nil
		}
		return fmt.Errorf("cache: open index file %s: %w", f.path, err)
	}
	defer file.Close()

	var r io.Reader = bufio.NewReader(file)
	if compressed {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return fmt.Errorf("cache: zstd reader for %s: %w", f.path, err)
		}
		defer zr.Close()
		r = zr
	}

	entries, err := decodeIndexFile(r)
	if err != nil {
		return fmt.Errorf("cache: decode index file %s: %w", f.path, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = entries
	f.persisted = make(map[uint64]bool, len(entries))
	for offset := range entries {
		f.persisted[offset] = true
	}
	f.loaded = true
	return nil
}

// Flush persists f to disk atomically (write to a temp file in the same
// directory, then rename), compressing with zstd when compressed is
// true. It rewrites the on-disk file wholesale, including the version
// byte; Append is the cheaper alternative when most entries are already
// on disk.
func (f *IndexFile) Flush(compressed bool) error {
	f.mu.Lock()
	entries := make(map[uint64]*jumpinfo.JumpInfo, len(f.entries))
	for k, v := range f.entries {
		entries[k] = v
	}
	f.mu.Unlock()

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".gribjump-index-*.tmp")
	if err != nil {
		return fmt.Errorf("cache: create temp index file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		tmp.Close()
		if !success {
			os.Remove(tmpPath)
		}
	}()

	bw := bufio.NewWriter(tmp)
	var w io.Writer = bw
	var zw *zstd.Encoder
	if compressed {
		zw, err = zstd.NewWriter(bw)
		if err != nil {
			return fmt.Errorf("cache: zstd writer for %s: %w", f.path, err)
		}
		w = zw
	}

	// The version byte goes through w, not bw directly, so that when
	// compressed it is part of the same zstd frame Load decompresses
	// as a whole -- Load wraps the entire file in one zstd reader from
	// byte 0, not just the bytes after some plain-text header.
	if _, err := w.Write([]byte{indexFileVersion}); err != nil {
		return err
	}
	if err := encodeRecords(w, entries); err != nil {
		return fmt.Errorf("cache: encode index file %s: %w", f.path, err)
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return fmt.Errorf("cache: close zstd writer for %s: %w", f.path, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("cache: flush %s: %w", f.path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("cache: sync %s: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cache: close %s: %w", f.path, err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("cache: rename %s to %s: %w", tmpPath, f.path, err)
	}
	success = true

	f.mu.Lock()
	for offset := range entries {
		f.persisted[offset] = true
	}
	f.mu.Unlock()
	return nil
}

// Append persists only the entries inserted since the last Load, Flush,
// or Append, by appending their records to the end of the existing
// file instead of rewriting it. It does not rewrite the version byte:
// a file created by Append from scratch writes it once, up front, the
// same as Flush would. Safe to call when there is nothing pending --
// it is then a no-op. Grounded on FileCache's two write paths in
// InfoCache.h/.cc: a full save() alongside an incremental append used
// when only a handful of new messages were scanned against an
// otherwise-complete index.
func (f *IndexFile) Append(compressed bool) error {
	f.mu.Lock()
	pending := make(map[uint64]*jumpinfo.JumpInfo)
	for offset, info := range f.entries {
		if !f.persisted[offset] {
			pending[offset] = info
		}
	}
	f.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("cache: open index file %s for append: %w", f.path, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("cache: stat index file %s: %w", f.path, err)
	}

	bw := bufio.NewWriter(file)
	var w io.Writer = bw
	var zw *zstd.Encoder
	if compressed {
		zw, err = zstd.NewWriter(bw)
		if err != nil {
			return fmt.Errorf("cache: zstd writer for %s: %w", f.path, err)
		}
		w = zw
	}

	// As in Flush, the version byte goes through w so a compressed
	// from-scratch Append writes it inside the new zstd frame rather
	// than as unwrapped plaintext ahead of it; a file that already has
	// content already carries a version byte from its first write.
	if stat.Size() == 0 {
		if _, err := w.Write([]byte{indexFileVersion}); err != nil {
			return err
		}
	}

	if err := encodeRecords(w, pending); err != nil {
		return fmt.Errorf("cache: append index file %s: %w", f.path, err)
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return fmt.Errorf("cache: close zstd writer for %s: %w", f.path, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("cache: flush %s: %w", f.path, err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("cache: sync %s: %w", f.path, err)
	}

	f.mu.Lock()
	for offset := range pending {
		f.persisted[offset] = true
	}
	f.mu.Unlock()
	return nil
}

// Clear drops every cached entry without touching disk.
func (f *IndexFile) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = make(map[uint64]*jumpinfo.JumpInfo)
	f.persisted = make(map[uint64]bool)
}

// Record field numbers within the protowire-framed index file. Each
// entry is wrapped as a length-prefixed submessage (fieldRecord) so
// records can be read back one at a time without a separate length
// header; within a record, fieldOffset/fieldPayload are plain tagged
// varint/bytes values.
const (
	fieldRecord  protowire.Number = 1
	fieldOffset  protowire.Number = 1
	fieldPayload protowire.Number = 2
)

// encodeRecords writes one protowire-framed, length-prefixed record per
// entry, with no leading version byte -- Flush and Append each handle
// the version byte themselves, since Append must skip it on every call
// after the file's first. Each record is a tag+varint offset field and
// a tag+length-prefixed bytes field holding the jumpinfo.Encode
// payload -- a tag+length+value framing hand-written without protoc, in
// the shape protowire itself defines.
func encodeRecords(w io.Writer, entries map[uint64]*jumpinfo.JumpInfo) error {
	for offset, info := range entries {
		payload := jumpinfo.Encode(info)

		var record []byte
		record = protowire.AppendTag(record, fieldOffset, protowire.VarintType)
		record = protowire.AppendVarint(record, offset)
		record = protowire.AppendTag(record, fieldPayload, protowire.BytesType)
		record = protowire.AppendBytes(record, payload)

		var framed []byte
		framed = protowire.AppendTag(framed, fieldRecord, protowire.BytesType)
		framed = protowire.AppendBytes(framed, record)
		if _, err := w.Write(framed); err != nil {
			return err
		}
	}
	return nil
}

func decodeIndexFile(r io.Reader) (map[uint64]*jumpinfo.JumpInfo, error) {
	versionBuf := make([]byte, 1)
	if _, err := io.ReadFull(r, versionBuf); err != nil {
		if err == io.EOF {
			return make(map[uint64]*jumpinfo.JumpInfo), nil
		}
		return nil, err
	}
	if versionBuf[0] != indexFileVersion {
		return nil, fmt.Errorf("unsupported index file version %d", versionBuf[0])
	}

	rest, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	entries := make(map[uint64]*jumpinfo.JumpInfo)
	for len(rest) > 0 {
		num, typ, n := protowire.ConsumeTag(rest)
		if n < 0 {
			return nil, fmt.Errorf("consume record tag: %w", protowire.ParseError(n))
		}
		rest = rest[n:]
		if num != fieldRecord || typ != protowire.BytesType {
			return nil, fmt.Errorf("unexpected field %d/%d at top level", num, typ)
		}
		record, n := protowire.ConsumeBytes(rest)
		if n < 0 {
			return nil, fmt.Errorf("consume record bytes: %w", protowire.ParseError(n))
		}
		rest = rest[n:]

		offset, payload, err := decodeRecord(record)
		if err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		info, err := jumpinfo.Decode(payload)
		if err != nil {
			return nil, fmt.Errorf("decode record for offset %d: %w", offset, err)
		}
		entries[offset] = info
	}
	return entries, nil
}

func decodeRecord(record []byte) (offset uint64, payload []byte, err error) {
	var haveOffset, havePayload bool
	for len(record) > 0 {
		num, typ, n := protowire.ConsumeTag(record)
		if n < 0 {
			return 0, nil, fmt.Errorf("consume field tag: %w", protowire.ParseError(n))
		}
		record = record[n:]
		switch {
		case num == fieldOffset && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(record)
			if n < 0 {
				return 0, nil, fmt.Errorf("consume offset: %w", protowire.ParseError(n))
			}
			offset, haveOffset = v, true
			record = record[n:]
		case num == fieldPayload && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(record)
			if n < 0 {
				return 0, nil, fmt.Errorf("consume payload: %w", protowire.ParseError(n))
			}
			payload, havePayload = v, true
			record = record[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, record)
			if n < 0 {
				return 0, nil, fmt.Errorf("skip unknown field %d/%d: %w", num, typ, protowire.ParseError(n))
			}
			record = record[n:]
		}
	}
	if !haveOffset || !havePayload {
		return 0, nil, fmt.Errorf("record missing offset or payload field")
	}
	return offset, payload, nil
}
