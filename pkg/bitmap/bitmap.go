// Package bitmap caches a GRIB presence bitmap (section 6) and answers
// "how many missing values precede logical position pos" in O(chunk
// size) after an O(n_chunks) prefix sum. Full unpacks the whole mask;
// ForIntervals unpacks only the chunks a caller's intervals touch. It is
// the Go counterpart of gribjump::Bitmap.
package bitmap

import (
	"context"
	"fmt"

	"github.com/ecmwf/gribjump/pkg/accessor"
	"github.com/ecmwf/gribjump/pkg/block"
)

// unpackTable[b][i] is bit i (MSB-first) of byte value b.
var unpackTable [256][8]bool

func init() {
	for b := 0; b < 256; b++ {
		for i := 0; i < 8; i++ {
			unpackTable[b][i] = (b>>(7-i))&1 == 1
		}
	}
}

// Bitmap is a partially- or fully-unpacked presence mask together with a
// prefix sum of missing-value counts per chunk, so CountMissingsBeforePos
// never rescans more than one chunk.
type Bitmap struct {
	acc       accessor.Accessor
	nBits     uint64
	chunkSize uint64

	bits    []bool // one entry per bit, valid only where cached
	cached  []bool // parallel to bits: whether that bit has been unpacked
	missingBeforeChunk []uint64 // length numChunks()+1, prefix sum
}

func numChunks(nBits, chunkSize uint64) uint64 {
	return (nBits + chunkSize - 1) / chunkSize
}

// Full builds a Bitmap by eagerly unpacking and scanning the whole mask,
// splitting it into nChunksHint roughly-equal chunks. Grounded on the
// first gribjump::Bitmap constructor, used when a JumpInfo is scanned
// fresh (no cached chunk counts yet).
func Full(ctx context.Context, acc accessor.Accessor, nBits uint64, nChunksHint uint64) (*Bitmap, error) {
	if nChunksHint == 0 {
		nChunksHint = 1
	}
	chunkSize := (nBits + nChunksHint - 1) / nChunksHint
	if chunkSize == 0 {
		chunkSize = 1
	}
	b := &Bitmap{
		acc:       acc,
		nBits:     nBits,
		chunkSize: chunkSize,
		bits:      make([]bool, nBits),
		cached:    make([]bool, nBits),
	}
	nBytes := (nBits + 7) / 8
	if err := b.cacheByteRange(ctx, block.Span{Offset: 0, Size: nBytes}); err != nil {
		return nil, err
	}
	nc := numChunks(nBits, chunkSize)
	missing := make([]uint64, nc)
	for i := uint64(0); i < nc; i++ {
		lo := i * chunkSize
		hi := lo + chunkSize
		if hi > nBits {
			hi = nBits
		}
		var count uint64
		for _, v := range b.bits[lo:hi] {
			if !v {
				count++
			}
		}
		missing[i] = count
	}
	b.missingBeforeChunk = make([]uint64, nc+1)
	for i, m := range missing {
		b.missingBeforeChunk[i+1] = b.missingBeforeChunk[i] + m
	}
	return b, nil
}

// ForIntervals builds a Bitmap that only unpacks the chunks covering
// intervals (logical bit positions), using per-chunk missing counts the
// caller already holds (for example MissingBeforeChunk of a Full bitmap
// over the same mask). Grounded on the second
// gribjump::Bitmap constructor: cached ranges are merged through
// block.Buckets exactly as the original merges through mc::RangeBuckets.
func ForIntervals(ctx context.Context, acc accessor.Accessor, nBits, chunkSize uint64, missingBeforeChunk []uint64, intervals []block.Span) (*Bitmap, error) {
	b := &Bitmap{
		acc:                acc,
		nBits:              nBits,
		chunkSize:          chunkSize,
		bits:               make([]bool, nBits),
		cached:             make([]bool, nBits),
		missingBeforeChunk: missingBeforeChunk,
	}

	nc := numChunks(nBits, chunkSize)
	chunkRanges := block.FromSpans(intervalsToChunkSpans(intervals, chunkSize, nc))
	eof, err := acc.Size(ctx)
	if err != nil {
		return nil, err
	}
	for _, bucket := range chunkRanges.Buckets() {
		beginBytes := bucket.Span.Offset * chunkSize / 8
		endBytes := (bucket.Span.End()*chunkSize + 7) / 8
		if endBytes > eof {
			endBytes = eof
		}
		if endBytes <= beginBytes {
			continue
		}
		if err := b.cacheByteRange(ctx, block.Span{Offset: beginBytes, Size: endBytes - beginBytes}); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// intervalsToChunkSpans converts logical-bit intervals into chunk-index
// spans (half open, in units of chunks, not bits).
func intervalsToChunkSpans(intervals []block.Span, chunkSize, nc uint64) []block.Span {
	spans := make([]block.Span, 0, len(intervals))
	for _, iv := range intervals {
		start := iv.Offset / chunkSize
		end := (iv.End() - 1) / chunkSize
		if end >= nc {
			end = nc - 1
		}
		spans = append(spans, block.Span{Offset: start, Size: end - start + 1})
	}
	return spans
}

// cacheByteRange unpacks bytes [span.Offset, span.End()) of the on-disk
// bitmap into b.bits, MSB first within each byte.
func (b *Bitmap) cacheByteRange(ctx context.Context, span block.Span) error {
	raw, err := b.acc.Read(ctx, span)
	if err != nil {
		return fmt.Errorf("bitmap: read bytes %s: %w", span, err)
	}
	for i, byteVal := range raw {
		bitOffset := (span.Offset + uint64(i)) * 8
		table := unpackTable[byteVal]
		for j := 0; j < 8; j++ {
			pos := bitOffset + uint64(j)
			if pos >= b.nBits {
				break
			}
			b.bits[pos] = table[j]
			b.cached[pos] = true
		}
	}
	return nil
}

// CountMissingsBeforePos returns the number of missing (false) bits in
// [0, pos), using the chunk prefix sum plus a scan of the partial final
// chunk. pos must lie within an already-cached region.
func (b *Bitmap) CountMissingsBeforePos(pos uint64) (uint64, error) {
	if pos > b.nBits {
		return 0, fmt.Errorf("bitmap: pos %d exceeds nBits %d", pos, b.nBits)
	}
	chunkIdx := pos / b.chunkSize
	chunkStart := chunkIdx * b.chunkSize
	if int(chunkIdx) >= len(b.missingBeforeChunk)-1 && pos != chunkStart {
		return 0, fmt.Errorf("bitmap: pos %d falls in uncached chunk %d", pos, chunkIdx)
	}
	count := b.missingBeforeChunk[chunkIdx]
	for i := chunkStart; i < pos; i++ {
		if !b.cached[i] {
			return 0, fmt.Errorf("bitmap: bit %d not cached", i)
		}
		if !b.bits[i] {
			count++
		}
	}
	return count, nil
}

// At returns whether logical bit pos is present (true) or missing
// (false). pos must already be cached.
func (b *Bitmap) At(pos uint64) (bool, error) {
	if pos >= b.nBits {
		return false, fmt.Errorf("bitmap: pos %d out of range [0,%d)", pos, b.nBits)
	}
	if !b.cached[pos] {
		return false, fmt.Errorf("bitmap: bit %d not cached", pos)
	}
	return b.bits[pos], nil
}

// ChunkSize returns the chunk size this Bitmap was built with.
func (b *Bitmap) ChunkSize() uint64 { return b.chunkSize }

// MissingBeforeChunk returns the per-chunk missing-count prefix sum, for
// a caller to keep alongside ChunkSize and pass to ForIntervals later.
func (b *Bitmap) MissingBeforeChunk() []uint64 { return b.missingBeforeChunk }
