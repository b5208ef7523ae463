// Package block defines the half-open span types shared by the decode
// path: logical value Intervals and encoded-byte Blocks are the same
// shape, kept apart only by which package constructs them.
package block

import "fmt"

// Span is a half-open range [Offset, Offset+Size). It stands in for both
// "Interval" (logical value indices) and "Block" (encoded byte or bit
// offsets) from the spec: the two domains never mix within one call, so a
// single representation is enough.
type Span struct {
	Offset uint64
	Size   uint64
}

// End returns the exclusive end of the span.
func (s Span) End() uint64 { return s.Offset + s.Size }

func (s Span) String() string {
	return fmt.Sprintf("[%d, %d)", s.Offset, s.End())
}

// Empty reports whether the span covers zero elements.
func (s Span) Empty() bool { return s.Size == 0 }

// touches reports whether s and o share at least one index, or are
// adjacent (touching at the boundary counts as mergeable for bucketing
// purposes).
func (s Span) touches(o Span) bool {
	return s.Offset <= o.End() && o.Offset <= s.End()
}

// union returns the smallest span covering both s and o. Panics if the
// spans neither overlap nor touch, mirroring the assertion in the
// original's Range.cc operator+.
func union(a, b Span) Span {
	if !a.touches(b) {
		panic(fmt.Sprintf("block: union of non-adjacent spans %v and %v", a, b))
	}
	begin := min64(a.Offset, b.Offset)
	end := max64(a.End(), b.End())
	return Span{Offset: begin, Size: end - begin}
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// CheckSorted reports whether intervals are sorted, non-overlapping and
// bounded by max, matching check_intervals in GribInfo.cc.
func CheckSorted(spans []Span, max uint64) bool {
	for i, s := range spans {
		if s.Offset > s.End() || s.End() > max {
			return false
		}
		if i > 0 && spans[i-1].End() > s.Offset {
			return false
		}
	}
	return true
}
