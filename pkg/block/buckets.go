package block

import "sort"

// Bucket is a minimal covering span over one or more provenance sub-spans
// that were merged into it. Provenance is kept so a caller can tell which
// original sub-span(s) a decoded bucket read serves.
type Bucket struct {
	Span      Span
	SubSpans  []Span
}

// Buckets is an ordered list of pairwise-disjoint Buckets, sorted by
// offset, such that every sub-span ever inserted is contained in exactly
// one bucket. It is the Go counterpart of mc::BlockBuckets plus the
// operator<<(BlockBuckets&, const Block&) merge routine in Range.cc.
//
// Used whenever many small user ranges hit the same underlying RSI or
// byte chunk: a single bucket read then serves all of them.
type Buckets struct {
	buckets []Bucket
}

// Insert adds a sub-span, merging it with any buckets it overlaps or
// touches. Insertion locates the insertion point by binary search, then
// greedily merges predecessor/successor buckets that touch the new
// sub-span, extending the covering span and concatenating provenance.
func (b *Buckets) Insert(s Span) {
	// Find the first bucket whose span could touch s: the first bucket
	// with End() >= s.Offset.
	idx := sort.Search(len(b.buckets), func(i int) bool {
		return b.buckets[i].Span.End() >= s.Offset
	})

	merged := s
	subSpans := []Span{s}

	// Merge with overlapping/touching predecessors.
	start := idx
	for start > 0 && b.buckets[start-1].Span.touches(merged) {
		start--
		merged = union(merged, b.buckets[start].Span)
		subSpans = append(subSpans, b.buckets[start].SubSpans...)
	}

	// Merge with overlapping/touching successors, starting from idx (not
	// start, since buckets[start:idx) were already absorbed above).
	end := idx
	for end < len(b.buckets) && b.buckets[end].Span.touches(merged) {
		merged = union(merged, b.buckets[end].Span)
		subSpans = append(subSpans, b.buckets[end].SubSpans...)
		end++
	}

	newBucket := Bucket{Span: merged, SubSpans: subSpans}

	tail := append([]Bucket{}, b.buckets[end:]...)
	b.buckets = append(b.buckets[:start], append([]Bucket{newBucket}, tail...)...)
}

// Buckets returns the ordered, disjoint list of buckets built so far.
func (b *Buckets) Buckets() []Bucket {
	return b.buckets
}

// FromSpans builds a Buckets from a slice of sub-spans in one call.
func FromSpans(spans []Span) *Buckets {
	b := &Buckets{}
	for _, s := range spans {
		b.Insert(s)
	}
	return b
}
