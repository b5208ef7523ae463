package block

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketsDisjointAndSorted(t *testing.T) {
	b := &Buckets{}
	spans := []Span{
		{10, 5}, // [10,15)
		{20, 5}, // [20,25)
		{14, 6}, // [14,20) touches both of the above -> merges into [10,25)
		{100, 1},
		{50, 10},
	}
	for _, s := range spans {
		b.Insert(s)
	}

	buckets := b.Buckets()
	require.NotEmpty(t, buckets)
	for i := 1; i < len(buckets); i++ {
		assert.Greater(t, buckets[i].Span.Offset, buckets[i-1].Span.End(),
			"bucket %d must start strictly after bucket %d ends", i, i-1)
	}

	var merged []Span
	for _, bucket := range buckets {
		merged = append(merged, bucket.Span)
	}
	assert.Contains(t, merged, Span{10, 15})
	assert.Contains(t, merged, Span{50, 10})
	assert.Contains(t, merged, Span{100, 1})
}

func TestBucketsCoverEverySubSpanExactlyOnce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var spans []Span
	for i := 0; i < 200; i++ {
		offset := uint64(rng.Intn(1000))
		size := uint64(rng.Intn(20) + 1)
		spans = append(spans, Span{offset, size})
	}

	b := FromSpans(spans)
	buckets := b.Buckets()

	for _, s := range spans {
		covering := 0
		for _, bucket := range buckets {
			if s.Offset >= bucket.Span.Offset && s.End() <= bucket.Span.End() {
				covering++
			}
		}
		assert.Equal(t, 1, covering, "span %v must be covered by exactly one bucket", s)
	}

	for i := 1; i < len(buckets); i++ {
		assert.Greater(t, buckets[i].Span.Offset, buckets[i-1].Span.End())
	}
}

func TestBucketsSingleInsert(t *testing.T) {
	b := &Buckets{}
	b.Insert(Span{5, 3})
	require.Len(t, b.Buckets(), 1)
	assert.Equal(t, Span{5, 3}, b.Buckets()[0].Span)
}
