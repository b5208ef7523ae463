package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLRUEvictsOldest(t *testing.T) {
	c := newLRU[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3) // evicts "a"

	_, ok := c.Get("a")
	assert.False(t, ok)

	v, ok := c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	v, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestLRUGetRefreshesRecency(t *testing.T) {
	c := newLRU[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a")    // "a" now most recently used
	c.Put("c", 3) // evicts "b", not "a"

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
}

func TestLRUPutOverwritesExisting(t *testing.T) {
	c := newLRU[string, int](2)
	c.Put("a", 1)
	c.Put("a", 2)
	assert.Equal(t, 1, c.Len())
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}
