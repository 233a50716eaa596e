package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetPutRemove(t *testing.T) {
	c := New[string](time.Minute, 10)

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Put("a", "one")

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "one", v)
	assert.Equal(t, 1, c.Len())

	c.Remove("a")

	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestTTLExpiry(t *testing.T) {
	c := New[int](20*time.Millisecond, 10)

	c.Put("a", 1)

	_, ok := c.Get("a")
	assert.True(t, ok)

	time.Sleep(50 * time.Millisecond)

	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestCapacityEviction(t *testing.T) {
	c := New[int](time.Minute, 2)

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	assert.Equal(t, 2, c.Len())

	// the oldest entry was evicted
	_, ok := c.Get("a")
	assert.False(t, ok)

	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestPurge(t *testing.T) {
	c := New[int](time.Minute, 10)

	c.Put("a", 1)
	c.Put("b", 2)
	c.Purge()

	assert.Zero(t, c.Len())
}
