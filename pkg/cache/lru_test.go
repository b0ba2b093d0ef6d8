package cache_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifykit/notifyd/pkg/cache"
)

func TestLRUCache_GetPut(t *testing.T) {
	t.Parallel()

	c := cache.NewLRUCache[string, int](2)
	_, existed := c.Put("a", 1)
	assert.False(t, existed)
	old, existed := c.Put("a", 2)
	assert.True(t, existed)
	assert.Equal(t, 1, old)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	t.Parallel()

	c := cache.NewLRUCache[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Get("a") // a is now most recent
	c.Put("c", 3)

	assert.True(t, c.Contains("a"))
	assert.False(t, c.Contains("b"))
	assert.True(t, c.Contains("c"))
	assert.Equal(t, 2, c.Len())
}

func TestLRUCache_PutIfAbsent(t *testing.T) {
	t.Parallel()

	c := cache.NewLRUCache[string, struct{}](8)
	assert.True(t, c.PutIfAbsent("app1|missing", struct{}{}))
	assert.False(t, c.PutIfAbsent("app1|missing", struct{}{}))
	assert.True(t, c.PutIfAbsent("app2|missing", struct{}{}))
}

func TestLRUCache_ValuesNewestFirst(t *testing.T) {
	t.Parallel()

	c := cache.NewLRUCache[string, int](3)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)
	c.Put("d", 4)

	assert.Equal(t, []int{4, 3, 2}, c.Values(0))
	assert.Equal(t, []int{4, 3}, c.Values(2))
}

func TestLRUCache_RemoveAndClear(t *testing.T) {
	t.Parallel()

	c := cache.NewLRUCache[string, int](3)
	c.Put("a", 1)
	c.Put("b", 2)

	v, ok := c.Remove("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	_, ok = c.Remove("a")
	assert.False(t, ok)

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Values(0))
}

func TestLRUCache_Concurrent(t *testing.T) {
	t.Parallel()

	c := cache.NewLRUCache[int, int](16)
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				c.Put(g*1000+i, i)
				c.Get(g*1000 + i)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, c.Len())
}

func TestNewLRUCache_PanicsOnZeroCapacity(t *testing.T) {
	assert.Panics(t, func() { cache.NewLRUCache[string, int](0) })
}
