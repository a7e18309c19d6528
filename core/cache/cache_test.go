package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)}
}

func newTestCache(clk *fakeClock, opts ...Option) *Cache {
	return New(append([]Option{WithClock(clk.Now)}, opts...)...)
}

func TestCache_roundTrip(t *testing.T) {
	c := New()

	values := []interface{}{
		1,
		"dupont",
		[]map[string]interface{}{{"id": 1, "nom": "DUPONT"}},
		nil,
	}
	for i, v := range values {
		key := fmt.Sprintf("k%d", i)
		c.Set(key, v)
		got, ok := c.Get(key)
		require.True(t, ok, "Get(%q) missed right after Set", key)
		assert.Equal(t, v, got)
	}
}

func TestCache_expiry(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(clk, WithTTL(time.Minute))

	c.Set("eleves-data", []int{1, 2, 3})

	clk.Advance(59 * time.Second)
	_, ok := c.Get("eleves-data")
	assert.True(t, ok, "entry should still be fresh")

	clk.Advance(time.Second)
	_, ok = c.Get("eleves-data")
	assert.False(t, ok, "entry should expire once now - storedAt reaches ttl")
	assert.Equal(t, 0, c.Len(), "expired entry should be evicted on read")
}

func TestCache_getTTLOverride(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(clk, WithTTL(time.Hour))

	c.Set("k", "v")
	clk.Advance(10 * time.Minute)

	_, ok := c.Get("k", 30*time.Minute)
	assert.True(t, ok)

	_, ok = c.Get("k", 5*time.Minute)
	assert.False(t, ok)
}

func TestCache_setRefreshesStoredAt(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(clk, WithTTL(time.Minute))

	c.Set("k", 1)
	clk.Advance(50 * time.Second)
	c.Set("k", 2)
	clk.Advance(50 * time.Second)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestCache_clear(t *testing.T) {
	c := New()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear("a")

	_, ok := c.Get("a")
	assert.False(t, ok)
	got, ok := c.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, got)

	c.Set("c", 3)
	c.Clear()
	assert.Equal(t, 0, c.Len())

	c.Clear("missing") // no-op
}

func TestCache_clearPrefix(t *testing.T) {
	c := New()
	c.Set("students:aaa", 1)
	c.Set("students:bbb", 2)
	c.Set("offers:aaa", 3)

	assert.Equal(t, 2, c.ClearPrefix("students:"))
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("offers:aaa")
	assert.True(t, ok)
}

func TestCache_maxEntriesEvictsOldest(t *testing.T) {
	clk := newFakeClock()
	c := newTestCache(clk, WithMaxEntries(3))

	for _, k := range []string{"a", "b", "c"} {
		c.Set(k, k)
		clk.Advance(time.Second)
	}
	c.Set("a", "a2") // refreshes a: b is now the oldest
	clk.Advance(time.Second)
	c.Set("d", "d")

	assert.Equal(t, 3, c.Len())
	_, ok := c.Get("b")
	assert.False(t, ok, "oldest entry should be evicted on overflow")
	for _, k := range []string{"a", "c", "d"} {
		_, ok := c.Get(k)
		assert.True(t, ok, "%q should survive", k)
	}
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestCache_stats(t *testing.T) {
	c := New()
	c.Set("k", 1)
	c.Get("k")
	c.Get("k")
	c.Get("nope")

	s := c.Stats()
	assert.Equal(t, int64(2), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, 1, s.Entries)
}

func TestKey(t *testing.T) {
	k1 := Key("students", map[string]string{"status": "INSCRIPTION", "classe": "6A"})
	k2 := Key("students", map[string]string{"classe": "6A", "status": "INSCRIPTION"})
	k3 := Key("students", map[string]string{"status": "VALIDE", "classe": "6A"})

	assert.Equal(t, k1, k2, "key must not depend on map iteration order")
	assert.NotEqual(t, k1, k3, "key must depend on every parameter value")
	assert.Regexp(t, `^students:[0-9a-f]{16}$`, k1)
}
