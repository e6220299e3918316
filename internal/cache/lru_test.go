package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("a", "x")
	c.Set("b", "y")
	now = now.Add(2 * time.Minute)
	c.Set("c", "z")

	assert.Equal(t, 2, c.CleanExpired())
	_, ok := c.Get("a")
	assert.False(t, ok)
	v, ok := c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, "z", v)
}

func TestGetOrCompute(t *testing.T) {
	c := NewLRUCache[int](4, time.Minute)
	calls := 0
	compute := func() (int, error) {
		calls++
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrCompute(Key(7, "dashboard", "2026-03"), compute)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}
	assert.Equal(t, 1, calls)

	_, err := c.GetOrCompute("bad", func() (int, error) { return 0, errors.New("boom") })
	assert.Error(t, err)
	_, ok := c.Get("bad")
	assert.False(t, ok)

	st := c.Stats()
	assert.Equal(t, uint64(2), st.Hits)
	assert.Equal(t, 1, st.Size)

	c.Purge()
	assert.Zero(t, c.Size())
}

func TestKeyIsVersionScoped(t *testing.T) {
	assert.Equal(t, "v3:utilization:2026-03:2026-03-15", Key(3, "utilization", "2026-03", "2026-03-15"))
	assert.NotEqual(t, Key(3, "trends"), Key(4, "trends"))
}

func TestManagerCleanAll(t *testing.T) {
	now := time.Now()
	c := NewLRUCache[int](4, time.Second)
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	now = now.Add(time.Hour)

	m := NewManager()
	m.Register(c)
	assert.Equal(t, 1, m.CleanAll())

	m.StartCleanup(time.Hour)
	m.Stop()
}
