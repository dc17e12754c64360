package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_GetSet(t *testing.T) {
	c := New(10, time.Hour)
	defer c.Close()

	k := Key("gpt-4.1-mini", "sys", "<li>1</li>")
	_, ok := c.Get(k)
	assert.False(t, ok)

	c.Set(k, `{"ID":"1"}`)
	got, ok := c.Get(k)
	assert.True(t, ok)
	assert.Equal(t, `{"ID":"1"}`, got)
}

func TestKey_DependsOnEveryPart(t *testing.T) {
	base := Key("m", "s", "u")
	assert.NotEqual(t, base, Key("m2", "s", "u"))
	assert.NotEqual(t, base, Key("m", "s2", "u"))
	assert.NotEqual(t, base, Key("m", "s", "u2"))
	assert.Equal(t, base, Key("m", "s", "u"))
}

func TestCache_Expiry(t *testing.T) {
	c := New(10, time.Minute)
	defer c.Close()

	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }
	c.Set("k", "v")

	now = now.Add(2 * time.Minute)
	_, ok := c.Get("k")
	assert.False(t, ok)

	c.evictExpired()
	assert.Equal(t, 0, c.Len())
}

func TestCache_Capacity(t *testing.T) {
	c := New(2, time.Hour)
	defer c.Close()

	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("a", "3")
	assert.Equal(t, 2, c.Len(), "overwriting does not evict")

	c.Set("c", "4")
	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("c")
	assert.True(t, ok)
}

func TestCache_Disabled(t *testing.T) {
	c := New(0, time.Hour)
	defer c.Close()
	c.Set("a", "1")
	assert.Equal(t, 0, c.Len())
}
