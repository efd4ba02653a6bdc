package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheStoreAndLookup(t *testing.T) {
	c := NewCache(time.Minute)
	_, ok := c.Lookup("main", "public", "users")
	assert.False(t, ok)

	c.Store("main", "public", "users", []Column{{Name: "id", Type: "integer"}})
	cols, ok := c.Lookup("main", "public", "users")
	assert.True(t, ok)
	assert.Equal(t, "id", cols[0].Name)
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	c := NewCache(time.Millisecond)
	c.Store("main", "public", "users", []Column{{Name: "id"}})
	time.Sleep(5 * time.Millisecond)
	_, ok := c.Lookup("main", "public", "users")
	assert.False(t, ok)
}

func TestCacheInvalidate(t *testing.T) {
	c := NewCache(time.Minute)
	c.Store("main", "public", "users", []Column{{Name: "id"}})
	c.Invalidate("main", "public", "users")
	_, ok := c.Lookup("main", "public", "users")
	assert.False(t, ok)
}

func TestCacheIsolatesByBackendSchemaTable(t *testing.T) {
	c := NewCache(time.Minute)
	c.Store("main", "public", "users", []Column{{Name: "id"}})
	_, ok := c.Lookup("other", "public", "users")
	assert.False(t, ok)
	_, ok = c.Lookup("main", "reporting", "users")
	assert.False(t, ok)
}
