package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapStore_GetSet(t *testing.T) {
	store := NewMapStore()

	_, ok := store.Get("missing")
	assert.False(t, ok)

	store.Set("k", 42)
	value, ok := store.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 42, value)
	assert.Equal(t, 1, store.Size())
}

func TestMapStore_Clear(t *testing.T) {
	store := NewMapStore()
	store.Set("a", 1)
	store.Set("b", 2)

	store.Clear()
	assert.Equal(t, 0, store.Size())
	_, ok := store.Get("a")
	assert.False(t, ok)
}

func TestMapStore_HitRate(t *testing.T) {
	store := NewMapStore()
	// Never queried reads as fully healthy.
	assert.Equal(t, 1.0, store.HitRate())

	store.Set("k", 1)
	store.Get("k")
	store.Get("missing")
	assert.InDelta(t, 0.5, store.HitRate(), 1e-9)

	// Counters survive Clear.
	store.Clear()
	_, ok := store.Get("k")
	assert.False(t, ok)
	assert.InDelta(t, 1.0/3, store.HitRate(), 1e-9)
}
