// Package cache provides the keyed in-memory stores used by the engine for
// analysis and fusion results.
//
// Stores are unbounded and evict only on explicit Clear. This is a deliberate
// resource-growth risk: the surrounding service is expected to bound request
// concurrency and cache-key cardinality externally.
package cache

import (
	"sync"
)

// Store is the keyed cache interface consumed by the pipeline components.
type Store interface {
	// Get retrieves a value from the cache.
	// Returns: value, whether it exists.
	Get(key string) (any, bool)

	// Set stores a value in the cache.
	Set(key string, value any)

	// Size returns the number of entries.
	Size() int

	// Clear removes all entries.
	Clear()
}

// MapStore implements Store with a mutex-guarded map.
type MapStore struct {
	mu      sync.RWMutex
	entries map[string]any
	hits    int64
	misses  int64
}

// NewMapStore creates an empty MapStore.
func NewMapStore() *MapStore {
	return &MapStore{
		entries: make(map[string]any),
	}
}

// Get retrieves a value from the cache.
func (s *MapStore) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.entries[key]
	if ok {
		s.hits++
	} else {
		s.misses++
	}
	return value, ok
}

// Set stores a value in the cache.
func (s *MapStore) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
}

// Size returns the number of entries.
func (s *MapStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear removes all entries. Hit/miss counters survive so the optimizer can
// still observe hit rates across clears.
func (s *MapStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]any)
}

// HitRate returns the lifetime cache hit rate, or 1 when the cache has never
// been queried.
func (s *MapStore) HitRate() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := s.hits + s.misses
	if total == 0 {
		return 1
	}
	return float64(s.hits) / float64(total)
}

// Ensure MapStore implements Store.
var _ Store = (*MapStore)(nil)
