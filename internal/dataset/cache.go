package dataset

import (
	"sort"
	"sync"
)

// Cache memoizes parsed files keyed by resolved path. Entries never expire;
// they leave the cache only through Delete or Clear.
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, value T)

	// Delete removes a key from the cache
	Delete(key string)

	// Clear removes every key
	Clear()

	// Keys returns the cached keys in ascending order
	Keys() []string
}

// MemoryCache is a map-backed Cache safe for concurrent use.
type MemoryCache[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache[T any]() *MemoryCache[T] {
	return &MemoryCache[T]{items: make(map[string]T)}
}

func (c *MemoryCache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *MemoryCache[T]) Set(key string, value T) {
	c.mu.Lock()
	c.items[key] = value
	c.mu.Unlock()
}

func (c *MemoryCache[T]) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

func (c *MemoryCache[T]) Clear() {
	c.mu.Lock()
	c.items = make(map[string]T)
	c.mu.Unlock()
}

func (c *MemoryCache[T]) Keys() []string {
	c.mu.RLock()
	keys := make([]string, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// NopCache never stores anything, so every load reads the file.
type NopCache[T any] struct{}

func (NopCache[T]) Get(string) (T, bool) {
	var zero T
	return zero, false
}

func (NopCache[T]) Set(string, T)  {}
func (NopCache[T]) Delete(string)  {}
func (NopCache[T]) Clear()         {}
func (NopCache[T]) Keys() []string { return nil }
