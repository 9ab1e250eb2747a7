package memory

import (
	"context"
	"slices"
	"sync"
)

// Cache implements ports.ContentCache in memory. Entries carry dependency keys
// and a reference count; CleanUnused drops unreferenced entries.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	calls   []string

	// Failure injection, keyed by operation name ("clear_all", "clear_by_key", "clean_unused").
	failures map[string]error
}

type cacheEntry struct {
	deps []string
	refs int
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries:  make(map[string]*cacheEntry),
		failures: make(map[string]error),
	}
}

// Put stores key with its dependency keys and reference count.
func (c *Cache) Put(key string, refs int, deps ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &cacheEntry{deps: deps, refs: refs}
}

// Has reports whether key is cached.
func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

// Len is the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Fail makes op fail with err. A nil err heals it.
func (c *Cache) Fail(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.failures, op)
		return
	}
	c.failures[op] = err
}

// Calls returns the operations invoked so far.
func (c *Cache) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.calls)
}

func (c *Cache) begin(op string) error {
	c.calls = append(c.calls, op)
	return c.failures[op]
}

func (c *Cache) ClearAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("clear_all"); err != nil {
		return err
	}
	c.entries = make(map[string]*cacheEntry)
	return nil
}

func (c *Cache) ClearByKey(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("clear_by_key"); err != nil {
		return err
	}
	if e, ok := c.entries[key]; ok {
		for _, dep := range e.deps {
			delete(c.entries, dep)
		}
		delete(c.entries, key)
	}
	return nil
}

func (c *Cache) CleanUnused(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("clean_unused"); err != nil {
		return err
	}
	for key, e := range c.entries {
		if e.refs <= 0 {
			delete(c.entries, key)
		}
	}
	return nil
}
