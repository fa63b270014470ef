package scanner

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Cache is a memo table keyed by absolute directory path. Entries never
// expire; they are removed only by Invalidate, Forget or Clear.
type Cache[V any] struct {
	Name  string
	mu    sync.RWMutex
	items map[string]V
}

// NewCache creates an empty cache.
func NewCache[V any](name string) *Cache[V] {
	return &Cache[V]{
		Name:  name,
		items: make(map[string]V),
	}
}

// Get fetches the value stored for dir.
func (c *Cache[V]) Get(dir string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[normalize(dir)]
	return v, ok
}

// Put stores the value for dir.
func (c *Cache[V]) Put(dir string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[normalize(dir)] = v
}

// Len returns the number of entries.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Keys returns the cached directories in sorted order.
func (c *Cache[V]) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clear drops every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]V)
}

// Invalidate removes the entry for changed and for every ancestor of it.
// Descendants are kept: their results do not depend on anything above them.
// It returns the removed keys; an unrelated path removes nothing.
func (c *Cache[V]) Invalidate(changed string) []string {
	target := normalize(changed)

	c.mu.Lock()
	defer c.mu.Unlock()

	var removed []string
	for k := range c.items {
		if k == target || isAncestor(k, target) {
			delete(c.items, k)
			removed = append(removed, k)
		}
	}
	sort.Strings(removed)
	return removed
}

// Forget removes the entry for dir and for every descendant of it.
func (c *Cache[V]) Forget(dir string) []string {
	target := normalize(dir)

	c.mu.Lock()
	defer c.mu.Unlock()

	var removed []string
	for k := range c.items {
		if k == target || isAncestor(target, k) {
			delete(c.items, k)
			removed = append(removed, k)
		}
	}
	sort.Strings(removed)
	return removed
}

// normalize resolves p to a cleaned absolute path with OS separators.
func normalize(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// isAncestor reports whether dir strictly contains p.
func isAncestor(dir, p string) bool {
	prefix := dir
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return p != dir && strings.HasPrefix(p, prefix)
}
