// Package cache holds materialized resources keyed by (bucket, key), where a
// bucket is the asset kind name. The loader's post-processing stage is the
// only writer; consumers read after the matching completion event has fired.
package cache

import (
	"sort"
	"sync"
)

type Cache struct {
	mu      sync.RWMutex
	buckets map[string]map[string]interface{}
}

func New() *Cache {
	return &Cache{
		buckets: make(map[string]map[string]interface{}),
	}
}

// Put commits a resource. An existing entry under the same (bucket, key) is
// replaced.
func (c *Cache) Put(bucket, key string, resource interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.buckets[bucket]
	if !ok {
		b = make(map[string]interface{})
		c.buckets[bucket] = b
	}
	b[key] = resource
}

func (c *Cache) Get(bucket, key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, ok := c.buckets[bucket]
	if !ok {
		return nil, false
	}
	r, ok := b[key]
	return r, ok
}

func (c *Cache) Contains(bucket, key string) bool {
	_, ok := c.Get(bucket, key)
	return ok
}

// Remove drops a single entry. It reports whether the entry existed.
func (c *Cache) Remove(bucket, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.buckets[bucket]
	if !ok {
		return false
	}
	if _, ok := b[key]; !ok {
		return false
	}
	delete(b, key)
	return true
}

// RemoveBucket drops every entry of one kind.
func (c *Cache) RemoveBucket(bucket string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.buckets, bucket)
}

// Clear drops everything.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.buckets = make(map[string]map[string]interface{})
}

// Len returns the total number of cached resources across all buckets.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, b := range c.buckets {
		n += len(b)
	}
	return n
}

// Keys returns the sorted keys of one bucket.
func (c *Cache) Keys(bucket string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, ok := c.buckets[bucket]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
