// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package artifact

import "sync"

// Cacher is the in-memory tier of the store. It is injected rather
// than global so the owning process controls invalidation explicitly
// through the store's Reload.
type Cacher interface {
	Get(key string) ([]byte, bool)
	Set(key string, data []byte)
	Clear()
}

// MemoryCache is a thread-safe byte cache. Artifacts have no natural
// expiry; an entry lives until the next Clear replaces the whole
// generation.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

var _ Cacher = (*MemoryCache)(nil)

// NewMemoryCache creates an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]byte)}
}

// Get retrieves a cached artifact.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.entries[key]
	return data, ok
}

// Set stores an artifact, overwriting any previous entry.
func (c *MemoryCache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
}

// Clear drops every entry in one map swap.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]byte)
}

// Len reports the number of cached artifacts.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
