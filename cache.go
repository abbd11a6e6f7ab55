package main

import (
	"sync"
	"time"
)

// pageEntry is a cached page extraction with its expiry time.
type pageEntry struct {
	content   string
	expiresAt time.Time
}

// PageCache is a TTL cache for extracted web page text, keyed by URL.
// Fetching the same URL repeatedly within the TTL hits the cache instead of
// the network. Safe for concurrent use.
type PageCache struct {
	mu      sync.RWMutex
	entries map[string]pageEntry
	ttl     time.Duration
}

// NewPageCache creates a page cache with the given TTL.
func NewPageCache(ttl time.Duration) *PageCache {
	return &PageCache{
		entries: make(map[string]pageEntry),
		ttl:     ttl,
	}
}

// Get returns the cached content for a URL, if present and unexpired.
func (c *PageCache) Get(url string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.entries[url]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return "", false
	}
	return entry.content, true
}

// Set stores content for a URL, resetting its TTL. Expired entries are
// swept opportunistically on write to bound memory growth.
func (c *PageCache) Set(url string, content string) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}

	c.entries[url] = pageEntry{
		content:   content,
		expiresAt: now.Add(c.ttl),
	}
}

// Len reports the number of stored entries, expired ones included.
func (c *PageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
