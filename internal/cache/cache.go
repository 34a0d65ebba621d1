package cache

import (
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedResponse holds a cached API response.
type CachedResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// ResponseCache caches GET responses from the events API so repeated page
// loads do not round-trip. Keys are "userID:method:path".
// A nil *ResponseCache is valid and never hits.
type ResponseCache struct {
	lru *expirable.LRU[string, *CachedResponse]
}

// New creates a ResponseCache with the given TTL and max entry count.
// A non-positive ttl or maxEntries disables caching and returns nil.
func New(ttl time.Duration, maxEntries int) *ResponseCache {
	if ttl <= 0 || maxEntries <= 0 {
		return nil
	}
	return &ResponseCache{
		lru: expirable.NewLRU[string, *CachedResponse](maxEntries, nil, ttl),
	}
}

// MakeKey builds a cache key from userID, HTTP method, and path.
func MakeKey(userID, method, path string) string {
	return userID + ":" + method + ":" + path
}

// pathOf returns the path component of a key built by MakeKey.
func pathOf(key string) string {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) != 3 {
		return key
	}
	return parts[2]
}

// Get returns a cached response if found and not expired.
func (c *ResponseCache) Get(key string) (*CachedResponse, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(key)
}

// Set stores a response, evicting the least recently used entry at capacity.
func (c *ResponseCache) Set(key string, resp *CachedResponse) {
	if c == nil {
		return
	}
	c.lru.Add(key, resp)
}

// InvalidatePrefix removes every entry whose path starts with prefix,
// for all users.
func (c *ResponseCache) InvalidatePrefix(prefix string) {
	if c == nil {
		return
	}
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(pathOf(key), prefix) {
			c.lru.Remove(key)
		}
	}
}

// Purge drops every entry. Registered as a session logout hook.
func (c *ResponseCache) Purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

// Len returns the number of live entries.
func (c *ResponseCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
