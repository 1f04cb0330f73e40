package gocardless

import "encoding/json"

type cacheKey struct {
	resourceType string
	id           string
}

// Cache is a refresh-scoped object store keyed by (resource type, id). It is
// populated opportunistically by side-loaded pagination payloads and by
// direct fetches, holds at most one entry per key, and is never invalidated
// mid-run. Owned by a single refresh invocation; no locking needed.
type Cache struct {
	objects map[cacheKey]json.RawMessage
}

// NewCache creates an empty cache for one refresh invocation.
func NewCache() *Cache {
	return &Cache{objects: make(map[cacheKey]json.RawMessage)}
}

// Put stores a raw object unless the key is already present. First write
// wins: entries are never refreshed within a run.
func (c *Cache) Put(resourceType, id string, raw json.RawMessage) {
	key := cacheKey{resourceType: resourceType, id: id}
	if _, ok := c.objects[key]; ok {
		return
	}
	c.objects[key] = raw
}

// Get returns the raw object for the key, if cached.
func (c *Cache) Get(resourceType, id string) (json.RawMessage, bool) {
	raw, ok := c.objects[cacheKey{resourceType: resourceType, id: id}]
	return raw, ok
}

// Len returns the number of cached objects.
func (c *Cache) Len() int {
	return len(c.objects)
}
