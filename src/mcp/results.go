package mcp

import (
	"sync"

	"buildwatch-agent/src/contracts"
)

// maxResults bounds how many watch events the server remembers.
const maxResults = 256

// ResultCache keeps recent watch events so a client can fetch a result again
// by request ID. The oldest entry is evicted once the cache is full.
type ResultCache struct {
	mu     sync.RWMutex
	events map[string]contracts.WatchEvent
	order  []string
	limit  int
}

// NewResultCache creates a cache holding up to limit events. A non-positive
// limit uses the default.
func NewResultCache(limit int) *ResultCache {
	if limit <= 0 {
		limit = maxResults
	}
	return &ResultCache{
		events: make(map[string]contracts.WatchEvent),
		limit:  limit,
	}
}

// Put stores event under its request ID.
func (c *ResultCache) Put(event contracts.WatchEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.events[event.RequestID]; !exists {
		c.order = append(c.order, event.RequestID)
	}
	c.events[event.RequestID] = event

	for len(c.order) > c.limit {
		delete(c.events, c.order[0])
		c.order = c.order[1:]
	}
}

// Get returns the event stored for requestID.
func (c *ResultCache) Get(requestID string) (contracts.WatchEvent, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	event, ok := c.events[requestID]
	return event, ok
}
