package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	entry     Entry
	expiresAt time.Time
}

// MemoryCache is a process local TTL cache that evicts the oldest entry when
// full.
type MemoryCache struct {
	mu         sync.RWMutex
	items      map[string]memoryItem
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

func NewMemoryCache(config Config) *MemoryCache {
	config = config.withDefaults()
	return &MemoryCache{
		items:      make(map[string]memoryItem),
		ttl:        config.TTL,
		maxEntries: config.MaxEntries,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (c *MemoryCache) Get(_ context.Context, signature string) (Entry, bool) {
	c.mu.RLock()
	item, exists := c.items[signature]
	c.mu.RUnlock()
	if !exists {
		return Entry{}, false
	}

	if c.now().After(item.expiresAt) {
		c.mu.Lock()
		delete(c.items, signature)
		c.mu.Unlock()
		return Entry{}, false
	}

	entry := item.entry
	entry.Payload = clonePayload(entry.Payload)
	return entry, true
}

func (c *MemoryCache) Set(_ context.Context, signature string, entry Entry) {
	now := c.now()
	entry.CreatedAt = now
	entry.Payload = clonePayload(entry.Payload)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[signature]; !exists && len(c.items) >= c.maxEntries {
		c.evictOldest()
	}
	c.items[signature] = memoryItem{entry: entry, expiresAt: now.Add(c.ttl)}
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *MemoryCache) evictOldest() {
	oldestKey := ""
	var oldest time.Time
	for key, item := range c.items {
		if oldestKey == "" || item.entry.CreatedAt.Before(oldest) {
			oldestKey = key
			oldest = item.entry.CreatedAt
		}
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
