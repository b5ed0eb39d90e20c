package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rushteam/shoprec/core"
)

type memoryKey struct {
	userID string
	limit  int
}

// MemoryCache 是进程内缓存，读写由 RWMutex 保护。
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	clock   Clock
	entries map[memoryKey]Entry
}

func NewMemoryCache(ttl time.Duration, opts ...Option) *MemoryCache {
	o := buildOptions(opts)
	return &MemoryCache{
		ttl:     ttl,
		clock:   o.clock,
		entries: make(map[memoryKey]Entry),
	}
}

func (c *MemoryCache) Get(_ context.Context, userID string, limit int) ([]core.Product, bool) {
	c.mu.RLock()
	e, ok := c.entries[memoryKey{userID, limit}]
	c.mu.RUnlock()
	if !ok || !e.fresh(c.clock(), c.ttl) {
		return nil, false
	}
	return clonePayload(e.Payload), true
}

func (c *MemoryCache) Put(_ context.Context, userID string, limit int, payload []core.Product) {
	e := Entry{WrittenAt: c.clock(), Payload: clonePayload(payload)}
	c.mu.Lock()
	c.entries[memoryKey{userID, limit}] = e
	c.mu.Unlock()
}

func (c *MemoryCache) Invalidate(_ context.Context, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.userID == userID {
			delete(c.entries, k)
		}
	}
}

func (c *MemoryCache) Clear(_ context.Context) {
	c.mu.Lock()
	c.entries = make(map[memoryKey]Entry)
	c.mu.Unlock()
}

// Len 返回条目数（含已过期但未被覆盖的）。
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
