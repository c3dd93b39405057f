package cache

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/subkit/core"
	"github.com/layer-3/subkit/ports"
)

type entry struct {
	page      *core.SubnamePage
	expiresAt time.Time
}

// MemoryCache is an in-memory SubnameCache
type MemoryCache struct {
	entries map[core.Address]entry
	mu      sync.RWMutex
	now     func() time.Time
}

// NewMemoryCache creates an empty cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[core.Address]entry),
		now:     time.Now,
	}
}

var _ ports.SubnameCache = (*MemoryCache)(nil)

// Get returns a deep copy of the cached page when it has not expired
func (c *MemoryCache) Get(ctx context.Context, owner core.Address) (*core.SubnamePage, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[owner]
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	return e.page.Clone(), true, nil
}

// Set replaces the entry for owner
func (c *MemoryCache) Set(ctx context.Context, owner core.Address, page *core.SubnamePage, ttl time.Duration) error {
	if page == nil || ttl <= 0 {
		return nil
	}
	stored := page.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
		}
	}
	c.entries[owner] = entry{page: stored, expiresAt: now.Add(ttl)}
	return nil
}

// Invalidate drops the entry for owner
func (c *MemoryCache) Invalidate(ctx context.Context, owner core.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, owner)
	return nil
}
