package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/layer-3/subkit/core"
	"github.com/layer-3/subkit/ports"
)

// RedisCache is a Redis backed SubnameCache shared between instances
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a new Redis cache
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: "subkit:subnames:",
	}
}

var _ ports.SubnameCache = (*RedisCache)(nil)

// Get reads and decodes the cached page
func (c *RedisCache) Get(ctx context.Context, owner core.Address) (*core.SubnamePage, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+owner.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache: %w", err)
	}

	var page core.SubnamePage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached page: %w", err)
	}
	return &page, true, nil
}

// Set stores the page with ttl
func (c *RedisCache) Set(ctx context.Context, owner core.Address, page *core.SubnamePage, ttl time.Duration) error {
	if page == nil || ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("failed to encode page: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+owner.String(), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// Invalidate deletes the entry for owner
func (c *RedisCache) Invalidate(ctx context.Context, owner core.Address) error {
	if err := c.client.Del(ctx, c.prefix+owner.String()).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	return nil
}
