package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"nextmavens/warden/pkg/project"
)

// RedisCache is a Redis-backed ProjectCache shared by all instances of the
// platform. Snapshots are stored as JSON under a configurable key prefix.
type RedisCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOption customizes a RedisCache.
type RedisOption func(*RedisCache)

// WithPrefix sets the key prefix (default "warden:project").
func WithPrefix(prefix string) RedisOption {
	return func(c *RedisCache) {
		c.prefix = strings.Trim(prefix, ":")
	}
}

// WithTTL sets the snapshot TTL (default 5 minutes).
func WithTTL(ttl time.Duration) RedisOption {
	return func(c *RedisCache) { c.ttl = ttl }
}

// NewRedisCache creates a Redis-backed cache over an existing client.
func NewRedisCache(rdb *redis.Client, opts ...RedisOption) *RedisCache {
	c := &RedisCache{
		rdb:    rdb,
		prefix: "warden:project",
		ttl:    5 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCache) key(projectID string) string {
	return c.prefix + ":" + projectID
}

// Get implements ProjectCache.
func (c *RedisCache) Get(ctx context.Context, projectID string) (*project.Project, error) {
	data, err := c.rdb.Get(ctx, c.key(projectID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var p project.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Set implements ProjectCache.
func (c *RedisCache) Set(ctx context.Context, p *project.Project) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(p.ID), data, c.ttl).Err()
}

// Invalidate implements ProjectCache.
func (c *RedisCache) Invalidate(ctx context.Context, projectID string) error {
	return c.rdb.Del(ctx, c.key(projectID)).Err()
}
