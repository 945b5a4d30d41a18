package cache

import (
	"context"
	"sync"
	"time"

	"nextmavens/warden/pkg/project"
)

// MemoryCache is an in-process ProjectCache, used in tests and
// single-instance deployments without Redis.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
}

// NewMemoryCache creates a memory cache with the given TTL. A zero TTL
// means entries never expire.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]entry),
		ttl:     ttl,
	}
}

// Get implements ProjectCache.
func (c *MemoryCache) Get(_ context.Context, projectID string) (*project.Project, error) {
	c.mu.RLock()
	e, ok := c.entries[projectID]
	c.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		c.mu.Lock()
		delete(c.entries, projectID)
		c.mu.Unlock()
		return nil, nil
	}

	clone := *e.p
	return &clone, nil
}

// Set implements ProjectCache.
func (c *MemoryCache) Set(_ context.Context, p *project.Project) error {
	clone := *p

	var expires time.Time
	if c.ttl > 0 {
		expires = time.Now().Add(c.ttl)
	}

	c.mu.Lock()
	c.entries[p.ID] = entry{p: &clone, expires: expires}
	c.mu.Unlock()
	return nil
}

// Invalidate implements ProjectCache.
func (c *MemoryCache) Invalidate(_ context.Context, projectID string) error {
	c.mu.Lock()
	delete(c.entries, projectID)
	c.mu.Unlock()
	return nil
}
