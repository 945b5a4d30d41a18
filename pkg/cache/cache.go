package cache

import (
	"context"
	"time"

	"nextmavens/warden/pkg/project"
)

// ProjectCache caches project snapshots served to the data plane. The
// suspension pipeline only ever invalidates entries: after a status
// transition commits, the stale snapshot must not outlive the decision.
type ProjectCache interface {
	// Get returns the cached snapshot for a project, or nil on a miss.
	Get(ctx context.Context, projectID string) (*project.Project, error)

	// Set stores a snapshot with the cache's configured TTL.
	Set(ctx context.Context, p *project.Project) error

	// Invalidate drops the cached snapshot for a project. Invalidating an
	// absent entry is not an error.
	Invalidate(ctx context.Context, projectID string) error
}

// entry is a memory-cache slot.
type entry struct {
	p       *project.Project
	expires time.Time
}
