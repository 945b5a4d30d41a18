package detect

import (
	"context"
	"sync"
	"time"
)

// MemoryEventSource is an in-memory EventSource for tests and local runs.
type MemoryEventSource struct {
	mu     sync.RWMutex
	events map[string][]time.Time // projectID|kind -> event times
}

// NewMemoryEventSource creates an empty in-memory event source.
func NewMemoryEventSource() *MemoryEventSource {
	return &MemoryEventSource{events: make(map[string][]time.Time)}
}

// AddEvent records one qualifying event at the given time.
func (s *MemoryEventSource) AddEvent(projectID string, kind PatternKind, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := projectID + "|" + string(kind)
	s.events[k] = append(s.events[k], at)
}

// CountEvents implements EventSource.
func (s *MemoryEventSource) CountEvents(_ context.Context, projectID string, kind PatternKind, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, at := range s.events[projectID+"|"+string(kind)] {
		if !at.Before(since) {
			n++
		}
	}
	return n, nil
}
