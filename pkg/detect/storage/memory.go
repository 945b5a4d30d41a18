package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"nextmavens/warden/pkg/detect"
)

// MemoryStore is an in-memory detect.ResultStore for tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	results []*detect.Result
}

// NewMemoryStore creates an empty in-memory result store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save implements detect.ResultStore.
func (m *MemoryStore) Save(_ context.Context, result *detect.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *result
	m.results = append(m.results, &clone)
	return nil
}

// Query implements detect.ResultStore.
func (m *MemoryStore) Query(_ context.Context, q detect.ResultQuery) ([]*detect.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*detect.Result
	for _, r := range m.results {
		if !matches(r, q) {
			continue
		}
		clone := *r
		out = append(out, &clone)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].DetectedAt.After(out[j].DetectedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Summarize implements detect.ResultStore.
func (m *MemoryStore) Summarize(_ context.Context, q detect.ResultQuery) (*detect.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := &detect.Summary{
		BySeverity: make(map[detect.Severity]int64),
		ByAction:   make(map[detect.Action]int64),
	}
	for _, r := range m.results {
		if !matches(r, q) {
			continue
		}
		summary.Total++
		summary.BySeverity[r.Severity]++
		summary.ByAction[r.Action]++
	}
	return summary, nil
}

// Prune removes results older than the cutoff.
func (m *MemoryStore) Prune(_ context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.results[:0]
	var deleted int64
	for _, r := range m.results {
		if r.DetectedAt.Before(olderThan) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	m.results = kept
	return deleted, nil
}

func matches(r *detect.Result, q detect.ResultQuery) bool {
	if q.ProjectID != "" && r.ProjectID != q.ProjectID {
		return false
	}
	if q.Detector != "" && r.Detector != q.Detector {
		return false
	}
	if !q.Start.IsZero() && r.DetectedAt.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && !r.DetectedAt.Before(q.End) {
		return false
	}
	return true
}
