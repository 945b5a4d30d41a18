package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"nextmavens/warden/pkg/detect"
	"nextmavens/warden/pkg/project"
	"nextmavens/warden/pkg/quota"
	"nextmavens/warden/pkg/suspension"
)

// MemoryStore is the in-memory twin of SQLiteStore, used in tests. It
// implements the same interfaces with the same transition semantics,
// including the at-most-one-unresolved-suspension invariant.
type MemoryStore struct {
	mu        sync.RWMutex
	projects  map[string]*project.Project
	quotas    map[string]map[quota.CapType]*quota.Quota
	records   []*suspension.Record
	history   []*suspension.HistoryEntry
	overrides map[string]*detect.PatternOverrides
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		projects:  make(map[string]*project.Project),
		quotas:    make(map[string]map[quota.CapType]*quota.Quota),
		overrides: make(map[string]*detect.PatternOverrides),
	}
}

// UpsertProject inserts or updates a project.
func (m *MemoryStore) UpsertProject(_ context.Context, p *project.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *p
	if clone.Status == "" {
		clone.Status = project.StatusActive
	}
	if clone.Environment == "" {
		clone.Environment = project.EnvProduction
	}
	m.projects[p.ID] = &clone
	return nil
}

// ListActive implements project.Directory.
func (m *MemoryStore) ListActive(_ context.Context) ([]*project.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*project.Project
	for _, p := range m.projects {
		if p.Status == project.StatusActive {
			clone := *p
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get implements project.Directory.
func (m *MemoryStore) Get(_ context.Context, id string) (*project.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.projects[id]
	if !ok {
		return nil, NewNotFoundError("project", id)
	}
	clone := *p
	return &clone, nil
}

// quota.Repository implementation.

// Get implements quota.Repository via QuotaRepository().
func (m *MemoryStore) getQuota(projectID string, capType quota.CapType) *quota.Quota {
	if byType, ok := m.quotas[projectID]; ok {
		if q, ok := byType[capType]; ok {
			clone := *q
			return &clone
		}
	}
	return nil
}

// QuotaRepository returns the store's quota.Repository view.
func (m *MemoryStore) QuotaRepository() quota.Repository {
	return &memQuotaRepo{store: m}
}

type memQuotaRepo struct {
	store *MemoryStore
}

func (r *memQuotaRepo) Get(_ context.Context, projectID string, capType quota.CapType) (*quota.Quota, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.store.getQuota(projectID, capType), nil
}

func (r *memQuotaRepo) List(_ context.Context, projectID string) ([]*quota.Quota, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*quota.Quota
	for _, q := range r.store.quotas[projectID] {
		clone := *q
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CapType < out[j].CapType })
	return out, nil
}

func (r *memQuotaRepo) Upsert(_ context.Context, q *quota.Quota) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	byType, ok := r.store.quotas[q.ProjectID]
	if !ok {
		byType = make(map[quota.CapType]*quota.Quota)
		r.store.quotas[q.ProjectID] = byType
	}
	clone := *q
	byType[q.CapType] = &clone
	return nil
}

func (r *memQuotaRepo) InsertIfAbsent(ctx context.Context, q *quota.Quota) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	byType, ok := r.store.quotas[q.ProjectID]
	if !ok {
		byType = make(map[quota.CapType]*quota.Quota)
		r.store.quotas[q.ProjectID] = byType
	}
	if _, exists := byType[q.CapType]; exists {
		return nil
	}
	clone := *q
	byType[q.CapType] = &clone
	return nil
}

func (r *memQuotaRepo) Delete(_ context.Context, projectID string, capType quota.CapType) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if byType, ok := r.store.quotas[projectID]; ok {
		delete(byType, capType)
	}
	return nil
}

func (r *memQuotaRepo) DeleteAll(_ context.Context, projectID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.quotas, projectID)
	return nil
}

// suspension.Store implementation.

// ActiveRecord implements suspension.Store.
func (m *MemoryStore) ActiveRecord(_ context.Context, projectID string) (*suspension.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeRecordLocked(projectID), nil
}

func (m *MemoryStore) activeRecordLocked(projectID string) *suspension.Record {
	for _, rec := range m.records {
		if rec.ProjectID == projectID && rec.ResolvedAt == nil {
			clone := *rec
			return &clone
		}
	}
	return nil
}

// CreateSuspension implements suspension.Store.
func (m *MemoryStore) CreateSuspension(_ context.Context, rec *suspension.Record, entry *suspension.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeRecordLocked(rec.ProjectID) != nil {
		return suspension.ErrAlreadySuspended
	}

	recClone := *rec
	entryClone := *entry
	m.records = append(m.records, &recClone)
	m.history = append(m.history, &entryClone)
	if p, ok := m.projects[rec.ProjectID]; ok {
		p.Status = project.StatusSuspended
	}
	return nil
}

// ResolveSuspension implements suspension.Store.
func (m *MemoryStore) ResolveSuspension(_ context.Context, projectID string, resolvedAt time.Time, _ string, entry *suspension.HistoryEntry) (*suspension.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.records {
		if rec.ProjectID == projectID && rec.ResolvedAt == nil {
			t := resolvedAt
			rec.ResolvedAt = &t
			entryClone := *entry
			m.history = append(m.history, &entryClone)
			if p, ok := m.projects[projectID]; ok {
				p.Status = project.StatusActive
			}
			clone := *rec
			return &clone, nil
		}
	}
	return nil, suspension.ErrNotSuspended
}

// History implements suspension.Store.
func (m *MemoryStore) History(_ context.Context, projectID string) ([]*suspension.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*suspension.HistoryEntry
	for _, e := range m.history {
		if e.ProjectID == projectID {
			clone := *e
			out = append(out, &clone)
		}
	}
	return out, nil
}

// ListActive implements suspension.Store. Named ListActiveSuspensions on
// the memory store because ListActive is taken by project.Directory.
func (m *MemoryStore) ListActiveSuspensions(_ context.Context) ([]*suspension.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*suspension.Record
	for _, rec := range m.records {
		if rec.ResolvedAt == nil {
			clone := *rec
			out = append(out, &clone)
		}
	}
	return out, nil
}

// SuspensionStore returns the store's suspension.Store view.
func (m *MemoryStore) SuspensionStore() suspension.Store {
	return &memSuspensionStore{store: m}
}

type memSuspensionStore struct {
	store *MemoryStore
}

func (s *memSuspensionStore) ActiveRecord(ctx context.Context, projectID string) (*suspension.Record, error) {
	return s.store.ActiveRecord(ctx, projectID)
}

func (s *memSuspensionStore) CreateSuspension(ctx context.Context, rec *suspension.Record, entry *suspension.HistoryEntry) error {
	return s.store.CreateSuspension(ctx, rec, entry)
}

func (s *memSuspensionStore) ResolveSuspension(ctx context.Context, projectID string, resolvedAt time.Time, notes string, entry *suspension.HistoryEntry) (*suspension.Record, error) {
	return s.store.ResolveSuspension(ctx, projectID, resolvedAt, notes, entry)
}

func (s *memSuspensionStore) History(ctx context.Context, projectID string) ([]*suspension.HistoryEntry, error) {
	return s.store.History(ctx, projectID)
}

func (s *memSuspensionStore) ListActive(ctx context.Context) ([]*suspension.Record, error) {
	return s.store.ListActiveSuspensions(ctx)
}

// CountUnresolved mirrors the SQLite store's diagnostic helper.
func (m *MemoryStore) CountUnresolved(_ context.Context, projectID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, rec := range m.records {
		if rec.ProjectID == projectID && rec.ResolvedAt == nil {
			n++
		}
	}
	return n, nil
}

// detect.ConfigStore implementation.

// GetOverrides implements detect.ConfigStore.
func (m *MemoryStore) GetOverrides(_ context.Context, projectID string) (*detect.PatternOverrides, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.overrides[projectID]
	if !ok {
		return nil, nil
	}
	clone := *o
	return &clone, nil
}

// SetOverrides implements detect.ConfigStore.
func (m *MemoryStore) SetOverrides(_ context.Context, overrides *detect.PatternOverrides) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *overrides
	clone.UpdatedAt = time.Now()
	m.overrides[overrides.ProjectID] = &clone
	return nil
}

// DeleteOverrides implements detect.ConfigStore.
func (m *MemoryStore) DeleteOverrides(_ context.Context, projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.overrides, projectID)
	return nil
}
