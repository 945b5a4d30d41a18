package quota

import (
	"context"
	"log/slog"
	"time"
)

// Repository is the persistence contract for quota rows. Implementations
// live in pkg/storage. A nil Quota with a nil error means "no row".
type Repository interface {
	// Get returns the stored quota for (projectID, capType), or nil.
	Get(ctx context.Context, projectID string, capType CapType) (*Quota, error)

	// List returns all stored quotas for a project.
	List(ctx context.Context, projectID string) ([]*Quota, error)

	// Upsert inserts or replaces a quota row.
	Upsert(ctx context.Context, q *Quota) error

	// InsertIfAbsent inserts a quota row only when no row exists for its
	// (projectID, capType). Existing rows are left untouched.
	InsertIfAbsent(ctx context.Context, q *Quota) error

	// Delete removes the quota row for (projectID, capType). Deleting an
	// absent row is not an error.
	Delete(ctx context.Context, projectID string, capType CapType) error

	// DeleteAll removes every quota row for a project.
	DeleteAll(ctx context.Context, projectID string) error
}

// Store provides CRUD over per-project cap configuration and applies
// platform defaults. Reads fall back to DefaultCaps when no row is stored,
// so deleting a custom cap reverts the project to the default.
type Store struct {
	repo     Repository
	defaults map[CapType]float64
	logger   *slog.Logger
}

// NewStore creates a quota store over the given repository.
func NewStore(repo Repository) *Store {
	return &Store{
		repo:     repo,
		defaults: DefaultCaps,
		logger:   slog.Default().With("component", "quota.store"),
	}
}

// NewStoreWithDefaults creates a quota store whose default cap values are
// DefaultCaps overlaid with the given overrides. Unknown cap types in the
// overrides are ignored; callers validate them at config load.
func NewStoreWithDefaults(repo Repository, overrides map[CapType]float64) *Store {
	defaults := make(map[CapType]float64, len(DefaultCaps))
	for ct, v := range DefaultCaps {
		defaults[ct] = v
	}
	for ct, v := range overrides {
		if ct.Valid() && v > 0 {
			defaults[ct] = v
		}
	}
	return &Store{
		repo:     repo,
		defaults: defaults,
		logger:   slog.Default().With("component", "quota.store"),
	}
}

// Get returns the stored quota for a project and cap type, or nil when the
// project uses the default for that cap type.
func (s *Store) Get(ctx context.Context, projectID string, capType CapType) (*Quota, error) {
	if !capType.Valid() {
		return nil, NewValidationError("cap_type", capType, "unknown cap type")
	}
	return s.repo.Get(ctx, projectID, capType)
}

// GetAll returns the effective quotas for a project: one entry per declared
// cap type, stored overrides where present and defaults elsewhere.
func (s *Store) GetAll(ctx context.Context, projectID string) ([]*Quota, error) {
	stored, err := s.repo.List(ctx, projectID)
	if err != nil {
		return nil, err
	}

	byType := make(map[CapType]*Quota, len(stored))
	for _, q := range stored {
		byType[q.CapType] = q
	}

	quotas := make([]*Quota, 0, len(CapTypes))
	for _, ct := range CapTypes {
		if q, ok := byType[ct]; ok {
			quotas = append(quotas, q)
			continue
		}
		quotas = append(quotas, &Quota{
			ProjectID: projectID,
			CapType:   ct,
			CapValue:  s.defaults[ct],
		})
	}
	return quotas, nil
}

// Set upserts a custom cap value for a project. The value must be positive.
func (s *Store) Set(ctx context.Context, projectID string, capType CapType, value float64) error {
	if !capType.Valid() {
		return NewValidationError("cap_type", capType, "unknown cap type")
	}
	if value <= 0 {
		return NewValidationError("cap_value", value, "must be greater than zero")
	}

	return s.repo.Upsert(ctx, &Quota{
		ProjectID: projectID,
		CapType:   capType,
		CapValue:  value,
		UpdatedAt: time.Now(),
	})
}

// ApplyDefaults inserts the default cap value for every cap type the
// project has no row for. Idempotent: existing rows, custom or not, are
// never overwritten.
func (s *Store) ApplyDefaults(ctx context.Context, projectID string) error {
	now := time.Now()
	for _, ct := range CapTypes {
		err := s.repo.InsertIfAbsent(ctx, &Quota{
			ProjectID: projectID,
			CapType:   ct,
			CapValue:  s.defaults[ct],
			UpdatedAt: now,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Reset deletes all of a project's quota rows and re-applies defaults,
// discarding any custom values.
func (s *Store) Reset(ctx context.Context, projectID string) error {
	if err := s.repo.DeleteAll(ctx, projectID); err != nil {
		return err
	}
	return s.ApplyDefaults(ctx, projectID)
}

// Delete removes the stored value for one cap type so subsequent reads see
// the default again.
func (s *Store) Delete(ctx context.Context, projectID string, capType CapType) error {
	if !capType.Valid() {
		return NewValidationError("cap_type", capType, "unknown cap type")
	}
	return s.repo.Delete(ctx, projectID, capType)
}

// EffectiveLimit returns the limit the engine should enforce for a project
// and cap type: the stored override if present, the default otherwise.
func (s *Store) EffectiveLimit(ctx context.Context, projectID string, capType CapType) (float64, error) {
	q, err := s.repo.Get(ctx, projectID, capType)
	if err != nil {
		return 0, err
	}
	if q != nil {
		return q.CapValue, nil
	}
	limit, ok := s.defaults[capType]
	if !ok {
		return 0, NewValidationError("cap_type", capType, "unknown cap type")
	}
	return limit, nil
}
