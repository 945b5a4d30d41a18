package storage

import (
	"context"
	"database/sql"
	"time"

	"nextmavens/warden/pkg/quota"
)

// Quota repository implementation over the primary store. All methods
// satisfy quota.Repository.

// GetQuota returns the stored quota row, or nil when absent.
func (s *SQLiteStore) GetQuota(ctx context.Context, projectID string, capType quota.CapType) (*quota.Quota, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		q         quota.Quota
		capTypeS  string
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT project_id, cap_type, cap_value, updated_at
		FROM quotas
		WHERE project_id = ? AND cap_type = ?
	`, projectID, string(capType)).Scan(&q.ProjectID, &capTypeS, &q.CapValue, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, quota.NewStorageError("get", err)
	}

	q.CapType = quota.CapType(capTypeS)
	q.UpdatedAt = time.UnixMilli(updatedAt)
	return &q, nil
}

// ListQuotas returns all stored quota rows for a project.
func (s *SQLiteStore) ListQuotas(ctx context.Context, projectID string) ([]*quota.Quota, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT project_id, cap_type, cap_value, updated_at
		FROM quotas
		WHERE project_id = ?
		ORDER BY cap_type
	`, projectID)
	if err != nil {
		return nil, quota.NewStorageError("list", err)
	}
	defer rows.Close()

	var quotas []*quota.Quota
	for rows.Next() {
		var (
			q         quota.Quota
			capTypeS  string
			updatedAt int64
		)
		if err := rows.Scan(&q.ProjectID, &capTypeS, &q.CapValue, &updatedAt); err != nil {
			return nil, quota.NewStorageError("scan", err)
		}
		q.CapType = quota.CapType(capTypeS)
		q.UpdatedAt = time.UnixMilli(updatedAt)
		quotas = append(quotas, &q)
	}
	if err := rows.Err(); err != nil {
		return nil, quota.NewStorageError("list", err)
	}
	return quotas, nil
}

// UpsertQuota inserts or replaces a quota row.
func (s *SQLiteStore) UpsertQuota(ctx context.Context, q *quota.Quota) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quotas (project_id, cap_type, cap_value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (project_id, cap_type) DO UPDATE SET
			cap_value = excluded.cap_value,
			updated_at = excluded.updated_at
	`, q.ProjectID, string(q.CapType), q.CapValue, q.UpdatedAt.UnixMilli())
	if err != nil {
		return quota.NewStorageError("upsert", err)
	}
	return nil
}

// InsertQuotaIfAbsent inserts a quota row unless one already exists.
func (s *SQLiteStore) InsertQuotaIfAbsent(ctx context.Context, q *quota.Quota) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quotas (project_id, cap_type, cap_value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (project_id, cap_type) DO NOTHING
	`, q.ProjectID, string(q.CapType), q.CapValue, q.UpdatedAt.UnixMilli())
	if err != nil {
		return quota.NewStorageError("insert_if_absent", err)
	}
	return nil
}

// DeleteQuota removes one quota row.
func (s *SQLiteStore) DeleteQuota(ctx context.Context, projectID string, capType quota.CapType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM quotas WHERE project_id = ? AND cap_type = ?
	`, projectID, string(capType))
	if err != nil {
		return quota.NewStorageError("delete", err)
	}
	return nil
}

// DeleteAllQuotas removes every quota row for a project.
func (s *SQLiteStore) DeleteAllQuotas(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM quotas WHERE project_id = ?
	`, projectID)
	if err != nil {
		return quota.NewStorageError("delete_all", err)
	}
	return nil
}

// quotaRepo adapts SQLiteStore method names to the quota.Repository
// interface.
type quotaRepo struct {
	store *SQLiteStore
}

// QuotaRepository returns the store's quota.Repository view.
func (s *SQLiteStore) QuotaRepository() quota.Repository {
	return &quotaRepo{store: s}
}

func (r *quotaRepo) Get(ctx context.Context, projectID string, capType quota.CapType) (*quota.Quota, error) {
	return r.store.GetQuota(ctx, projectID, capType)
}

func (r *quotaRepo) List(ctx context.Context, projectID string) ([]*quota.Quota, error) {
	return r.store.ListQuotas(ctx, projectID)
}

func (r *quotaRepo) Upsert(ctx context.Context, q *quota.Quota) error {
	return r.store.UpsertQuota(ctx, q)
}

func (r *quotaRepo) InsertIfAbsent(ctx context.Context, q *quota.Quota) error {
	return r.store.InsertQuotaIfAbsent(ctx, q)
}

func (r *quotaRepo) Delete(ctx context.Context, projectID string, capType quota.CapType) error {
	return r.store.DeleteQuota(ctx, projectID, capType)
}

func (r *quotaRepo) DeleteAll(ctx context.Context, projectID string) error {
	return r.store.DeleteAllQuotas(ctx, projectID)
}
