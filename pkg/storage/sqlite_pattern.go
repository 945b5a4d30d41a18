package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"nextmavens/warden/pkg/detect"
)

// Pattern-config override storage. Satisfies detect.ConfigStore. Overrides
// are sparse (most projects use defaults) and read-heavy, so a single JSON
// column beats one column per field.

// GetOverrides implements detect.ConfigStore.
func (s *SQLiteStore) GetOverrides(ctx context.Context, projectID string) (*detect.PatternOverrides, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		configJSON string
		updatedAt  int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT config_json, updated_at FROM pattern_configs WHERE project_id = ?
	`, projectID).Scan(&configJSON, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, detect.NewStorageError("get_overrides", err)
	}

	var overrides detect.PatternOverrides
	if err := json.Unmarshal([]byte(configJSON), &overrides); err != nil {
		return nil, detect.NewStorageError("unmarshal_overrides", err)
	}
	overrides.ProjectID = projectID
	overrides.UpdatedAt = time.UnixMilli(updatedAt)
	return &overrides, nil
}

// SetOverrides implements detect.ConfigStore.
func (s *SQLiteStore) SetOverrides(ctx context.Context, overrides *detect.PatternOverrides) error {
	if overrides == nil || overrides.ProjectID == "" {
		return detect.NewStorageError("set_overrides", sql.ErrNoRows)
	}

	data, err := json.Marshal(overrides)
	if err != nil {
		return detect.NewStorageError("marshal_overrides", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pattern_configs (project_id, config_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (project_id) DO UPDATE SET
			config_json = excluded.config_json,
			updated_at = excluded.updated_at
	`, overrides.ProjectID, string(data), time.Now().UnixMilli())
	if err != nil {
		return detect.NewStorageError("set_overrides", err)
	}
	return nil
}

// DeleteOverrides implements detect.ConfigStore.
func (s *SQLiteStore) DeleteOverrides(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM pattern_configs WHERE project_id = ?
	`, projectID)
	if err != nil {
		return detect.NewStorageError("delete_overrides", err)
	}
	return nil
}
