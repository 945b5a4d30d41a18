package storage

import (
	"context"
	"database/sql"
	"time"

	"nextmavens/warden/pkg/project"
	"nextmavens/warden/pkg/suspension"
)

// Suspension store implementation. Satisfies suspension.Store.

// ActiveRecord returns the project's unresolved suspension record, or nil.
func (s *SQLiteStore) ActiveRecord(ctx context.Context, projectID string) (*suspension.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, reason_cap_type, reason_current_value, reason_limit_exceeded,
		       reason_details, cap_exceeded, suspended_at, resolved_at, notes, suspension_type
		FROM suspensions
		WHERE project_id = ? AND resolved_at IS NULL
	`, projectID)

	rec, err := scanSuspension(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, suspension.NewStorageError("active_record", err)
	}
	return rec, nil
}

// CreateSuspension commits the record insert, the history append, and the
// project status flip in one transaction. The partial unique index on
// (project_id) WHERE resolved_at IS NULL backstops the in-transaction
// existence check against concurrent writers.
func (s *SQLiteStore) CreateSuspension(ctx context.Context, rec *suspension.Record, entry *suspension.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return suspension.NewStorageError("begin", err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM suspensions WHERE project_id = ? AND resolved_at IS NULL
	`, rec.ProjectID).Scan(&existing)
	if err == nil {
		return suspension.ErrAlreadySuspended
	}
	if err != sql.ErrNoRows {
		return suspension.NewStorageError("existence_check", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO suspensions (id, project_id, reason_cap_type, reason_current_value,
			reason_limit_exceeded, reason_details, cap_exceeded, suspended_at, resolved_at,
			notes, suspension_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?)
	`, rec.ID, rec.ProjectID, rec.Reason.CapType, rec.Reason.CurrentValue,
		rec.Reason.LimitExceeded, rec.Reason.Details, rec.CapExceeded,
		rec.SuspendedAt.UnixMilli(), rec.Notes, string(rec.Type))
	if err != nil {
		if isUniqueViolation(err) {
			return suspension.ErrAlreadySuspended
		}
		return suspension.NewStorageError("insert_record", err)
	}

	if err := insertHistory(ctx, tx, entry); err != nil {
		return err
	}

	if err := setProjectStatus(ctx, tx, rec.ProjectID, project.StatusSuspended); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return suspension.ErrAlreadySuspended
		}
		return suspension.NewStorageError("commit", err)
	}
	return nil
}

// ResolveSuspension commits the resolution, the history append, and the
// status flip back to active in one transaction.
func (s *SQLiteStore) ResolveSuspension(ctx context.Context, projectID string, resolvedAt time.Time, notes string, entry *suspension.HistoryEntry) (*suspension.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, suspension.NewStorageError("begin", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id, project_id, reason_cap_type, reason_current_value, reason_limit_exceeded,
		       reason_details, cap_exceeded, suspended_at, resolved_at, notes, suspension_type
		FROM suspensions
		WHERE project_id = ? AND resolved_at IS NULL
	`, projectID)

	rec, err := scanSuspension(row)
	if err == sql.ErrNoRows {
		return nil, suspension.ErrNotSuspended
	}
	if err != nil {
		return nil, suspension.NewStorageError("lookup", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE suspensions SET resolved_at = ? WHERE id = ?
	`, resolvedAt.UnixMilli(), rec.ID)
	if err != nil {
		return nil, suspension.NewStorageError("resolve", err)
	}

	if err := insertHistory(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := setProjectStatus(ctx, tx, projectID, project.StatusActive); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, suspension.NewStorageError("commit", err)
	}

	resolved := resolvedAt
	rec.ResolvedAt = &resolved
	return rec, nil
}

// History returns a project's transition history, oldest first.
func (s *SQLiteStore) History(ctx context.Context, projectID string) ([]*suspension.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, action, reason, notes, occurred_at
		FROM suspension_history
		WHERE project_id = ?
		ORDER BY occurred_at ASC, id ASC
	`, projectID)
	if err != nil {
		return nil, suspension.NewStorageError("history", err)
	}
	defer rows.Close()

	var entries []*suspension.HistoryEntry
	for rows.Next() {
		var (
			e          suspension.HistoryEntry
			action     string
			occurredAt int64
		)
		if err := rows.Scan(&e.ID, &e.ProjectID, &action, &e.Reason, &e.Notes, &occurredAt); err != nil {
			return nil, suspension.NewStorageError("scan", err)
		}
		e.Action = suspension.HistoryAction(action)
		e.OccurredAt = time.UnixMilli(occurredAt)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, suspension.NewStorageError("history", err)
	}
	return entries, nil
}

// ListActiveSuspensions returns all unresolved suspension records. Named
// this way because ListActive is taken by the project.Directory view.
func (s *SQLiteStore) ListActiveSuspensions(ctx context.Context) ([]*suspension.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, reason_cap_type, reason_current_value, reason_limit_exceeded,
		       reason_details, cap_exceeded, suspended_at, resolved_at, notes, suspension_type
		FROM suspensions
		WHERE resolved_at IS NULL
		ORDER BY suspended_at
	`)
	if err != nil {
		return nil, suspension.NewStorageError("list_active", err)
	}
	defer rows.Close()

	var records []*suspension.Record
	for rows.Next() {
		rec, err := scanSuspension(rows)
		if err != nil {
			return nil, suspension.NewStorageError("scan", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, suspension.NewStorageError("list_active", err)
	}
	return records, nil
}

// CountUnresolved returns how many unresolved records a project has.
// Exists for invariant checks in tests and diagnostics; the value is 0 or
// 1 by construction.
func (s *SQLiteStore) CountUnresolved(ctx context.Context, projectID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM suspensions WHERE project_id = ? AND resolved_at IS NULL
	`, projectID).Scan(&n)
	if err != nil {
		return 0, suspension.NewStorageError("count", err)
	}
	return n, nil
}

// SuspensionStore returns the store's suspension.Store view.
func (s *SQLiteStore) SuspensionStore() suspension.Store {
	return &sqliteSuspensionStore{store: s}
}

type sqliteSuspensionStore struct {
	store *SQLiteStore
}

func (v *sqliteSuspensionStore) ActiveRecord(ctx context.Context, projectID string) (*suspension.Record, error) {
	return v.store.ActiveRecord(ctx, projectID)
}

func (v *sqliteSuspensionStore) CreateSuspension(ctx context.Context, rec *suspension.Record, entry *suspension.HistoryEntry) error {
	return v.store.CreateSuspension(ctx, rec, entry)
}

func (v *sqliteSuspensionStore) ResolveSuspension(ctx context.Context, projectID string, resolvedAt time.Time, notes string, entry *suspension.HistoryEntry) (*suspension.Record, error) {
	return v.store.ResolveSuspension(ctx, projectID, resolvedAt, notes, entry)
}

func (v *sqliteSuspensionStore) History(ctx context.Context, projectID string) ([]*suspension.HistoryEntry, error) {
	return v.store.History(ctx, projectID)
}

func (v *sqliteSuspensionStore) ListActive(ctx context.Context) ([]*suspension.Record, error) {
	return v.store.ListActiveSuspensions(ctx)
}

func insertHistory(ctx context.Context, tx *sql.Tx, entry *suspension.HistoryEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO suspension_history (id, project_id, action, reason, notes, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.ProjectID, string(entry.Action), entry.Reason, entry.Notes,
		entry.OccurredAt.UnixMilli())
	if err != nil {
		return suspension.NewStorageError("insert_history", err)
	}
	return nil
}

func setProjectStatus(ctx context.Context, tx *sql.Tx, projectID string, status project.Status) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE projects SET status = ? WHERE id = ?
	`, string(status), projectID)
	if err != nil {
		return suspension.NewStorageError("set_status", err)
	}
	return nil
}

func scanSuspension(row scanner) (*suspension.Record, error) {
	var (
		rec         suspension.Record
		suspendedAt int64
		resolvedAt  sql.NullInt64
		typ         string
	)
	err := row.Scan(&rec.ID, &rec.ProjectID, &rec.Reason.CapType, &rec.Reason.CurrentValue,
		&rec.Reason.LimitExceeded, &rec.Reason.Details, &rec.CapExceeded, &suspendedAt,
		&resolvedAt, &rec.Notes, &typ)
	if err != nil {
		return nil, err
	}

	rec.SuspendedAt = time.UnixMilli(suspendedAt)
	if resolvedAt.Valid {
		t := time.UnixMilli(resolvedAt.Int64)
		rec.ResolvedAt = &t
	}
	rec.Type = suspension.Type(typ)
	return &rec, nil
}
