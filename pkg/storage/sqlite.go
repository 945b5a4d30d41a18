package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"nextmavens/warden/pkg/project"
)

// SQLiteConfig configures the primary state store.
type SQLiteConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// SnapshotInterval is how often to checkpoint the WAL.
	// Default: 5 minutes
	SnapshotInterval time.Duration

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// SQLiteStore is the primary state store: projects, quotas, suspensions,
// suspension history, and pattern-config overrides all live in one
// database so a suspension transaction can flip the project status flag
// atomically with its record and history writes.
//
// It implements quota.Repository, suspension.Store, detect.ConfigStore,
// and project.Directory.
type SQLiteStore struct {
	db               *sql.DB
	dbPath           string
	snapshotInterval time.Duration
	done             chan struct{}
	mu               sync.RWMutex
	closeOnce        sync.Once
	logger           *slog.Logger
}

// NewSQLiteStore opens the state store with default settings.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteConfig{
		DBPath:           dbPath,
		SnapshotInterval: 5 * time.Minute,
		BusyTimeout:      5 * time.Second,
	})
}

// NewSQLiteStoreWithConfig opens the state store with custom configuration.
func NewSQLiteStoreWithConfig(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.SnapshotInterval == 0 {
		cfg.SnapshotInterval = 5 * time.Minute
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{
		db:               db,
		dbPath:           cfg.DBPath,
		snapshotInterval: cfg.SnapshotInterval,
		done:             make(chan struct{}),
		logger:           slog.Default().With("component", "storage.sqlite"),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	go store.checkpointLoop()

	return store, nil
}

// initSchema creates tables and indexes if they do not exist. The partial
// unique index on suspensions is what guarantees at most one unresolved
// record per project, even under concurrent writers.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		owner_email TEXT NOT NULL DEFAULT '',
		environment TEXT NOT NULL DEFAULT 'production',
		status TEXT NOT NULL DEFAULT 'active',
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS quotas (
		project_id TEXT NOT NULL,
		cap_type TEXT NOT NULL,
		cap_value REAL NOT NULL CHECK (cap_value > 0),
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (project_id, cap_type)
	);

	CREATE TABLE IF NOT EXISTS suspensions (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		reason_cap_type TEXT NOT NULL,
		reason_current_value REAL NOT NULL,
		reason_limit_exceeded REAL NOT NULL,
		reason_details TEXT NOT NULL DEFAULT '',
		cap_exceeded TEXT NOT NULL,
		suspended_at INTEGER NOT NULL,
		resolved_at INTEGER,
		notes TEXT NOT NULL DEFAULT '',
		suspension_type TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS ux_suspensions_active
		ON suspensions(project_id) WHERE resolved_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_suspensions_project
		ON suspensions(project_id, suspended_at);

	CREATE TABLE IF NOT EXISTS suspension_history (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		action TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		occurred_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_project
		ON suspension_history(project_id, occurred_at);

	CREATE TABLE IF NOT EXISTS pattern_configs (
		project_id TEXT PRIMARY KEY,
		config_json TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// UpsertProject inserts or updates a project row. Provisioning and tests
// use this; the pipeline itself only flips the status column.
func (s *SQLiteStore) UpsertProject(ctx context.Context, p *project.Project) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("project id cannot be empty")
	}
	if p.Status == "" {
		p.Status = project.StatusActive
	}
	if p.Environment == "" {
		p.Environment = project.EnvProduction
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, owner_email, environment, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			owner_email = excluded.owner_email,
			environment = excluded.environment,
			status = excluded.status
	`, p.ID, p.Name, p.OwnerEmail, string(p.Environment), string(p.Status), p.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to upsert project: %w", err)
	}
	return nil
}

// ListActive implements project.Directory.
func (s *SQLiteStore) ListActive(ctx context.Context) ([]*project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, owner_email, environment, status, created_at
		FROM projects
		WHERE status = ?
		ORDER BY id
	`, string(project.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*project.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// Get implements project.Directory.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*project.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner_email, environment, status, created_at
		FROM projects
		WHERE id = ?
	`, id)

	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, NewNotFoundError("project", id)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProject(row scanner) (*project.Project, error) {
	var (
		p         project.Project
		env       string
		status    string
		createdAt int64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.OwnerEmail, &env, &status, &createdAt); err != nil {
		return nil, err
	}
	p.Environment = project.Environment(env)
	p.Status = project.Status(status)
	p.CreatedAt = time.UnixMilli(createdAt)
	return &p, nil
}

// isUniqueViolation reports whether the error is a SQLite unique
// constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Close releases the database. Close is idempotent.
func (s *SQLiteStore) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		close(s.done)
		if s.db != nil {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}

// checkpointLoop runs periodic WAL checkpoints.
func (s *SQLiteStore) checkpointLoop() {
	ticker := time.NewTicker(s.snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-s.done:
			return
		}
	}
}
