package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"nextmavens/warden/pkg/detect"
)

// SQLiteConfig contains configuration for the SQLite results store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// DefaultQueryLimit caps queries that do not set their own limit.
	// Default: 100
	DefaultQueryLimit int
}

// DefaultSQLiteConfig returns the default results-store configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:              "data/detections.db",
		MaxOpenConns:      10,
		MaxIdleConns:      5,
		BusyTimeout:       5 * time.Second,
		DefaultQueryLimit: 100,
	}
}

// tables maps detector kinds to their append-only result tables. Each
// detector keeps its own table so per-kind retention and statistics stay
// independent.
var tables = map[detect.Kind]string{
	detect.KindUsageSpike: "spike_detections",
	detect.KindErrorRate:  "error_rate_detections",
	detect.KindPattern:    "pattern_detections",
}

// SQLiteStore implements detect.ResultStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if needed) the detection-results database.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Path == "" {
		return nil, detect.NewStorageError("open", fmt.Errorf("db path cannot be empty"))
	}
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 10
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 5
	}
	if config.BusyTimeout == 0 {
		config.BusyTimeout = 5 * time.Second
	}
	if config.DefaultQueryLimit == 0 {
		config.DefaultQueryLimit = 100
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		config.Path, int(config.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, detect.NewStorageError("open", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStore{
		db:     db,
		config: config,
		logger: slog.Default().With("component", "detect.storage.sqlite"),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, detect.NewStorageError("init_schema", err)
	}

	return s, nil
}

// initSchema creates the per-detector result tables if they do not exist.
func (s *SQLiteStore) initSchema() error {
	for _, table := range tables {
		schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			subject TEXT NOT NULL,
			confirmed INTEGER NOT NULL,
			severity TEXT NOT NULL,
			action TEXT NOT NULL,
			observed REAL NOT NULL,
			threshold REAL NOT NULL,
			details TEXT,
			detected_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_project ON %[1]s(project_id, detected_at);
		CREATE INDEX IF NOT EXISTS idx_%[1]s_detected ON %[1]s(detected_at);
		`, table)

		if _, err := s.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// Save appends a detection result to its detector's table.
func (s *SQLiteStore) Save(ctx context.Context, result *detect.Result) error {
	if result == nil {
		return detect.NewStorageError("save", fmt.Errorf("result cannot be nil"))
	}
	table, ok := tables[result.Detector]
	if !ok {
		return detect.NewStorageError("save", fmt.Errorf("unknown detector kind %q", result.Detector))
	}

	confirmed := 0
	if result.Confirmed {
		confirmed = 1
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, project_id, subject, confirmed, severity, action, observed, threshold, details, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, table)

	_, err := s.db.ExecContext(ctx, query,
		result.ID,
		result.ProjectID,
		result.Subject,
		confirmed,
		string(result.Severity),
		string(result.Action),
		result.Observed,
		result.Threshold,
		result.Details,
		result.DetectedAt.UnixMilli(),
	)
	if err != nil {
		return detect.NewStorageError("save", err)
	}
	return nil
}

// Query returns results matching the query, newest first. An empty
// Detector queries all three tables.
func (s *SQLiteStore) Query(ctx context.Context, q detect.ResultQuery) ([]*detect.Result, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = s.config.DefaultQueryLimit
	}

	var results []*detect.Result
	for kind, table := range tables {
		if q.Detector != "" && q.Detector != kind {
			continue
		}
		rows, err := s.queryTable(ctx, kind, table, q, limit)
		if err != nil {
			return nil, err
		}
		results = append(results, rows...)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].DetectedAt.After(results[j].DetectedAt)
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// queryTable runs the filtered select against one detector table.
func (s *SQLiteStore) queryTable(ctx context.Context, kind detect.Kind, table string, q detect.ResultQuery, limit int) ([]*detect.Result, error) {
	query := fmt.Sprintf(`
		SELECT id, project_id, subject, confirmed, severity, action, observed, threshold, details, detected_at
		FROM %s
		WHERE 1=1
	`, table)
	var args []interface{}

	if q.ProjectID != "" {
		query += " AND project_id = ?"
		args = append(args, q.ProjectID)
	}
	if !q.Start.IsZero() {
		query += " AND detected_at >= ?"
		args = append(args, q.Start.UnixMilli())
	}
	if !q.End.IsZero() {
		query += " AND detected_at < ?"
		args = append(args, q.End.UnixMilli())
	}
	query += " ORDER BY detected_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, detect.NewStorageError("query", err)
	}
	defer rows.Close()

	var results []*detect.Result
	for rows.Next() {
		var (
			r          detect.Result
			confirmed  int
			severity   string
			action     string
			details    sql.NullString
			detectedAt int64
		)
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.Subject, &confirmed, &severity, &action, &r.Observed, &r.Threshold, &details, &detectedAt); err != nil {
			return nil, detect.NewStorageError("scan", err)
		}
		r.Detector = kind
		r.Confirmed = confirmed == 1
		r.Severity = detect.Severity(severity)
		r.Action = detect.Action(action)
		r.Details = details.String
		r.DetectedAt = time.UnixMilli(detectedAt)
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, detect.NewStorageError("query", err)
	}
	return results, nil
}

// Summarize aggregates matching results across the selected tables.
func (s *SQLiteStore) Summarize(ctx context.Context, q detect.ResultQuery) (*detect.Summary, error) {
	summary := &detect.Summary{
		BySeverity: make(map[detect.Severity]int64),
		ByAction:   make(map[detect.Action]int64),
	}

	for kind, table := range tables {
		if q.Detector != "" && q.Detector != kind {
			continue
		}

		query := fmt.Sprintf(`
			SELECT severity, action, COUNT(*)
			FROM %s
			WHERE 1=1
		`, table)
		var args []interface{}
		if q.ProjectID != "" {
			query += " AND project_id = ?"
			args = append(args, q.ProjectID)
		}
		if !q.Start.IsZero() {
			query += " AND detected_at >= ?"
			args = append(args, q.Start.UnixMilli())
		}
		if !q.End.IsZero() {
			query += " AND detected_at < ?"
			args = append(args, q.End.UnixMilli())
		}
		query += " GROUP BY severity, action"

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, detect.NewStorageError("summarize", err)
		}
		for rows.Next() {
			var severity, action string
			var count int64
			if err := rows.Scan(&severity, &action, &count); err != nil {
				rows.Close()
				return nil, detect.NewStorageError("scan", err)
			}
			summary.Total += count
			summary.BySeverity[detect.Severity(severity)] += count
			summary.ByAction[detect.Action(action)] += count
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, detect.NewStorageError("summarize", err)
		}
		rows.Close()
	}

	return summary, nil
}

// Prune deletes results older than the cutoff from every table, returning
// the number of deleted rows.
func (s *SQLiteStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	var deleted int64
	for _, table := range tables {
		res, err := s.db.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE detected_at < ?", table),
			olderThan.UnixMilli(),
		)
		if err != nil {
			return deleted, detect.NewStorageError("prune", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return deleted, detect.NewStorageError("prune", err)
		}
		deleted += n
	}
	return deleted, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}
