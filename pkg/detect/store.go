package detect

import (
	"context"
	"time"
)

// ResultQuery filters stored detection results.
type ResultQuery struct {
	// ProjectID filters by project. Empty matches all projects.
	ProjectID string

	// Detector filters by detector kind. Empty matches all detectors.
	Detector Kind

	// Start and End bound DetectedAt. Zero values are unbounded.
	Start time.Time
	End   time.Time

	// Limit caps the number of returned results. Zero means the store
	// default.
	Limit int
}

// Summary aggregates stored results for trend analysis.
type Summary struct {
	// Total is the number of results matching the query.
	Total int64

	// BySeverity counts results per severity.
	BySeverity map[Severity]int64

	// ByAction counts results per decided action.
	ByAction map[Action]int64
}

// ResultStore persists detector decisions. The tables are append-only;
// results are never updated or deleted by the pipeline (retention pruning
// is a storage concern).
type ResultStore interface {
	// Save appends a detection result.
	Save(ctx context.Context, result *Result) error

	// Query returns results matching the query, newest first.
	Query(ctx context.Context, q ResultQuery) ([]*Result, error)

	// Summarize aggregates results matching the query.
	Summarize(ctx context.Context, q ResultQuery) (*Summary, error)
}
