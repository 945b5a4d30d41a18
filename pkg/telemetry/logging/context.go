package logging

import (
	"context"
)

// Context keys for common log fields.
type contextKey string

const (
	// ProjectIDKey is the context key for project identifiers.
	ProjectIDKey contextKey = "project_id"

	// SweepIDKey is the context key for sweep run identifiers.
	SweepIDKey contextKey = "sweep_id"

	// DetectorKey is the context key for detector names.
	DetectorKey contextKey = "detector"

	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"
)

// WithProjectID returns a context carrying a project identifier.
func WithProjectID(ctx context.Context, projectID string) context.Context {
	return context.WithValue(ctx, ProjectIDKey, projectID)
}

// WithSweepID returns a context carrying a sweep run identifier.
func WithSweepID(ctx context.Context, sweepID string) context.Context {
	return context.WithValue(ctx, SweepIDKey, sweepID)
}

// WithDetector returns a context carrying a detector name.
func WithDetector(ctx context.Context, detector string) context.Context {
	return context.WithValue(ctx, DetectorKey, detector)
}

// WithRequestID returns a context carrying a request identifier.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// extractContextFields pulls known log fields out of a context.
// The result is a flat key-value list suitable for slog.
func extractContextFields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}

	var fields []any
	for _, key := range []contextKey{ProjectIDKey, SweepIDKey, DetectorKey, RequestIDKey} {
		if val, ok := ctx.Value(key).(string); ok && val != "" {
			fields = append(fields, string(key), val)
		}
	}
	return fields
}
