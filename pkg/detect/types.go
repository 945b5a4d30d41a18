package detect

import (
	"fmt"
	"time"
)

// Kind identifies which detector produced a result.
type Kind string

const (
	// KindUsageSpike is the usage-spike detector.
	KindUsageSpike Kind = "usage_spike"

	// KindErrorRate is the error-rate detector.
	KindErrorRate Kind = "error_rate"

	// KindPattern is the malicious-pattern detector.
	KindPattern Kind = "pattern"
)

// Severity grades how far past its threshold a detection landed.
type Severity string

const (
	// SeverityWarning is just past the threshold.
	SeverityWarning Severity = "warning"

	// SeverityCritical is well past the threshold.
	SeverityCritical Severity = "critical"

	// SeveritySevere is far enough past the threshold to suspend.
	SeveritySevere Severity = "severe"
)

// Action is what the pipeline should do with a detection.
type Action string

const (
	// ActionNone records the detection without acting on it.
	ActionNone Action = "none"

	// ActionWarn records the detection and notifies the project owner.
	ActionWarn Action = "warn"

	// ActionSuspend suspends the project.
	ActionSuspend Action = "suspend"
)

// PatternKind identifies one of the malicious-pattern sub-heuristics.
type PatternKind string

const (
	// PatternSQLInjection counts SQL-injection signatures in queries.
	PatternSQLInjection PatternKind = "sql_injection"

	// PatternAuthBruteForce counts failed authentication attempts.
	PatternAuthBruteForce PatternKind = "auth_bruteforce"

	// PatternAPIKeyCreation counts API keys created in a short window.
	PatternAPIKeyCreation PatternKind = "api_key_creation"
)

// PatternKinds lists the sub-heuristics in evaluation order.
var PatternKinds = []PatternKind{
	PatternSQLInjection,
	PatternAuthBruteForce,
	PatternAPIKeyCreation,
}

// Result is one detector decision. Results are persisted for history and
// trend analysis but are not load-bearing for suspension state; the
// suspension store is the source of truth.
type Result struct {
	// ID is a unique result identifier.
	ID string

	// ProjectID identifies the evaluated project.
	ProjectID string

	// Detector is which detector produced the result.
	Detector Kind

	// Subject is the metric type (spike), "requests" (error rate), or
	// pattern kind (pattern) the result is about.
	Subject string

	// Confirmed is true when the detection thresholds were met. Detectors
	// only emit confirmed results; the flag is stored for completeness.
	Confirmed bool

	// Severity grades the detection.
	Severity Severity

	// Action is the decided action.
	Action Action

	// Observed is the measured value (usage, error percentage, count).
	Observed float64

	// Threshold is the effective threshold the observation was held to.
	Threshold float64

	// Details is a human-readable summary for audit trails.
	Details string

	// DetectedAt is when the detection was made.
	DetectedAt time.Time
}

// StorageError represents a failure in the detection-results store.
type StorageError struct {
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("detection storage error [operation=%s]: %v", e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(operation string, cause error) *StorageError {
	return &StorageError{Operation: operation, Cause: cause}
}
