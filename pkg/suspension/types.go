package suspension

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Type distinguishes operator-initiated suspensions from sweep-initiated
// ones.
type Type string

const (
	// TypeManual is an operator-initiated suspension.
	TypeManual Type = "manual"

	// TypeAutomatic is a sweep- or detector-initiated suspension.
	TypeAutomatic Type = "automatic"
)

// HistoryAction is the transition an append-only history entry records.
type HistoryAction string

const (
	// ActionSuspended records a suspend transition.
	ActionSuspended HistoryAction = "suspended"

	// ActionUnsuspended records an unsuspend transition.
	ActionUnsuspended HistoryAction = "unsuspended"
)

// Reason captures why a project was suspended.
type Reason struct {
	// CapType is the exceeded cap type, or the detector subject for
	// detector-initiated suspensions.
	CapType string `json:"cap_type"`

	// CurrentValue is the usage or count that triggered the suspension.
	CurrentValue float64 `json:"current_value"`

	// LimitExceeded is the limit or threshold that was crossed.
	LimitExceeded float64 `json:"limit_exceeded"`

	// Details is a human-readable summary.
	Details string `json:"details"`
}

// String renders the reason for history entries and notifications.
func (r Reason) String() string {
	if r.Details != "" {
		return r.Details
	}
	return fmt.Sprintf("%s: %.0f exceeded limit %.0f", r.CapType, r.CurrentValue, r.LimitExceeded)
}

// Record is one suspension. A record with a nil ResolvedAt is the
// project's current suspension; at most one such record exists per project
// at any time (enforced by a partial unique index in the store).
type Record struct {
	// ID is a unique record identifier.
	ID string

	// ProjectID identifies the suspended project.
	ProjectID string

	// Reason is why the project was suspended.
	Reason Reason

	// CapExceeded duplicates Reason.CapType for direct querying.
	CapExceeded string

	// SuspendedAt is when the suspension took effect.
	SuspendedAt time.Time

	// ResolvedAt is when the suspension was lifted; nil while active.
	ResolvedAt *time.Time

	// Notes carries operator commentary.
	Notes string

	// Type records whether the suspension was manual or automatic.
	Type Type
}

// Resolved reports whether the suspension has been lifted.
func (r *Record) Resolved() bool {
	return r.ResolvedAt != nil
}

// HistoryEntry is one append-only transition record. Entries are never
// mutated or deleted.
type HistoryEntry struct {
	// ID is a unique entry identifier.
	ID string

	// ProjectID identifies the project.
	ProjectID string

	// Action is the transition.
	Action HistoryAction

	// Reason is the rendered transition reason.
	Reason string

	// Notes carries operator commentary.
	Notes string

	// OccurredAt is when the transition committed.
	OccurredAt time.Time
}

// Store sentinels. Both mark races the controller resolves as no-ops, not
// failures.
var (
	// ErrAlreadySuspended is returned by Store.CreateSuspension when an
	// unresolved record already exists for the project.
	ErrAlreadySuspended = errors.New("project already suspended")

	// ErrNotSuspended is returned by Store.ResolveSuspension when the
	// project has no unresolved record.
	ErrNotSuspended = errors.New("project not suspended")
)

// Store is the transactional persistence contract for suspension state.
// Implementations commit each transition atomically: the record write, the
// history append, and the project status flip are never observed
// partially applied.
type Store interface {
	// ActiveRecord returns the project's unresolved record, or nil.
	ActiveRecord(ctx context.Context, projectID string) (*Record, error)

	// CreateSuspension atomically inserts the record, appends the history
	// entry, and sets the project status to suspended. Returns
	// ErrAlreadySuspended if an unresolved record exists (including one
	// committed by a racing writer).
	CreateSuspension(ctx context.Context, rec *Record, entry *HistoryEntry) error

	// ResolveSuspension atomically marks the unresolved record resolved,
	// appends the history entry, and sets the project status to active.
	// Returns the resolved record, or ErrNotSuspended.
	ResolveSuspension(ctx context.Context, projectID string, resolvedAt time.Time, notes string, entry *HistoryEntry) (*Record, error)

	// History returns a project's transition history, oldest first.
	History(ctx context.Context, projectID string) ([]*HistoryEntry, error)

	// ListActive returns all unresolved records.
	ListActive(ctx context.Context) ([]*Record, error)
}

// StorageError represents a failure in the suspension store. The
// controller is fail-closed: these propagate and no partial state is left
// behind.
type StorageError struct {
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("suspension storage error [operation=%s]: %v", e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(operation string, cause error) *StorageError {
	return &StorageError{Operation: operation, Cause: cause}
}
