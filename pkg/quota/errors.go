package quota

import "fmt"

// ValidationError reports a rejected cap value or cap type. It is raised
// synchronously and nothing is persisted.
type ValidationError struct {
	Field  string // field that failed validation ("cap_type", "cap_value")
	Value  interface{}
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// StorageError represents a failure in the quota store backend.
type StorageError struct {
	Operation string // operation that failed ("get", "set", "delete", ...)
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("quota storage error [operation=%s]: %v", e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(operation string, cause error) *StorageError {
	return &StorageError{Operation: operation, Cause: cause}
}
