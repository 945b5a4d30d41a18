package storage

import "fmt"

// NotFoundError reports that a referenced entity does not exist.
type NotFoundError struct {
	Entity string // entity type ("project", "suspension", ...)
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}
