package policy

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound indicates the requested policy does not exist.
	ErrNotFound = errors.New("policy not found")
)

// ValidationError indicates a policy field failed input validation.
// Validation failures are rejected before any mutation reaches storage.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid policy field %q: %s", e.Field, e.Message)
}

// StorageError indicates the storage collaborator failed. The cause is
// propagated unchanged; the engine does not retry storage calls.
type StorageError struct {
	Op    string
	Cause error
}

// Error returns the error message.
func (e *StorageError) Error() string {
	return fmt.Sprintf("policy storage %s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Cause
}
