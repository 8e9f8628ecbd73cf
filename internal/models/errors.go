package models

import (
	"errors"
	"fmt"
)

// ErrNotFound signals an unknown transaction or summary id.
var ErrNotFound = errors.New("not found")

// ValidationError rejects malformed input. It is surfaced to the caller
// and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
