package scan

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrSessionNotFound = errors.New("scan session not found")
	ErrInvalidState    = errors.New("scan session not in a valid state for this operation")
)

// ValidationError reports a missing or malformed request field. It is
// raised before any state is mutated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
