// Package mutation builds the narrow set of whitelisted DDL/DML statements.
// Identifiers are validated against an allow-list pattern before any
// interpolation; values are always bound natively, never interpolated.
package mutation

import (
	"errors"
	"fmt"
)

// ErrValidation is the sentinel all validation failures match.
var ErrValidation = errors.New("validation failed")

// ValidationError reports bad input that never reaches an engine.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return e.Reason
}

// Is checks if the error is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return errors.Is(target, ErrValidation)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidationError checks whether an error is a validation failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}
