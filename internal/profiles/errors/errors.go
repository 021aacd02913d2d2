package errors

import (
	"fmt"
)

var (
	ErrNotFound           = fmt.Errorf("not found")
	ErrInvalidInput       = fmt.Errorf("invalid input")
	ErrUnauthenticated    = fmt.Errorf("authentication required")
	ErrForbidden          = fmt.Errorf("forbidden")
	ErrProtected          = fmt.Errorf("protected relation")
	ErrDuplicateSlug      = fmt.Errorf("duplicate slug")
	ErrDuplicateUsername  = fmt.Errorf("duplicate username")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
)

// FieldError reports a malformed or out-of-range field. It unwraps to
// ErrInvalidInput so callers can match the whole class with errors.Is.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidInput
}

// Field constructs a FieldError.
func Field(field, reason string) error {
	return &FieldError{Field: field, Reason: reason}
}
