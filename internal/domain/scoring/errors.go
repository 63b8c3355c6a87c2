package scoring

import "errors"

// ErrInvalidInput marks a weight configuration that cannot be scored.
var ErrInvalidInput = errors.New("invalid input")

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + e.Field + ": " + e.Reason
}

// Unwrap makes errors.Is(err, ErrInvalidInput) hold.
func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
