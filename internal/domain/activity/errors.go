package activity

import "github.com/okian/clanpulse/internal/domain/scoring"

// ErrInvalidInput is returned for misordered thresholds, negative day counts
// and any other configuration the engine refuses to run with. It is the same
// sentinel scoring uses, so callers need a single errors.Is check.
var ErrInvalidInput = scoring.ErrInvalidInput

// ValidationError names the field that failed validation.
type ValidationError = scoring.ValidationError

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
