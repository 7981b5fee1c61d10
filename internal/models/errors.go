package models

import (
	"errors"
	"fmt"
)

// Error taxonomy for user-initiated writes. Read paths do not use these:
// they recover from provider failures by returning empty results.
var (
	// ErrValidation rejects bad user input (empty message text,
	// non-positive quantity) before any store or network call is made.
	ErrValidation = errors.New("validation failed")

	// ErrAuthRequired marks an action that needs a signed-in identity
	// when none is present.
	ErrAuthRequired = errors.New("authentication required")

	// ErrStaleCredential marks a sensitive change (email/password update)
	// rejected because the session is too old; the user must
	// re-authenticate and retry.
	ErrStaleCredential = errors.New("recent login required")
)

// Validationf wraps ErrValidation with a user-facing reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}
