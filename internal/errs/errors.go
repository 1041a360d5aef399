package errs

import (
	"errors"
	"fmt"
)

// Common sentinel errors for cross-layer signaling.
var (
	// ErrValidation marks malformed input rejected before any I/O (HTTP 422).
	ErrValidation = errors.New("validation_error")
	// ErrReference marks an input that points at a missing account or project.
	ErrReference = errors.New("reference_error")
	// ErrConcurrencyConflict is returned when an account version moved underneath a write.
	ErrConcurrencyConflict = errors.New("concurrency_conflict")
	ErrNotFound            = errors.New("not_found")
	// ErrDuplicate is raised by the stores when a unique constraint rejects a row.
	ErrDuplicate = errors.New("duplicate")
)

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Referencef wraps ErrReference with a formatted message.
func Referencef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrReference, fmt.Sprintf(format, args...))
}

// Message strips the sentinel prefix added by Validationf and Referencef so
// callers can surface only the human readable part.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, s := range []error{ErrValidation, ErrReference} {
		prefix := s.Error() + ": "
		if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
			return msg[len(prefix):]
		}
	}
	return msg
}
