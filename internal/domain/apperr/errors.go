// Package apperr holds the sentinel errors shared by services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input rejected before any backend call
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("not found")

	// ErrUnauthenticated is returned when no valid session is present
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrForbidden is returned when the caller lacks the required role
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is returned when a write collides with existing state
	ErrConflict = errors.New("conflict")

	// ErrBackendUnavailable is returned by write paths when no backend is configured
	ErrBackendUnavailable = errors.New("service is not available")
)

// Validation wraps a field-level message in ErrValidation
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Unavailable builds the user-facing error for a service whose backend is not configured
func Unavailable(service string) error {
	return fmt.Errorf("%w: %s service is not available. Please check your configuration.", ErrBackendUnavailable, service)
}

// Message returns the user-facing text of err, without the sentinel prefix
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, sentinel := range []error{ErrValidation, ErrBackendUnavailable} {
		if errors.Is(err, sentinel) {
			prefix := sentinel.Error() + ": "
			if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
				return msg[len(prefix):]
			}
		}
	}
	return msg
}
