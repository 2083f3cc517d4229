// Package apperrors defines the error taxonomy shared by services, repositories and handlers
package apperrors

import (
	"errors"
	"sort"
	"strings"
)

// Sentinel errors. Callers wrap them with fmt.Errorf("...: %w", err) and
// classify with errors.Is.
var (
	// ErrUnauthenticated means there is no valid session
	ErrUnauthenticated = errors.New("authentication required")
	// ErrUnauthorized means the session is valid but its role or category scope is insufficient
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound means the entity is absent or filtered out by the caller's scope
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput means the payload is malformed
	ErrInvalidInput = errors.New("invalid input")
	// ErrStore means the underlying persistence failed
	ErrStore = errors.New("store error")
)

// ValidationError carries per-field validation messages.
// It matches ErrInvalidInput with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates a validation error for the given fields
func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrInvalidInput.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrInvalidInput) hold for validation errors
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Reason strips the sentinel prefix from a wrapped error and returns the
// human readable part, e.g. "unauthorized: feedback is outside your category"
// becomes "feedback is outside your category".
func Reason(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{ErrUnauthenticated, ErrUnauthorized, ErrNotFound, ErrInvalidInput} {
		prefix := sentinel.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}
