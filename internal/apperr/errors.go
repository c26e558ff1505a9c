// Package apperr holds the failure kinds shared by the voting and grant
// application engines. Callers compare with errors.Is; stores and services
// wrap them with context using %w.
package apperr

import "errors"

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("not allowed")
	ErrNotFound        = errors.New("not found")
	// ErrConflict marks a lost race on a uniqueness constraint or a
	// serialization failure. The caller may retry after re-reading state.
	ErrConflict = errors.New("conflicting concurrent update")

	ErrNotOpen        = errors.New("grant is not accepting applications")
	ErrDeadlinePassed = errors.New("grant deadline has passed")
	ErrAlreadyApplied = errors.New("project already applied to this grant")

	ErrInvalidInput = errors.New("invalid input")
)

// Kind returns a stable machine-readable name for err's failure kind, or
// "internal" when err carries none of the sentinels.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotOpen):
		return "not_open"
	case errors.Is(err, ErrDeadlinePassed):
		return "deadline_passed"
	case errors.Is(err, ErrAlreadyApplied):
		return "already_applied"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	}
	return "internal"
}

// Retryable reports whether a fresh read-decide-act cycle may succeed.
func Retryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
