package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the business rules enforced by the core packages.
// Handlers translate these into HTTP responses with StatusOf; everything
// that is not one of these kinds is treated as an internal server error.
var (
	// ErrUnauthorized means the caller lacks the role level or tenant scope
	// for the requested action.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict covers duplicate natural keys, duplicate permission grants,
	// revoking an absent grant, and similar already-in-that-state rejections.
	ErrConflict = errors.New("conflict")

	// ErrNotFound means the referenced record does not exist (or is not
	// visible within the caller's tenant).
	ErrNotFound = errors.New("not found")

	// ErrExhausted means a numbering range has no ordinals left. Requires an
	// operator to extend the range or register a new resolution.
	ErrExhausted = errors.New("numbering range exhausted")

	// ErrExpired means the numbering resolution's validity window has closed.
	ErrExpired = errors.New("numbering resolution expired")

	// ErrConfiguration marks a structurally impossible persisted state, e.g.
	// two default numbering configs. Logged as a defect, never exposed with
	// internal detail to the caller.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap annotates err with a message while keeping it matchable with errors.Is.
func Wrap(err error, format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// StatusOf maps a core error to the HTTP status the request layer returns.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrExhausted), errors.Is(err, ErrExpired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
