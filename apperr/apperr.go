// Package apperr classifies engine failures so the route layer can map them to
// HTTP responses without string matching.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the failure class of an Error.
type Kind string

const (
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindValidation  Kind = "validation"
	KindUnavailable Kind = "unavailable"
	KindInternal    Kind = "internal"
)

// Error is a classified engine error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil && e.Msg != "" {
		return e.Msg + ": " + e.Err.Error()
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Msg != "" {
		return e.Msg
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrStoreUnavailable is returned when a service was built without a DB handle.
var ErrStoreUnavailable = &Error{Kind: KindUnavailable, Msg: "database connection required"}

func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected store or encoding failure.
func Internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf returns the Kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps err to the status the REST layer responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
