// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail  string            `json:"detail"`
	Code    string            `json:"code,omitempty"`
	Context map[string]string `json:"context,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}

// Kind classifies domain failures. Each kind maps to one HTTP status.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindConflict
	KindInvalidState
	KindValidation
	KindForbidden
	KindPrecondition
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidState:
		return "invalid_state"
	case KindValidation:
		return "validation_failed"
	case KindForbidden:
		return "forbidden"
	case KindPrecondition:
		return "precondition_failed"
	default:
		return "unknown"
	}
}

// Status returns the HTTP status a Kind is answered with.
func (k Kind) Status() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindInvalidState, KindValidation:
		return http.StatusBadRequest
	case KindForbidden, KindPrecondition:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain failure raised by the service layer.
type Error struct {
	Kind    Kind
	Code    string
	Detail  string
	Context map[string]string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// With attaches a context value the caller can use to self-correct.
func (e *Error) With(key, value string) *Error {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// Envelope converts the error into the JSON body sent to clients.
func (e *Error) Envelope() *APIError {
	return &APIError{Detail: e.Detail, Code: e.Code, Context: e.Context}
}

func newError(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Detail: fmt.Sprintf(format, args...)}
}

func NotFound(code, format string, args ...any) *Error {
	return newError(KindNotFound, code, format, args...)
}

func Conflict(code, format string, args ...any) *Error {
	return newError(KindConflict, code, format, args...)
}

func InvalidState(code, format string, args ...any) *Error {
	return newError(KindInvalidState, code, format, args...)
}

func Validation(code, format string, args ...any) *Error {
	return newError(KindValidation, code, format, args...)
}

func Forbidden(code, format string, args ...any) *Error {
	return newError(KindForbidden, code, format, args...)
}

func Precondition(code, format string, args ...any) *Error {
	return newError(KindPrecondition, code, format, args...)
}

// As extracts a domain error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err is a domain error of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}
