package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the closed set of failure classes the API can produce.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	// KindUnresolved marks a store operation that produced no effect.
	KindUnresolved
)

// Status maps the kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Prefix is the human readable label placed in front of response messages.
func (k Kind) Prefix() string {
	switch k {
	case KindBadRequest:
		return "Bad request"
	case KindUnauthorized:
		return "Unauthorized"
	case KindForbidden:
		return "Forbidden"
	case KindNotFound:
		return "Not found"
	case KindConflict:
		return "Conflict"
	default:
		return "Internal server error"
	}
}

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "BAD_REQUEST"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindForbidden:
		return "FORBIDDEN"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindUnresolved:
		return "UNRESOLVED"
	default:
		return "INTERNAL_ERROR"
	}
}

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Kind    Kind        `json:"-"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Status  int         `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Err     error       `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors of the same kind and code so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// New creates a new Error instance.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Status: kind.Status(), Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Status: kind.Status(), Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrBadRequest   = New(KindBadRequest, "BAD_REQUEST", "bad request")
	ErrValidation   = New(KindBadRequest, "VALIDATION_ERROR", "Invalid argument(s)")
	ErrUnauthorized = New(KindUnauthorized, "UNAUTHORIZED", "Unauthorized Access")
	ErrForbidden    = New(KindForbidden, "FORBIDDEN", "Forbidden Access")
	ErrNotFound     = New(KindNotFound, "NOT_FOUND", "resource not found")
	ErrConflict     = New(KindConflict, "CONFLICT", "conflict")
	ErrUnresolved   = New(KindUnresolved, "UNRESOLVED", "operation had no effect")
	ErrInternal     = New(KindInternal, "INTERNAL_ERROR", "internal server error")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, KindInternal, ErrInternal.Code, ErrInternal.Message)
}

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WithData returns a copy of the error carrying a response payload.
func WithData(err *Error, data interface{}) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	clone.Data = data
	return &clone
}
