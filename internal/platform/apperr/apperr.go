// Package apperr defines the error taxonomy shared by services and handlers
// and maps it onto HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindNotImplemented
)

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// Error codes rendered in the "error" field of a response body.
const (
	CodeInternal          = "internal_error"
	CodeBadRequest        = "bad_request"
	CodeValidation        = "validation_failed"
	CodeNotFound          = "not_found"
	CodeReferenceNotFound = "reference_not_found"
	CodeConflict          = "conflict"
	CodeDuplicate         = "duplicate"
	CodeInUse             = "in_use"
	CodeForbidden         = "forbidden"
	CodeNotImplemented    = "not_implemented"
)

// Error is an application error carrying its kind, a stable machine code and
// a message that is safe to show to clients.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind and code so sentinel values work with
// errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Wrap(err error, kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func BadRequest(message string) *Error {
	return New(KindBadRequest, CodeBadRequest, message)
}

func Validation(message string, details any) *Error {
	return &Error{Kind: KindBadRequest, Code: CodeValidation, Message: message, Details: details}
}

func NotFound(resource string, id int64) *Error {
	return New(KindNotFound, CodeNotFound, fmt.Sprintf("%s %d not found", resource, id))
}

// ReferenceNotFound reports a write that points at a row that does not exist.
// It is a client error, not a 404 for the addressed resource.
func ReferenceNotFound(resource string, id int64) *Error {
	return New(KindBadRequest, CodeReferenceNotFound, fmt.Sprintf("referenced %s %d does not exist", resource, id))
}

func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

func Forbidden(code, message string) *Error {
	return New(KindForbidden, code, message)
}

func Unauthenticated(code, message string) *Error {
	return New(KindUnauthenticated, code, message)
}

func NotImplemented(message string) *Error {
	return New(KindNotImplemented, CodeNotImplemented, message)
}

func Internal(err error) *Error {
	return Wrap(err, KindInternal, CodeInternal, "internal server error")
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
