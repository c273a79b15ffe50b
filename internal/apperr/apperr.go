// Package apperr defines the error taxonomy surfaced to API clients. Business
// rules raise these; everything else is wrapped as internal.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	Unauthenticated    Code = "unauthenticated"
	InvalidArgument    Code = "invalid-argument"
	NotFound           Code = "not-found"
	FailedPrecondition Code = "failed-precondition"
	Internal           Code = "internal"
)

// Error carries a client-facing code and, for precondition failures, a
// structured details payload the client renders (upsell or limit UI).
type Error struct {
	Code    Code
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetails attaches the structured payload and returns the same error.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// From extracts an *Error from err, wrapping anything unrecognized as
// an internal error so no raw failure shape leaks to the client.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{Code: Internal, Message: err.Error()}
}

// HTTPStatus maps an error code to its transport status.
func HTTPStatus(code Code) int {
	switch code {
	case Unauthenticated:
		return http.StatusUnauthorized
	case InvalidArgument:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case FailedPrecondition:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}
