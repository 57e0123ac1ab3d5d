package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeConfig      ErrorType = "config"
	ErrorTypePersistence ErrorType = "persistence"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error carries a type, an optional HTTP status code and the wrapped cause.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error without a cause.
func New(t ErrorType, msg string) *Error {
	return &Error{Type: t, Message: msg}
}

// Wrap creates a typed error around err. A context deadline is always
// reported as a timeout regardless of t.
func Wrap(t ErrorType, msg string, err error) *Error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		t = ErrorTypeTimeout
	}
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &Error{Type: t, Message: msg, Err: err}
}

// FromStatus maps an HTTP status code onto the error taxonomy.
func FromStatus(code int, msg string) *Error {
	return &Error{Type: TypeForStatus(code), Message: msg, Code: code}
}

// TypeForStatus returns the error type for a non-2xx HTTP status code.
func TypeForStatus(code int) ErrorType {
	switch {
	case code == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return ErrorTypeAuth
	case code == http.StatusNotFound:
		return ErrorTypeNotFound
	case code >= 500:
		return ErrorTypeServerError
	default:
		return ErrorTypeUnknown
	}
}

// TypeOf returns the type of the first *Error in err's chain. Bare context
// errors and untyped errors are classified as timeout and unknown.
func TypeOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}
	return ErrorTypeUnknown
}

// Is reports whether err carries the given type.
func Is(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}
