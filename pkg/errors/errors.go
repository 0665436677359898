package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeServerError  ErrorType = "server_error"
	ErrorTypeUnknown      ErrorType = "unknown"
	ErrorTypeGeneral      ErrorType = "general"
	ErrorTypeNetwork      ErrorType = "network"
	ErrorTypeParsing      ErrorType = "parsing"
	ErrorTypeRateLimit    ErrorType = "rate_limit"
	ErrorTypeInvalidArgs  ErrorType = "invalid_args"
)

// Sentinels for errors.Is checks. An *Error matches a sentinel of the same type.
var (
	ErrUnauthorized = &Error{Type: ErrorTypeUnauthorized, Message: "unauthorized"}
	ErrInvalidArgs  = &Error{Type: ErrorTypeInvalidArgs, Message: "invalid args"}
)

// Error represents a Kidsnote API or backup error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error", e.Type)
	if e.Code != 0 {
		msg = fmt.Sprintf("%s (code %d)", msg, e.Code)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same type.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// New creates a typed error
func New(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a typed error carrying cause
func Wrap(t ErrorType, err error, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...), Err: err}
}

// General wraps lower-level I/O or serialization failures with context
func General(err error, format string, args ...interface{}) *Error {
	return Wrap(ErrorTypeGeneral, err, format, args...)
}

// FromStatus maps an HTTP status code to a typed error. 2xx returns nil.
func FromStatus(code int, url string) *Error {
	if code >= 200 && code < 300 {
		return nil
	}

	var t ErrorType
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		t = ErrorTypeUnauthorized
	case code == http.StatusNotFound:
		t = ErrorTypeNotFound
	case code == http.StatusTooManyRequests:
		t = ErrorTypeRateLimit
	case code >= 500:
		t = ErrorTypeServerError
	default:
		t = ErrorTypeUnknown
	}

	return &Error{
		Type:    t,
		Message: fmt.Sprintf("status %d from %s", code, url),
		Code:    code,
	}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown if err is not typed
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err (or anything it wraps) is an *Error of type t
func IsType(err error, t ErrorType) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeUnknown:
		return true
	default:
		return false
	}
}
