package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the category of a failure
type ErrorType string

const (
	ErrorTypeNotAnImage  ErrorType = "not_an_image"
	ErrorTypeNoExtension ErrorType = "no_extension"
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeDecode      ErrorType = "decode"
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeIO          ErrorType = "io"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error carries a type, a human readable message, an optional HTTP status
// code and an optional cause.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Code != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same type. This lets
// sentinel values such as extension.ErrNotAnImage match any error of
// that category through errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Message == "" || t.Message == e.Message)
}

// New creates an error of the given type
func New(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// Newf creates an error of the given type with a formatted message
func Newf(errorType ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: errorType, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a type and message to an underlying error
func Wrap(errorType ErrorType, err error, message string) *Error {
	return &Error{Type: errorType, Message: message, Err: err}
}

// WithCode returns a copy of e carrying an HTTP status code
func (e *Error) WithCode(code int) *Error {
	cp := *e
	cp.Code = code
	return &cp
}

// TypeOf returns the ErrorType of the first *Error in err's chain, or
// ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err's chain holds an *Error of errorType
func IsType(err error, errorType ErrorType) bool {
	return err != nil && TypeOf(err) == errorType
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeTimeout:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0, 408, 429:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}

// FromStatus maps a non-2xx HTTP status to an *Error
func FromStatus(statusCode int, message string) *Error {
	var t ErrorType
	switch {
	case statusCode == 429:
		t = ErrorTypeRateLimit
	case statusCode == 401 || statusCode == 403:
		t = ErrorTypeAuth
	case statusCode == 404:
		t = ErrorTypeNotFound
	case statusCode >= 500:
		t = ErrorTypeServerError
	default:
		t = ErrorTypeNetwork
	}
	return &Error{Type: t, Message: message, Code: statusCode}
}
