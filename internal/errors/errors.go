package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeNotFound      ErrorType = "NOT_FOUND"
	ErrorTypeValidation    ErrorType = "VALIDATION"
	ErrorTypeInternal      ErrorType = "INTERNAL"
	ErrorTypeContentSource ErrorType = "CONTENT_SOURCE"
	ErrorTypeUserAbort     ErrorType = "USER_ABORT"
	ErrorTypeIterOver      ErrorType = "ITER_OVER"
	ErrorTypeAllocation    ErrorType = "ALLOCATION"
)

type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details any       `json:"details,omitempty"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same type, so errors.Is(err, ErrIterOver)
// holds for every exhausted scope regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

var (
	// ErrIterOver is returned when an iterator scope (file, hunk, line) is exhausted.
	ErrIterOver = &Error{Type: ErrorTypeIterOver, Message: "iteration over", Code: http.StatusOK}

	// ErrUser is returned when a traversal callback asked to stop.
	ErrUser = &Error{Type: ErrorTypeUserAbort, Message: "callback aborted traversal", Code: http.StatusOK}
)

func NotFound(message string) *Error {
	return &Error{
		Type:    ErrorTypeNotFound,
		Message: message,
		Code:    http.StatusNotFound,
	}
}

func ValidationError(message string, details any) *Error {
	return &Error{
		Type:    ErrorTypeValidation,
		Message: message,
		Code:    http.StatusBadRequest,
		Details: details,
	}
}

func ContentSourceError(path string, err error) *Error {
	return &Error{
		Type:    ErrorTypeContentSource,
		Message: fmt.Sprintf("loading content for %q", path),
		Code:    http.StatusBadGateway,
		Details: path,
		Err:     err,
	}
}

func UserAbort(err error) *Error {
	return &Error{
		Type:    ErrorTypeUserAbort,
		Message: ErrUser.Message,
		Code:    http.StatusOK,
		Err:     err,
	}
}

func AllocationError(message string) *Error {
	return &Error{
		Type:    ErrorTypeAllocation,
		Message: message,
		Code:    http.StatusInsufficientStorage,
	}
}

func Internal(message string, err error) *Error {
	return &Error{
		Type:    ErrorTypeInternal,
		Message: message,
		Code:    http.StatusInternalServerError,
		Err:     err,
	}
}

// StatusCode returns the HTTP status carried by err, or 500.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return http.StatusInternalServerError
}

// Is and As forward to the standard library so callers need one import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }
