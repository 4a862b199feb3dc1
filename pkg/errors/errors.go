package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
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

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrPreconditionFailed = New("PRECONDITION_FAILED", http.StatusPreconditionFailed, "precondition failed")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	// Registration consistency guards.
	ErrTermSpacing       = New("TERM_SPACING_CONFLICT", http.StatusConflict, "student already has an enrollment term within six months")
	ErrTermInactive      = New("TERM_INACTIVE", http.StatusPreconditionFailed, "enrollment term is inactive")
	ErrEmptySelection    = New("EMPTY_SELECTION", http.StatusBadRequest, "select at least one course before saving")
	ErrDuplicateCourse   = New("DUPLICATE_COURSE", http.StatusConflict, "course already assigned to another slot")
	ErrSlotTruncation    = New("SLOT_TRUNCATION", http.StatusConflict, "reducing slots would discard confirmed selections")
	ErrLastCourseGuard   = New("LAST_COURSE_GUARD", http.StatusConflict, "cannot remove the last course of an event while the term is active")
	ErrLastEventGuard    = New("LAST_EVENT_GUARD", http.StatusConflict, "cannot delete the last registration event while the term is active")
	ErrOperationInFlight = New("OPERATION_IN_FLIGHT", http.StatusConflict, "a previous operation on this workflow has not completed")
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
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
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
