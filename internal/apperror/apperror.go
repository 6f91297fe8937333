// Package apperror defines the error taxonomy shared by the BlogNode client and server.
//
// Every layer wraps one of the sentinel errors below in an *AppError so callers
// can branch with errors.Is while still showing a human-readable message:
//
//	if errors.Is(err, apperror.ErrNotAuthenticated) { ... }
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")

	// Session errors.
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrMalformedRecord    = errors.New("malformed record")
	ErrBusy               = errors.New("operation already in progress")

	// Identity service errors.
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("service unavailable")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports that a unique attribute (an email, a slug) is already taken.
func Conflict(resource, key string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with %s", resource, key),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// NotAuthenticated is returned when a session mutation is attempted while logged out.
func NotAuthenticated(operation string) *AppError {
	return &AppError{
		Err:     ErrNotAuthenticated,
		Message: fmt.Sprintf("%s requires a logged-in user", operation),
	}
}

// StorageUnavailable wraps a failed read or write of the persistent store.
// The underlying cause is kept in the message, the chain matches ErrStorageUnavailable.
func StorageUnavailable(op string, cause error) *AppError {
	return &AppError{
		Err:     ErrStorageUnavailable,
		Message: fmt.Sprintf("storage %s failed: %v", op, cause),
	}
}

// MalformedRecord reports a stored record that cannot be decoded.
func MalformedRecord(key string, cause error) *AppError {
	return &AppError{
		Err:     ErrMalformedRecord,
		Message: fmt.Sprintf("record %q is malformed: %v", key, cause),
	}
}

func Busy(operation string) *AppError {
	return &AppError{
		Err:     ErrBusy,
		Message: fmt.Sprintf("%s: another operation is still pending", operation),
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

func Unavailable(message string) *AppError {
	return &AppError{
		Err:     ErrUnavailable,
		Message: message,
	}
}
