// Package apperror defines the error taxonomy shared by services and
// handlers. Services wrap sentinel errors with context; handlers map the
// sentinels to HTTP status codes with errors.Is.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrVersionConflict    = errors.New("version conflict")
)

// AppError carries a sentinel plus a human-readable message and the
// offending field, if any.
type AppError struct {
	Err     error
	Message string
	Field   string
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports a missing record, e.g. an unknown complaint id.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// ValidationFailed reports a bad input field.
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// DuplicateEmail reports a registration attempt with a taken email.
// This is the one place authentication deliberately reveals whether an
// email exists (see Register).
func DuplicateEmail(email string) *AppError {
	return &AppError{
		Err:     ErrDuplicateEmail,
		Message: fmt.Sprintf("an account already exists for %s", email),
		Field:   "email",
	}
}

// InvalidCredentials reports an authentication failure. The message is
// identical for unknown emails and wrong passwords so the response never
// reveals whether an account exists.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrInvalidCredentials,
		Message: "invalid email or password",
	}
}

// Forbidden reports that the caller lacks permission for the operation.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// VersionConflict reports a lost optimistic-concurrency race after the
// update loop exhausted its retries.
func VersionConflict(key string) *AppError {
	return &AppError{
		Err:     ErrVersionConflict,
		Message: fmt.Sprintf("concurrent update on %s, please retry", key),
	}
}
