package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// AuthError means the request could not be authenticated: missing, invalid or expired token, or bad credentials.
type AuthError struct {
	message string
}

func NewAuthError(msg string) *AuthError {
	return &AuthError{message: msg}
}

func (err AuthError) Error() string {
	return err.message
}

// NotFoundError is also returned when a row exists but is not owned by the requester,
// so that non-owners cannot tell the two cases apart.
type NotFoundError struct {
	message string
}

func NewNotFoundError(msg string) *NotFoundError {
	return &NotFoundError{message: msg}
}

func (err NotFoundError) Error() string {
	return err.message
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

// ConflictError reports a uniqueness violation on Field.
type ConflictError struct {
	Field   string
	message string
}

func NewConflictError(field, msg string) *ConflictError {
	return &ConflictError{Field: field, message: msg}
}

func (err ConflictError) Error() string {
	return err.message
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
