// Package services defines the business logic for job applications, notes,
// status history, statistics and accounts. This file centralizes the
// service-level error values so they are returned consistently by service
// methods and mapped to HTTP results by the handlers.
//
// The values are built with cockroachdb/errors: concrete failures are marked
// with one of these sentinels, so callers must test them with errors.Is from
// the same package (or the standard library for the plain sentinels).
package services

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrValidation marks every input rejection. The concrete error carries a
	// *ValidationError naming the offending field.
	ErrValidation = errors.New("validation failed")

	// ErrApplicationNotFound indicates that no application has the given id.
	ErrApplicationNotFound = errors.New("application not found")

	// ErrNoteNotFound indicates that no note has the given id.
	ErrNoteNotFound = errors.New("note not found")

	// ErrConflict is returned when a write collides with concurrent state,
	// e.g. an idempotency key reused while its first request is in flight.
	ErrConflict = errors.New("conflict")

	// ErrInvalidCredentials is returned by Login for an unknown email or a
	// wrong password; the two cases are not distinguished.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmailTaken is returned by Register when the email already exists.
	ErrEmailTaken = errors.New("email already registered")

	// ErrUnauthorized is returned when a token is missing, malformed or expired.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError describes one rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// invalid builds a ValidationError marked with ErrValidation.
func invalid(field, format string, args ...any) error {
	return errors.Mark(&ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}, ErrValidation)
}

// FieldOf returns the field named by a validation error, or "".
func FieldOf(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Field
	}
	return ""
}
