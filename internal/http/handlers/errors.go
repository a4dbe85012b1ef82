// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// The codes give clients a stable, machine-readable taxonomy that supplements
// the human-readable message. Every error response carries an HTTP status and
// one of these codes; validation failures additionally name the field.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "validation_error",
//	  "message": "salaryMin: must not exceed salaryMax",
//	  "field": "salaryMin"
//	}
package handlers

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-job-tracker/internal/http/middleware"
	"github.com/tbourn/go-job-tracker/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeValidation       = "validation_error"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)

// failErr maps a service error onto the envelope:
//
//	ErrValidation                         → 400 validation_error (+ field)
//	ErrApplicationNotFound, ErrNoteNotFound → 404 not_found
//	ErrConflict, ErrEmailTaken            → 409 conflict
//	ErrInvalidCredentials, ErrUnauthorized → 401 unauthorized
//	anything else                         → 500 internal_error (logged, reported)
//
// Internal error details are never sent to the client.
func failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		var ve *services.ValidationError
		msg := err.Error()
		if errors.As(err, &ve) {
			msg = ve.Error()
		}
		failField(c, http.StatusBadRequest, ErrCodeValidation, msg, services.FieldOf(err))
	case errors.Is(err, services.ErrApplicationNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "application not found")
	case errors.Is(err, services.ErrNoteNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "note not found")
	case errors.Is(err, services.ErrEmailTaken):
		fail(c, http.StatusConflict, ErrCodeConflict, "email already registered")
	case errors.Is(err, services.ErrConflict):
		fail(c, http.StatusConflict, ErrCodeConflict, "request conflicts with current state")
	case errors.Is(err, services.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid email or password")
	case errors.Is(err, services.ErrUnauthorized):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "unauthorized")
	default:
		_ = c.Error(err)
		middleware.CaptureError(c, err)
		middleware.LoggerFrom(c).Error().Err(err).Msg("unhandled service error")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
