package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-job-tracker/internal/http/middleware"
)

// ErrorResponse is the error envelope of every endpoint:
//
//	{"request_id":"…","code":"validation_error","message":"…","field":"salaryMin"}
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Code is one of the ErrCode constants.
	Code    string `json:"code" example:"not_found"`
	Message string `json:"message" example:"application not found"`
	// Field names the offending input on validation errors.
	Field string `json:"field,omitempty" example:"salaryMin"`
}

func fail(c *gin.Context, status int, code, msg string) {
	failField(c, status, code, msg, "")
}

// failField aborts with the envelope. 5xx responses are also logged.
func failField(c *gin.Context, status int, code, msg, field string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Msg(msg)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: middleware.RequestIDFrom(c),
		Code:      code,
		Message:   msg,
		Field:     field,
	})
}

// Fail writes the envelope from outside a handler (router fallbacks).
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) { c.JSON(status, body) }

func noContent(c *gin.Context) { c.Status(http.StatusNoContent) }

// notModified sets etag on the response and answers 304 when the request's
// If-None-Match lists it (weak comparison) or is "*".
func notModified(c *gin.Context, etag string) bool {
	c.Header("ETag", etag)
	c.Header("Cache-Control", "no-cache")
	if !etagListed(c.GetHeader("If-None-Match"), etag) {
		return false
	}
	c.Status(http.StatusNotModified)
	return true
}

func etagListed(header, etag string) bool {
	if header == "" {
		return false
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, cand := range strings.Split(header, ",") {
		cand = strings.TrimSpace(cand)
		if cand == "*" || strings.TrimPrefix(cand, "W/") == want {
			return true
		}
	}
	return false
}
