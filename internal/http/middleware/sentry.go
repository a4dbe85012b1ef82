package middleware

import (
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// Sentry returns the sentry-go/gin middleware when enabled, or a pass-through.
// Place it after Recovery so panics are reported before being converted into
// a 500 response.
func Sentry(enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
}

// SentryScope tags the request's Sentry hub with correlation fields. It is a
// no-op when Sentry middleware is not installed.
func SentryScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.Scope().SetTag("request_id", c.Writer.Header().Get(requestIDHeader))
			if uid := UserID(c); uid != "" {
				hub.Scope().SetUser(sentry.User{ID: uid})
			}
		}
		c.Next()
	}
}

// CaptureError reports err to the request's Sentry hub, if any.
func CaptureError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}
}
