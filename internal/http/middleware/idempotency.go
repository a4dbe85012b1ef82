// Idempotency-Key handling for POST /applications. The middleware only
// validates and stashes the key; the application service owns the stored
// records and resolves a replay to the application created the first time.

package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	HeaderIdempotencyKey     = "Idempotency-Key"
	HeaderIdempotentReplayed = "Idempotent-Replayed"

	// AnonymousScope namespaces the keys of unauthenticated callers.
	AnonymousScope = "anonymous"

	defaultMaxKeyLen = 200
)

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"
)

// keyPattern is an RFC 7230 token subset; UUIDs and ULIDs both fit.
var keyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// GetIdempotencyKey returns the validated key, if the request carried one.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	s := c.GetString(ctxKeyIdemKey)
	return s, s != ""
}

// IsReplay reports whether a live record already exists for the request's
// (scope, key).
func IsReplay(c *gin.Context) bool { return c.GetBool(ctxKeyIdemReplay) }

// IdempotencyScope is the authenticated user id, or AnonymousScope.
func IdempotencyScope(c *gin.Context) string {
	if uid := UserID(c); uid != "" {
		return uid
	}
	return AnonymousScope
}

// IdempotencyOptions tunes key validation. Zero values mean 200 bytes and
// keyPattern.
type IdempotencyOptions struct {
	MaxLen  int
	Pattern *regexp.Regexp
}

// ReplayProbe reports whether (scope, key) has an unexpired record at now.
type ReplayProbe func(ctx context.Context, scope, key string, now time.Time) (bool, error)

// IdempotencyValidator rejects malformed Idempotency-Key headers with 400 and
// stores valid ones for GetIdempotencyKey. When probe finds a live record the
// request is flagged as a replay and exempted from rate limiting, since it
// cannot create anything. Probe errors are logged and otherwise ignored.
func IdempotencyValidator(opts IdempotencyOptions, probe ReplayProbe) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = defaultMaxKeyLen
	}
	pat := opts.Pattern
	if pat == nil {
		pat = keyPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "validation_error",
				"message":    "Idempotency-Key must be 1-" + strconv.Itoa(maxLen) + " token characters",
				"field":      HeaderIdempotencyKey,
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if probe != nil {
			hit, err := probe(c.Request.Context(), IdempotencyScope(c), key, time.Now().UTC())
			if err != nil {
				LoggerFrom(c).Warn().Err(err).Msg("idempotency probe failed")
			}
			if hit {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Next()
	}
}
