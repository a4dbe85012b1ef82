// This file implements bearer-token authentication. A valid token stores the
// user id under the "userID" Gin context key, which the logger, the rate
// limiter and the idempotency scope all read.

package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// ctxKeyUserID is the Gin context key holding the authenticated user id as a
// decimal string.
const ctxKeyUserID = "userID"

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier func(token string) (uint, error)

// AuthOptions configures Auth.
type AuthOptions struct {
	// Verify checks a token. A nil Verify disables authentication entirely.
	Verify TokenVerifier
	// Required rejects requests without a valid token, except for paths
	// matched by Public.
	Required bool
	// Public lists path prefixes reachable without a token when Required is
	// set (health, metrics, docs, register, login).
	Public []string
}

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(ctxKeyUserID); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// UserIDUint returns the authenticated user id as a number.
func UserIDUint(c *gin.Context) (uint, bool) {
	n, err := strconv.ParseUint(UserID(c), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// Auth returns middleware that authenticates "Authorization: Bearer <token>".
//
// Behavior:
//   - A present but invalid token is always rejected with 401.
//   - A missing token is rejected only when Required and the path is not Public.
//   - Otherwise the request proceeds, anonymous or authenticated.
func Auth(opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.Verify == nil {
			c.Next()
			return
		}

		token, present := bearerToken(c.GetHeader("Authorization"))
		if present {
			uid, err := opts.Verify(token)
			if err != nil {
				unauthorized(c, "invalid or expired token")
				return
			}
			c.Set(ctxKeyUserID, strconv.FormatUint(uint64(uid), 10))
			c.Next()
			return
		}

		if opts.Required && !isPublic(c.Request.URL.Path, opts.Public) {
			unauthorized(c, "authentication required")
			return
		}
		c.Next()
	}
}

func bearerToken(h string) (string, bool) {
	h = strings.TrimSpace(h)
	if h == "" {
		return "", false
	}
	scheme, tok, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", true
	}
	return strings.TrimSpace(tok), true
}

func isPublic(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       "unauthorized",
		"message":    msg,
	})
}
