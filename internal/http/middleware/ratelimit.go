package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	// defaultMaxBuckets bounds the number of identities tracked per policy.
	defaultMaxBuckets = 10000
	// defaultBucketIdle is how long an untouched bucket is kept.
	defaultBucketIdle = 10 * time.Minute
)

// keyFunc selects the identity used to key a rate-limit bucket, e.g.
// "user:<id>" or "ip:<addr>".
type keyFunc func(*gin.Context) string

// KeyByUserOrIP prefers the authenticated user id (set by Auth) and falls
// back to the client IP address. Keys are prefixed so the namespaces cannot
// collide ("user:12" vs "ip:203.0.113.7").
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if uid := UserID(c); uid != "" {
			return "user:" + uid
		}
		return "ip:" + c.ClientIP()
	}
}

// KeyByIP keys on the client IP only. Used for credential endpoints, where
// there is no user yet.
func KeyByIP() keyFunc {
	return func(c *gin.Context) string { return "ip:" + c.ClientIP() }
}

// RatePolicy describes one token bucket per identity.
type RatePolicy struct {
	Name  string  // metric label, e.g. "api" or "auth"
	RPS   float64 // tokens replenished per second
	Burst int     // bucket size; values <= 0 are coerced to 1
	Key   keyFunc // identity; KeyByUserOrIP when nil

	// MaxBuckets and Idle bound memory; defaults apply when zero.
	MaxBuckets int
	Idle       time.Duration
}

// RateLimiter enforces a RatePolicy. Buckets live in an expirable LRU so idle
// identities age out without a sweeper. Safe for concurrent use.
type RateLimiter struct {
	policy RatePolicy
	limit  rate.Limit

	mu      sync.Mutex
	buckets *expirable.LRU[string, *rate.Limiter]
	now     func() time.Time
}

// NewRateLimiter builds a limiter for p.
func NewRateLimiter(p RatePolicy) *RateLimiter {
	if p.Burst <= 0 {
		p.Burst = 1
	}
	if p.Key == nil {
		p.Key = KeyByUserOrIP()
	}
	if p.Name == "" {
		p.Name = "api"
	}
	if p.MaxBuckets <= 0 {
		p.MaxBuckets = defaultMaxBuckets
	}
	if p.Idle <= 0 {
		p.Idle = defaultBucketIdle
	}
	return &RateLimiter{
		policy:  p,
		limit:   rate.Limit(p.RPS),
		buckets: expirable.NewLRU[string, *rate.Limiter](p.MaxBuckets, nil, p.Idle),
		now:     time.Now,
	}
}

// bucket returns the limiter for key, creating it on first use. Every access
// re-adds the entry so the idle window restarts.
func (rl *RateLimiter) bucket(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	lim, ok := rl.buckets.Get(key)
	if !ok {
		lim = rate.NewLimiter(rl.limit, rl.policy.Burst)
	}
	rl.buckets.Add(key, lim)
	return lim
}

// IsRateBypass reports whether IdempotencyValidator marked this request as a
// replay of a completed create; replays do not consume tokens.
func IsRateBypass(c *gin.Context) bool { return c.GetBool(ctxKeyRateBypass) }

// Handler returns the Gin middleware. Allowed requests carry RateLimit-Limit
// and RateLimit-Remaining; rejected ones get 429 with Retry-After set to the
// whole seconds until the next token:
//
//	HTTP/1.1 429 Too Many Requests
//	Retry-After: 1
//	{"request_id": "<uuid>", "code": "rate_limited", "message": "rate limit exceeded"}
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	limitHeader := strconv.Itoa(rl.policy.Burst)
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		lim := rl.bucket(rl.policy.Key(c))
		now := rl.now()
		res := lim.ReserveN(now, 1)
		if delay := res.DelayFrom(now); !res.OK() || delay > 0 {
			res.CancelAt(now)
			rejectRateLimited(c, rl.policy.Name, delay, res.OK())
			return
		}

		c.Header("RateLimit-Limit", limitHeader)
		c.Header("RateLimit-Remaining", strconv.Itoa(int(math.Max(0, lim.TokensAt(now)))))
		c.Next()
	}
}

func rejectRateLimited(c *gin.Context, policy string, delay time.Duration, reservable bool) {
	rateLimited.WithLabelValues(policy).Inc()
	retry := 1
	if reservable {
		retry = max(1, int(math.Ceil(delay.Seconds())))
	}
	c.Header("Retry-After", strconv.Itoa(retry))
	c.Header("RateLimit-Remaining", "0")
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       "rate_limited",
		"message":    "rate limit exceeded",
	})
}
