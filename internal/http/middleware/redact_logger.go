// RedactingLogger is the access logger of the API. Job seekers put contact
// details in notes, links and query strings, so nothing reaches the log
// without passing the scrubber: bodies are never logged, header values and
// the raw query are pattern-redacted, and credential headers are masked.

package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RedactOptions adds header names (case-insensitive) whose values are replaced
// wholesale with "[REDACTED]", on top of Authorization, Cookie and Set-Cookie.
type RedactOptions struct {
	MaskHeaders []string
}

// piiPattern replaces matches of re with a typed marker. Order matters: ids
// go before phones so the phone pattern cannot bite into UUID segments.
type piiPattern struct {
	re     *regexp.Regexp
	marker string
}

var piiPatterns = []piiPattern{
	{regexp.MustCompile(`\beyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+`), "[REDACTED:token]"},
	{regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`), "[REDACTED:id]"},
	{regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`), "[REDACTED:email]"},
	{regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`), "[REDACTED:phone]"},
}

func scrub(s string) string {
	for _, p := range piiPatterns {
		if s == "" {
			break
		}
		s = p.re.ReplaceAllString(s, p.marker)
	}
	return s
}

type headerScrubber map[string]struct{}

func newHeaderScrubber(extra []string) headerScrubber {
	hs := headerScrubber{"authorization": {}, "cookie": {}, "set-cookie": {}}
	for _, h := range extra {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hs[h] = struct{}{}
		}
	}
	return hs
}

func (hs headerScrubber) apply(in map[string][]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, vv := range in {
		if _, masked := hs[strings.ToLower(k)]; masked {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = scrub(strings.Join(vv, ", "))
	}
	return out
}

// RedactingLogger stores a logger carrying request_id, method and path for
// LoggerFrom, then writes one "http_request" line per request. The level is
// info, warn for 4xx, error for 5xx or when handlers attached c.Errors.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	headers := newHeaderScrubber(opts.MaskHeaders)

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		scoped := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		c.Set(loggerKey, &scoped)

		query := truncate(scrub(c.Request.URL.RawQuery), maxQueryLogLength)
		safeHeaders := headers.apply(c.Request.Header)

		c.Next()

		status := c.Writer.Status()
		accessEvent(&scoped, status, c.Errors.String()).
			Str("user_id", UserID(c)).
			Str("remote_ip", c.ClientIP()).
			Str("query", query).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}

// accessEvent picks the level; errs is the rendered c.Errors, "" when none.
func accessEvent(lg *zerolog.Logger, status int, errs string) *zerolog.Event {
	switch {
	case errs != "":
		return lg.Error().Str("errors", errs)
	case status >= 500:
		return lg.Error()
	case status >= 400:
		return lg.Warn()
	}
	return lg.Info()
}
