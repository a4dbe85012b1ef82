package observability

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/getsentry/sentry-go"

	"github.com/tbourn/go-job-tracker/internal/config"
)

// flushTimeout bounds how long shutdown waits for buffered Sentry events.
const flushTimeout = 2 * time.Second

// SetupSentry initialises the global Sentry client and returns a flush
// function for shutdown. Without a DSN nothing is initialised and the flush
// function is a no-op.
func SetupSentry(cfg config.SentryConfig, release string) (func(), error) {
	if !cfg.Enabled() {
		return func() {}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          release,
		AttachStacktrace: true,
		EnableTracing:    cfg.SampleRate > 0,
		TracesSampleRate: cfg.SampleRate,
		BeforeSend:       scrubEvent,
	})
	if err != nil {
		return nil, errors.Wrap(err, "sentry init")
	}
	return func() { sentry.Flush(flushTimeout) }, nil
}

// scrubEvent drops request data that may carry credentials before an event
// leaves the process.
func scrubEvent(ev *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	if ev.Request != nil {
		ev.Request.Cookies = ""
		ev.Request.Data = ""
		for _, h := range []string{"Authorization", "Cookie", "X-Api-Key"} {
			delete(ev.Request.Headers, h)
		}
	}
	return ev
}
