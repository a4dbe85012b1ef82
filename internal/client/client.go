// Package client is a typed Go client for the tracker API together with the
// client-side state layer built on it: a keyed query cache, read-through
// queries that ignore superseded responses, and optimistic mutations that
// project their effect into the cache and roll back on failure.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-job-tracker/internal/domain"
	"github.com/tbourn/go-job-tracker/internal/services"
	"github.com/tbourn/go-job-tracker/internal/stats"
)

const (
	defaultTimeout = 10 * time.Second

	headerIdempotencyKey     = "Idempotency-Key"
	headerIdempotentReplayed = "Idempotent-Replayed"
)

// Application is the client view of an application. ID shadows the embedded
// server ID so that an optimistic create can carry a temporary negative id
// until the server assigns the real one.
type Application struct {
	domain.Application
	ID int64 `json:"id"`
}

// Temporary reports whether a is an optimistic placeholder.
func (a Application) Temporary() bool { return a.ID < 0 }

// APIError is returned for every non-2xx response. Code and Message come from
// the server's error envelope when it could be decoded.
type APIError struct {
	Status    int
	Code      string
	Message   string
	Field     string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type errorEnvelope struct {
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field"`
}

// Option customises a Client.
type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout bounds each attempt of a request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.HTTPClient.Timeout = d }
}

// WithRetryWait sets the backoff bounds between attempts.
func WithRetryWait(lower, upper time.Duration) Option {
	return func(c *Client) {
		c.http.RetryWaitMin = lower
		c.http.RetryWaitMax = upper
	}
}

// WithLogger routes retry diagnostics to l.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.http.Logger = leveledLogger{l: l} }
}

// Client calls the tracker REST API. Transient failures (connection errors,
// 429 and 5xx) are retried exactly once; creates carry an Idempotency-Key so
// that retry cannot insert twice. Safe for concurrent use.
type Client struct {
	base string
	http *retryablehttp.Client

	mu    sync.RWMutex
	token string
}

// New returns a Client for the API rooted at baseURL (for example
// "http://localhost:8080/api").
func New(baseURL string, opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 1
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = time.Second
	rc.HTTPClient.Timeout = defaultTimeout
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = leveledLogger{l: log.Logger.With().Str("component", "api_client").Logger()}

	c := &Client{base: strings.TrimRight(baseURL, "/"), http: rc}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

//
// Applications
//

// ListApplications returns applications newest first. An empty status lists
// every application.
func (c *Client) ListApplications(ctx context.Context, status string) ([]Application, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	var out []Application
	_, err := c.do(ctx, http.MethodGet, "/applications", q, nil, nil, &out)
	return out, err
}

// GetApplication fetches one application.
func (c *Client) GetApplication(ctx context.Context, id int64) (*Application, error) {
	var out Application
	if _, err := c.do(ctx, http.MethodGet, "/applications/"+strconv.FormatInt(id, 10), nil, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateApplication creates an application. A non-empty idempotencyKey makes
// repeated calls return the first result; replayed reports that case.
func (c *Client) CreateApplication(ctx context.Context, in domain.NewApplication, idempotencyKey string) (app *Application, replayed bool, err error) {
	var hdr http.Header
	if idempotencyKey != "" {
		hdr = http.Header{headerIdempotencyKey: []string{idempotencyKey}}
	}
	var out Application
	resp, err := c.do(ctx, http.MethodPost, "/applications", nil, in, hdr, &out)
	if err != nil {
		return nil, false, err
	}
	return &out, resp.Get(headerIdempotentReplayed) == "true", nil
}

// UpdateApplication applies the fields set in patch.
func (c *Client) UpdateApplication(ctx context.Context, id int64, patch domain.ApplicationPatch) (*Application, error) {
	var out Application
	if _, err := c.do(ctx, http.MethodPatch, "/applications/"+strconv.FormatInt(id, 10), nil, patch, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteApplication removes an application with its notes and history.
func (c *Client) DeleteApplication(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, "/applications/"+strconv.FormatInt(id, 10), nil, nil, nil, nil)
	return err
}

// StatusHistory lists the status transitions of an application, newest first.
func (c *Client) StatusHistory(ctx context.Context, applicationID int64) ([]domain.StatusHistory, error) {
	var out []domain.StatusHistory
	_, err := c.do(ctx, http.MethodGet, "/status-history", appQuery(applicationID), nil, nil, &out)
	return out, err
}

// SearchApplications ranks applications against q.
func (c *Client) SearchApplications(ctx context.Context, q string, limit int) ([]services.SearchHit, error) {
	v := url.Values{"q": []string{q}}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	var out []services.SearchHit
	_, err := c.do(ctx, http.MethodGet, "/applications/search", v, nil, nil, &out)
	return out, err
}

// ExportApplications streams the export in format ("csv" or "json") to w.
func (c *Client) ExportApplications(ctx context.Context, w io.Writer, format, status string) error {
	q := url.Values{}
	if format != "" {
		q.Set("format", format)
	}
	if status != "" {
		q.Set("status", status)
	}
	_, err := c.do(ctx, http.MethodGet, "/applications/export", q, nil, nil, w)
	return err
}

//
// Notes
//

// ListNotes returns the notes of an application, newest first.
func (c *Client) ListNotes(ctx context.Context, applicationID int64) ([]domain.Note, error) {
	var out []domain.Note
	_, err := c.do(ctx, http.MethodGet, "/notes", appQuery(applicationID), nil, nil, &out)
	return out, err
}

// CreateNote attaches a note to an application.
func (c *Client) CreateNote(ctx context.Context, in domain.NewNote) (*domain.Note, error) {
	var out domain.Note
	if _, err := c.do(ctx, http.MethodPost, "/notes", nil, in, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteNote removes a note.
func (c *Client) DeleteNote(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, "/notes/"+strconv.FormatInt(id, 10), nil, nil, nil, nil)
	return err
}

//
// Stats
//

// Stats returns the dashboard summary.
func (c *Client) Stats(ctx context.Context) (stats.Summary, error) {
	var out stats.Summary
	_, err := c.do(ctx, http.MethodGet, "/stats", nil, nil, nil, &out)
	return out, err
}

// Trend returns the per-day creation counts.
func (c *Client) Trend(ctx context.Context) ([]stats.TrendPoint, error) {
	var out []stats.TrendPoint
	_, err := c.do(ctx, http.MethodGet, "/stats/trend", nil, nil, nil, &out)
	return out, err
}

// Monthly returns per-month counts for the last months that have data.
func (c *Client) Monthly(ctx context.Context, months int) ([]stats.MonthPoint, error) {
	q := url.Values{}
	if months > 0 {
		q.Set("months", strconv.Itoa(months))
	}
	var out []stats.MonthPoint
	_, err := c.do(ctx, http.MethodGet, "/stats/monthly", q, nil, nil, &out)
	return out, err
}

//
// Auth
//

// Register creates an account and adopts the returned token.
func (c *Client) Register(ctx context.Context, in services.Credentials) (*services.Session, error) {
	return c.session(ctx, "/auth/register", in)
}

// Login authenticates and adopts the returned token.
func (c *Client) Login(ctx context.Context, in services.Credentials) (*services.Session, error) {
	return c.session(ctx, "/auth/login", in)
}

// Me returns the user the current token belongs to.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var out domain.User
	if _, err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) session(ctx context.Context, path string, in services.Credentials) (*services.Session, error) {
	var out services.Session
	if _, err := c.do(ctx, http.MethodPost, path, nil, in, nil, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

//
// Transport
//

func appQuery(applicationID int64) url.Values {
	return url.Values{"applicationId": []string{strconv.FormatInt(applicationID, 10)}}
}

// do performs one API call. A non-nil body is sent as JSON. out may be nil,
// an io.Writer (raw body is copied) or a pointer to decode JSON into.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, body any, hdr http.Header, out any) (http.Header, error) {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	// The body is buffered so every attempt can resend it.
	var payload interface{}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encode request body")
		}
		payload = b
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, u, payload)
	if err != nil {
		return nil, errors.Wrapf(err, "build %s %s", method, path)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.bearer(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.Header, decodeAPIError(resp)
	}

	switch dst := out.(type) {
	case nil:
		_, _ = io.Copy(io.Discard, resp.Body)
	case io.Writer:
		if _, err := io.Copy(dst, resp.Body); err != nil {
			return resp.Header, errors.Wrapf(err, "read %s %s", method, path)
		}
	default:
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return resp.Header, errors.Wrapf(err, "decode %s %s", method, path)
		}
	}
	return resp.Header, nil
}

func decodeAPIError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode, RequestID: resp.Header.Get("X-Request-ID")}
	var env errorEnvelope
	if err := json.Unmarshal(bytes.TrimSpace(b), &env); err == nil {
		apiErr.Code = env.Code
		apiErr.Message = env.Message
		apiErr.Field = env.Field
		if env.RequestID != "" {
			apiErr.RequestID = env.RequestID
		}
	}
	return apiErr
}

// leveledLogger adapts zerolog to retryablehttp.LeveledLogger.
type leveledLogger struct{ l zerolog.Logger }

func (z leveledLogger) Error(msg string, kv ...interface{}) { z.l.Error().Fields(kv).Msg(msg) }
func (z leveledLogger) Info(msg string, kv ...interface{})  { z.l.Debug().Fields(kv).Msg(msg) }
func (z leveledLogger) Debug(msg string, kv ...interface{}) { z.l.Debug().Fields(kv).Msg(msg) }
func (z leveledLogger) Warn(msg string, kv ...interface{})  { z.l.Warn().Fields(kv).Msg(msg) }
