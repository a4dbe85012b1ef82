package client

import (
	"context"

	"github.com/tbourn/go-job-tracker/internal/domain"
	"github.com/tbourn/go-job-tracker/internal/stats"
)

// Backend is the subset of the API used by Queries and Mutations. *Client
// implements it.
type Backend interface {
	ListApplications(ctx context.Context, status string) ([]Application, error)
	GetApplication(ctx context.Context, id int64) (*Application, error)
	CreateApplication(ctx context.Context, in domain.NewApplication, idempotencyKey string) (*Application, bool, error)
	UpdateApplication(ctx context.Context, id int64, patch domain.ApplicationPatch) (*Application, error)
	DeleteApplication(ctx context.Context, id int64) error
	StatusHistory(ctx context.Context, applicationID int64) ([]domain.StatusHistory, error)
	ListNotes(ctx context.Context, applicationID int64) ([]domain.Note, error)
	Stats(ctx context.Context) (stats.Summary, error)
}

var _ Backend = (*Client)(nil)

// Queries are read-through fetches keyed by their parameters. A fresh cached
// value is returned without a request; otherwise the backend is called and
// the response stored, unless a newer fetch or an invalidation of the same
// key happened while it was in flight.
type Queries struct {
	api   Backend
	cache *QueryCache
}

// NewQueries binds queries to a backend and cache.
func NewQueries(api Backend, cache *QueryCache) *Queries {
	return &Queries{api: api, cache: cache}
}

// Applications returns the list for status ("" = all).
func (q *Queries) Applications(ctx context.Context, status string) ([]Application, error) {
	return fetch(ctx, q.cache, ListKey(status), func(ctx context.Context) ([]Application, error) {
		return q.api.ListApplications(ctx, status)
	})
}

// Application returns one application.
func (q *Queries) Application(ctx context.Context, id int64) (Application, error) {
	return fetch(ctx, q.cache, DetailKey(id), func(ctx context.Context) (Application, error) {
		a, err := q.api.GetApplication(ctx, id)
		if err != nil {
			return Application{}, err
		}
		return *a, nil
	})
}

// Stats returns the dashboard summary.
func (q *Queries) Stats(ctx context.Context) (stats.Summary, error) {
	return fetch(ctx, q.cache, KeyStats, q.api.Stats)
}

// Notes returns the notes of an application.
func (q *Queries) Notes(ctx context.Context, applicationID int64) ([]domain.Note, error) {
	return fetch(ctx, q.cache, NotesKey(applicationID), func(ctx context.Context) ([]domain.Note, error) {
		return q.api.ListNotes(ctx, applicationID)
	})
}

// History returns the status history of an application.
func (q *Queries) History(ctx context.Context, applicationID int64) ([]domain.StatusHistory, error) {
	return fetch(ctx, q.cache, HistoryKey(applicationID), func(ctx context.Context) ([]domain.StatusHistory, error) {
		return q.api.StatusHistory(ctx, applicationID)
	})
}

// fetch serves key from the cache when fresh and loads it otherwise. The
// loaded value is returned to the caller even when it was superseded; it is
// just not stored.
func fetch[T any](ctx context.Context, c *QueryCache, key string, load func(context.Context) (T, error)) (T, error) {
	if v, fresh, ok := c.Get(key); ok && fresh {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}
	gen := c.begin(key)
	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.commit(key, gen, v)
	return v, nil
}
