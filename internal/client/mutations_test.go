package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-job-tracker/internal/domain"
	"github.com/tbourn/go-job-tracker/internal/stats"
)

// fakeBackend serves canned data; the *Fn hooks override single calls and
// run while the mutation is in flight.
type fakeBackend struct {
	mu    sync.Mutex
	calls map[string]int
	apps  []Application
	keys  []string

	listFn   func(ctx context.Context, status string) ([]Application, error)
	createFn func(in domain.NewApplication) (*Application, error)
	updateFn func(id int64, patch domain.ApplicationPatch) (*Application, error)
	deleteFn func(id int64) error
}

func (f *fakeBackend) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) ListApplications(ctx context.Context, status string) ([]Application, error) {
	f.hit("list")
	if f.listFn != nil {
		return f.listFn(ctx, status)
	}
	out := []Application{}
	for _, a := range f.apps {
		if status == "" || string(a.Status) == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeBackend) GetApplication(_ context.Context, id int64) (*Application, error) {
	f.hit("get")
	for _, a := range f.apps {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, &APIError{Status: http.StatusNotFound, Code: "not_found"}
}

func (f *fakeBackend) CreateApplication(_ context.Context, in domain.NewApplication, key string) (*Application, bool, error) {
	f.hit("create")
	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()
	a, err := f.createFn(in)
	return a, false, err
}

func (f *fakeBackend) UpdateApplication(_ context.Context, id int64, patch domain.ApplicationPatch) (*Application, error) {
	f.hit("update")
	return f.updateFn(id, patch)
}

func (f *fakeBackend) DeleteApplication(_ context.Context, id int64) error {
	f.hit("delete")
	return f.deleteFn(id)
}

func (f *fakeBackend) StatusHistory(context.Context, int64) ([]domain.StatusHistory, error) {
	f.hit("history")
	return []domain.StatusHistory{{ToStatus: domain.StatusApplied}}, nil
}

func (f *fakeBackend) ListNotes(context.Context, int64) ([]domain.Note, error) {
	f.hit("notes")
	return []domain.Note{{Content: "n"}}, nil
}

func (f *fakeBackend) Stats(context.Context) (stats.Summary, error) {
	f.hit("stats")
	return stats.Summary{Total: len(f.apps)}, nil
}

func app(id int64, company string, status domain.Status) Application {
	a := Application{ID: id}
	a.Company = company
	a.Role = "Engineer"
	a.Status = status
	a.Tags = []string{}
	return a
}

type recorder struct {
	mu sync.Mutex
	ts []Transition
}

func (r *recorder) observe(t Transition) {
	r.mu.Lock()
	r.ts = append(r.ts, t)
	r.mu.Unlock()
}

func (r *recorder) states() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, 0, len(r.ts))
	for _, t := range r.ts {
		out = append(out, t.To)
	}
	return out
}

type harness struct {
	clk   *fakeClock
	cache *QueryCache
	be    *fakeBackend
	q     *Queries
	m     *Mutations
	rec   *recorder
}

func newHarness(be *fakeBackend) *harness {
	clk := newFakeClock()
	cache := newTestCache(clk)
	rec := &recorder{}
	return &harness{
		clk:   clk,
		cache: cache,
		be:    be,
		q:     NewQueries(be, cache),
		m:     NewMutations(be, cache, MutationOptions{Now: clk.Now, NewKey: func() string { return "idem-key" }, Observe: rec.observe}),
		rec:   rec,
	}
}

func cachedList(t *testing.T, c *QueryCache, status string) []Application {
	t.Helper()
	v, _, ok := c.Get(ListKey(status))
	require.True(t, ok, "list %q not cached", status)
	return v.([]Application)
}

func ids(list []Application) []int64 {
	out := make([]int64, 0, len(list))
	for _, a := range list {
		out = append(out, a.ID)
	}
	return out
}

func TestQueries_ReadThrough(t *testing.T) {
	be := &fakeBackend{apps: []Application{app(1, "Acme", domain.StatusApplied)}}
	h := newHarness(be)
	ctx := context.Background()

	list, err := h.q.Applications(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(list))

	_, err = h.q.Applications(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, be.count("list"), "fresh entry served from cache")

	h.clk.Advance(2 * time.Minute)
	_, err = h.q.Applications(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, be.count("list"), "stale entry refetched")

	a, err := h.q.Application(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Acme", a.Company)
	_, err = h.q.Application(ctx, 99)
	assert.True(t, IsNotFound(err))
	_, _, ok := h.cache.Get(DetailKey(99))
	assert.False(t, ok, "errors are not cached")

	s, err := h.q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Total)

	notes, err := h.q.Notes(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, notes, 1)
	hist, err := h.q.History(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}

func TestQueries_SupersededResponseIsIgnored(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	be := &fakeBackend{}
	be.listFn = func(ctx context.Context, _ string) ([]Application, error) {
		if be.count("list") == 1 {
			close(started)
			<-release
			return []Application{app(1, "old", domain.StatusApplied)}, nil
		}
		return []Application{app(2, "new", domain.StatusApplied)}, nil
	}
	h := newHarness(be)
	ctx := context.Background()

	done := make(chan []Application)
	go func() {
		list, _ := h.q.Applications(ctx, "")
		done <- list
	}()
	<-started

	h.cache.Invalidate(PrefixApplicationLists)
	fresh, err := h.q.Applications(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(fresh))

	close(release)
	late := <-done
	assert.Equal(t, []int64{1}, ids(late), "caller still receives its own response")

	assert.Equal(t, []int64{2}, ids(cachedList(t, h.cache, "")), "superseded response must not overwrite the cache")
}

func TestMutations_CreateReconciles(t *testing.T) {
	be := &fakeBackend{apps: []Application{app(1, "Existing", domain.StatusApplied)}}
	h := newHarness(be)
	ctx := context.Background()
	_, err := h.q.Applications(ctx, "")
	require.NoError(t, err)
	_, err = h.q.Applications(ctx, "offer")
	require.NoError(t, err)
	_, err = h.q.Stats(ctx)
	require.NoError(t, err)

	be.createFn = func(in domain.NewApplication) (*Application, error) {
		all := cachedList(t, h.cache, "")
		require.Len(t, all, 2)
		tmp := all[0]
		assert.True(t, tmp.Temporary(), "placeholder heads the list")
		assert.Negative(t, tmp.ID)
		assert.Equal(t, "New", tmp.Company)
		assert.Equal(t, domain.StatusApplied, tmp.Status)
		assert.Equal(t, h.clk.Now(), tmp.CreatedAt)
		assert.Equal(t, h.clk.Now(), tmp.UpdatedAt)
		assert.Empty(t, cachedList(t, h.cache, "offer"), "filtered list without the status is untouched")
		assert.Equal(t, []State{Pending}, h.rec.states())

		created := app(5, in.Company, domain.StatusApplied)
		return &created, nil
	}

	created, err := h.m.Create(ctx, domain.NewApplication{Company: "New", Role: "Engineer"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), created.ID)
	assert.Equal(t, []string{"idem-key"}, be.keys, "create carries an Idempotency-Key")

	all, fresh, _ := h.cache.Get(ListKey(""))
	assert.Equal(t, []int64{5, 1}, ids(all.([]Application)), "placeholder replaced by server truth")
	assert.False(t, fresh, "lists are invalidated when settled")
	_, fresh, _ = h.cache.Get(KeyStats)
	assert.False(t, fresh, "stats are invalidated when settled")
	detail, _, ok := h.cache.Get(DetailKey(5))
	require.True(t, ok)
	assert.Equal(t, "New", detail.(Application).Company)

	assert.Equal(t, []State{Pending, Reconciled}, h.rec.states())
}

func TestMutations_CreateRollsBack(t *testing.T) {
	be := &fakeBackend{apps: []Application{app(1, "Existing", domain.StatusApplied)}}
	h := newHarness(be)
	ctx := context.Background()
	_, err := h.q.Applications(ctx, "")
	require.NoError(t, err)

	boom := &APIError{Status: http.StatusBadRequest, Code: "validation_error"}
	be.createFn = func(domain.NewApplication) (*Application, error) { return nil, boom }

	_, err = h.m.Create(ctx, domain.NewApplication{Company: "New", Role: "Engineer"})
	require.ErrorIs(t, err, boom)

	list, fresh, _ := h.cache.Get(ListKey(""))
	assert.Equal(t, []int64{1}, ids(list.([]Application)), "snapshot restored")
	assert.False(t, fresh)
	assert.Equal(t, []State{Pending, RolledBack}, h.rec.states())
	h.rec.mu.Lock()
	assert.Same(t, boom, h.rec.ts[1].Err)
	h.rec.mu.Unlock()

	// A second create gets a new temporary id.
	be.createFn = func(domain.NewApplication) (*Application, error) {
		assert.Equal(t, int64(-2), cachedList(t, h.cache, "")[0].ID)
		created := app(2, "Second", domain.StatusApplied)
		return &created, nil
	}
	_, err = h.m.Create(ctx, domain.NewApplication{Company: "Second", Role: "Engineer"})
	require.NoError(t, err)
}

func TestMutations_UpdateProjectsAndReconciles(t *testing.T) {
	salary := int64(100)
	a1 := app(1, "Acme", domain.StatusApplied)
	a1.SalaryMax = &salary
	be := &fakeBackend{apps: []Application{a1, app(2, "Globex", domain.StatusApplied)}}
	h := newHarness(be)
	ctx := context.Background()
	_, err := h.q.Applications(ctx, "")
	require.NoError(t, err)
	_, err = h.q.Applications(ctx, "applied")
	require.NoError(t, err)
	_, err = h.q.Application(ctx, 1)
	require.NoError(t, err)
	_, err = h.q.History(ctx, 1)
	require.NoError(t, err)

	h.clk.Advance(time.Second)
	patch := domain.ApplicationPatch{Status: domain.Some(domain.StatusOffer), SalaryMax: domain.Null[int64]()}
	be.updateFn = func(id int64, _ domain.ApplicationPatch) (*Application, error) {
		all := cachedList(t, h.cache, "")
		require.Equal(t, []int64{1, 2}, ids(all))
		assert.Equal(t, domain.StatusOffer, all[0].Status)
		assert.Nil(t, all[0].SalaryMax, "explicit null clears")
		assert.Equal(t, h.clk.Now(), all[0].UpdatedAt, "updatedAt bumped")
		assert.Equal(t, []int64{2}, ids(cachedList(t, h.cache, "applied")), "entry leaves a list it no longer matches")

		d, _, _ := h.cache.Get(DetailKey(id))
		assert.Equal(t, domain.StatusOffer, d.(Application).Status)

		srv := app(id, "Acme", domain.StatusOffer)
		srv.Role = "Staff Engineer"
		return &srv, nil
	}

	updated, err := h.m.Update(ctx, 1, patch)
	require.NoError(t, err)
	assert.Equal(t, "Staff Engineer", updated.Role)

	all := cachedList(t, h.cache, "")
	assert.Equal(t, "Staff Engineer", all[0].Role, "server truth replaces projection")
	d, fresh, _ := h.cache.Get(DetailKey(1))
	assert.Equal(t, "Staff Engineer", d.(Application).Role)
	assert.False(t, fresh)
	_, fresh, _ = h.cache.Get(HistoryKey(1))
	assert.False(t, fresh, "history invalidated after update")
	assert.Equal(t, []State{Pending, Reconciled}, h.rec.states())
}

func TestMutations_UpdateRollsBack(t *testing.T) {
	be := &fakeBackend{apps: []Application{app(1, "Acme", domain.StatusApplied)}}
	h := newHarness(be)
	ctx := context.Background()
	_, err := h.q.Applications(ctx, "")
	require.NoError(t, err)
	_, err = h.q.Application(ctx, 1)
	require.NoError(t, err)

	be.updateFn = func(int64, domain.ApplicationPatch) (*Application, error) {
		return nil, errors.New("connection reset")
	}
	_, err = h.m.Update(ctx, 1, domain.ApplicationPatch{Company: domain.Some("Renamed")})
	require.Error(t, err)

	assert.Equal(t, "Acme", cachedList(t, h.cache, "")[0].Company)
	d, _, _ := h.cache.Get(DetailKey(1))
	assert.Equal(t, "Acme", d.(Application).Company)
	assert.Equal(t, []State{Pending, RolledBack}, h.rec.states())
}

func TestMutations_UpdateLeavesOtherDetailsAlone(t *testing.T) {
	be := &fakeBackend{apps: []Application{app(1, "Acme", domain.StatusApplied), app(10, "Globex", domain.StatusApplied)}}
	h := newHarness(be)
	ctx := context.Background()
	for _, id := range []int64{1, 10} {
		_, err := h.q.Application(ctx, id)
		require.NoError(t, err)
		_, err = h.q.History(ctx, id)
		require.NoError(t, err)
	}

	assertGlobex := func(t *testing.T) {
		t.Helper()
		d, fresh, ok := h.cache.Get(DetailKey(10))
		require.True(t, ok)
		assert.Equal(t, "Globex", d.(Application).Company)
		assert.True(t, fresh, "detail 10 must not be invalidated")
		_, fresh, _ = h.cache.Get(HistoryKey(10))
		assert.True(t, fresh, "history 10 must not be invalidated")
	}

	t.Run("rolled back", func(t *testing.T) {
		be.updateFn = func(int64, domain.ApplicationPatch) (*Application, error) {
			assertGlobex(t)
			return nil, errors.New("connection reset")
		}
		_, err := h.m.Update(ctx, 1, domain.ApplicationPatch{Company: domain.Some("Renamed")})
		require.Error(t, err)
		assertGlobex(t)
	})

	t.Run("reconciled", func(t *testing.T) {
		be.updateFn = func(id int64, _ domain.ApplicationPatch) (*Application, error) {
			assertGlobex(t)
			srv := app(id, "Renamed", domain.StatusApplied)
			return &srv, nil
		}
		_, err := h.m.Update(ctx, 1, domain.ApplicationPatch{Company: domain.Some("Renamed")})
		require.NoError(t, err)
		d, _, _ := h.cache.Get(DetailKey(1))
		assert.Equal(t, "Renamed", d.(Application).Company)
		assertGlobex(t)
	})
}

func TestMutations_Delete(t *testing.T) {
	be := &fakeBackend{apps: []Application{app(1, "Acme", domain.StatusApplied), app(2, "Globex", domain.StatusApplied)}}
	h := newHarness(be)
	ctx := context.Background()
	_, err := h.q.Applications(ctx, "")
	require.NoError(t, err)
	_, err = h.q.Application(ctx, 1)
	require.NoError(t, err)
	_, err = h.q.Notes(ctx, 1)
	require.NoError(t, err)

	t.Run("rolls back on failure", func(t *testing.T) {
		be.deleteFn = func(int64) error {
			assert.Equal(t, []int64{2}, ids(cachedList(t, h.cache, "")))
			return &APIError{Status: http.StatusInternalServerError}
		}
		require.Error(t, h.m.Delete(ctx, 1))
		assert.Equal(t, []int64{1, 2}, ids(cachedList(t, h.cache, "")))
		_, _, ok := h.cache.Get(DetailKey(1))
		assert.True(t, ok)
	})

	t.Run("reconciles on success", func(t *testing.T) {
		be.deleteFn = func(int64) error { return nil }
		require.NoError(t, h.m.Delete(ctx, 1))
		assert.Equal(t, []int64{2}, ids(cachedList(t, h.cache, "")))
		_, _, ok := h.cache.Get(DetailKey(1))
		assert.False(t, ok)
		_, _, ok = h.cache.Get(NotesKey(1))
		assert.False(t, ok)
	})

	assert.Equal(t, []State{Pending, RolledBack, Pending, Reconciled}, h.rec.states())
}

func TestMutations_OptimisticWriteSupersedesInflightFetch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	be := &fakeBackend{apps: []Application{app(1, "Acme", domain.StatusApplied)}}
	h := newHarness(be)
	ctx := context.Background()
	_, err := h.q.Applications(ctx, "")
	require.NoError(t, err)
	h.clk.Advance(2 * time.Minute)

	be.listFn = func(context.Context, string) ([]Application, error) {
		close(started)
		<-release
		return []Application{app(1, "Acme", domain.StatusApplied)}, nil
	}
	done := make(chan struct{})
	go func() {
		_, _ = h.q.Applications(ctx, "")
		close(done)
	}()
	<-started

	be.deleteFn = func(int64) error { return nil }
	require.NoError(t, h.m.Delete(ctx, 1))
	close(release)
	<-done

	assert.Empty(t, cachedList(t, h.cache, ""), "pre-mutation response must not resurrect the deleted row")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "reconciled", Reconciled.String())
	assert.Equal(t, "rolled_back", RolledBack.String())
	assert.Equal(t, "unknown", State(9).String())
}
