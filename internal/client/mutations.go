package client

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/tbourn/go-job-tracker/internal/domain"
)

// State is the lifecycle of one optimistic mutation:
// Idle -> Pending -> Reconciled | RolledBack.
type State int

const (
	Idle State = iota
	Pending
	Reconciled
	RolledBack
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Reconciled:
		return "reconciled"
	case RolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Transition is reported to the observer on every state change.
type Transition struct {
	Op   string // create | update | delete
	ID   int64  // application id; the temporary id for a pending create
	From State
	To   State
	Err  error
}

// MutationOptions configures Mutations.
type MutationOptions struct {
	// Now is the clock used for optimistic timestamps; time.Now when nil.
	Now func() time.Time
	// NewKey generates Idempotency-Keys; uuid.NewString when nil.
	NewKey func() string
	// Observe, when set, receives every state transition.
	Observe func(Transition)
}

// Mutations apply writes optimistically. Each call snapshots the affected
// cache entries, projects the expected result into them, calls the server,
// then either replaces the projection with the server's answer or restores
// the snapshot. Affected list, detail and stats keys are invalidated once the
// mutation settles either way.
type Mutations struct {
	api    Backend
	cache  *QueryCache
	now    func() time.Time
	newKey func() string
	obs    func(Transition)
	tempID atomic.Int64
}

// NewMutations binds mutations to a backend and cache.
func NewMutations(api Backend, cache *QueryCache, opts MutationOptions) *Mutations {
	m := &Mutations{api: api, cache: cache, now: opts.Now, newKey: opts.NewKey, obs: opts.Observe}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newKey == nil {
		m.newKey = uuid.NewString
	}
	return m
}

// Create inserts an application. While the request is in flight the lists
// show a placeholder with a temporary negative id at their head.
func (m *Mutations) Create(ctx context.Context, in domain.NewApplication) (*Application, error) {
	tmp := m.placeholder(in)
	m.transition("create", tmp.ID, Idle, Pending, nil)

	m.cache.Supersede(PrefixApplicationLists)
	snap := m.cache.Snapshot(PrefixApplicationLists)
	m.cache.Update(PrefixApplicationLists, func(key string, data any) (any, bool) {
		list, ok := data.([]Application)
		if !ok || !listAccepts(key, tmp.Status) {
			return nil, false
		}
		return append([]Application{tmp}, list...), true
	})

	created, _, err := m.api.CreateApplication(ctx, in, m.newKey())
	if err != nil {
		m.cache.Restore(snap)
		m.settle(0)
		m.transition("create", tmp.ID, Pending, RolledBack, err)
		return nil, err
	}

	m.cache.Update(PrefixApplicationLists, func(_ string, data any) (any, bool) {
		list, ok := data.([]Application)
		if !ok {
			return nil, false
		}
		return replaceByID(list, tmp.ID, *created), true
	})
	m.cache.Set(DetailKey(created.ID), *created)
	m.settle(created.ID)
	m.transition("create", created.ID, Pending, Reconciled, nil)
	return created, nil
}

// Update patches an application. The projection applies the provided fields
// and bumps updatedAt; lists filtered by another status drop the entry.
func (m *Mutations) Update(ctx context.Context, id int64, patch domain.ApplicationPatch) (*Application, error) {
	m.transition("update", id, Idle, Pending, nil)

	m.cache.Supersede(PrefixApplicationLists)
	m.cache.Supersede(DetailKey(id))
	lists := m.cache.Snapshot(PrefixApplicationLists)
	detail := m.cache.Snapshot(DetailKey(id))

	now := m.now().UTC()
	m.cache.Update(PrefixApplicationLists, func(key string, data any) (any, bool) {
		list, ok := data.([]Application)
		if !ok {
			return nil, false
		}
		out := make([]Application, 0, len(list))
		for _, a := range list {
			if a.ID == id {
				a = applyPatch(a, patch, now)
				if !listAccepts(key, a.Status) {
					continue
				}
			}
			out = append(out, a)
		}
		return out, true
	})
	m.cache.Update(DetailKey(id), func(_ string, data any) (any, bool) {
		a, ok := data.(Application)
		if !ok {
			return nil, false
		}
		return applyPatch(a, patch, now), true
	})

	updated, err := m.api.UpdateApplication(ctx, id, patch)
	if err != nil {
		m.cache.Restore(lists)
		m.cache.Restore(detail)
		m.settle(id)
		m.transition("update", id, Pending, RolledBack, err)
		return nil, err
	}

	m.cache.Update(PrefixApplicationLists, func(_ string, data any) (any, bool) {
		list, ok := data.([]Application)
		if !ok {
			return nil, false
		}
		return replaceByID(list, id, *updated), true
	})
	m.cache.Set(DetailKey(id), *updated)
	m.cache.Invalidate(HistoryKey(id))
	m.settle(id)
	m.transition("update", id, Pending, Reconciled, nil)
	return updated, nil
}

// Delete removes an application; the lists drop it immediately.
func (m *Mutations) Delete(ctx context.Context, id int64) error {
	m.transition("delete", id, Idle, Pending, nil)

	m.cache.Supersede(PrefixApplicationLists)
	lists := m.cache.Snapshot(PrefixApplicationLists)
	m.cache.Update(PrefixApplicationLists, func(_ string, data any) (any, bool) {
		list, ok := data.([]Application)
		if !ok {
			return nil, false
		}
		return lo.Reject(list, func(a Application, _ int) bool { return a.ID == id }), true
	})

	if err := m.api.DeleteApplication(ctx, id); err != nil {
		m.cache.Restore(lists)
		m.settle(id)
		m.transition("delete", id, Pending, RolledBack, err)
		return err
	}

	m.cache.Remove(DetailKey(id))
	m.cache.Remove(NotesKey(id))
	m.cache.Remove(HistoryKey(id))
	m.settle(id)
	m.transition("delete", id, Pending, Reconciled, nil)
	return nil
}

// settle invalidates the keys every application write can affect. id <= 0
// skips the detail key.
func (m *Mutations) settle(id int64) {
	m.cache.Invalidate(PrefixApplicationLists)
	if id > 0 {
		m.cache.Invalidate(DetailKey(id))
	}
	m.cache.Invalidate(KeyStats)
}

func (m *Mutations) transition(op string, id int64, from, to State, err error) {
	if m.obs != nil {
		m.obs(Transition{Op: op, ID: id, From: from, To: to, Err: err})
	}
}

// placeholder builds the optimistic row for a create.
func (m *Mutations) placeholder(in domain.NewApplication) Application {
	now := m.now().UTC()
	status := in.Status
	if status == "" {
		status = domain.DefaultStatus
	}
	a := Application{ID: m.tempID.Add(-1)}
	a.Company = in.Company
	a.Role = in.Role
	a.Status = status
	a.Link = in.Link
	a.SalaryMin = in.SalaryMin
	a.SalaryMax = in.SalaryMax
	a.Tags = append([]string{}, in.Tags...)
	a.Rating = in.Rating
	a.CreatedAt = now
	a.UpdatedAt = now
	return a
}

// applyPatch returns a copy of a with the set fields of p applied.
func applyPatch(a Application, p domain.ApplicationPatch, now time.Time) Application {
	if p.Company.Set && p.Company.Value != nil {
		a.Company = *p.Company.Value
	}
	if p.Role.Set && p.Role.Value != nil {
		a.Role = *p.Role.Value
	}
	if p.Status.Set && p.Status.Value != nil {
		a.Status = *p.Status.Value
	}
	if p.Link.Set {
		a.Link = p.Link.Value
	}
	if p.SalaryMin.Set {
		a.SalaryMin = p.SalaryMin.Value
	}
	if p.SalaryMax.Set {
		a.SalaryMax = p.SalaryMax.Value
	}
	if p.Tags.Set && p.Tags.Value != nil {
		a.Tags = append([]string{}, (*p.Tags.Value)...)
	}
	if p.Rating.Set {
		a.Rating = p.Rating.Value
	}
	a.UpdatedAt = now
	return a
}

// replaceByID returns a copy of list with the entry id swapped for next.
func replaceByID(list []Application, id int64, next Application) []Application {
	return lo.Map(list, func(a Application, _ int) Application {
		if a.ID == id {
			return next
		}
		return a
	})
}

// listAccepts reports whether the list cached under key includes status.
func listAccepts(key string, status domain.Status) bool {
	filter := key[len(PrefixApplicationLists):]
	return filter == "all" || filter == string(status)
}
