package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-job-tracker/internal/domain"
	"github.com/tbourn/go-job-tracker/internal/services"
	"github.com/tbourn/go-job-tracker/internal/stats"
)

func TestNotes(t *testing.T) {
	var created domain.NewNote
	notes := stubNotes{
		create: func(_ context.Context, in domain.NewNote) (*domain.Note, error) {
			created = in
			if in.ApplicationID == 404 {
				return nil, services.ErrApplicationNotFound
			}
			return &domain.Note{ID: 1, ApplicationID: in.ApplicationID, Category: domain.NoteGeneral, Content: in.Content}, nil
		},
		list: func(_ context.Context, id uint) ([]domain.Note, error) {
			return []domain.Note{{ID: 2, ApplicationID: id}, {ID: 1, ApplicationID: id}}, nil
		},
		del: func(_ context.Context, id uint) error {
			if id == 9 {
				return services.ErrNoteNotFound
			}
			return nil
		},
	}
	r := newTestRouter(New(Services{Notes: notes}))

	w := do(t, r, http.MethodPost, "/notes", `{"applicationId":3,"content":"ping recruiter","category":"followup"}`)
	if w.Code != http.StatusCreated || created.Category != domain.NoteFollowup {
		t.Fatalf("create: %d %+v", w.Code, created)
	}
	if w := do(t, r, http.MethodPost, "/notes", `{"applicationId":404,"content":"x"}`); w.Code != http.StatusNotFound {
		t.Fatalf("create on missing app: %d", w.Code)
	}

	w = do(t, r, http.MethodGet, "/notes?applicationId=3", "")
	var got []domain.Note
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil || len(got) != 2 || got[0].ID != 2 {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}
	if w := do(t, r, http.MethodGet, "/notes?applicationId=x", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad applicationId: %d", w.Code)
	}

	if w := do(t, r, http.MethodDelete, "/notes/1", ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", w.Code)
	}
	w = do(t, r, http.MethodDelete, "/notes/9", "")
	if w.Code != http.StatusNotFound || decodeError(t, w).Message != "note not found" {
		t.Fatalf("delete missing: %d %s", w.Code, w.Body.String())
	}
}

func TestStatsEndpoints(t *testing.T) {
	ts := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	var months int
	h := New(Services{
		Apps: stubApps{version: func(context.Context, string) (int64, *time.Time, uint, error) { return 1, &ts, 1, nil }},
		Stats: stubStats{
			summary: func(context.Context) (stats.Summary, error) {
				return stats.Compute([]domain.Application{{ID: 1, Status: domain.StatusOffer}}), nil
			},
			monthly: func(_ context.Context, n int) ([]stats.MonthPoint, error) {
				months = n
				return []stats.MonthPoint{}, nil
			},
		},
	})
	r := newTestRouter(h)

	w := do(t, r, http.MethodGet, "/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("stats: %d", w.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["total"] != float64(1) || body["conversionRate"] != float64(100) {
		t.Fatalf("unexpected stats body: %s", w.Body.String())
	}
	if byStatus, _ := body["byStatus"].(map[string]any); len(byStatus) != 5 {
		t.Fatalf("byStatus must list all five statuses: %v", body["byStatus"])
	}
	if w2 := do(t, r, http.MethodGet, "/stats", "", "If-None-Match", w.Header().Get("ETag")); w2.Code != http.StatusNotModified {
		t.Fatalf("stats conditional: %d", w2.Code)
	}

	if w := do(t, r, http.MethodGet, "/stats/trend", ""); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"cumulative":1`) {
		t.Fatalf("trend: %d %s", w.Code, w.Body.String())
	}

	for q, want := range map[string]int{"": stats.DefaultMonths, "?months=12": 12, "?months=0": 1, "?months=999": maxMonths, "?months=x": stats.DefaultMonths} {
		if w := do(t, r, http.MethodGet, "/stats/monthly"+q, ""); w.Code != http.StatusOK || months != want {
			t.Fatalf("monthly%s: status=%d months=%d want %d", q, w.Code, months, want)
		}
	}
}

func TestSearchAndExport(t *testing.T) {
	var limit int
	h := New(Services{
		Search: stubSearch{search: func(_ context.Context, q string, n int) ([]services.SearchHit, error) {
			limit = n
			if strings.TrimSpace(q) == "" {
				return nil, errors.Mark(&services.ValidationError{Field: "q", Message: "is required"}, services.ErrValidation)
			}
			return []services.SearchHit{{Application: domain.Application{ID: 1}, Score: 0.5}}, nil
		}},
		Export: stubExport{export: func(_ context.Context, w io.Writer, format, status string) error {
			if status == "boom" {
				return errors.New("db down")
			}
			_, err := io.WriteString(w, "id,company\n1,Acme\n")
			return err
		}},
	})
	r := newTestRouter(h)

	if w := do(t, r, http.MethodGet, "/applications/search?q=go&limit=500", ""); w.Code != http.StatusOK || limit != services.MaxSearchLimit {
		t.Fatalf("search: %d limit=%d", w.Code, limit)
	}
	if w := do(t, r, http.MethodGet, "/applications/search", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("empty q: %d", w.Code)
	}

	w := do(t, r, http.MethodGet, "/applications/export", "")
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("export: %d %q", w.Code, w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), ".csv") || !strings.Contains(w.Body.String(), "1,Acme") {
		t.Fatalf("export body/headers: %q %q", w.Header().Get("Content-Disposition"), w.Body.String())
	}
	if w := do(t, r, http.MethodGet, "/applications/export?format=xml", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad format: %d", w.Code)
	}
	w = do(t, r, http.MethodGet, "/applications/export?status=boom", "")
	if w.Code != http.StatusInternalServerError || strings.Contains(w.Body.String(), "Acme") {
		t.Fatalf("failed export must be a clean 500: %d %s", w.Code, w.Body.String())
	}
}

func TestAuthHandlers(t *testing.T) {
	user := &domain.User{ID: 5, Email: "a@b.io", Name: "a"}
	h := New(Services{Auth: stubAuth{
		register: func(_ context.Context, in services.Credentials) (*services.Session, error) {
			if in.Email == "taken@b.io" {
				return nil, services.ErrEmailTaken
			}
			return &services.Session{Token: "t", User: user}, nil
		},
		login: func(_ context.Context, in services.Credentials) (*services.Session, error) {
			if in.Password != "password1" {
				return nil, services.ErrInvalidCredentials
			}
			return &services.Session{Token: "t", User: user}, nil
		},
		me: func(_ context.Context, id uint) (*domain.User, error) { return user, nil },
	}})
	r := newTestRouter(h, func(c *gin.Context) {
		if c.GetHeader("X-Test-User") != "" {
			c.Set("userID", c.GetHeader("X-Test-User"))
		}
		c.Next()
	})

	if w := do(t, r, http.MethodPost, "/auth/register", `{"email":"a@b.io","password":"password1"}`); w.Code != http.StatusCreated {
		t.Fatalf("register: %d", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/auth/register", `{"email":"taken@b.io","password":"password1"}`); w.Code != http.StatusConflict {
		t.Fatalf("register taken: %d", w.Code)
	}
	w := do(t, r, http.MethodPost, "/auth/login", `{"email":"a@b.io","password":"password1"}`)
	if w.Code != http.StatusOK || strings.Contains(w.Body.String(), "password") {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}
	if w := do(t, r, http.MethodPost, "/auth/login", `{"email":"a@b.io","password":"nope"}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/auth/me", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("me anonymous: %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/auth/me", "", "X-Test-User", "5"); w.Code != http.StatusOK {
		t.Fatalf("me: %d", w.Code)
	}
}
