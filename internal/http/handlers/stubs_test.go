package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-job-tracker/internal/domain"
	"github.com/tbourn/go-job-tracker/internal/services"
	"github.com/tbourn/go-job-tracker/internal/stats"
)

// ---------- flexible service stubs ----------

type stubApps struct {
	create  func(context.Context, string, string, domain.NewApplication) (*domain.Application, bool, error)
	get     func(context.Context, uint) (*domain.Application, error)
	list    func(context.Context, string) ([]domain.Application, error)
	update  func(context.Context, uint, domain.ApplicationPatch) (*domain.Application, error)
	del     func(context.Context, uint) error
	history func(context.Context, uint) ([]domain.StatusHistory, error)
	version func(context.Context, string) (int64, *time.Time, uint, error)
}

func (s stubApps) CreateIdempotent(ctx context.Context, scope, key string, in domain.NewApplication) (*domain.Application, bool, error) {
	if s.create != nil {
		return s.create(ctx, scope, key, in)
	}
	return &domain.Application{ID: 1, Company: in.Company, Role: in.Role, Status: domain.StatusApplied}, false, nil
}

func (s stubApps) Get(ctx context.Context, id uint) (*domain.Application, error) {
	if s.get != nil {
		return s.get(ctx, id)
	}
	return &domain.Application{ID: id}, nil
}

func (s stubApps) List(ctx context.Context, status string) ([]domain.Application, error) {
	if s.list != nil {
		return s.list(ctx, status)
	}
	return []domain.Application{}, nil
}

func (s stubApps) Update(ctx context.Context, id uint, p domain.ApplicationPatch) (*domain.Application, error) {
	if s.update != nil {
		return s.update(ctx, id, p)
	}
	return &domain.Application{ID: id}, nil
}

func (s stubApps) Delete(ctx context.Context, id uint) error {
	if s.del != nil {
		return s.del(ctx, id)
	}
	return nil
}

func (s stubApps) History(ctx context.Context, id uint) ([]domain.StatusHistory, error) {
	if s.history != nil {
		return s.history(ctx, id)
	}
	return []domain.StatusHistory{}, nil
}

func (s stubApps) Version(ctx context.Context, status string) (int64, *time.Time, uint, error) {
	if s.version != nil {
		return s.version(ctx, status)
	}
	return 0, nil, 0, nil
}

type stubNotes struct {
	create func(context.Context, domain.NewNote) (*domain.Note, error)
	list   func(context.Context, uint) ([]domain.Note, error)
	del    func(context.Context, uint) error
}

func (s stubNotes) Create(ctx context.Context, in domain.NewNote) (*domain.Note, error) {
	if s.create != nil {
		return s.create(ctx, in)
	}
	return &domain.Note{ID: 1, ApplicationID: in.ApplicationID, Content: in.Content}, nil
}

func (s stubNotes) List(ctx context.Context, id uint) ([]domain.Note, error) {
	if s.list != nil {
		return s.list(ctx, id)
	}
	return []domain.Note{}, nil
}

func (s stubNotes) Delete(ctx context.Context, id uint) error {
	if s.del != nil {
		return s.del(ctx, id)
	}
	return nil
}

type stubStats struct {
	summary func(context.Context) (stats.Summary, error)
	monthly func(context.Context, int) ([]stats.MonthPoint, error)
}

func (s stubStats) Summary(ctx context.Context) (stats.Summary, error) {
	if s.summary != nil {
		return s.summary(ctx)
	}
	return stats.Compute(nil), nil
}

func (stubStats) Trend(context.Context) ([]stats.TrendPoint, error) {
	return []stats.TrendPoint{{Date: "2025-04-01", Count: 1, Cumulative: 1}}, nil
}

func (s stubStats) Monthly(ctx context.Context, n int) ([]stats.MonthPoint, error) {
	if s.monthly != nil {
		return s.monthly(ctx, n)
	}
	return []stats.MonthPoint{}, nil
}

type stubSearch struct {
	search func(context.Context, string, int) ([]services.SearchHit, error)
}

func (s stubSearch) Search(ctx context.Context, q string, limit int) ([]services.SearchHit, error) {
	return s.search(ctx, q, limit)
}

type stubExport struct {
	export func(context.Context, io.Writer, string, string) error
}

func (s stubExport) Export(ctx context.Context, w io.Writer, format, status string) error {
	return s.export(ctx, w, format, status)
}

type stubAuth struct {
	register func(context.Context, services.Credentials) (*services.Session, error)
	login    func(context.Context, services.Credentials) (*services.Session, error)
	me       func(context.Context, uint) (*domain.User, error)
}

func (s stubAuth) Register(ctx context.Context, in services.Credentials) (*services.Session, error) {
	return s.register(ctx, in)
}

func (s stubAuth) Login(ctx context.Context, in services.Credentials) (*services.Session, error) {
	return s.login(ctx, in)
}

func (s stubAuth) Me(ctx context.Context, id uint) (*domain.User, error) {
	return s.me(ctx, id)
}

// ---------- request helpers ----------

func newTestRouter(h *Handlers, pre ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(pre...)
	r.GET("/applications", h.ListApplications)
	r.GET("/applications/search", h.SearchApplications)
	r.GET("/applications/export", h.ExportApplications)
	r.GET("/applications/:id", h.GetApplication)
	r.POST("/applications", h.CreateApplication)
	r.PATCH("/applications/:id", h.UpdateApplication)
	r.DELETE("/applications/:id", h.DeleteApplication)
	r.GET("/status-history", h.ListStatusHistory)
	r.GET("/notes", h.ListNotes)
	r.POST("/notes", h.CreateNote)
	r.DELETE("/notes/:id", h.DeleteNote)
	r.GET("/stats", h.GetStats)
	r.GET("/stats/trend", h.GetTrend)
	r.GET("/stats/monthly", h.GetMonthly)
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.GET("/auth/me", h.Me)
	return r
}

func do(t *testing.T, r http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return er
}
