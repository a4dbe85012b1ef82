// Application HTTP handlers.
//
// This file exposes REST endpoints for job applications:
//   - GET    /applications          (list, optional ?status=, weak ETag)
//   - GET    /applications/{id}     (detail)
//   - POST   /applications          (create, Idempotency-Key aware)
//   - PATCH  /applications/{id}     (partial update; null clears)
//   - DELETE /applications/{id}     (delete with notes and history)
//
// Handlers are transport-thin: they parse input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-job-tracker/internal/domain"
	"github.com/tbourn/go-job-tracker/internal/http/middleware"
	"github.com/tbourn/go-job-tracker/internal/services"
	"github.com/tbourn/go-job-tracker/internal/stats"
	"github.com/tbourn/go-job-tracker/internal/utils"
)

//
// Service contracts (context-aware)
//

// ApplicationService defines the application lifecycle consumed by handlers.
//
// Implementations must be safe for concurrent use and honor ctx.
type ApplicationService interface {
	CreateIdempotent(ctx context.Context, scope, key string, in domain.NewApplication) (*domain.Application, bool, error)
	Get(ctx context.Context, id uint) (*domain.Application, error)
	List(ctx context.Context, status string) ([]domain.Application, error)
	Update(ctx context.Context, id uint, patch domain.ApplicationPatch) (*domain.Application, error)
	Delete(ctx context.Context, id uint) error
	History(ctx context.Context, id uint) ([]domain.StatusHistory, error)
	// Version fingerprints the (filtered) application set for ETags.
	Version(ctx context.Context, status string) (count int64, maxUpdated *time.Time, maxID uint, err error)
}

// NoteService defines note operations.
type NoteService interface {
	Create(ctx context.Context, in domain.NewNote) (*domain.Note, error)
	List(ctx context.Context, applicationID uint) ([]domain.Note, error)
	Delete(ctx context.Context, id uint) error
}

// StatsService defines the dashboard aggregates.
type StatsService interface {
	Summary(ctx context.Context) (stats.Summary, error)
	Trend(ctx context.Context) ([]stats.TrendPoint, error)
	Monthly(ctx context.Context, months int) ([]stats.MonthPoint, error)
}

// SearchService ranks applications by free text.
type SearchService interface {
	Search(ctx context.Context, q string, limit int) ([]services.SearchHit, error)
}

// ExportService streams the application list in a file format.
type ExportService interface {
	Export(ctx context.Context, w io.Writer, format, status string) error
}

// AuthService registers users and issues tokens.
type AuthService interface {
	Register(ctx context.Context, in services.Credentials) (*services.Session, error)
	Login(ctx context.Context, in services.Credentials) (*services.Session, error)
	Me(ctx context.Context, userID uint) (*domain.User, error)
}

//
// Handler wiring
//

// Services bundles the dependencies of Handlers. Nil members disable the
// corresponding endpoints' backing (the router does not mount them).
type Services struct {
	Apps   ApplicationService
	Notes  NoteService
	Stats  StatsService
	Search SearchService
	Export ExportService
	Auth   AuthService
}

// Handlers groups the HTTP endpoints of the API. It depends on abstract
// service interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	apps   ApplicationService
	notes  NoteService
	stats  StatsService
	search SearchService
	export ExportService
	auth   AuthService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(s Services) *Handlers {
	return &Handlers{
		apps:   s.Apps,
		notes:  s.Notes,
		stats:  s.Stats,
		search: s.Search,
		export: s.Export,
		auth:   s.Auth,
	}
}

// pathID parses the :id path parameter, answering 400 when malformed.
func pathID(c *gin.Context, what string) (uint, bool) {
	id, valid := utils.ParseID(c.Param("id"))
	if !valid {
		failField(c, http.StatusBadRequest, ErrCodeValidation, what+" id must be a positive integer", "id")
		return 0, false
	}
	return id, true
}

// listETag fingerprints the application set: any create, update or delete
// changes at least one of count, newest updatedAt and highest id (ids are
// never reused).
func (h *Handlers) listETag(ctx context.Context, prefix, status string) (string, error) {
	count, maxUpdated, maxID, err := h.apps.Version(ctx, status)
	if err != nil {
		return "", err
	}
	var ts int64
	if maxUpdated != nil {
		ts = maxUpdated.UnixNano()
	}
	return fmt.Sprintf(`W/"%s:%s:%d:%d:%d"`, prefix, status, count, ts, maxID), nil
}

//
// Handlers
//

// ListApplications godoc
// @ID          listApplications
// @Summary     List applications
// @Description Returns applications newest first, optionally filtered by status. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Applications
// @Produce     json
//
// @Param       status         query   string  false "Status filter"  Enums(applied, hr_interview, tech_interview, offer, rejected)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
//
// @Success     200  {array}   domain.Application
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse "Invalid status filter"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /applications [get]
func (h *Handlers) ListApplications(c *gin.Context) {
	ctx := c.Request.Context()
	status := c.Query("status")

	etag, err := h.listETag(ctx, "apps", status)
	if err != nil {
		failErr(c, err)
		return
	}
	if notModified(c, etag) {
		return
	}

	items, err := h.apps.List(ctx, status)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// GetApplication godoc
// @ID          getApplication
// @Summary     Get an application
// @Tags        Applications
// @Produce     json
// @Param       id   path      int  true  "Application ID"  minimum(1)
// @Success     200  {object}  domain.Application
// @Failure     400  {object}  handlers.ErrorResponse "Malformed id"
// @Failure     404  {object}  handlers.ErrorResponse "Application not found"
// @Router      /applications/{id} [get]
func (h *Handlers) GetApplication(c *gin.Context) {
	id, valid := pathID(c, "application")
	if !valid {
		return
	}
	a, err := h.apps.Get(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, a)
}

// CreateApplication godoc
// @ID          createApplication
// @Summary     Create an application
// @Description Persists an application and its initial status history entry. With an Idempotency-Key, a retried request returns the first result and sets Idempotent-Replayed: true.
// @Tags        Applications
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string                      false "Idempotency key for safe retries"
// @Param       body             body    domain.NewApplication       true  "Application"
//
// @Success     201  {object}  domain.Application
// @Header      201  {string}  Idempotent-Replayed  "true when served from a previous request"
// @Failure     400  {object}  handlers.ErrorResponse "Validation error"
// @Failure     409  {object}  handlers.ErrorResponse "Idempotency key refers to a deleted application"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /applications [post]
func (h *Handlers) CreateApplication(c *gin.Context) {
	var in domain.NewApplication
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	key, _ := middleware.GetIdempotencyKey(c)
	a, replayed, err := h.apps.CreateIdempotent(c.Request.Context(), middleware.IdempotencyScope(c), key, in)
	if err != nil {
		failErr(c, err)
		return
	}
	if replayed {
		c.Header(middleware.HeaderIdempotentReplayed, "true")
	}
	c.Header("Location", fmt.Sprintf("%s/%d", c.Request.URL.Path, a.ID))
	ok(c, http.StatusCreated, a)
}

// UpdateApplication godoc
// @ID          updateApplication
// @Summary     Update an application
// @Description Applies the fields present in the body. An explicit null clears link, salaryMin, salaryMax or rating. A status change appends a history entry.
// @Tags        Applications
// @Accept      json
// @Produce     json
// @Param       id    path      int                     true  "Application ID"  minimum(1)
// @Param       body  body      domain.ApplicationPatch  true  "Fields to change"
// @Success     200   {object}  domain.Application
// @Failure     400   {object}  handlers.ErrorResponse "Validation error"
// @Failure     404   {object}  handlers.ErrorResponse "Application not found"
// @Router      /applications/{id} [patch]
func (h *Handlers) UpdateApplication(c *gin.Context) {
	id, valid := pathID(c, "application")
	if !valid {
		return
	}
	var patch domain.ApplicationPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	a, err := h.apps.Update(c.Request.Context(), id, patch)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, a)
}

// DeleteApplication godoc
// @ID          deleteApplication
// @Summary     Delete an application
// @Description Removes the application together with its notes and status history.
// @Tags        Applications
// @Param       id   path  int  true  "Application ID"  minimum(1)
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "Application not found"
// @Router      /applications/{id} [delete]
func (h *Handlers) DeleteApplication(c *gin.Context) {
	id, valid := pathID(c, "application")
	if !valid {
		return
	}
	if err := h.apps.Delete(c.Request.Context(), id); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// ListStatusHistory godoc
// @ID          listStatusHistory
// @Summary     Status history of an application
// @Tags        Applications
// @Produce     json
// @Param       applicationId  query     int  true  "Application ID"  minimum(1)
// @Success     200            {array}   domain.StatusHistory
// @Failure     400            {object}  handlers.ErrorResponse "Missing or malformed applicationId"
// @Failure     404            {object}  handlers.ErrorResponse "Application not found"
// @Router      /status-history [get]
func (h *Handlers) ListStatusHistory(c *gin.Context) {
	appID, valid := queryApplicationID(c)
	if !valid {
		return
	}
	items, err := h.apps.History(c.Request.Context(), appID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// queryApplicationID parses the required ?applicationId= parameter.
func queryApplicationID(c *gin.Context) (uint, bool) {
	id, valid := utils.ParseID(c.Query("applicationId"))
	if !valid {
		failField(c, http.StatusBadRequest, ErrCodeValidation, "applicationId must be a positive integer", "applicationId")
		return 0, false
	}
	return id, true
}
