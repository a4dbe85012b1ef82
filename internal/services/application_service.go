// Package services – ApplicationService
//
// This file implements ApplicationService, which owns the lifecycle of job
// applications. Every mutation that changes an application's status writes
// the matching status history row inside the same transaction, so the
// history can never disagree with the row it describes.
//
// Observability: public methods are OpenTelemetry-instrumented and status
// transitions feed the tracker_status_transitions_total counter.
package services

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"

	"github.com/tbourn/go-job-tracker/internal/domain"
	"github.com/tbourn/go-job-tracker/internal/repo"
)

// ApplicationService coordinates application persistence and history.
type ApplicationService struct {
	DB *gorm.DB

	// IdempotencyTTL bounds how long an Idempotency-Key replays its first
	// result. Zero means 24h.
	IdempotencyTTL time.Duration

	// Now is the clock; tests replace it.
	Now func() time.Time
}

// NewApplicationService constructs an ApplicationService with a UTC clock.
func NewApplicationService(db *gorm.DB, ttl time.Duration) *ApplicationService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ApplicationService{
		DB:             db,
		IdempotencyTTL: ttl,
		Now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *ApplicationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Create validates in and persists the application together with its
// initial history row (from=null, to=status).
func (s *ApplicationService) Create(ctx context.Context, in domain.NewApplication) (*domain.Application, error) {
	app, _, err := s.CreateIdempotent(ctx, "", "", in)
	return app, err
}

// CreateIdempotent behaves like Create. When key is non-empty and a live
// record exists for (scope, key), the application created by the first
// request is returned with replayed=true and nothing is written. Otherwise
// the application, its history row and the idempotency record are committed
// together.
func (s *ApplicationService) CreateIdempotent(ctx context.Context, scope, key string, in domain.NewApplication) (app *domain.Application, replayed bool, err error) {
	tr := otel.Tracer("services/ApplicationService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.Bool("idempotent", key != "")),
	)
	defer span.End()

	in = normalizeNew(in)
	if err := validateNew(in); err != nil {
		return nil, false, err
	}

	if key != "" {
		if prev, ok, err := s.replay(ctx, scope, key); err != nil || ok {
			return prev, ok, err
		}
	}

	now := s.now()
	a := &domain.Application{
		Company:   in.Company,
		Role:      in.Role,
		Status:    in.Status,
		Link:      in.Link,
		SalaryMin: in.SalaryMin,
		SalaryMax: in.SalaryMax,
		Tags:      in.Tags,
		Rating:    in.Rating,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if a.Status.Terminal() {
		a.FinalizedAt = &now
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.CreateApplication(ctx, tx, a); err != nil {
			return errors.Wrap(err, "insert application")
		}
		if _, err := repo.AppendHistory(ctx, tx, a.ID, nil, a.Status, now); err != nil {
			return errors.Wrap(err, "insert status history")
		}
		if key != "" {
			if _, err := repo.CreateIdempotency(ctx, tx, scope, key, a.ID, http.StatusCreated, s.IdempotencyTTL); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, repo.ErrDuplicate) {
		// A concurrent request with the same key won; serve its result.
		prev, ok, rerr := s.replay(ctx, scope, key)
		if rerr != nil {
			return nil, false, rerr
		}
		if !ok {
			return nil, false, ErrConflict
		}
		return prev, true, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, false, err
	}

	appsCreated.Inc()
	span.SetAttributes(attribute.Int("application.id", int(a.ID)))
	return a, false, nil
}

// replay resolves a live idempotency record to the application it created.
func (s *ApplicationService) replay(ctx context.Context, scope, key string) (*domain.Application, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, scope, key, s.now())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	a, err := repo.GetApplication(ctx, s.DB, rec.ApplicationID)
	if errors.Is(err, repo.ErrNotFound) {
		// The first result was deleted since; the key cannot be reused.
		return nil, false, errors.Mark(errors.Newf("idempotency key %q refers to a deleted application", key), ErrConflict)
	}
	if err != nil {
		return nil, false, err
	}
	return a, true, nil
}

// Get returns the application with the given id.
func (s *ApplicationService) Get(ctx context.Context, id uint) (*domain.Application, error) {
	tr := otel.Tracer("services/ApplicationService")
	ctx, span := tr.Start(ctx, "Get", trace.WithAttributes(attribute.Int("application.id", int(id))))
	defer span.End()

	a, err := repo.GetApplication(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrApplicationNotFound
	}
	return a, err
}

// List returns applications newest first. An empty status lists everything;
// anything else must name a valid status.
func (s *ApplicationService) List(ctx context.Context, status string) ([]domain.Application, error) {
	tr := otel.Tracer("services/ApplicationService")
	ctx, span := tr.Start(ctx, "List", trace.WithAttributes(attribute.String("status", status)))
	defer span.End()

	st, err := parseStatusFilter(status)
	if err != nil {
		return nil, err
	}
	return repo.ListApplications(ctx, s.DB, st)
}

// Update applies patch to application id. The current row is read inside
// the transaction; a status change appends history(from=old, to=new) in the
// same transaction, and updatedAt is always bumped.
func (s *ApplicationService) Update(ctx context.Context, id uint, patch domain.ApplicationPatch) (*domain.Application, error) {
	tr := otel.Tracer("services/ApplicationService")
	ctx, span := tr.Start(ctx, "Update", trace.WithAttributes(attribute.Int("application.id", int(id))))
	defer span.End()

	if patch.Empty() {
		return nil, invalid("", "at least one field must be provided")
	}
	patch = normalizePatch(patch)
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	var out *domain.Application
	var transition *[2]domain.Status
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := repo.GetApplication(ctx, tx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrApplicationNotFound
		}
		if err != nil {
			return err
		}

		next := applyPatch(*cur, patch)
		if next.SalaryMin != nil && next.SalaryMax != nil && *next.SalaryMin > *next.SalaryMax {
			return invalid("salaryMin", "must not exceed salaryMax")
		}

		now := s.now()
		if !now.After(cur.UpdatedAt) {
			now = cur.UpdatedAt.Add(time.Microsecond)
		}
		next.UpdatedAt = now
		fields := patchColumns(patch, next)
		fields["updated_at"] = now

		if next.Status != cur.Status {
			switch {
			case next.Status.Terminal():
				next.FinalizedAt = &now
				fields["finalized_at"] = now
			case cur.Status.Terminal():
				next.FinalizedAt = nil
				fields["finalized_at"] = nil
			}
		}

		if err := repo.UpdateApplication(ctx, tx, id, fields); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrApplicationNotFound
			}
			return errors.Wrap(err, "update application")
		}
		if next.Status != cur.Status {
			from := cur.Status
			if _, err := repo.AppendHistory(ctx, tx, id, &from, next.Status, now); err != nil {
				return errors.Wrap(err, "insert status history")
			}
			transition = &[2]domain.Status{from, next.Status}
		}
		out = &next
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrValidation) && !errors.Is(err, ErrApplicationNotFound) {
			span.RecordError(err)
		}
		return nil, err
	}
	if transition != nil {
		statusTransitions.WithLabelValues(transition[0].String(), transition[1].String()).Inc()
	}
	return out, nil
}

// Delete removes application id together with its notes and history.
func (s *ApplicationService) Delete(ctx context.Context, id uint) error {
	tr := otel.Tracer("services/ApplicationService")
	ctx, span := tr.Start(ctx, "Delete", trace.WithAttributes(attribute.Int("application.id", int(id))))
	defer span.End()

	err := repo.DeleteApplication(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrApplicationNotFound
	}
	return err
}

// History returns the status history of application id, newest first.
func (s *ApplicationService) History(ctx context.Context, id uint) ([]domain.StatusHistory, error) {
	tr := otel.Tracer("services/ApplicationService")
	ctx, span := tr.Start(ctx, "History", trace.WithAttributes(attribute.Int("application.id", int(id))))
	defer span.End()

	if _, err := repo.GetApplication(ctx, s.DB, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return repo.ListHistory(ctx, s.DB, id)
}

// Version returns a cheap fingerprint of the application set (optionally
// filtered by status) for ETag generation.
func (s *ApplicationService) Version(ctx context.Context, status string) (count int64, maxUpdated *time.Time, maxID uint, err error) {
	st, err := parseStatusFilter(status)
	if err != nil {
		return 0, nil, 0, err
	}
	count, maxUpdated, err = repo.ApplicationsStats(ctx, s.DB, st)
	if err != nil {
		return 0, nil, 0, err
	}
	maxID, err = repo.MaxApplicationID(ctx, s.DB)
	return count, maxUpdated, maxID, err
}

func parseStatusFilter(status string) (*domain.Status, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, nil
	}
	st, err := domain.ParseStatus(status)
	if err != nil {
		return nil, invalid("status", "must be one of applied, hr_interview, tech_interview, offer, rejected")
	}
	return &st, nil
}

// ---- normalisation & validation ----

// normalizeTags trims every tag and drops case-insensitive duplicates,
// keeping the first spelling. Empty entries are kept so validation reports
// them.
func normalizeTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	fold := cases.Fold()
	trimmed := lo.Map(tags, func(t string, _ int) string { return strings.TrimSpace(t) })
	return lo.UniqBy(trimmed, func(t string) string { return fold.String(t) })
}

func normalizeLink(link *string) *string {
	if link == nil {
		return nil
	}
	v := strings.TrimSpace(*link)
	if v == "" {
		return nil
	}
	return &v
}

func normalizeNew(in domain.NewApplication) domain.NewApplication {
	in.Company = strings.TrimSpace(in.Company)
	in.Role = strings.TrimSpace(in.Role)
	if in.Status == "" {
		in.Status = domain.DefaultStatus
	}
	in.Link = normalizeLink(in.Link)
	in.Tags = normalizeTags(in.Tags)
	return in
}

func validateNew(in domain.NewApplication) error {
	if err := validateStruct(in); err != nil {
		return err
	}
	if in.SalaryMin != nil && in.SalaryMax != nil && *in.SalaryMin > *in.SalaryMax {
		return invalid("salaryMin", "must not exceed salaryMax")
	}
	return nil
}

func normalizePatch(p domain.ApplicationPatch) domain.ApplicationPatch {
	if p.Company.Value != nil {
		p.Company = domain.Some(strings.TrimSpace(*p.Company.Value))
	}
	if p.Role.Value != nil {
		p.Role = domain.Some(strings.TrimSpace(*p.Role.Value))
	}
	if p.Link.Set {
		p.Link.Value = normalizeLink(p.Link.Value)
	}
	if p.Tags.Value != nil {
		p.Tags = domain.Some(normalizeTags(*p.Tags.Value))
	}
	return p
}

// validatePatch projects the set fields onto a NewApplication and reuses its
// tags. Fields that cannot be cleared reject an explicit null.
func validatePatch(p domain.ApplicationPatch) error {
	for name, o := range map[string]struct{ set, null bool }{
		"company": {p.Company.Set, p.Company.Value == nil},
		"role":    {p.Role.Set, p.Role.Value == nil},
		"status":  {p.Status.Set, p.Status.Value == nil},
		"tags":    {p.Tags.Set, p.Tags.Value == nil},
	} {
		if o.set && o.null {
			return invalid(name, "cannot be null")
		}
	}

	probe := domain.NewApplication{
		Company:   "-",
		Role:      "-",
		Status:    domain.DefaultStatus,
		Link:      p.Link.Value,
		SalaryMin: p.SalaryMin.Value,
		SalaryMax: p.SalaryMax.Value,
		Rating:    p.Rating.Value,
	}
	if p.Company.Value != nil {
		probe.Company = *p.Company.Value
	}
	if p.Role.Value != nil {
		probe.Role = *p.Role.Value
	}
	if p.Status.Value != nil {
		probe.Status = *p.Status.Value
		if probe.Status == "" {
			return invalid("status", "must be one of applied, hr_interview, tech_interview, offer, rejected")
		}
	}
	if p.Tags.Value != nil {
		probe.Tags = *p.Tags.Value
	}
	return validateStruct(probe)
}

// applyPatch returns cur with the set fields of p applied.
func applyPatch(cur domain.Application, p domain.ApplicationPatch) domain.Application {
	if p.Company.Set {
		cur.Company = *p.Company.Value
	}
	if p.Role.Set {
		cur.Role = *p.Role.Value
	}
	if p.Status.Set {
		cur.Status = *p.Status.Value
	}
	if p.Link.Set {
		cur.Link = p.Link.Value
	}
	if p.SalaryMin.Set {
		cur.SalaryMin = p.SalaryMin.Value
	}
	if p.SalaryMax.Set {
		cur.SalaryMax = p.SalaryMax.Value
	}
	if p.Tags.Set {
		cur.Tags = *p.Tags.Value
	}
	if p.Rating.Set {
		cur.Rating = p.Rating.Value
	}
	return cur
}

// patchColumns maps the set fields to column values taken from next; a nil
// pointer becomes SQL NULL.
func patchColumns(p domain.ApplicationPatch, next domain.Application) map[string]any {
	cols := map[string]any{}
	if p.Company.Set {
		cols["company"] = next.Company
	}
	if p.Role.Set {
		cols["role"] = next.Role
	}
	if p.Status.Set {
		cols["status"] = next.Status
	}
	if p.Link.Set {
		cols["link"] = next.Link
	}
	if p.SalaryMin.Set {
		cols["salary_min"] = next.SalaryMin
	}
	if p.SalaryMax.Set {
		cols["salary_max"] = next.SalaryMax
	}
	if p.Tags.Set {
		cols["tags"] = next.Tags
	}
	if p.Rating.Set {
		cols["rating"] = next.Rating
	}
	return cols
}
