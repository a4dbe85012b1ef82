package services

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/tbourn/go-job-tracker/internal/domain"
)

// stubLister serves a fixed slice and records the filter it was asked for.
type stubLister struct {
	apps   []domain.Application
	err    error
	status string
}

func (s *stubLister) List(_ context.Context, status string) ([]domain.Application, error) {
	s.status = status
	return s.apps, s.err
}

func TestStatsService_DelegatesToAggregators(t *testing.T) {
	day := func(d int) time.Time { return t0.AddDate(0, 0, d) }
	l := &stubLister{apps: []domain.Application{
		{ID: 3, Status: domain.StatusOffer, CreatedAt: day(2)},
		{ID: 2, Status: domain.StatusTechInterview, CreatedAt: day(1)},
		{ID: 1, Status: domain.StatusApplied, CreatedAt: day(1)},
	}}
	s := &StatsService{Apps: l}
	ctx := context.Background()

	sum, err := s.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Total != 3 || sum.ConversionRate != 33 || sum.SuccessRate != 100 || sum.InProgress != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if l.status != "" {
		t.Fatalf("stats must read the unfiltered set")
	}

	trend, err := s.Trend(ctx)
	if err != nil || len(trend) != 2 || trend[1].Cumulative != 3 {
		t.Fatalf("Trend = %+v err=%v", trend, err)
	}
	months, err := s.Monthly(ctx, 6)
	if err != nil || len(months) != 1 || months[0].Count != 3 {
		t.Fatalf("Monthly = %+v err=%v", months, err)
	}

	l.err = errors.New("db down")
	if _, err := s.Summary(ctx); err == nil {
		t.Fatalf("lister errors must propagate")
	}
}

func TestSearchService(t *testing.T) {
	db := newServiceDB(t)
	apps := NewApplicationService(db, 0)
	apps.Now = stepClock(t0)
	notes := NewNoteService(db, noteRepoFuncs{})
	ctx := context.Background()

	acme, _ := apps.Create(ctx, domain.NewApplication{Company: "Acme", Role: "Backend Engineer", Tags: []string{"golang"}})
	_, _ = apps.Create(ctx, domain.NewApplication{Company: "Globex", Role: "Designer"})
	initech, _ := apps.Create(ctx, domain.NewApplication{Company: "Initech", Role: "Analyst"})
	if _, err := notes.Create(ctx, domain.NewNote{ApplicationID: initech.ID, Content: "Kubernetes heavy stack, some golang"}); err != nil {
		t.Fatalf("note: %v", err)
	}

	s := &SearchService{DB: db}
	hits, err := s.Search(ctx, "golang", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %+v", hits)
	}
	ids := map[uint]bool{hits[0].Application.ID: true, hits[1].Application.ID: true}
	if !ids[acme.ID] || !ids[initech.ID] {
		t.Fatalf("unexpected hits: %+v", hits)
	}
	if hits[0].Score < hits[1].Score || hits[0].Application.Company == "" {
		t.Fatalf("hits must be ranked and hydrated: %+v", hits)
	}

	one, _ := s.Search(ctx, "golang", 1)
	if len(one) != 1 {
		t.Fatalf("limit not applied: %d", len(one))
	}
	if _, err := s.Search(ctx, "   ", 5); !errors.Is(err, ErrValidation) || FieldOf(err) != "q" {
		t.Fatalf("blank query must be rejected, got %v", err)
	}
	none, err := s.Search(ctx, "cobol", 5)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no hits, got %+v err=%v", none, err)
	}
}

func TestExportService(t *testing.T) {
	link := "https://acme.example/jobs/1"
	l := &stubLister{apps: []domain.Application{{
		ID: 7, Company: "Acme", Role: "Engineer", Status: domain.StatusOffer,
		Link: &link, SalaryMin: ptr[int64](100), Tags: []string{"go", "remote"},
		Rating: ptr(5), CreatedAt: t0, UpdatedAt: t0.Add(time.Hour), FinalizedAt: ptr(t0.Add(time.Hour)),
	}}}
	s := &ExportService{Apps: l}
	ctx := context.Background()

	var buf bytes.Buffer
	if err := s.Export(ctx, &buf, "", "offer"); err != nil {
		t.Fatalf("Export csv: %v", err)
	}
	if l.status != "offer" {
		t.Fatalf("status filter not forwarded: %q", l.status)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %q", buf.String())
	}
	if lines[0] != "id,company,role,status,link,salary_min,salary_max,tags,rating,created_at,updated_at,finalized_at" {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "7,Acme,Engineer,offer,https://acme.example/jobs/1,100,,go;remote,5,2025-04-01T08:00:00Z,") {
		t.Fatalf("row = %q", lines[1])
	}

	buf.Reset()
	if err := s.Export(ctx, &buf, "JSON", ""); err != nil {
		t.Fatalf("Export json: %v", err)
	}
	var decoded []domain.Application
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil || len(decoded) != 1 || decoded[0].ID != 7 {
		t.Fatalf("json export = %s err=%v", buf.String(), err)
	}

	buf.Reset()
	l.apps = nil
	if err := s.Export(ctx, &buf, "csv", ""); err != nil {
		t.Fatalf("Export empty: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); !strings.HasPrefix(got, "id,company") || strings.Contains(got, "\n") {
		t.Fatalf("empty export should be header only, got %q", got)
	}

	if err := s.Export(ctx, &buf, "xml", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown format must be rejected, got %v", err)
	}
	if ContentType(ExportCSV) != "text/csv; charset=utf-8" || ContentType(ExportJSON) != "application/json; charset=utf-8" {
		t.Fatalf("unexpected content types")
	}
}
