package services

import (
	"context"
	"strings"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-job-tracker/internal/domain"
	"github.com/tbourn/go-job-tracker/internal/repo"
	"github.com/tbourn/go-job-tracker/internal/search"
)

// SearchHit pairs a ranked application with its score.
type SearchHit struct {
	Application domain.Application `json:"application"`
	Score       float64            `json:"score"`
	Snippet     string             `json:"snippet"`
}

// SearchService ranks applications by free-text similarity over company,
// role, tags and note contents. The index is rebuilt per query; a personal
// tracker holds at most a few hundred rows.
type SearchService struct {
	DB      *gorm.DB
	Options []search.Option
}

// MaxSearchLimit caps the limit parameter.
const MaxSearchLimit = 50

// Search returns up to limit hits for q, best first.
func (s *SearchService) Search(ctx context.Context, q string, limit int) ([]SearchHit, error) {
	tr := otel.Tracer("services/SearchService")
	ctx, span := tr.Start(ctx, "Search", trace.WithAttributes(attribute.Int("limit", limit)))
	defer span.End()

	q = strings.TrimSpace(q)
	if q == "" {
		return nil, invalid("q", "is required")
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	apps, err := repo.ListApplications(ctx, s.DB, nil)
	if err != nil {
		return nil, err
	}
	notes, err := repo.ListAllNotes(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	notesByApp := lo.GroupBy(notes, func(n domain.Note) uint { return n.ApplicationID })
	byID := lo.KeyBy(apps, func(a domain.Application) uint { return a.ID })

	docs := lo.Map(apps, func(a domain.Application, _ int) search.Document {
		contents := lo.Map(notesByApp[a.ID], func(n domain.Note, _ int) string { return n.Content })
		return search.Document{
			ID:    a.ID,
			Title: a.Company + " - " + a.Role,
			Text:  search.ApplicationText(a.Company, a.Role, a.Tags, contents),
		}
	})

	results := search.NewIndex(docs, s.Options...).TopK(q, limit)
	span.SetAttributes(attribute.Int("hits", len(results)))

	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, SearchHit{Application: byID[r.ID], Score: r.Score, Snippet: r.Snippet})
	}
	return hits, nil
}
