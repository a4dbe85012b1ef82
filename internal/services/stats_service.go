package services

import (
	"context"

	"github.com/tbourn/go-job-tracker/internal/domain"
	"github.com/tbourn/go-job-tracker/internal/stats"
)

// ApplicationLister is the read side StatsService and ExportService need.
type ApplicationLister interface {
	List(ctx context.Context, status string) ([]domain.Application, error)
}

// StatsService loads the full application set and hands it to the pure
// aggregators in package stats.
type StatsService struct {
	Apps ApplicationLister
}

// Summary returns the dashboard aggregate.
func (s *StatsService) Summary(ctx context.Context) (stats.Summary, error) {
	apps, err := s.Apps.List(ctx, "")
	if err != nil {
		return stats.Summary{}, err
	}
	return stats.Compute(apps), nil
}

// Trend returns per-day creation counts with a running total.
func (s *StatsService) Trend(ctx context.Context) ([]stats.TrendPoint, error) {
	apps, err := s.Apps.List(ctx, "")
	if err != nil {
		return nil, err
	}
	return stats.Trend(apps), nil
}

// Monthly returns per-month creation counts for the last `months` months
// that have data.
func (s *StatsService) Monthly(ctx context.Context, months int) ([]stats.MonthPoint, error) {
	apps, err := s.Apps.List(ctx, "")
	if err != nil {
		return nil, err
	}
	return stats.Monthly(apps, months), nil
}
