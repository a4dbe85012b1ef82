package repo

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-job-tracker/internal/domain"
)

type seedApp struct {
	company, role string
	path          []domain.Status
	link          string
	min, max      int64
	tags          []string
	notes         []string
	daysAgo       int
}

var demoApps = []seedApp{
	{
		company: "Arasaka",
		role:    "Senior Frontend Developer",
		path:    []domain.Status{domain.StatusApplied, domain.StatusHRInterview},
		link:    "https://arasaka.com/careers/senior-frontend",
		min:     15000,
		max:     20000,
		tags:    []string{"Remote", "Senior"},
		notes: []string{
			"First HR call went well, waiting for feedback.",
			"Prepare for the technical round: React patterns, TypeScript.",
		},
		daysAgo: 12,
	},
	{
		company: "Trauma Team International",
		role:    "Full Stack Engineer",
		path:    []domain.Status{domain.StatusApplied},
		link:    "https://trauma-team-international.com/jobs",
		min:     12000,
		max:     18000,
		tags:    []string{"Hybrid"},
		daysAgo: 5,
	},
	{
		company: "Militech",
		role:    "React Developer",
		path:    []domain.Status{domain.StatusApplied, domain.StatusTechInterview, domain.StatusOffer},
		min:     18000,
		max:     22000,
		tags:    []string{"Dream Job"},
		notes:   []string{"Offer received, seven days to answer."},
		daysAgo: 30,
	},
}

// Seed inserts a small demo data set when the applications table is empty.
// Each demo application gets the history rows its status path implies.
func Seed(ctx context.Context, db *gorm.DB, now time.Time) error {
	n, err := CountApplications(ctx, db)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Debug().Int64("applications", n).Msg("seed skipped")
		return nil
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, d := range demoApps {
			created := now.Add(-time.Duration(d.daysAgo) * 24 * time.Hour)
			lo, hi := d.min, d.max
			a := &domain.Application{
				Company:   d.company,
				Role:      d.role,
				Status:    d.path[len(d.path)-1],
				SalaryMin: &lo,
				SalaryMax: &hi,
				Tags:      d.tags,
				CreatedAt: created,
				UpdatedAt: created,
			}
			if d.link != "" {
				link := d.link
				a.Link = &link
			}
			if a.Status.Terminal() {
				finalized := created.Add(time.Duration(len(d.path)-1) * 24 * time.Hour)
				a.FinalizedAt = &finalized
				a.UpdatedAt = finalized
			}
			if _, err := CreateApplication(ctx, tx, a); err != nil {
				return err
			}

			var from *domain.Status
			for i, st := range d.path {
				at := created.Add(time.Duration(i) * 24 * time.Hour)
				if _, err := AppendHistory(ctx, tx, a.ID, from, st, at); err != nil {
					return err
				}
				prev := st
				from = &prev
			}
			for i, content := range d.notes {
				note := &domain.Note{
					ApplicationID: a.ID,
					Category:      domain.DefaultNoteCategory,
					Content:       content,
					CreatedAt:     created.Add(time.Duration(i+1) * time.Hour),
				}
				if _, err := CreateNote(ctx, tx, note); err != nil {
					return err
				}
			}
		}
		log.Info().Int("applications", len(demoApps)).Msg("demo data seeded")
		return nil
	})
}
