// Package stats derives dashboard aggregates from a set of applications.
// Every function is pure: it reads the slice it is given and never touches
// the store, so the same input always yields the same output.
package stats

import (
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/tbourn/go-job-tracker/internal/domain"
)

// RecentLimit is the number of applications reported in Summary.Recent.
const RecentLimit = 5

// Summary is the aggregate served by GET /stats.
type Summary struct {
	Total                  int                   `json:"total"`
	ByStatus               map[domain.Status]int `json:"byStatus"`
	Recent                 []domain.Application  `json:"recent"`
	AverageSalary          *int64                `json:"averageSalary"`
	AverageRecruitmentDays *int64                `json:"averageRecruitmentDays"`
	ConversionRate         int                   `json:"conversionRate"`
	SuccessRate            int                   `json:"successRate"`
	InProgress             int                   `json:"inProgress"`
}

var (
	hundred   = decimal.NewFromInt(100)
	two       = decimal.NewFromInt(2)
	dayLength = decimal.NewFromInt(int64(24 * time.Hour))
)

// Compute aggregates apps, which must be ordered newest first (the order
// ApplicationService.List returns); Recent keeps that order.
//
// Rates are 0 and averages nil when their denominator is empty. Rounding is
// half-up on non-negative values.
func Compute(apps []domain.Application) Summary {
	if apps == nil {
		apps = []domain.Application{}
	}
	byStatus := make(map[domain.Status]int, len(domain.Statuses))
	for _, st := range domain.Statuses {
		byStatus[st] = 0
	}
	for _, a := range apps {
		if a.Status.Valid() {
			byStatus[a.Status]++
		}
	}

	total := len(apps)
	offer := byStatus[domain.StatusOffer]
	finalized := offer + byStatus[domain.StatusRejected]

	return Summary{
		Total:                  total,
		ByStatus:               byStatus,
		Recent:                 lo.Subset(apps, 0, RecentLimit),
		AverageSalary:          averageSalary(apps),
		AverageRecruitmentDays: averageRecruitmentDays(apps),
		ConversionRate:         percent(offer, total),
		SuccessRate:            percent(offer, finalized),
		InProgress:             byStatus[domain.StatusHRInterview] + byStatus[domain.StatusTechInterview],
	}
}

// percent returns round(100*num/den), or 0 when den is 0.
func percent(num, den int) int {
	if den == 0 {
		return 0
	}
	return int(decimal.NewFromInt(int64(num)).Mul(hundred).
		Div(decimal.NewFromInt(int64(den))).Round(0).IntPart())
}

// averageSalary is the mean midpoint over applications with both bounds.
func averageSalary(apps []domain.Application) *int64 {
	ranged := lo.Filter(apps, func(a domain.Application, _ int) bool { return a.HasSalaryRange() })
	if len(ranged) == 0 {
		return nil
	}
	sum := decimal.Zero
	for _, a := range ranged {
		mid := decimal.NewFromInt(*a.SalaryMin).Add(decimal.NewFromInt(*a.SalaryMax)).Div(two)
		sum = sum.Add(mid)
	}
	v := sum.Div(decimal.NewFromInt(int64(len(ranged)))).Round(0).IntPart()
	return &v
}

// averageRecruitmentDays is the mean time to a terminal status, in days.
// The end of recruitment is FinalizedAt, falling back to UpdatedAt for rows
// that predate it.
func averageRecruitmentDays(apps []domain.Application) *int64 {
	done := lo.Filter(apps, func(a domain.Application, _ int) bool { return a.Status.Terminal() })
	if len(done) == 0 {
		return nil
	}
	sum := decimal.Zero
	for _, a := range done {
		end := a.UpdatedAt
		if a.FinalizedAt != nil {
			end = *a.FinalizedAt
		}
		sum = sum.Add(decimal.NewFromInt(int64(end.Sub(a.CreatedAt))).Div(dayLength))
	}
	v := sum.Div(decimal.NewFromInt(int64(len(done)))).Round(0).IntPart()
	return &v
}
