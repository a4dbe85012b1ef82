package services

import (
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gocarina/gocsv"
	"github.com/samber/lo"

	"github.com/tbourn/go-job-tracker/internal/domain"
)

// Export formats.
const (
	ExportCSV  = "csv"
	ExportJSON = "json"
)

// exportRow is the flat CSV shape of an application.
type exportRow struct {
	ID          uint   `csv:"id"`
	Company     string `csv:"company"`
	Role        string `csv:"role"`
	Status      string `csv:"status"`
	Link        string `csv:"link"`
	SalaryMin   string `csv:"salary_min"`
	SalaryMax   string `csv:"salary_max"`
	Tags        string `csv:"tags"`
	Rating      string `csv:"rating"`
	CreatedAt   string `csv:"created_at"`
	UpdatedAt   string `csv:"updated_at"`
	FinalizedAt string `csv:"finalized_at"`
}

// ExportService writes the application list as CSV or JSON.
type ExportService struct {
	Apps ApplicationLister
}

// ContentType returns the MIME type for format.
func ContentType(format string) string {
	if format == ExportCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json; charset=utf-8"
}

// ParseExportFormat validates the format parameter; empty means CSV.
func ParseExportFormat(format string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "", ExportCSV:
		return ExportCSV, nil
	case ExportJSON:
		return ExportJSON, nil
	default:
		return "", invalid("format", "must be csv or json")
	}
}

// Export writes the applications matching status (empty for all) to w in
// the given format, newest first.
func (s *ExportService) Export(ctx context.Context, w io.Writer, format, status string) error {
	format, err := ParseExportFormat(format)
	if err != nil {
		return err
	}
	apps, err := s.Apps.List(ctx, status)
	if err != nil {
		return err
	}

	if format == ExportJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(apps), "encode json export")
	}

	rows := lo.Map(apps, func(a domain.Application, _ int) *exportRow { return toExportRow(a) })
	return errors.Wrap(gocsv.Marshal(rows, w), "encode csv export")
}

func toExportRow(a domain.Application) *exportRow {
	ptr := func(v *int64) string {
		if v == nil {
			return ""
		}
		return strconv.FormatInt(*v, 10)
	}
	r := &exportRow{
		ID:        a.ID,
		Company:   a.Company,
		Role:      a.Role,
		Status:    a.Status.String(),
		Link:      lo.FromPtr(a.Link),
		SalaryMin: ptr(a.SalaryMin),
		SalaryMax: ptr(a.SalaryMax),
		Tags:      strings.Join(a.Tags, ";"),
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: a.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if a.Rating != nil {
		r.Rating = strconv.Itoa(*a.Rating)
	}
	if a.FinalizedAt != nil {
		r.FinalizedAt = a.FinalizedAt.UTC().Format(time.RFC3339)
	}
	return r
}
