// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-job-tracker/internal/domain"
)

// ApplicationsStats returns the number of applications (optionally restricted
// to one status) and the greatest UpdatedAt among them. When no rows match,
// count is 0 and maxUpdatedAt is nil.
func ApplicationsStats(ctx context.Context, db *gorm.DB, status *domain.Status) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Application{})
	if status != nil {
		q = q.Where("status = ?", *status)
	}

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// MaxApplicationID returns the highest id currently stored, or 0.
func MaxApplicationID(ctx context.Context, db *gorm.DB) (uint, error) {
	var row struct{ ID uint }
	err := db.WithContext(ctx).Model(&domain.Application{}).
		Select("id").Order("id DESC").Limit(1).Scan(&row).Error
	return row.ID, err
}
