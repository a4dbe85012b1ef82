// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Application model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only persistence
// and query composition. Validation and history bookkeeping belong to
// services.ApplicationService.
//
// Error semantics:
//   - When an application is not found, functions return ErrNotFound
//     (an alias of gorm.ErrRecordNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-job-tracker/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateApplication inserts a. The caller assigns timestamps; ID is filled
// in from the autoincrement sequence.
func CreateApplication(ctx context.Context, db *gorm.DB, a *domain.Application) (*domain.Application, error) {
	if a.Tags == nil {
		a.Tags = []string{}
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// GetApplication fetches a single application by ID, or ErrNotFound.
func GetApplication(ctx context.Context, db *gorm.DB, id uint) (*domain.Application, error) {
	var a domain.Application
	if err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// ListApplications returns applications newest first (created_at desc, then
// id desc so rows created within the same clock tick keep insertion order).
// A nil status returns every row.
func ListApplications(ctx context.Context, db *gorm.DB, status *domain.Status) ([]domain.Application, error) {
	out := []domain.Application{}
	q := db.WithContext(ctx).Model(&domain.Application{})
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	err := q.Order("created_at desc").Order("id desc").Find(&out).Error
	return out, err
}

// UpdateApplication writes the given columns of application id. Nil map
// values store SQL NULL. Returns ErrNotFound when no row matched.
func UpdateApplication(ctx context.Context, db *gorm.DB, id uint, fields map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Application{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteApplication removes application id. Notes and status history go with
// it through ON DELETE CASCADE. Returns ErrNotFound when nothing was deleted.
func DeleteApplication(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Application{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountApplications returns the number of stored applications.
func CountApplications(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Application{}).Count(&total).Error
	return total, err
}
