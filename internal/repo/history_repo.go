package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-job-tracker/internal/domain"
)

// AppendHistory records a transition of application applicationID from
// `from` (nil for the creation entry) to `to`. History rows are append-only;
// nothing in this package updates or deletes them directly.
func AppendHistory(ctx context.Context, db *gorm.DB, applicationID uint, from *domain.Status, to domain.Status, at time.Time) (*domain.StatusHistory, error) {
	h := &domain.StatusHistory{
		ApplicationID: applicationID,
		FromStatus:    from,
		ToStatus:      to,
		ChangedAt:     at,
	}
	if err := db.WithContext(ctx).Create(h).Error; err != nil {
		return nil, err
	}
	return h, nil
}

// ListHistory returns the history of one application, newest first.
func ListHistory(ctx context.Context, db *gorm.DB, applicationID uint) ([]domain.StatusHistory, error) {
	out := []domain.StatusHistory{}
	err := db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("changed_at desc").
		Order("id desc").
		Find(&out).Error
	return out, err
}
