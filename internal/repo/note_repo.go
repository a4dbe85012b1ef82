package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-job-tracker/internal/domain"
)

// CreateNote inserts n. The parent application must exist; the foreign key
// rejects orphans.
func CreateNote(ctx context.Context, db *gorm.DB, n *domain.Note) (*domain.Note, error) {
	if err := db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

// ListNotes returns the notes of one application, newest first.
func ListNotes(ctx context.Context, db *gorm.DB, applicationID uint) ([]domain.Note, error) {
	out := []domain.Note{}
	err := db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("created_at desc").
		Order("id desc").
		Find(&out).Error
	return out, err
}

// GetNote fetches a note by ID, or ErrNotFound.
func GetNote(ctx context.Context, db *gorm.DB, id uint) (*domain.Note, error) {
	var n domain.Note
	if err := db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// DeleteNote removes note id, or returns ErrNotFound.
func DeleteNote(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Note{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAllNotes returns every note, used to build the search index.
func ListAllNotes(ctx context.Context, db *gorm.DB) ([]domain.Note, error) {
	out := []domain.Note{}
	err := db.WithContext(ctx).Order("id asc").Find(&out).Error
	return out, err
}
