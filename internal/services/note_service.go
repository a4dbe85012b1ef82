// Package services – NoteService
//
// NoteService manages free-text notes attached to applications. It validates
// content and category and checks that the parent application exists so the
// caller gets ErrApplicationNotFound rather than a foreign-key failure.
package services

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gorm.io/gorm"

	"github.com/tbourn/go-job-tracker/internal/domain"
)

// NoteRepo defines the repository contract required by NoteService.
type NoteRepo interface {
	// CreateNote inserts a note row.
	CreateNote(ctx context.Context, db *gorm.DB, n *domain.Note) (*domain.Note, error)

	// ListNotes returns the notes of one application, newest first.
	ListNotes(ctx context.Context, db *gorm.DB, applicationID uint) ([]domain.Note, error)

	// DeleteNote removes a note; gorm.ErrRecordNotFound when absent.
	DeleteNote(ctx context.Context, db *gorm.DB, id uint) error

	// GetApplication fetches the parent application.
	GetApplication(ctx context.Context, db *gorm.DB, id uint) (*domain.Application, error)
}

// NoteService provides note operations.
type NoteService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the note repository used by this service.
	Repo NoteRepo
	// Now is the clock; defaults to time.Now in UTC.
	Now func() time.Time
}

// NewNoteService constructs a NoteService.
func NewNoteService(db *gorm.DB, r NoteRepo) *NoteService {
	return &NoteService{DB: db, Repo: r, Now: func() time.Time { return time.Now().UTC() }}
}

// Create validates in and attaches a note to its application.
func (s *NoteService) Create(ctx context.Context, in domain.NewNote) (*domain.Note, error) {
	in.Content = strings.TrimSpace(in.Content)
	if in.Category == "" {
		in.Category = domain.DefaultNoteCategory
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := s.ensureApplication(ctx, in.ApplicationID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now()
	}
	return s.Repo.CreateNote(ctx, s.DB, &domain.Note{
		ApplicationID: in.ApplicationID,
		Category:      in.Category,
		Content:       in.Content,
		CreatedAt:     now,
	})
}

// List returns the notes of application applicationID, newest first.
func (s *NoteService) List(ctx context.Context, applicationID uint) ([]domain.Note, error) {
	if err := s.ensureApplication(ctx, applicationID); err != nil {
		return nil, err
	}
	return s.Repo.ListNotes(ctx, s.DB, applicationID)
}

// Delete removes note id.
func (s *NoteService) Delete(ctx context.Context, id uint) error {
	err := s.Repo.DeleteNote(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNoteNotFound
	}
	return err
}

func (s *NoteService) ensureApplication(ctx context.Context, id uint) error {
	if _, err := s.Repo.GetApplication(ctx, s.DB, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrApplicationNotFound
		}
		return err
	}
	return nil
}
