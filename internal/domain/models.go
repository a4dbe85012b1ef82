// Package domain defines the persistence models for job applications, their
// notes and status history, and the users of the tracker. These types are
// mapped with GORM and serialised directly as the API's JSON payloads.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Application is one tracked job application and the aggregate root of the
// domain. Notes and status history rows reference it by ID and are removed
// with it (ON DELETE CASCADE).
//
// Fields:
//   - ID: autoincrement primary key, never reused (SQLite AUTOINCREMENT).
//   - Company / Role: required, trimmed.
//   - Status: current pipeline stage (see Status).
//   - Link: optional posting URL.
//   - SalaryMin / SalaryMax: optional bounds; SalaryMin <= SalaryMax when both set.
//   - Tags: free-text labels stored as a JSON array.
//   - Rating: optional 1..5.
//   - FinalizedAt: when the application last entered a terminal status.
//   - CreatedAt / UpdatedAt: managed by the service layer.
type Application struct {
	ID          uint                        `json:"id"                    gorm:"primaryKey;autoIncrement"`
	Company     string                      `json:"company"               gorm:"type:varchar(255);not null"`
	Role        string                      `json:"role"                  gorm:"type:varchar(255);not null"`
	Status      Status                      `json:"status"                gorm:"type:varchar(32);not null;default:'applied';index:idx_app_status;check:status IN ('applied','hr_interview','tech_interview','offer','rejected')"`
	Link        *string                     `json:"link"                  gorm:"type:text"`
	SalaryMin   *int64                      `json:"salaryMin"`
	SalaryMax   *int64                      `json:"salaryMax"`
	Tags        datatypes.JSONSlice[string] `json:"tags"                  gorm:"not null"`
	Rating      *int                        `json:"rating"                gorm:"check:rating IS NULL OR (rating BETWEEN 1 AND 5)"`
	FinalizedAt *time.Time                  `json:"finalizedAt,omitempty"`
	CreatedAt   time.Time                   `json:"createdAt"             gorm:"index:idx_app_created"`
	UpdatedAt   time.Time                   `json:"updatedAt"`
}

// TableName returns the database table name for Application.
func (Application) TableName() string { return "applications" }

// Note is a free-text annotation attached to one application.
type Note struct {
	ID            uint         `json:"id"            gorm:"primaryKey;autoIncrement"`
	ApplicationID uint         `json:"applicationId" gorm:"not null;index:idx_note_app,priority:1"`
	Category      NoteCategory `json:"category"      gorm:"type:varchar(32);not null;default:'general'"`
	Content       string       `json:"content"       gorm:"type:text;not null"`
	CreatedAt     time.Time    `json:"createdAt"     gorm:"index:idx_note_app,priority:2"`

	// Application is the parent; notes are cascade-deleted with it.
	Application *Application `json:"-" gorm:"foreignKey:ApplicationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Note.
func (Note) TableName() string { return "notes" }

// StatusHistory is an immutable record of one status transition. FromStatus
// is nil only for the row written when the application was created.
type StatusHistory struct {
	ID            uint      `json:"id"            gorm:"primaryKey;autoIncrement"`
	ApplicationID uint      `json:"applicationId" gorm:"not null;index:idx_history_app,priority:1"`
	FromStatus    *Status   `json:"fromStatus"    gorm:"type:varchar(32)"`
	ToStatus      Status    `json:"toStatus"      gorm:"type:varchar(32);not null"`
	ChangedAt     time.Time `json:"changedAt"     gorm:"not null;index:idx_history_app,priority:2"`

	Application *Application `json:"-" gorm:"foreignKey:ApplicationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for StatusHistory.
func (StatusHistory) TableName() string { return "status_history" }

// User is an account able to obtain API tokens. The password hash is never
// serialised.
type User struct {
	ID           uint      `json:"id"        gorm:"primaryKey;autoIncrement"`
	Email        string    `json:"email"     gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	PasswordHash string    `json:"-"         gorm:"type:varchar(255);not null"`
	Name         string    `json:"name"      gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// HasSalaryRange reports whether both salary bounds are set.
func (a *Application) HasSalaryRange() bool {
	return a.SalaryMin != nil && a.SalaryMax != nil
}
