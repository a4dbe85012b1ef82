package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Status is the stage an application has reached in the hiring pipeline.
// It is a closed set; Valid reports membership and every switch over Status
// in this module enumerates all five values.
type Status string

const (
	StatusApplied       Status = "applied"
	StatusHRInterview   Status = "hr_interview"
	StatusTechInterview Status = "tech_interview"
	StatusOffer         Status = "offer"
	StatusRejected      Status = "rejected"
)

// Statuses lists every status in pipeline order.
var Statuses = []Status{
	StatusApplied,
	StatusHRInterview,
	StatusTechInterview,
	StatusOffer,
	StatusRejected,
}

// DefaultStatus is assigned when a create request omits the status.
const DefaultStatus = StatusApplied

// ParseStatus converts a wire value into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.TrimSpace(s))
	if !st.Valid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

// Valid reports whether s is one of the five known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusApplied, StatusHRInterview, StatusTechInterview, StatusOffer, StatusRejected:
		return true
	default:
		return false
	}
}

// Terminal reports whether s ends the recruitment process.
func (s Status) Terminal() bool {
	switch s {
	case StatusOffer, StatusRejected:
		return true
	case StatusApplied, StatusHRInterview, StatusTechInterview:
		return false
	default:
		return false
	}
}

// InProgress reports whether s is one of the interview stages.
func (s Status) InProgress() bool {
	switch s {
	case StatusHRInterview, StatusTechInterview:
		return true
	case StatusApplied, StatusOffer, StatusRejected:
		return false
	default:
		return false
	}
}

func (s Status) String() string { return string(s) }

// Value implements driver.Valuer.
func (s Status) Value() (driver.Value, error) { return string(s), nil }

// Scan implements sql.Scanner.
func (s *Status) Scan(src any) error {
	switch v := src.(type) {
	case string:
		*s = Status(v)
	case []byte:
		*s = Status(v)
	case nil:
		*s = ""
	default:
		return fmt.Errorf("cannot scan %T into Status", src)
	}
	return nil
}

// NoteCategory classifies a note.
type NoteCategory string

const (
	NoteGeneral       NoteCategory = "general"
	NoteTechnical     NoteCategory = "technical"
	NoteCompany       NoteCategory = "company"
	NoteInterviewPrep NoteCategory = "interview_prep"
	NoteFollowup      NoteCategory = "followup"
)

// NoteCategories lists every note category.
var NoteCategories = []NoteCategory{
	NoteGeneral,
	NoteTechnical,
	NoteCompany,
	NoteInterviewPrep,
	NoteFollowup,
}

// DefaultNoteCategory is assigned when a note is created without a category.
const DefaultNoteCategory = NoteGeneral

// Valid reports whether c is a known category.
func (c NoteCategory) Valid() bool {
	switch c {
	case NoteGeneral, NoteTechnical, NoteCompany, NoteInterviewPrep, NoteFollowup:
		return true
	default:
		return false
	}
}

func (c NoteCategory) String() string { return string(c) }

// Value implements driver.Valuer.
func (c NoteCategory) Value() (driver.Value, error) { return string(c), nil }

// Scan implements sql.Scanner.
func (c *NoteCategory) Scan(src any) error {
	switch v := src.(type) {
	case string:
		*c = NoteCategory(v)
	case []byte:
		*c = NoteCategory(v)
	case nil:
		*c = ""
	default:
		return fmt.Errorf("cannot scan %T into NoteCategory", src)
	}
	return nil
}
