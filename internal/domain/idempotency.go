package domain

import "time"

// Idempotency records the outcome of a create request carrying an
// Idempotency-Key, keyed by (scope, key). Scope is the caller identity when
// one is known and "anonymous" otherwise. A live record makes a repeated
// request return the originally created application instead of inserting a
// second one.
type Idempotency struct {
	ID            string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Scope         string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_idem_scope_key,priority:1"`
	Key           string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_idem_scope_key,priority:2"`
	ApplicationID uint      `gorm:"not null;index"`
	Status        int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt     time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt     time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }

// Expired reports whether the record is no longer usable at now.
func (i *Idempotency) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}
