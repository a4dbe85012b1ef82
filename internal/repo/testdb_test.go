package repo

import (
	"testing"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-job-tracker/internal/domain"
)

// newRepoDB returns a fresh in-memory database with the given models migrated.
func newRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(MemoryPath, WithLogLevel(logger.Silent))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	}
	return db
}

func allModels() []any { return Models() }

func mustApp(t *testing.T, db *gorm.DB, company string, status domain.Status, created time.Time) *domain.Application {
	t.Helper()
	a := &domain.Application{Company: company, Role: "Engineer", Status: status, CreatedAt: created, UpdatedAt: created}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("seed %s: %v", company, err)
	}
	return a
}
