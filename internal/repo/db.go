// Package repo implements the data persistence layer for the tracker's domain
// entities, backed by GORM over the pure-Go SQLite driver.
package repo

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-job-tracker/internal/domain"
)

// connPragmas must hold on every pooled connection: cascading deletes of
// notes and history rely on foreign_keys.
var connPragmas = []string{"foreign_keys(1)", "busy_timeout(5000)"}

// dbPragmas are database-wide and only need to run once.
var dbPragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
}

// MemoryPath selects a private in-memory database. It lives as long as the
// returned *gorm.DB is open.
const MemoryPath = ":memory:"

const (
	maxConns        = 10
	connMaxIdleTime = 5 * time.Minute
	connMaxLifetime = 30 * time.Minute
)

type openConfig struct {
	logLevel logger.LogLevel
}

// Option tunes OpenSQLite.
type Option func(*openConfig)

// WithLogLevel sets GORM's own logger level (default Warn).
func WithLogLevel(l logger.LogLevel) Option {
	return func(o *openConfig) { o.logLevel = l }
}

// OpenSQLite opens (or creates) the tracker database at path, or a private
// in-memory one for MemoryPath. Statements are traced as children of the
// request span via the GORM OpenTelemetry plugin.
func OpenSQLite(path string, opts ...Option) (*gorm.DB, error) {
	oc := openConfig{logLevel: logger.Warn}
	for _, o := range opts {
		o(&oc)
	}

	memory := path == MemoryPath
	dsn := path
	switch {
	case memory:
		// every pooled connection must see the same database
		dsn = "file:tracker_" + uuid.NewString() + "?mode=memory&cache=shared"
	case !strings.HasPrefix(path, "file:"):
		// sqlite reports a missing directory as "out of memory (14)"
		if dir := filepath.Dir(path); dir != "." {
			if _, err := os.Stat(dir); err != nil {
				return nil, errors.Wrapf(err, "database directory %s", dir)
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(WithPragmas(dsn)), &gorm.Config{
		Logger: logger.Default.LogMode(oc.logLevel),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, errors.Wrap(err, "gorm tracing plugin")
	}
	if !memory {
		for _, p := range dbPragmas {
			if err := db.Exec(p).Error; err != nil {
				return nil, errors.Wrapf(err, "%s", p)
			}
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "sql handle")
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(maxConns)
	if !memory {
		// the last closed connection drops a memory database
		sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
		sqlDB.SetConnMaxLifetime(connMaxLifetime)
	}
	return db, nil
}

// WithPragmas appends the per-connection pragmas to a SQLite DSN.
func WithPragmas(dsn string) string {
	var b strings.Builder
	b.WriteString(dsn)
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	for _, p := range connPragmas {
		b.WriteString(sep + "_pragma=" + p)
		sep = "&"
	}
	return b.String()
}

// Models lists every persisted type in dependency order.
func Models() []any {
	return []any{
		&domain.Application{},
		&domain.Note{},
		&domain.StatusHistory{},
		&domain.User{},
		&domain.Idempotency{},
	}
}

// AutoMigrate creates or updates every table the tracker uses.
func AutoMigrate(db *gorm.DB) error {
	return errors.Wrap(db.AutoMigrate(Models()...), "auto migrate")
}

// isUniqueViolation recognises UNIQUE failures; glebarez/sqlite often returns
// plain-text errors rather than gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}
