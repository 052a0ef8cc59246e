// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver) and schema migrations.
package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-form-guard/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound so callers can use either.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates a unique-key collision on insert.
var ErrDuplicate = errors.New("duplicate")

// SlowQueryThreshold is the duration above which queries are logged.
const SlowQueryThreshold = 200 * time.Millisecond

type sqliteOptions struct {
	maxOpen     int
	busyTimeout time.Duration
	log         *zerolog.Logger
}

// SQLiteOption tunes OpenSQLite.
type SQLiteOption func(*sqliteOptions)

// WithMaxOpenConns caps the pool. Auto-block counting and the detection log
// write from request goroutines, so a small pool serialises them cleanly.
func WithMaxOpenConns(n int) SQLiteOption {
	return func(o *sqliteOptions) {
		if n > 0 {
			o.maxOpen = n
		}
	}
}

// WithBusyTimeout sets how long a writer waits on a locked database.
func WithBusyTimeout(d time.Duration) SQLiteOption {
	return func(o *sqliteOptions) {
		if d > 0 {
			o.busyTimeout = d
		}
	}
}

// WithLogger routes slow queries and SQL errors to l.
func WithLogger(l zerolog.Logger) SQLiteOption {
	return func(o *sqliteOptions) { o.log = &l }
}

// OpenSQLite opens (or creates) a SQLite database, applies PRAGMAs and
// installs the OpenTelemetry tracing plugin.
func OpenSQLite(path string, opts ...SQLiteOption) (*gorm.DB, error) {
	o := sqliteOptions{maxOpen: 10, busyTimeout: 5 * time.Second}
	for _, fn := range opts {
		fn(&o)
	}

	// A missing parent directory otherwise surfaces as "out of memory (14)".
	if !strings.HasPrefix(path, "file:") {
		if dir := filepath.Dir(path); dir != "." {
			if _, err := os.Stat(dir); err != nil {
				return nil, err
			}
		}
	}

	gcfg := &gorm.Config{Logger: logger.Discard}
	if o.log != nil {
		gcfg.Logger = logger.New(gormWriter{*o.log}, logger.Config{
			SlowThreshold:             SlowQueryThreshold,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(sqlite.Open(path), gcfg)
	if err != nil {
		return nil, err
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		fmt.Sprintf("PRAGMA busy_timeout=%d;", o.busyTimeout.Milliseconds()),
	} {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("sqlite %s: %w", strings.TrimSuffix(pragma, ";"), err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(o.maxOpen)
	sqlDB.SetMaxIdleConns(o.maxOpen)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// gormWriter emits GORM's slow-query and error lines as zerolog warnings.
type gormWriter struct{ l zerolog.Logger }

func (w gormWriter) Printf(format string, args ...any) {
	w.l.Warn().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// AutoMigrate creates or updates every table the service owns.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.BlockEntry{},
		&domain.Detection{},
		&domain.DetectionHit{},
		&domain.Setting{},
		&domain.IntentToken{},
	)
}

// isDuplicate reports whether err is a unique-constraint violation.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	low := strings.ToLower(err.Error())
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}
