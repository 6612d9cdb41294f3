package sqlite

import (
	"fmt"
	"strings"
	"taskreminder/internal/domain/entity"
	"taskreminder/internal/pkg/logger"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB opens the SQLite database at path, verifies its integrity and migrates the schema.
// A database that fails the integrity check is rejected so that startup aborts
// instead of scheduling timers from an inconsistent task set.
func NewDB(path string, log logger.Logger) (*gorm.DB, error) {
	// Configure GORM logger
	newLogger := gormlogger.New(
		logger.Writer{Log: log},
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn(path)), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying *sql.DB: %w", err)
	}
	// A single writer connection serializes commits from timer callbacks and command handlers.
	sqlDB.SetMaxOpenConns(1)

	if err := CheckIntegrity(db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if err := AutoMigrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	log.Info(fmt.Sprintf("Connected to database %s, schema migration completed.", path))
	return db, nil
}

// dsn enables WAL and full synchronous commits so that a successful write survives a crash.
func dsn(path string) string {
	params := "_journal_mode=WAL&_synchronous=FULL&_busy_timeout=5000"
	if strings.Contains(path, "?") {
		return path + "&" + params
	}
	return path + "?" + params
}

// CheckIntegrity runs SQLite's quick_check and fails if the file is corrupt.
func CheckIntegrity(db *gorm.DB) error {
	var result string
	if err := db.Raw("PRAGMA quick_check").Scan(&result).Error; err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database is corrupt: %s", result)
	}
	return nil
}

// AutoMigrate automatically migrates the database schema for the defined entities.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&entity.Task{}); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}
	return nil
}

// CloseDB closes the database connection if it's open.
func CloseDB(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying *sql.DB: %w", err)
	}
	return sqlDB.Close()
}
