package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lmoretti/birchside/internal/models"
)

// Init opens a GORM connection from a DATABASE_URL-style string. A
// "postgres://" URL connects to PostgreSQL; "sqlite://" opens a local
// SQLite file, which is the default for development.
func Init(databaseURL string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch {
	case strings.HasPrefix(databaseURL, "postgres://"):
		dialector = postgres.Open(databaseURL)
	case strings.HasPrefix(databaseURL, "sqlite://"):
		dialector = sqlite.Open(strings.TrimPrefix(databaseURL, "sqlite://"))
	default:
		return nil, fmt.Errorf("database URL must start with postgres:// or sqlite://, got %q", databaseURL)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return gdb, nil
}

// Migrate applies the schema for all domain models.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(models.All()...)
}
