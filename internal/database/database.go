package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Pokatocz/quest-and-check/internal/logging"
	"github.com/Pokatocz/quest-and-check/internal/models"
)

// Connect opens the store named by databaseURL: empty or ":memory:" is an
// in-memory sqlite database, "sqlite:<path>" a sqlite file, anything else a
// postgres DSN.
func Connect(databaseURL string) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	config := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}

	memory := databaseURL == "" || databaseURL == ":memory:"
	switch {
	case memory:
		db, err = gorm.Open(sqlite.Open(":memory:"), config)
	case strings.HasPrefix(databaseURL, "sqlite:"):
		dbPath := strings.TrimPrefix(databaseURL, "sqlite:")
		dbPath = dbPath + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
		db, err = gorm.Open(sqlite.Open(dbPath), config)
	default:
		db, err = gorm.Open(postgres.Open(databaseURL), config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if memory {
		// every pooled connection would otherwise get its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access connection pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	logging.Logger.Info("running database migrations")

	err := db.AutoMigrate(
		&models.Profile{},
		&models.Team{},
		&models.TeamMember{},
		&models.Task{},
		&models.Message{},
		&models.APIToken{},
	)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	logging.Logger.Info("database migrations completed")
	return nil
}
