// Package database manages the Postgres and Redis connections.
package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/finsig/sentimentd/aggregator"
	"github.com/finsig/sentimentd/config"
	"github.com/finsig/sentimentd/news"
	"github.com/finsig/sentimentd/sentiment"
	"github.com/finsig/sentimentd/shared/zaplogger"
)

// ConnectPostgres connects to Postgres, runs migrations and verifies the
// tables exist.
func ConnectPostgres(cfg *config.Config) (*gorm.DB, error) {
	logLevel := getGormLogLevel(cfg.PostgresLogLevel)

	db, err := gorm.Open(postgres.Open(cfg.PostgresDsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	zaplogger.Info("Connected to Postgres")

	if err := autoMigrate(db); err != nil {
		return nil, err
	}

	if err := verifyTables(db); err != nil {
		return nil, err
	}

	return db, nil
}

func getGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "warn":
		return gormlogger.Warn
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

func autoMigrate(db *gorm.DB) error {
	models := []interface{}{
		&news.Article{},
		&sentiment.MinuteRow{},
		&sentiment.SecondSnapshot{},
		&aggregator.TickCandle100{},
	}

	for _, model := range models {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	return nil
}

func verifyTables(db *gorm.DB) error {
	tables := []string{
		news.ArticlesTableName,
		sentiment.MinuteRowsTableName,
		sentiment.SecondSnapshotsTableName,
		aggregator.TickCandlesTableName,
	}

	zaplogger.Info("Verifying tables:")
	for _, table := range tables {
		if !db.Migrator().HasTable(table) {
			return fmt.Errorf("table %s does not exist", table)
		}
		zaplogger.Info("    - " + table + " ✔")
	}

	return nil
}
