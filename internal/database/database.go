// Package database stores encoded songs, vocabularies and run records in Postgres.
package database

import (
	"fmt"

	"github.com/Conceptual-Machines/melody-dataset/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect opens a Postgres connection
func Connect(databaseURL string) (*gorm.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the pipeline tables
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.PipelineRun{},
		&models.EncodedSong{},
		&models.VocabularyEntry{},
	)
}
