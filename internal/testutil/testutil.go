package testutil

import (
	"database/sql"
	"testing"

	"github.com/pratik-mahalle/iamgen/internal/config"
	"github.com/pratik-mahalle/iamgen/internal/pkg/logger"
	"github.com/pratik-mahalle/iamgen/internal/repository/postgres"
	"github.com/pratik-mahalle/iamgen/migrations"
)

// NewTestDB creates an in-memory SQLite database with the store schema applied
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := postgres.New(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	if _, err := postgres.RunMigrations(db, migrations.GetFS()); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// NewTestLogger returns a logger that only reports errors
func NewTestLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}
