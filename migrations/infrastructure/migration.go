package infrastructure

import (
	"database/sql"
	"fmt"
	"log"
)

// MigrationsSchema bootstraps the ledger that records which migrations have
// already been applied. It must run before any other migration.
type MigrationsSchema struct{}

func (m *MigrationsSchema) UpMigration(db *sql.DB) error {
	query := `
	CREATE SCHEMA IF NOT EXISTS migrations;

	CREATE TABLE IF NOT EXISTS migrations.migrations (
		name VARCHAR(255) PRIMARY KEY,
		time TIMESTAMP NOT NULL
	);`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create migrations schema: %w", err)
	}
	return nil
}

// CheckAndSkipMigration reports whether a named migration already ran.
func CheckAndSkipMigration(db *sql.DB, migrationName string) (bool, error) {
	var migrationExists bool
	err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM migrations.migrations WHERE name = $1)", migrationName).Scan(&migrationExists)
	if err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}
	if migrationExists {
		log.Printf("Migration '%s' already completed. Skipping.", migrationName)
	}
	return migrationExists, nil
}

// ExecuteAndMarkMigration runs a migration query and records it in the ledger.
func ExecuteAndMarkMigration(db *sql.DB, query string, migrationName string) error {
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to execute migration '%s': %w", migrationName, err)
	}
	if _, err := db.Exec("INSERT INTO migrations.migrations (name, time) VALUES ($1, current_timestamp)", migrationName); err != nil {
		return fmt.Errorf("failed to mark migration '%s' as complete: %w", migrationName, err)
	}
	return nil
}
