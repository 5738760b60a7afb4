package migration

import (
	"context"

	"datapilot/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations. Statements are
// idempotent and valid for both Postgres and SQLite.
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createDatasetsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create datasets table")
	}

	if err := r.createChartsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create charts table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createDatasetsTable(ctx context.Context, db *sqlx.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS datasets (
			id TEXT PRIMARY KEY,
			role_id TEXT NOT NULL,
			file_name TEXT NOT NULL,
			column_names TEXT NOT NULL,
			row_data TEXT NOT NULL,
			cleaned_columns TEXT,
			cleaned_rows TEXT,
			row_count INTEGER NOT NULL DEFAULT 0,
			created_at BIGINT NOT NULL
		)`
	_, err := db.ExecContext(ctx, query)
	return err
}

func (r *MigrationRunner) createChartsTable(ctx context.Context, db *sqlx.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS charts (
			id TEXT PRIMARY KEY,
			role_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`
	_, err := db.ExecContext(ctx, query)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_datasets_role_created ON datasets(role_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_charts_role ON charts(role_id)",
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return err
		}
	}
	return nil
}
