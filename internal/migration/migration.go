package migration

import (
	"context"
	"fmt"

	"goconform/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
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
	if err := r.createCalibrationRunsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create calibration_runs table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createCalibrationRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS calibration_runs (
			id UUID PRIMARY KEY,
			classifier VARCHAR(50) NOT NULL,
			alpha DOUBLE PRECISION NOT NULL,
			quantile_level DOUBLE PRECISION NOT NULL,
			threshold DOUBLE PRECISION NOT NULL,
			classes JSONB NOT NULL DEFAULT '[]'::jsonb,
			calibration_size INTEGER NOT NULL,
			seed BIGINT NOT NULL,
			dataset JSONB NOT NULL DEFAULT '{}'::jsonb,
			evaluation JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_runs_created_at ON calibration_runs(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_runs_classifier ON calibration_runs(classifier)",
		"CREATE INDEX IF NOT EXISTS idx_runs_alpha ON calibration_runs(alpha)",
	}

	for _, idxSQL := range indexes {
		if _, err := db.ExecContext(ctx, idxSQL); err != nil {
			// Log but don't fail on index creation errors
			fmt.Printf("Warning: failed to create index: %v\n", err)
		}
	}

	return nil
}
