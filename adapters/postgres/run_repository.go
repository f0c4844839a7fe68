package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"goconform/domain/core"
	"goconform/domain/run"
)

// RunRepository persists calibration runs in PostgreSQL
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create stores a completed calibration run
func (r *RunRepository) Create(ctx context.Context, record *run.Record) error {
	query := `
		INSERT INTO calibration_runs (
			id, classifier, alpha, quantile_level, threshold, classes,
			calibration_size, seed, dataset, evaluation, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	classesJSON, err := json.Marshal(record.Classes)
	if err != nil {
		return fmt.Errorf("failed to marshal classes: %w", err)
	}
	datasetJSON, err := json.Marshal(record.Dataset)
	if err != nil {
		return fmt.Errorf("failed to marshal dataset info: %w", err)
	}
	evaluationJSON, err := json.Marshal(record.Evaluation)
	if err != nil {
		return fmt.Errorf("failed to marshal evaluation: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		record.ID.String(),
		record.Classifier,
		record.Alpha,
		record.QuantileLevel,
		record.Threshold,
		classesJSON,
		record.CalibrationSize,
		record.Seed,
		datasetJSON,
		evaluationJSON,
		record.CreatedAt.Time(),
	)

	if err != nil {
		return fmt.Errorf("failed to create calibration run: %w", err)
	}

	return nil
}

// GetByID returns a stored calibration run
func (r *RunRepository) GetByID(ctx context.Context, id core.RunID) (*run.Record, error) {
	query := `
		SELECT id, classifier, alpha, quantile_level, threshold, classes,
			   calibration_size, seed, dataset, evaluation, created_at
		FROM calibration_runs
		WHERE id = $1`

	var record run.Record
	var idStr string
	var classesJSON, datasetJSON, evaluationJSON []byte
	var createdAt time.Time

	err := r.db.QueryRowContext(ctx, query, id.String()).Scan(
		&idStr,
		&record.Classifier,
		&record.Alpha,
		&record.QuantileLevel,
		&record.Threshold,
		&classesJSON,
		&record.CalibrationSize,
		&record.Seed,
		&datasetJSON,
		&evaluationJSON,
		&createdAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to get calibration run: %w", err)
	}

	record.ID = core.RunID(idStr)
	record.CreatedAt = core.NewTimestamp(createdAt)
	if err := json.Unmarshal(classesJSON, &record.Classes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal classes: %w", err)
	}
	if err := json.Unmarshal(datasetJSON, &record.Dataset); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dataset info: %w", err)
	}
	if err := json.Unmarshal(evaluationJSON, &record.Evaluation); err != nil {
		return nil, fmt.Errorf("failed to unmarshal evaluation: %w", err)
	}

	return &record, nil
}

// List returns stored runs newest first
func (r *RunRepository) List(ctx context.Context, limit, offset int) ([]*run.Record, error) {
	query := `
		SELECT id, classifier, alpha, quantile_level, threshold, classes,
			   calibration_size, seed, dataset, evaluation, created_at
		FROM calibration_runs
		ORDER BY created_at DESC, id DESC`

	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+` LIMIT $1 OFFSET $2`, limit, offset)
	} else {
		rows, err = r.db.QueryContext(ctx, query+` OFFSET $1`, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query calibration runs: %w", err)
	}
	defer rows.Close()

	var records []*run.Record
	for rows.Next() {
		var record run.Record
		var idStr string
		var classesJSON, datasetJSON, evaluationJSON []byte
		var createdAt time.Time

		err := rows.Scan(
			&idStr,
			&record.Classifier,
			&record.Alpha,
			&record.QuantileLevel,
			&record.Threshold,
			&classesJSON,
			&record.CalibrationSize,
			&record.Seed,
			&datasetJSON,
			&evaluationJSON,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan calibration run: %w", err)
		}

		record.ID = core.RunID(idStr)
		record.CreatedAt = core.NewTimestamp(createdAt)
		if err := json.Unmarshal(classesJSON, &record.Classes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal classes: %w", err)
		}
		if err := json.Unmarshal(datasetJSON, &record.Dataset); err != nil {
			return nil, fmt.Errorf("failed to unmarshal dataset info: %w", err)
		}
		if err := json.Unmarshal(evaluationJSON, &record.Evaluation); err != nil {
			return nil, fmt.Errorf("failed to unmarshal evaluation: %w", err)
		}

		records = append(records, &record)
	}

	return records, rows.Err()
}

// Delete removes a stored calibration run
func (r *RunRepository) Delete(ctx context.Context, id core.RunID) error {
	query := `DELETE FROM calibration_runs WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete calibration run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}

	return nil
}
