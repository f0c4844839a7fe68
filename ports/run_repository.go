package ports

import (
	"context"

	"goconform/domain/core"
	"goconform/domain/run"
)

// RunRepository defines the interface for calibration run storage
type RunRepository interface {
	Create(ctx context.Context, record *run.Record) error
	GetByID(ctx context.Context, id core.RunID) (*run.Record, error)
	List(ctx context.Context, limit, offset int) ([]*run.Record, error)
	Delete(ctx context.Context, id core.RunID) error
}
