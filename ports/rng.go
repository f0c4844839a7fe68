package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// SeededStream creates a deterministic random number generator for a named operation
	SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error)

	// Stream derives an independent generator for one component of a run.
	// Identical run/component/seed inputs must reproduce identical draws.
	Stream(ctx context.Context, runID, component string, baseSeed int64) (*rand.Rand, error)
}
