package testkit

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"goconform/domain/conformal"
	"goconform/domain/core"
	"goconform/domain/run"
	"goconform/ports"
)

// TestKit provides testing utilities and in-process adapters. The
// entrypoints also use it when no database is configured.
type TestKit struct {
	runs *InMemoryRunRepository
}

// NewTestKit creates a new test kit instance
func NewTestKit() *TestKit {
	return &TestKit{runs: NewInMemoryRunRepository()}
}

// RunRepository returns the shared in-memory run repository
func (t *TestKit) RunRepository() ports.RunRepository {
	return t.runs
}

// RNGAdapter returns an RNG adapter
func (t *TestKit) RNGAdapter() ports.RNGPort {
	return &RNGAdapter{}
}

// MakeRecord builds a valid run record fixture
func (t *TestKit) MakeRecord(classifier string, alpha float64) *run.Record {
	summary := conformal.CalibrationSummary{
		Alpha:           alpha,
		QuantileLevel:   conformal.QuantileLevel(200, alpha),
		Threshold:       0.37,
		CalibrationSize: 200,
		Classes:         []int{0, 1, 2},
		ScoreMin:        0.004,
		ScoreMax:        0.93,
	}
	dataset := run.DatasetInfo{
		Source:      "gaussian-blobs",
		Samples:     800,
		Features:    2,
		Classes:     3,
		TrainSize:   400,
		TestSize:    200,
		Fingerprint: core.ComputeDatasetFingerprint("gaussian-blobs", map[string]interface{}{"seed": int64(42)}),
	}
	eval := run.Evaluation{
		TargetCoverage:    1 - alpha,
		EmpiricalCoverage: 1 - alpha + 0.005,
		Accuracy:          0.88,
		AvgSetSize:        1.3,
		MedianSetSize:     1,
		SingletonRate:     0.74,
		TestSize:          200,
		SetSizeCounts:     map[int]int{1: 148, 2: 48, 3: 4},
	}
	return run.NewRecord(classifier, dataset, summary, 42, eval)
}

// RNGAdapter implements the RNGPort interface with hash-derived seeds
type RNGAdapter struct{}

// SeededStream creates a deterministic random number generator for a named operation
func (r *RNGAdapter) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	return rand.New(rand.NewSource(seed)), nil
}

// Stream derives an independent generator for one component of a run.
// The seed mixes runID and component so identical inputs reproduce
// identical draws regardless of scheduling.
func (r *RNGAdapter) Stream(ctx context.Context, runID, component string, baseSeed int64) (*rand.Rand, error) {
	seed := baseSeed
	if runID != "" {
		seed += int64(hashString(runID))
	}
	if component != "" {
		seed += int64(hashString(component))
	}
	return rand.New(rand.NewSource(seed)), nil
}

// hashString creates a simple hash for deterministic seeding
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c) // djb2 algorithm
	}
	return hash
}

// InMemoryRunRepository implements ports.RunRepository with map storage
type InMemoryRunRepository struct {
	mu    sync.RWMutex
	runs  map[core.RunID]run.Record
	order []core.RunID
}

// NewInMemoryRunRepository creates an empty in-memory repository
func NewInMemoryRunRepository() *InMemoryRunRepository {
	return &InMemoryRunRepository{
		runs: make(map[core.RunID]run.Record),
	}
}

// Create stores a run record, rejecting duplicate IDs
func (s *InMemoryRunRepository) Create(ctx context.Context, record *run.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[record.ID]; exists {
		return fmt.Errorf("failed to create calibration run: duplicate id %s", record.ID)
	}
	s.runs[record.ID] = *record
	s.order = append(s.order, record.ID)
	return nil
}

// GetByID returns a stored run record by ID
func (s *InMemoryRunRepository) GetByID(ctx context.Context, id core.RunID) (*run.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.runs[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}
	out := record
	return &out, nil
}

// List returns stored runs newest first
func (s *InMemoryRunRepository) List(ctx context.Context, limit, offset int) ([]*run.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*run.Record, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		record := s.runs[s.order[i]]
		out := record
		records = append(records, &out)
	}

	if offset > len(records) {
		offset = len(records)
	}
	records = records[offset:]
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records, nil
}

// Delete removes a stored run record
func (s *InMemoryRunRepository) Delete(ctx context.Context, id core.RunID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[id]; !exists {
		return fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}
	delete(s.runs, id)
	for i, stored := range s.order {
		if stored == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
