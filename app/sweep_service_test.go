package app

import (
	"context"
	"errors"
	"sort"
	"testing"

	"goconform/adapters/classifiers"
	"goconform/adapters/synth"
	"goconform/domain/core"
	"goconform/internal/testkit"
)

func smallSweepRequest(alphas []float64) SweepRequest {
	return SweepRequest{
		Alphas:     alphas,
		Classifier: classifiers.CentroidName,
		Neighbors:  10,
		Seed:       42,
		Dataset: synth.BlobsConfig{
			Samples:    400,
			Features:   2,
			Classes:    3,
			Spread:     1.0,
			Separation: 6.0,
		},
		Split: synth.DefaultSplitConfig(),
	}
}

func TestSweepService_Run(t *testing.T) {
	kit := testkit.NewTestKit()
	service := NewSweepService(kit.RNGAdapter(), 2, nil)

	alphas := []float64{0.2, 0.05, 0.1, 0.01}
	outcome, err := service.Run(context.Background(), smallSweepRequest(alphas))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(outcome.Points) != len(alphas) {
		t.Fatalf("Expected %d points, got %d", len(alphas), len(outcome.Points))
	}
	if !sort.SliceIsSorted(outcome.Points, func(a, b int) bool {
		return outcome.Points[a].Alpha < outcome.Points[b].Alpha
	}) {
		t.Error("Points not sorted by ascending alpha")
	}

	// Demanding higher coverage (smaller alpha) never decreases the
	// threshold, and thus never shrinks sets
	for i := 1; i < len(outcome.Points); i++ {
		prev, curr := outcome.Points[i-1], outcome.Points[i]
		if prev.Threshold < curr.Threshold {
			t.Errorf("Threshold rose with alpha: %f@%.3f -> %f@%.3f",
				prev.Threshold, prev.Alpha, curr.Threshold, curr.Alpha)
		}
		if prev.AvgSetSize < curr.AvgSetSize {
			t.Errorf("Avg set size rose with alpha: %f@%.3f -> %f@%.3f",
				prev.AvgSetSize, prev.Alpha, curr.AvgSetSize, curr.Alpha)
		}
	}

	for _, point := range outcome.Points {
		if point.Threshold < 0 || point.Threshold > 1 {
			t.Errorf("Threshold %f at alpha %.3f outside [0,1]", point.Threshold, point.Alpha)
		}
		if point.TargetCoverage != 1-point.Alpha {
			t.Errorf("Target coverage %f at alpha %.3f", point.TargetCoverage, point.Alpha)
		}
	}
}

func TestSweepService_Determinism(t *testing.T) {
	ctx := context.Background()
	req := smallSweepRequest([]float64{0.05, 0.1})

	kit := testkit.NewTestKit()
	// Serial and parallel execution must agree: every alpha runs on
	// the same shared split
	serial := NewSweepService(kit.RNGAdapter(), 1, nil)
	parallel := NewSweepService(kit.RNGAdapter(), 4, nil)

	first, err := serial.Run(ctx, req)
	if err != nil {
		t.Fatalf("serial Run failed: %v", err)
	}
	second, err := parallel.Run(ctx, req)
	if err != nil {
		t.Fatalf("parallel Run failed: %v", err)
	}

	for i := range first.Points {
		a, b := first.Points[i], second.Points[i]
		if a.Threshold != b.Threshold || a.EmpiricalCoverage != b.EmpiricalCoverage {
			t.Errorf("Point %d differs: %+v vs %+v", i, a, b)
		}
	}
}

func TestSweepService_InvalidRequests(t *testing.T) {
	kit := testkit.NewTestKit()
	service := NewSweepService(kit.RNGAdapter(), 2, nil)

	if _, err := service.Run(context.Background(), smallSweepRequest(nil)); !errors.Is(err, core.ErrInvalidConfiguration) {
		t.Errorf("Expected ErrInvalidConfiguration for empty grid, got %v", err)
	}
	if _, err := service.Run(context.Background(), smallSweepRequest([]float64{0.1, 1.2})); !errors.Is(err, core.ErrInvalidConfiguration) {
		t.Errorf("Expected ErrInvalidConfiguration for alpha out of range, got %v", err)
	}
}

func TestSweepService_Cancellation(t *testing.T) {
	kit := testkit.NewTestKit()
	service := NewSweepService(kit.RNGAdapter(), 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := service.Run(ctx, smallSweepRequest([]float64{0.05, 0.1})); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
