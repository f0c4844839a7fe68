package evaluation

import (
	"errors"
	"math"
	"testing"

	"goconform/domain/conformal"
	"goconform/domain/core"
)

func TestEvaluator_Evaluate(t *testing.T) {
	evaluator := NewEvaluator()

	sets := []conformal.PredictionSet{
		{0},
		{0, 1},
		{},
		{0, 1, 2},
		{1},
	}
	predicted := []int{0, 1, 0, 2, 1}
	actual := []int{0, 1, 1, 2, 1}

	eval, err := evaluator.Evaluate(sets, predicted, actual, 3, 0.1)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if math.Abs(eval.TargetCoverage-0.9) > 1e-12 {
		t.Errorf("Expected target coverage 0.9, got %f", eval.TargetCoverage)
	}
	if math.Abs(eval.EmpiricalCoverage-0.8) > 1e-12 {
		t.Errorf("Expected empirical coverage 0.8, got %f", eval.EmpiricalCoverage)
	}
	if math.Abs(eval.Accuracy-0.8) > 1e-12 {
		t.Errorf("Expected accuracy 0.8, got %f", eval.Accuracy)
	}
	if math.Abs(eval.AvgSetSize-1.4) > 1e-12 {
		t.Errorf("Expected average set size 1.4, got %f", eval.AvgSetSize)
	}
	if math.Abs(eval.MedianSetSize-1.0) > 1e-12 {
		t.Errorf("Expected median set size 1.0, got %f", eval.MedianSetSize)
	}
	if math.Abs(eval.EmptySetRate-0.2) > 1e-12 {
		t.Errorf("Expected empty set rate 0.2, got %f", eval.EmptySetRate)
	}
	if math.Abs(eval.SingletonRate-0.4) > 1e-12 {
		t.Errorf("Expected singleton rate 0.4, got %f", eval.SingletonRate)
	}
	if math.Abs(eval.FullSetRate-0.2) > 1e-12 {
		t.Errorf("Expected full set rate 0.2, got %f", eval.FullSetRate)
	}
	if eval.TestSize != 5 {
		t.Errorf("Expected test size 5, got %d", eval.TestSize)
	}

	wantCounts := map[int]int{0: 1, 1: 2, 2: 1, 3: 1}
	for size, want := range wantCounts {
		if eval.SetSizeCounts[size] != want {
			t.Errorf("Expected %d sets of size %d, got %d", want, size, eval.SetSizeCounts[size])
		}
	}
}

func TestEvaluator_EvaluateValidation(t *testing.T) {
	evaluator := NewEvaluator()

	tests := []struct {
		name      string
		sets      []conformal.PredictionSet
		predicted []int
		actual    []int
	}{
		{"empty input", []conformal.PredictionSet{}, []int{}, []int{}},
		{"short predictions", []conformal.PredictionSet{{0}, {1}}, []int{0}, []int{0, 1}},
		{"short labels", []conformal.PredictionSet{{0}, {1}}, []int{0, 1}, []int{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := evaluator.Evaluate(tt.sets, tt.predicted, tt.actual, 3, 0.1)
			if err == nil {
				t.Fatal("Expected error, got none")
			}
			if !errors.Is(err, core.ErrInvalidConfiguration) {
				t.Errorf("Expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

func TestEvaluator_EvaluatePerfectPredictor(t *testing.T) {
	evaluator := NewEvaluator()

	sets := []conformal.PredictionSet{{0}, {1}, {2}}
	labels := []int{0, 1, 2}

	eval, err := evaluator.Evaluate(sets, labels, labels, 3, 0.05)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if eval.EmpiricalCoverage != 1.0 {
		t.Errorf("Expected full coverage, got %f", eval.EmpiricalCoverage)
	}
	if eval.Accuracy != 1.0 {
		t.Errorf("Expected full accuracy, got %f", eval.Accuracy)
	}
	if eval.SingletonRate != 1.0 {
		t.Errorf("Expected all singletons, got %f", eval.SingletonRate)
	}
	if eval.EmptySetRate != 0 || eval.FullSetRate != 0 {
		t.Errorf("Expected no empty or full sets, got %f and %f", eval.EmptySetRate, eval.FullSetRate)
	}
}
