package classifiers

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"goconform/domain/core"
)

func centroidTestData() ([][]float64, []int) {
	// Class 0 centroid lands at (0,0), class 1 centroid at (4,0)
	X := [][]float64{{-1, 0}, {1, 0}, {3, 0}, {5, 0}}
	y := []int{0, 0, 1, 1}
	return X, y
}

func TestNearestCentroidClassifier_PredictProba(t *testing.T) {
	clf := NewNearestCentroidClassifier()
	X, y := centroidTestData()
	if err := clf.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	probs, err := clf.PredictProba([][]float64{{0, 0}, {2, 0}})
	if err != nil {
		t.Fatalf("PredictProba failed: %v", err)
	}

	// On the class 0 centroid the softmax should be near-certain
	if probs[0][0] < 0.999 {
		t.Errorf("Expected near-certain class 0 at its centroid, got %f", probs[0][0])
	}

	// Equidistant from both centroids the softmax splits evenly
	if math.Abs(probs[1][0]-0.5) > 1e-12 || math.Abs(probs[1][1]-0.5) > 1e-12 {
		t.Errorf("Expected [0.5 0.5] at the midpoint, got %v", probs[1])
	}

	for i, row := range probs {
		sum := 0.0
		for _, p := range row {
			sum += p
		}
		if math.Abs(sum-1.0) > 1e-12 {
			t.Errorf("Expected row %d to sum to 1, got %f", i, sum)
		}
	}
}

func TestNearestCentroidClassifier_FarQueryStaysFinite(t *testing.T) {
	clf := NewNearestCentroidClassifier()
	X, y := centroidTestData()
	if err := clf.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	// Raw exponentials of squared distances this large underflow;
	// the max-shift must keep the nearest class at probability one.
	probs, err := clf.PredictProba([][]float64{{1000, 0}})
	if err != nil {
		t.Fatalf("PredictProba failed: %v", err)
	}

	sum := 0.0
	for _, p := range probs[0] {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			t.Fatalf("Expected finite probabilities, got %v", probs[0])
		}
		sum += p
	}
	if math.Abs(sum-1.0) > 1e-12 {
		t.Errorf("Expected probabilities to sum to 1, got %f", sum)
	}
	if probs[0][1] < probs[0][0] {
		t.Errorf("Expected the nearer class 1 to dominate, got %v", probs[0])
	}
}

func TestNearestCentroidClassifier_Predict(t *testing.T) {
	clf := NewNearestCentroidClassifier()
	X, y := centroidTestData()
	if err := clf.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	labels, err := clf.Predict([][]float64{{-0.5, 0}, {4.5, 0}, {2, 0}})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	// The midpoint ties and resolves to the smaller label
	if !reflect.DeepEqual(labels, []int{0, 1, 0}) {
		t.Errorf("Expected labels [0 1 0], got %v", labels)
	}
}

func TestNearestCentroidClassifier_NoncontiguousLabels(t *testing.T) {
	clf := NewNearestCentroidClassifier()
	X := [][]float64{{0, 0}, {0, 2}, {10, 0}, {10, 2}}
	y := []int{3, 3, 9, 9}
	if err := clf.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if !reflect.DeepEqual(clf.Classes(), []int{3, 9}) {
		t.Errorf("Expected classes [3 9], got %v", clf.Classes())
	}

	labels, err := clf.Predict([][]float64{{0, 1}, {10, 1}})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if !reflect.DeepEqual(labels, []int{3, 9}) {
		t.Errorf("Expected labels [3 9], got %v", labels)
	}
}

func TestNearestCentroidClassifier_Errors(t *testing.T) {
	t.Run("predict before fit", func(t *testing.T) {
		clf := NewNearestCentroidClassifier()
		if _, err := clf.PredictProba([][]float64{{0, 0}}); !errors.Is(err, core.ErrNotFitted) {
			t.Errorf("Expected ErrNotFitted, got %v", err)
		}
		if _, err := clf.Predict([][]float64{{0, 0}}); !errors.Is(err, core.ErrNotFitted) {
			t.Errorf("Expected ErrNotFitted, got %v", err)
		}
	})

	t.Run("empty training set", func(t *testing.T) {
		clf := NewNearestCentroidClassifier()
		if err := clf.Fit(nil, nil); !errors.Is(err, core.ErrInvalidConfiguration) {
			t.Errorf("Expected ErrInvalidConfiguration, got %v", err)
		}
	})

	t.Run("query width mismatch", func(t *testing.T) {
		clf := NewNearestCentroidClassifier()
		X, y := centroidTestData()
		if err := clf.Fit(X, y); err != nil {
			t.Fatalf("Fit failed: %v", err)
		}
		if _, err := clf.Predict([][]float64{{0}}); !errors.Is(err, core.ErrDimensionMismatch) {
			t.Errorf("Expected ErrDimensionMismatch, got %v", err)
		}
	})
}
