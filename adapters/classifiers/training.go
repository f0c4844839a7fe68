package classifiers

import (
	"sort"

	"goconform/domain/core"
)

// validateTraining checks a training design matrix and returns its width
func validateTraining(X [][]float64, y []int) (int, error) {
	if len(X) == 0 {
		return 0, core.NewConfigurationError("training set", "cannot be empty")
	}
	if len(X) != len(y) {
		return 0, core.NewConfigurationError("training set", "features and labels must be the same length")
	}
	features := len(X[0])
	if features == 0 {
		return 0, core.NewConfigurationError("training set", "samples must have at least one feature")
	}
	for _, row := range X {
		if len(row) != features {
			return 0, core.NewDimensionError(features, len(row))
		}
	}
	return features, nil
}

// uniqueClasses returns the sorted distinct labels in y
func uniqueClasses(y []int) []int {
	seen := make(map[int]bool)
	classes := make([]int, 0)
	for _, label := range y {
		if !seen[label] {
			seen[label] = true
			classes = append(classes, label)
		}
	}
	sort.Ints(classes)
	return classes
}

// squaredDistance computes the squared Euclidean distance between two
// points. Ranking by squared distance matches ranking by distance, so
// the square root is never taken.
func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
