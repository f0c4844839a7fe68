package classifiers

import (
	"sort"

	"goconform/domain/core"
)

// KNNClassifier predicts class probabilities from neighbor vote
// fractions. Ties on distance resolve by training order, so repeated
// fits on the same data produce identical probabilities.
type KNNClassifier struct {
	k        int
	features int
	trainX   [][]float64
	trainY   []int
	classes  []int
	position map[int]int
	fitted   bool
}

// NewKNNClassifier creates a k-nearest-neighbor classifier
func NewKNNClassifier(k int) *KNNClassifier {
	return &KNNClassifier{k: k}
}

// Fit memorizes the training set and derives the class vocabulary
func (c *KNNClassifier) Fit(X [][]float64, y []int) error {
	if c.k < 1 {
		return core.NewConfigurationError("k", "must be at least 1")
	}
	features, err := validateTraining(X, y)
	if err != nil {
		return err
	}

	trainX := make([][]float64, len(X))
	for i, row := range X {
		trainX[i] = append([]float64(nil), row...)
	}
	trainY := append([]int(nil), y...)

	classes := uniqueClasses(y)
	position := make(map[int]int, len(classes))
	for i, class := range classes {
		position[class] = i
	}

	c.features = features
	c.trainX = trainX
	c.trainY = trainY
	c.classes = classes
	c.position = position
	c.fitted = true
	return nil
}

// PredictProba returns neighbor vote fractions per class, ordered by
// the sorted class vocabulary. Rows always sum to one.
func (c *KNNClassifier) PredictProba(X [][]float64) ([][]float64, error) {
	if !c.fitted {
		return nil, core.ErrNotFitted
	}

	out := make([][]float64, len(X))
	for i, query := range X {
		if len(query) != c.features {
			return nil, core.NewDimensionError(c.features, len(query))
		}

		distances := make([]float64, len(c.trainX))
		order := make([]int, len(c.trainX))
		for j, point := range c.trainX {
			distances[j] = squaredDistance(query, point)
			order[j] = j
		}
		sort.SliceStable(order, func(a, b int) bool {
			return distances[order[a]] < distances[order[b]]
		})

		k := c.k
		if k > len(order) {
			k = len(order)
		}

		votes := make([]float64, len(c.classes))
		for _, idx := range order[:k] {
			votes[c.position[c.trainY[idx]]]++
		}
		for j := range votes {
			votes[j] /= float64(k)
		}
		out[i] = votes
	}
	return out, nil
}

// Predict returns the majority-vote label per query. Vote ties resolve
// toward the smaller class label.
func (c *KNNClassifier) Predict(X [][]float64) ([]int, error) {
	probs, err := c.PredictProba(X)
	if err != nil {
		return nil, err
	}

	labels := make([]int, len(probs))
	for i, row := range probs {
		best := 0
		for j := 1; j < len(row); j++ {
			if row[j] > row[best] {
				best = j
			}
		}
		labels[i] = c.classes[best]
	}
	return labels, nil
}

// Classes returns the sorted class vocabulary seen during fitting
func (c *KNNClassifier) Classes() []int {
	return append([]int(nil), c.classes...)
}
