package classifiers

import (
	"math"

	"goconform/domain/core"
)

// NearestCentroidClassifier scores each class by the distance from the
// query to the class mean, then softmaxes the negated squared
// distances into probabilities.
type NearestCentroidClassifier struct {
	features  int
	classes   []int
	centroids [][]float64
	fitted    bool
}

// NewNearestCentroidClassifier creates a nearest-centroid classifier
func NewNearestCentroidClassifier() *NearestCentroidClassifier {
	return &NearestCentroidClassifier{}
}

// Fit computes one mean vector per class
func (c *NearestCentroidClassifier) Fit(X [][]float64, y []int) error {
	features, err := validateTraining(X, y)
	if err != nil {
		return err
	}

	classes := uniqueClasses(y)
	position := make(map[int]int, len(classes))
	for i, class := range classes {
		position[class] = i
	}

	centroids := make([][]float64, len(classes))
	counts := make([]int, len(classes))
	for i := range centroids {
		centroids[i] = make([]float64, features)
	}
	for i, row := range X {
		j := position[y[i]]
		counts[j]++
		for f, v := range row {
			centroids[j][f] += v
		}
	}
	for j, centroid := range centroids {
		for f := range centroid {
			centroid[f] /= float64(counts[j])
		}
	}

	c.features = features
	c.classes = classes
	c.centroids = centroids
	c.fitted = true
	return nil
}

// PredictProba softmaxes negated squared centroid distances. Logits
// are shifted by their maximum before exponentiation so distant
// queries cannot underflow every class to zero.
func (c *NearestCentroidClassifier) PredictProba(X [][]float64) ([][]float64, error) {
	if !c.fitted {
		return nil, core.ErrNotFitted
	}

	out := make([][]float64, len(X))
	for i, query := range X {
		if len(query) != c.features {
			return nil, core.NewDimensionError(c.features, len(query))
		}

		logits := make([]float64, len(c.centroids))
		maxLogit := math.Inf(-1)
		for j, centroid := range c.centroids {
			logits[j] = -squaredDistance(query, centroid)
			if logits[j] > maxLogit {
				maxLogit = logits[j]
			}
		}

		probs := make([]float64, len(logits))
		sum := 0.0
		for j, logit := range logits {
			probs[j] = math.Exp(logit - maxLogit)
			sum += probs[j]
		}
		for j := range probs {
			probs[j] /= sum
		}
		out[i] = probs
	}
	return out, nil
}

// Predict returns the label of the nearest centroid. Distance ties
// resolve toward the smaller class label.
func (c *NearestCentroidClassifier) Predict(X [][]float64) ([]int, error) {
	if !c.fitted {
		return nil, core.ErrNotFitted
	}

	labels := make([]int, len(X))
	for i, query := range X {
		if len(query) != c.features {
			return nil, core.NewDimensionError(c.features, len(query))
		}

		best := 0
		bestDist := math.Inf(1)
		for j, centroid := range c.centroids {
			if d := squaredDistance(query, centroid); d < bestDist {
				bestDist = d
				best = j
			}
		}
		labels[i] = c.classes[best]
	}
	return labels, nil
}

// Classes returns the sorted class vocabulary seen during fitting
func (c *NearestCentroidClassifier) Classes() []int {
	return append([]int(nil), c.classes...)
}
