package conformal

// ProbabilisticClassifier is the capability contract consumed by the
// conformal calibrator. Any classifier that can report per-class
// probabilities behind a stable class ordering satisfies it.
type ProbabilisticClassifier interface {
	// Fit trains the classifier on a feature matrix and aligned labels
	Fit(X [][]float64, y []int) error

	// PredictProba returns one row per sample with a probability for
	// every known class, summing to 1 and positionally aligned to Classes
	PredictProba(X [][]float64) ([][]float64, error)

	// Classes returns the ordered class label sequence fixed at fit time
	Classes() []int
}

// LabelPredictor is the optional single-label prediction capability.
// Classifiers that implement it serve Predict directly; others fall
// back to the arg-max class.
type LabelPredictor interface {
	// Predict returns one label per sample
	Predict(X [][]float64) ([]int, error)
}
