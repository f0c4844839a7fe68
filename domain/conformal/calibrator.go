package conformal

import (
	"fmt"
	"sort"
	"sync"

	"goconform/domain/core"
)

// SplitCalibrator wraps a probabilistic classifier with split conformal
// calibration. A held-out calibration set fixes a nonconformity
// threshold at the finite-sample corrected quantile level, and
// prediction sets then admit every class whose predicted probability
// clears 1 - threshold. Under exchangeability of calibration and test
// draws the true label lands in the set with probability >= 1 - alpha.
//
// Fit is the single writer; all other methods are read-only and safe
// to call concurrently after a successful Fit.
type SplitCalibrator struct {
	mu         sync.RWMutex
	classifier ProbabilisticClassifier

	alpha         float64
	classes       []int
	scores        []float64 // calibration nonconformity scores, ascending
	quantileLevel float64
	threshold     float64
	fitted        bool
}

// NewSplitCalibrator creates a calibrator around a base classifier.
// The calibrator owns the classifier for its lifetime.
func NewSplitCalibrator(classifier ProbabilisticClassifier) *SplitCalibrator {
	return &SplitCalibrator{classifier: classifier}
}

// Fit trains the wrapped classifier on the training split, scores every
// calibration example with 1 - P(true class), and fixes the threshold
// at the upper empirical quantile of those scores at level
// ceil((n+1)(1-alpha))/(n+1). A successful Fit fully replaces any
// previous fitted state; a failed Fit leaves the calibrator unfitted
// for read-side calls.
func (c *SplitCalibrator) Fit(trainX [][]float64, trainY []int, calX [][]float64, calY []int, alpha float64) error {
	if alpha <= 0 || alpha >= 1 {
		return core.NewConfigurationError("alpha", fmt.Sprintf("must be in (0,1), got %g", alpha))
	}
	if len(calX) == 0 {
		return core.NewConfigurationError("calibration set", "must not be empty")
	}
	if len(calX) != len(calY) {
		return core.NewConfigurationError("calibration set", fmt.Sprintf("has %d feature rows but %d labels", len(calX), len(calY)))
	}
	if len(trainX) != len(trainY) {
		return core.NewConfigurationError("training set", fmt.Sprintf("has %d feature rows but %d labels", len(trainX), len(trainY)))
	}

	if err := c.classifier.Fit(trainX, trainY); err != nil {
		return fmt.Errorf("classifier fit: %w", err)
	}

	classes := append([]int(nil), c.classifier.Classes()...)
	if len(classes) == 0 {
		return core.NewConfigurationError("classifier", "reports no classes after fit")
	}
	position := make(map[int]int, len(classes))
	for i, label := range classes {
		position[label] = i
	}

	probs, err := c.classifier.PredictProba(calX)
	if err != nil {
		return fmt.Errorf("calibration probabilities: %w", err)
	}
	if len(probs) != len(calX) {
		return fmt.Errorf("%w: classifier returned %d probability rows for %d calibration samples",
			core.ErrDimensionMismatch, len(probs), len(calX))
	}

	scores := make([]float64, len(calY))
	for i, label := range calY {
		col, ok := position[label]
		if !ok {
			return core.NewLabelMismatchError(label)
		}
		if len(probs[i]) != len(classes) {
			return fmt.Errorf("%w: probability row has %d entries for %d classes",
				core.ErrDimensionMismatch, len(probs[i]), len(classes))
		}
		scores[i] = 1 - probs[i][col]
	}
	sort.Float64s(scores)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.alpha = alpha
	c.classes = classes
	c.scores = scores
	c.quantileLevel = QuantileLevel(len(scores), alpha)
	c.threshold = scores[UpperQuantileRank(len(scores), alpha)-1]
	c.fitted = true
	return nil
}

// PredictSet returns one prediction set per sample: every class whose
// predicted probability is at least 1 - threshold, in class-sequence
// order. Sets may legitimately be empty.
func (c *SplitCalibrator) PredictSet(X [][]float64) ([]PredictionSet, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.predictSetLocked(X)
}

// predictSetLocked assumes the read lock is held
func (c *SplitCalibrator) predictSetLocked(X [][]float64) ([]PredictionSet, error) {
	if !c.fitted {
		return nil, core.ErrNotFitted
	}

	probs, err := c.classifier.PredictProba(X)
	if err != nil {
		return nil, fmt.Errorf("prediction probabilities: %w", err)
	}
	if len(probs) != len(X) {
		return nil, fmt.Errorf("%w: classifier returned %d probability rows for %d samples",
			core.ErrDimensionMismatch, len(probs), len(X))
	}

	cutoff := 1 - c.threshold
	sets := make([]PredictionSet, len(X))
	for i, row := range probs {
		if len(row) != len(c.classes) {
			return nil, fmt.Errorf("%w: probability row has %d entries for %d classes",
				core.ErrDimensionMismatch, len(row), len(c.classes))
		}
		set := make(PredictionSet, 0, len(c.classes))
		for j, p := range row {
			if p >= cutoff {
				set = append(set, c.classes[j])
			}
		}
		sets[i] = set
	}
	return sets, nil
}

// Predict returns one label per sample straight from the wrapped
// classifier, bypassing conformal logic entirely. Classifiers without
// a native label predictor fall back to the arg-max class.
func (c *SplitCalibrator) Predict(X [][]float64) ([]int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.fitted {
		return nil, core.ErrNotFitted
	}

	if predictor, ok := c.classifier.(LabelPredictor); ok {
		labels, err := predictor.Predict(X)
		if err != nil {
			return nil, fmt.Errorf("label prediction: %w", err)
		}
		return labels, nil
	}

	probs, err := c.classifier.PredictProba(X)
	if err != nil {
		return nil, fmt.Errorf("prediction probabilities: %w", err)
	}
	if len(probs) != len(X) {
		return nil, fmt.Errorf("%w: classifier returned %d probability rows for %d samples",
			core.ErrDimensionMismatch, len(probs), len(X))
	}

	labels := make([]int, len(probs))
	for i, row := range probs {
		if len(row) != len(c.classes) {
			return nil, fmt.Errorf("%w: probability row has %d entries for %d classes",
				core.ErrDimensionMismatch, len(row), len(c.classes))
		}
		best := 0
		for j, p := range row {
			if p > row[best] {
				best = j
			}
		}
		labels[i] = c.classes[best]
	}
	return labels, nil
}

// Coverage returns the fraction of samples whose true label is a member
// of its prediction set. Evaluation helper only; not part of the
// calibration contract.
func (c *SplitCalibrator) Coverage(X [][]float64, y []int) (float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.fitted {
		return 0, core.ErrNotFitted
	}
	if len(X) == 0 {
		return 0, core.NewConfigurationError("evaluation batch", "must not be empty")
	}
	if len(X) != len(y) {
		return 0, core.NewConfigurationError("evaluation batch", fmt.Sprintf("has %d feature rows but %d labels", len(X), len(y)))
	}

	sets, err := c.predictSetLocked(X)
	if err != nil {
		return 0, err
	}

	hits := 0
	for i, set := range sets {
		if set.Contains(y[i]) {
			hits++
		}
	}
	return float64(hits) / float64(len(y)), nil
}

// Threshold returns the fitted nonconformity threshold
func (c *SplitCalibrator) Threshold() (float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.fitted {
		return 0, core.ErrNotFitted
	}
	return c.threshold, nil
}

// QuantileLevel returns the corrected quantile level the threshold sits at
func (c *SplitCalibrator) QuantileLevel() (float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.fitted {
		return 0, core.ErrNotFitted
	}
	return c.quantileLevel, nil
}

// Classes returns a copy of the fitted class label sequence
func (c *SplitCalibrator) Classes() ([]int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.fitted {
		return nil, core.ErrNotFitted
	}
	return append([]int(nil), c.classes...), nil
}

// CalibrationSize returns the number of calibration examples behind the threshold
func (c *SplitCalibrator) CalibrationSize() (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.fitted {
		return 0, core.ErrNotFitted
	}
	return len(c.scores), nil
}

// Summary returns a read-only snapshot of the fitted state
func (c *SplitCalibrator) Summary() (CalibrationSummary, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.fitted {
		return CalibrationSummary{}, core.ErrNotFitted
	}
	return CalibrationSummary{
		Alpha:           c.alpha,
		QuantileLevel:   c.quantileLevel,
		Threshold:       c.threshold,
		CalibrationSize: len(c.scores),
		Classes:         append([]int(nil), c.classes...),
		ScoreMin:        c.scores[0],
		ScoreMax:        c.scores[len(c.scores)-1],
	}, nil
}
