package evaluation

import (
	"github.com/montanaflynn/stats"

	"goconform/domain/conformal"
	"goconform/domain/core"
	"goconform/domain/run"
)

// Evaluator scores prediction sets against held-out labels
type Evaluator struct{}

// NewEvaluator creates a new evaluator
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate computes coverage and efficiency metrics for one test split.
// sets, predicted and actual must be aligned sample for sample.
func (e *Evaluator) Evaluate(sets []conformal.PredictionSet, predicted []int, actual []int, classCount int, alpha float64) (run.Evaluation, error) {
	if len(sets) == 0 {
		return run.Evaluation{}, core.NewConfigurationError("test set", "cannot be empty")
	}
	if len(predicted) != len(sets) || len(actual) != len(sets) {
		return run.Evaluation{}, core.NewConfigurationError("test set", "sets, predictions and labels must be the same length")
	}

	covered := 0
	correct := 0
	empty := 0
	singleton := 0
	full := 0
	sizes := make([]float64, len(sets))
	sizeCounts := make(map[int]int)

	for i, set := range sets {
		size := set.Size()
		sizes[i] = float64(size)
		sizeCounts[size]++

		if set.Contains(actual[i]) {
			covered++
		}
		if predicted[i] == actual[i] {
			correct++
		}
		switch {
		case size == 0:
			empty++
		case size == 1:
			singleton++
		}
		if size == classCount {
			full++
		}
	}

	avgSize, err := stats.Mean(sizes)
	if err != nil {
		return run.Evaluation{}, err
	}
	medianSize, err := stats.Median(sizes)
	if err != nil {
		return run.Evaluation{}, err
	}

	n := float64(len(sets))
	return run.Evaluation{
		TargetCoverage:    1 - alpha,
		EmpiricalCoverage: float64(covered) / n,
		Accuracy:          float64(correct) / n,
		AvgSetSize:        avgSize,
		MedianSetSize:     medianSize,
		EmptySetRate:      float64(empty) / n,
		SingletonRate:     float64(singleton) / n,
		FullSetRate:       float64(full) / n,
		TestSize:          len(sets),
		SetSizeCounts:     sizeCounts,
	}, nil
}
