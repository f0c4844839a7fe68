package synth

import (
	"math/rand"

	"goconform/domain/core"
)

// SplitConfig sets the train and calibration fractions. Whatever
// remains becomes the test split.
type SplitConfig struct {
	TrainFrac       float64 `json:"train_frac"`
	CalibrationFrac float64 `json:"calibration_frac"`
}

// DefaultSplitConfig returns the 50/25/25 three-way split
func DefaultSplitConfig() SplitConfig {
	return SplitConfig{TrainFrac: 0.5, CalibrationFrac: 0.25}
}

// Split holds the three disjoint partitions of a labeled dataset
type Split struct {
	TrainX [][]float64
	TrainY []int
	CalX   [][]float64
	CalY   []int
	TestX  [][]float64
	TestY  []int
}

// ThreeWaySplit shuffles the dataset with rng and partitions it into
// train, calibration and test. Every partition must come out
// nonempty; rows are shared by reference, never copied.
func ThreeWaySplit(X [][]float64, y []int, cfg SplitConfig, rng *rand.Rand) (*Split, error) {
	if len(X) == 0 {
		return nil, core.NewConfigurationError("dataset", "cannot be empty")
	}
	if len(X) != len(y) {
		return nil, core.NewConfigurationError("dataset", "features and labels must be the same length")
	}
	if cfg.TrainFrac <= 0 || cfg.CalibrationFrac <= 0 {
		return nil, core.NewConfigurationError("split fractions", "must be positive")
	}
	if cfg.TrainFrac+cfg.CalibrationFrac >= 1 {
		return nil, core.NewConfigurationError("split fractions", "must leave room for a test split")
	}

	n := len(X)
	trainSize := int(cfg.TrainFrac * float64(n))
	calSize := int(cfg.CalibrationFrac * float64(n))
	testSize := n - trainSize - calSize
	if trainSize == 0 || calSize == 0 || testSize == 0 {
		return nil, core.NewConfigurationError("dataset", "too small for a three-way split")
	}

	perm := rng.Perm(n)

	split := &Split{
		TrainX: make([][]float64, 0, trainSize),
		TrainY: make([]int, 0, trainSize),
		CalX:   make([][]float64, 0, calSize),
		CalY:   make([]int, 0, calSize),
		TestX:  make([][]float64, 0, testSize),
		TestY:  make([]int, 0, testSize),
	}
	for i, idx := range perm {
		switch {
		case i < trainSize:
			split.TrainX = append(split.TrainX, X[idx])
			split.TrainY = append(split.TrainY, y[idx])
		case i < trainSize+calSize:
			split.CalX = append(split.CalX, X[idx])
			split.CalY = append(split.CalY, y[idx])
		default:
			split.TestX = append(split.TestX, X[idx])
			split.TestY = append(split.TestY, y[idx])
		}
	}
	return split, nil
}
