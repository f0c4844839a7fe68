package run

import (
	"goconform/domain/conformal"
	"goconform/domain/core"
)

// Record is the persisted account of one calibrated predictor.
// It carries everything needed to audit or replay the run: the
// classifier, the data fingerprint, the seed, the calibration
// outcome, and the held-out evaluation.
type Record struct {
	ID              core.RunID     `json:"id"`
	Classifier      string         `json:"classifier"`
	Alpha           float64        `json:"alpha"`
	QuantileLevel   float64        `json:"quantile_level"`
	Threshold       float64        `json:"threshold"`
	Classes         []int          `json:"classes"`
	CalibrationSize int            `json:"calibration_size"`
	Seed            int64          `json:"seed"`
	Dataset         DatasetInfo    `json:"dataset"`
	Evaluation      Evaluation     `json:"evaluation"`
	CreatedAt       core.Timestamp `json:"created_at"`
}

// DatasetInfo describes the data a run was calibrated on
type DatasetInfo struct {
	Source      string                  `json:"source"`
	Samples     int                     `json:"samples"`
	Features    int                     `json:"features"`
	Classes     int                     `json:"classes"`
	TrainSize   int                     `json:"train_size"`
	TestSize    int                     `json:"test_size"`
	Fingerprint core.DatasetFingerprint `json:"fingerprint"`
}

// Evaluation holds held-out metrics for a calibrated predictor
type Evaluation struct {
	TargetCoverage    float64     `json:"target_coverage"`
	EmpiricalCoverage float64     `json:"empirical_coverage"`
	Accuracy          float64     `json:"accuracy"`
	AvgSetSize        float64     `json:"avg_set_size"`
	MedianSetSize     float64     `json:"median_set_size"`
	EmptySetRate      float64     `json:"empty_set_rate"`
	SingletonRate     float64     `json:"singleton_rate"`
	FullSetRate       float64     `json:"full_set_rate"`
	TestSize          int         `json:"test_size"`
	SetSizeCounts     map[int]int `json:"set_size_counts"`
}

// NewRecord assembles a run record from a calibration summary and its
// held-out evaluation
func NewRecord(classifier string, dataset DatasetInfo, summary conformal.CalibrationSummary, seed int64, eval Evaluation) *Record {
	return &Record{
		ID:              core.NewRunID(),
		Classifier:      classifier,
		Alpha:           summary.Alpha,
		QuantileLevel:   summary.QuantileLevel,
		Threshold:       summary.Threshold,
		Classes:         summary.Classes,
		CalibrationSize: summary.CalibrationSize,
		Seed:            seed,
		Dataset:         dataset,
		Evaluation:      eval,
		CreatedAt:       core.Now(),
	}
}

// TargetCoverage is the nominal coverage guarantee 1 - alpha
func (r *Record) TargetCoverage() float64 {
	return 1 - r.Alpha
}

// Validate checks if the record is complete enough to persist
func (r *Record) Validate() error {
	if core.ID(r.ID).IsEmpty() {
		return core.NewConfigurationError("run_id", "cannot be empty")
	}
	if r.Classifier == "" {
		return core.NewConfigurationError("classifier", "cannot be empty")
	}
	if r.Alpha <= 0 || r.Alpha >= 1 {
		return core.NewConfigurationError("alpha", "must be in (0, 1)")
	}
	if r.QuantileLevel <= 0 || r.QuantileLevel > 1 {
		return core.NewConfigurationError("quantile_level", "must be in (0, 1]")
	}
	if r.Threshold < 0 || r.Threshold > 1 {
		return core.NewConfigurationError("threshold", "must be in [0, 1]")
	}
	if r.CalibrationSize <= 0 {
		return core.NewConfigurationError("calibration_size", "must be positive")
	}
	if len(r.Classes) == 0 {
		return core.NewConfigurationError("classes", "cannot be empty")
	}
	return nil
}

// CoverageGap is the signed distance from the nominal guarantee.
// Positive means the predictor over-covered on the test split.
func (e Evaluation) CoverageGap() float64 {
	return e.EmpiricalCoverage - e.TargetCoverage
}

// CoverageWithin reports whether empirical coverage stayed above the
// target minus the given tolerance
func (e Evaluation) CoverageWithin(tolerance float64) bool {
	return e.EmpiricalCoverage >= e.TargetCoverage-tolerance
}
