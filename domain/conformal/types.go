package conformal

// PredictionSet is the subset of the class label sequence admitted for
// one query sample, in class-sequence order. It may be empty, a
// singleton, or the full label set.
type PredictionSet []int

// Contains reports whether the set admits the given label
func (s PredictionSet) Contains(label int) bool {
	for _, l := range s {
		if l == label {
			return true
		}
	}
	return false
}

// Size returns the number of admitted labels
func (s PredictionSet) Size() int {
	return len(s)
}

// IsEmpty reports whether no label cleared the threshold
func (s PredictionSet) IsEmpty() bool {
	return len(s) == 0
}

// CalibrationSummary is a read-only snapshot of a fitted calibrator
type CalibrationSummary struct {
	Alpha           float64 `json:"alpha"`
	QuantileLevel   float64 `json:"quantile_level"`
	Threshold       float64 `json:"threshold"`
	CalibrationSize int     `json:"calibration_size"`
	Classes         []int   `json:"classes"`
	ScoreMin        float64 `json:"score_min"`
	ScoreMax        float64 `json:"score_max"`
}

// TargetCoverage returns the coverage level the threshold was fitted for
func (s CalibrationSummary) TargetCoverage() float64 {
	return 1 - s.Alpha
}
