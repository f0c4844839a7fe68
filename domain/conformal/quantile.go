package conformal

import (
	"math"
	"sort"
)

// QuantileLevel returns the finite-sample corrected quantile level
// ceil((n+1)(1-alpha)) / (n+1) for a calibration set of size n. The +1
// correction is what turns the empirical quantile into a marginal
// coverage guarantee.
func QuantileLevel(n int, alpha float64) float64 {
	return math.Ceil(float64(n+1)*(1-alpha)) / float64(n+1)
}

// UpperQuantileRank returns the 1-based rank of the threshold among n
// ascending scores: ceil((n+1)(1-alpha)), clamped to [1, n].
func UpperQuantileRank(n int, alpha float64) int {
	rank := int(math.Ceil(float64(n+1) * (1 - alpha)))
	if rank > n {
		rank = n
	}
	if rank < 1 {
		rank = 1
	}
	return rank
}

// thresholdFromScores returns the upper empirical quantile of the
// nonconformity scores at the corrected level: the smallest observed
// score with at least ceil((n+1)(1-alpha)) scores at or below it.
// Input order does not matter; scores must be nonempty.
func thresholdFromScores(scores []float64, alpha float64) float64 {
	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)
	return sorted[UpperQuantileRank(len(sorted), alpha)-1]
}
