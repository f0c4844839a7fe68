package simulation

import (
	"context"
	"fmt"
	"sync"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"goconform/adapters/classifiers"
	"goconform/adapters/synth"
	"goconform/domain/conformal"
	"goconform/domain/core"
	"goconform/ports"
)

// CoverageTrials repeats the full generate/split/calibrate/evaluate
// cycle on fresh data to check the marginal coverage guarantee
// empirically
type CoverageTrials struct {
	rngPort   ports.RNGPort
	numTrials int
}

// NewCoverageTrials creates a trial runner with default settings
func NewCoverageTrials(rngPort ports.RNGPort) *CoverageTrials {
	return &CoverageTrials{
		rngPort:   rngPort,
		numTrials: 50,
	}
}

// SetNumTrials configures the number of independent trials (10-1000)
func (ct *CoverageTrials) SetNumTrials(num int) {
	if num < 10 {
		num = 10
	}
	if num > 1000 {
		num = 1000
	}
	ct.numTrials = num
}

// NumTrials returns the configured number of trials
func (ct *CoverageTrials) NumTrials() int {
	return ct.numTrials
}

// TrialConfig specifies one coverage experiment
type TrialConfig struct {
	Blobs      synth.BlobsConfig `json:"blobs"`
	Split      synth.SplitConfig `json:"split"`
	Classifier string            `json:"classifier"`
	Neighbors  int               `json:"neighbors"`
	Alpha      float64           `json:"alpha"`
	BaseSeed   int64             `json:"base_seed"`
}

// DefaultTrialConfig returns a centroid-classifier experiment whose
// continuous scores keep the Beta coverage band exact
func DefaultTrialConfig() TrialConfig {
	return TrialConfig{
		Blobs:      synth.DefaultBlobsConfig(),
		Split:      synth.DefaultSplitConfig(),
		Classifier: classifiers.CentroidName,
		Neighbors:  10,
		Alpha:      0.1,
		BaseSeed:   42,
	}
}

// CoverageDistribution summarizes per-trial empirical coverage
type CoverageDistribution struct {
	Mean         float64 `json:"mean"`
	StdDev       float64 `json:"std_dev"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Percentile05 float64 `json:"percentile_05"`
	Percentile95 float64 `json:"percentile_95"`
}

// CoverageBand is the analytic range single-trial coverage should
// fall in. With threshold rank r over n calibration scores, coverage
// conditional on the calibration set follows Beta(r, n+1-r).
type CoverageBand struct {
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
	Confidence float64 `json:"confidence"`
}

// Contains reports whether a coverage value falls inside the band
func (b CoverageBand) Contains(coverage float64) bool {
	return coverage >= b.Lower && coverage <= b.Upper
}

// TrialResult is the outcome of a coverage experiment
type TrialResult struct {
	Trials           int                  `json:"trials"`
	Alpha            float64              `json:"alpha"`
	TargetCoverage   float64              `json:"target_coverage"`
	ExpectedCoverage float64              `json:"expected_coverage"`
	CalibrationSize  int                  `json:"calibration_size"`
	AvgSetSize       float64              `json:"avg_set_size"`
	Distribution     CoverageDistribution `json:"distribution"`
	Band             CoverageBand         `json:"band"`
	Coverages        []float64            `json:"coverages"`
}

// Run executes the configured number of independent trials. Each
// trial draws its own stream from the RNG port keyed by trial index,
// so results do not depend on worker scheduling.
func (ct *CoverageTrials) Run(ctx context.Context, cfg TrialConfig) (*TrialResult, error) {
	if cfg.Alpha <= 0 || cfg.Alpha >= 1 {
		return nil, core.NewConfigurationError("alpha", "must be in (0, 1)")
	}

	type trialOutcome struct {
		index    int
		coverage float64
		setSize  float64
		err      error
	}

	numWorkers := 4
	if ct.numTrials < 16 {
		numWorkers = 1
	}

	workChan := make(chan int, ct.numTrials)
	resultChan := make(chan trialOutcome, ct.numTrials)

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range workChan {
				select {
				case <-ctx.Done():
					resultChan <- trialOutcome{index: index, err: ctx.Err()}
				default:
					coverage, setSize, err := ct.runTrial(ctx, cfg, index)
					resultChan <- trialOutcome{index: index, coverage: coverage, setSize: setSize, err: err}
				}
			}
		}()
	}

	go func() {
		for i := 0; i < ct.numTrials; i++ {
			workChan <- i
		}
		close(workChan)
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	coverages := make([]float64, ct.numTrials)
	setSizes := make([]float64, ct.numTrials)
	for outcome := range resultChan {
		if outcome.err != nil {
			return nil, fmt.Errorf("trial %d failed: %w", outcome.index, outcome.err)
		}
		coverages[outcome.index] = outcome.coverage
		setSizes[outcome.index] = outcome.setSize
	}

	return ct.summarize(cfg, coverages, setSizes)
}

func (ct *CoverageTrials) runTrial(ctx context.Context, cfg TrialConfig, index int) (float64, float64, error) {
	rng, err := ct.rngPort.Stream(ctx, "coverage-trials", fmt.Sprintf("trial-%d", index), cfg.BaseSeed)
	if err != nil {
		return 0, 0, err
	}

	ds, err := synth.NewBlobsGenerator().Generate(cfg.Blobs, rng)
	if err != nil {
		return 0, 0, err
	}
	split, err := synth.ThreeWaySplit(ds.X, ds.Y, cfg.Split, rng)
	if err != nil {
		return 0, 0, err
	}

	clf, err := classifiers.New(cfg.Classifier, cfg.Neighbors)
	if err != nil {
		return 0, 0, err
	}
	calibrator := conformal.NewSplitCalibrator(clf)
	if err := calibrator.Fit(split.TrainX, split.TrainY, split.CalX, split.CalY, cfg.Alpha); err != nil {
		return 0, 0, err
	}

	coverage, err := calibrator.Coverage(split.TestX, split.TestY)
	if err != nil {
		return 0, 0, err
	}
	sets, err := calibrator.PredictSet(split.TestX)
	if err != nil {
		return 0, 0, err
	}

	total := 0
	for _, set := range sets {
		total += set.Size()
	}
	return coverage, float64(total) / float64(len(sets)), nil
}

func (ct *CoverageTrials) summarize(cfg TrialConfig, coverages, setSizes []float64) (*TrialResult, error) {
	mean, err := stats.Mean(coverages)
	if err != nil {
		return nil, err
	}
	stdDev, err := stats.StandardDeviationSample(coverages)
	if err != nil {
		return nil, err
	}
	min, err := stats.Min(coverages)
	if err != nil {
		return nil, err
	}
	max, err := stats.Max(coverages)
	if err != nil {
		return nil, err
	}
	p05, err := stats.Percentile(coverages, 5)
	if err != nil {
		return nil, err
	}
	p95, err := stats.Percentile(coverages, 95)
	if err != nil {
		return nil, err
	}
	avgSetSize, err := stats.Mean(setSizes)
	if err != nil {
		return nil, err
	}

	calSize := int(cfg.Split.CalibrationFrac * float64(cfg.Blobs.Samples))
	rank := conformal.UpperQuantileRank(calSize, cfg.Alpha)

	beta := distuv.Beta{Alpha: float64(rank), Beta: float64(calSize + 1 - rank)}
	band := CoverageBand{
		Lower:      beta.Quantile(0.005),
		Upper:      beta.Quantile(0.995),
		Confidence: 0.99,
	}

	return &TrialResult{
		Trials:           ct.numTrials,
		Alpha:            cfg.Alpha,
		TargetCoverage:   1 - cfg.Alpha,
		ExpectedCoverage: float64(rank) / float64(calSize+1),
		CalibrationSize:  calSize,
		AvgSetSize:       avgSetSize,
		Distribution: CoverageDistribution{
			Mean:         mean,
			StdDev:       stdDev,
			Min:          min,
			Max:          max,
			Percentile05: p05,
			Percentile95: p95,
		},
		Band:      band,
		Coverages: coverages,
	}, nil
}
