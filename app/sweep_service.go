package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"goconform/adapters/classifiers"
	"goconform/adapters/synth"
	"goconform/domain/conformal"
	"goconform/domain/core"
	"goconform/internal/evaluation"
	"goconform/internal/logx"
	"goconform/ports"
)

// SweepService evaluates a grid of miscoverage levels against one
// dataset. Every alpha gets a fresh classifier and calibrator over the
// same three-way split, so the grid isolates the effect of alpha alone.
type SweepService struct {
	rng         ports.RNGPort
	logger      *logx.Logger
	parallelism int64
}

// SweepRequest defines an alpha-grid experiment
type SweepRequest struct {
	Alphas     []float64         `json:"alphas"`
	Classifier string            `json:"classifier"`
	Neighbors  int               `json:"neighbors"`
	Seed       int64             `json:"seed"`
	Dataset    synth.BlobsConfig `json:"dataset"`
	Split      synth.SplitConfig `json:"split"`
}

// SweepPoint is the outcome at one alpha
type SweepPoint struct {
	Alpha             float64 `json:"alpha"`
	QuantileLevel     float64 `json:"quantile_level"`
	Threshold         float64 `json:"threshold"`
	TargetCoverage    float64 `json:"target_coverage"`
	EmpiricalCoverage float64 `json:"empirical_coverage"`
	AvgSetSize        float64 `json:"avg_set_size"`
	EmptySetRate      float64 `json:"empty_set_rate"`
	SingletonRate     float64 `json:"singleton_rate"`
	FullSetRate       float64 `json:"full_set_rate"`
}

// SweepOutcome is the complete result of one sweep, points sorted by
// ascending alpha
type SweepOutcome struct {
	SweepID    core.SweepID `json:"sweep_id"`
	Classifier string       `json:"classifier"`
	Seed       int64        `json:"seed"`
	Points     []SweepPoint `json:"points"`
	RuntimeMs  int64        `json:"runtime_ms"`
}

// NewSweepService creates a sweep service with bounded parallelism
func NewSweepService(rng ports.RNGPort, parallelism int, logger *logx.Logger) *SweepService {
	if parallelism < 1 {
		parallelism = 1
	}
	if logger == nil {
		logger = logx.Default
	}
	return &SweepService{
		rng:         rng,
		logger:      logger,
		parallelism: int64(parallelism),
	}
}

// Run executes the grid. The dataset and split are generated once from
// the request seed; alphas then run concurrently under the semaphore.
func (s *SweepService) Run(ctx context.Context, req SweepRequest) (*SweepOutcome, error) {
	if len(req.Alphas) == 0 {
		return nil, core.NewConfigurationError("alphas", "must not be empty")
	}
	for _, alpha := range req.Alphas {
		if alpha <= 0 || alpha >= 1 {
			return nil, core.NewConfigurationError("alpha", fmt.Sprintf("must be in (0,1), got %g", alpha))
		}
	}

	started := time.Now()
	sweepID := core.NewSweepID()

	rng, err := s.rng.Stream(ctx, "sweep", "dataset", req.Seed)
	if err != nil {
		return nil, fmt.Errorf("rng stream: %w", err)
	}
	ds, err := synth.NewBlobsGenerator().Generate(req.Dataset, rng)
	if err != nil {
		return nil, err
	}
	split, err := synth.ThreeWaySplit(ds.X, ds.Y, req.Split, rng)
	if err != nil {
		return nil, err
	}

	sem := semaphore.NewWeighted(s.parallelism)
	points := make([]SweepPoint, len(req.Alphas))
	errs := make([]error, len(req.Alphas))
	var wg sync.WaitGroup

	for i, alpha := range req.Alphas {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("sweep cancelled: %w", err)
		}
		wg.Add(1)
		go func(i int, alpha float64) {
			defer wg.Done()
			defer sem.Release(1)
			point, err := s.runPoint(req, split, alpha)
			if err != nil {
				errs[i] = fmt.Errorf("alpha %g: %w", alpha, err)
				return
			}
			points[i] = point
		}(i, alpha)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(points, func(a, b int) bool { return points[a].Alpha < points[b].Alpha })

	s.logger.Info("sweep %s: %d alphas, classifier=%s (%dms)",
		sweepID, len(points), req.Classifier, time.Since(started).Milliseconds())
	return &SweepOutcome{
		SweepID:    sweepID,
		Classifier: req.Classifier,
		Seed:       req.Seed,
		Points:     points,
		RuntimeMs:  time.Since(started).Milliseconds(),
	}, nil
}

// runPoint fits and evaluates one alpha on the shared split
func (s *SweepService) runPoint(req SweepRequest, split *synth.Split, alpha float64) (SweepPoint, error) {
	clf, err := classifiers.New(req.Classifier, req.Neighbors)
	if err != nil {
		return SweepPoint{}, err
	}

	calibrator := conformal.NewSplitCalibrator(clf)
	if err := calibrator.Fit(split.TrainX, split.TrainY, split.CalX, split.CalY, alpha); err != nil {
		return SweepPoint{}, err
	}
	summary, err := calibrator.Summary()
	if err != nil {
		return SweepPoint{}, err
	}

	sets, err := calibrator.PredictSet(split.TestX)
	if err != nil {
		return SweepPoint{}, err
	}
	predicted, err := calibrator.Predict(split.TestX)
	if err != nil {
		return SweepPoint{}, err
	}
	eval, err := evaluation.NewEvaluator().Evaluate(sets, predicted, split.TestY, len(summary.Classes), alpha)
	if err != nil {
		return SweepPoint{}, err
	}

	return SweepPoint{
		Alpha:             alpha,
		QuantileLevel:     summary.QuantileLevel,
		Threshold:         summary.Threshold,
		TargetCoverage:    eval.TargetCoverage,
		EmpiricalCoverage: eval.EmpiricalCoverage,
		AvgSetSize:        eval.AvgSetSize,
		EmptySetRate:      eval.EmptySetRate,
		SingletonRate:     eval.SingletonRate,
		FullSetRate:       eval.FullSetRate,
	}, nil
}
