package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"goconform/adapters/classifiers"
	"goconform/adapters/synth"
	"goconform/domain/conformal"
	"goconform/domain/core"
	"goconform/domain/run"
	"goconform/internal/evaluation"
	"goconform/internal/logx"
	"goconform/ports"
)

// CalibrationService runs the full calibration pipeline: generate or
// accept data, split it, fit a conformal calibrator, evaluate on the
// held-out test split and persist the run record. Fitted calibrators
// stay resident so prediction-set queries can be served after the run.
type CalibrationService struct {
	repo   ports.RunRepository
	rng    ports.RNGPort
	logger *logx.Logger

	mu       sync.RWMutex
	resident map[core.RunID]*conformal.SplitCalibrator
}

// CalibrationRequest defines the inputs for one calibration run
type CalibrationRequest struct {
	Alpha      float64           `json:"alpha"`
	Classifier string            `json:"classifier"`
	Neighbors  int               `json:"neighbors"`
	Seed       int64             `json:"seed"`
	Dataset    synth.BlobsConfig `json:"dataset"`
	Split      synth.SplitConfig `json:"split"`
}

// DefaultCalibrationRequest returns a runnable request with the
// standard demo dataset
func DefaultCalibrationRequest() CalibrationRequest {
	return CalibrationRequest{
		Alpha:      0.1,
		Classifier: classifiers.KNNName,
		Neighbors:  10,
		Seed:       42,
		Dataset:    synth.DefaultBlobsConfig(),
		Split:      synth.DefaultSplitConfig(),
	}
}

// NewCalibrationService creates a calibration service
func NewCalibrationService(repo ports.RunRepository, rng ports.RNGPort, logger *logx.Logger) *CalibrationService {
	if logger == nil {
		logger = logx.Default
	}
	return &CalibrationService{
		repo:     repo,
		rng:      rng,
		logger:   logger,
		resident: make(map[core.RunID]*conformal.SplitCalibrator),
	}
}

// Calibrate executes one run end to end and returns the persisted
// record. The fitted calibrator stays resident under the run ID.
func (s *CalibrationService) Calibrate(ctx context.Context, req CalibrationRequest) (*run.Record, error) {
	started := time.Now()

	rng, err := s.rng.Stream(ctx, "calibration", "dataset", req.Seed)
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

	record, calibrator, err := s.calibrateSplit(ctx, req, split)
	if err != nil {
		return nil, err
	}
	record.Dataset = run.DatasetInfo{
		Source:      "gaussian-blobs",
		Samples:     len(ds.X),
		Features:    req.Dataset.Features,
		Classes:     req.Dataset.Classes,
		TrainSize:   len(split.TrainX),
		TestSize:    len(split.TestX),
		Fingerprint: core.ComputeDatasetFingerprint("gaussian-blobs", req.Dataset.Params(req.Seed)),
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("persist run: %w", err)
	}

	s.mu.Lock()
	s.resident[record.ID] = calibrator
	s.mu.Unlock()

	s.logger.Info("calibration %s: classifier=%s alpha=%.3f threshold=%.4f coverage=%.4f (%dms)",
		record.ID, record.Classifier, record.Alpha, record.Threshold,
		record.Evaluation.EmpiricalCoverage, time.Since(started).Milliseconds())
	return record, nil
}

// calibrateSplit fits and evaluates a calibrator on an existing split.
// The returned record has no dataset info yet.
func (s *CalibrationService) calibrateSplit(ctx context.Context, req CalibrationRequest, split *synth.Split) (*run.Record, *conformal.SplitCalibrator, error) {
	clf, err := classifiers.New(req.Classifier, req.Neighbors)
	if err != nil {
		return nil, nil, err
	}

	calibrator := conformal.NewSplitCalibrator(clf)
	if err := calibrator.Fit(split.TrainX, split.TrainY, split.CalX, split.CalY, req.Alpha); err != nil {
		return nil, nil, err
	}

	summary, err := calibrator.Summary()
	if err != nil {
		return nil, nil, err
	}

	sets, err := calibrator.PredictSet(split.TestX)
	if err != nil {
		return nil, nil, err
	}
	predicted, err := calibrator.Predict(split.TestX)
	if err != nil {
		return nil, nil, err
	}
	eval, err := evaluation.NewEvaluator().Evaluate(sets, predicted, split.TestY, len(summary.Classes), req.Alpha)
	if err != nil {
		return nil, nil, err
	}

	record := run.NewRecord(req.Classifier, run.DatasetInfo{}, summary, req.Seed, eval)
	return record, calibrator, nil
}

// GetRun returns one persisted run record
func (s *CalibrationService) GetRun(ctx context.Context, id core.RunID) (*run.Record, error) {
	return s.repo.GetByID(ctx, id)
}

// ListRuns returns persisted run records, newest first
func (s *CalibrationService) ListRuns(ctx context.Context, limit, offset int) ([]*run.Record, error) {
	return s.repo.List(ctx, limit, offset)
}

// DeleteRun removes a run record and evicts its resident calibrator
func (s *CalibrationService) DeleteRun(ctx context.Context, id core.RunID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.resident, id)
	s.mu.Unlock()
	return nil
}

// PredictSets serves prediction sets from a resident calibrator,
// returning the sets alongside the run's threshold
func (s *CalibrationService) PredictSets(ctx context.Context, id core.RunID, X [][]float64) ([]conformal.PredictionSet, float64, error) {
	calibrator, err := s.residentCalibrator(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	sets, err := calibrator.PredictSet(X)
	if err != nil {
		return nil, 0, err
	}
	threshold, err := calibrator.Threshold()
	if err != nil {
		return nil, 0, err
	}
	return sets, threshold, nil
}

// Coverage computes empirical coverage on a labeled batch using a
// resident calibrator
func (s *CalibrationService) Coverage(ctx context.Context, id core.RunID, X [][]float64, y []int) (float64, error) {
	calibrator, err := s.residentCalibrator(ctx, id)
	if err != nil {
		return 0, err
	}
	return calibrator.Coverage(X, y)
}

// residentCalibrator looks up the fitted calibrator for a run. The
// record is resolved first so a missing run reports not-found rather
// than not-fitted; records that survived a restart have no resident
// calibrator and must be recalibrated.
func (s *CalibrationService) residentCalibrator(ctx context.Context, id core.RunID) (*conformal.SplitCalibrator, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	calibrator, ok := s.resident[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: run %s has no resident calibrator, recalibrate to serve predictions", core.ErrNotFitted, id)
	}
	return calibrator, nil
}
