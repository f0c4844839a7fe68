package ports

import "goconform/domain/conformal"

// ProbabilisticClassifier is the capability contract consumed by the
// conformal calibrator. The declaration lives in domain/conformal so
// the calibrator can consume it without importing ports (which would
// close an import cycle through domain/run); this alias keeps the
// port name available to adapters and services.
type ProbabilisticClassifier = conformal.ProbabilisticClassifier

// LabelPredictor is the optional single-label prediction capability.
// Classifiers that implement it serve Predict directly; others fall
// back to the arg-max class.
type LabelPredictor = conformal.LabelPredictor
