package classifiers

import (
	"fmt"

	"goconform/domain/core"
	"goconform/ports"
)

// Classifier names accepted by New
const (
	KNNName      = "knn"
	CentroidName = "centroid"
)

// Available lists the classifier names New accepts
func Available() []string {
	return []string{KNNName, CentroidName}
}

// New builds a probabilistic classifier by name. neighbors only
// applies to the KNN classifier.
func New(name string, neighbors int) (ports.ProbabilisticClassifier, error) {
	switch name {
	case KNNName:
		return NewKNNClassifier(neighbors), nil
	case CentroidName:
		return NewNearestCentroidClassifier(), nil
	default:
		return nil, core.NewConfigurationError("classifier", fmt.Sprintf("unknown name %q", name))
	}
}
