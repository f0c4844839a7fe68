package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: calibration run", ErrNotFound)

	// Calibration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrNotFitted            = errors.New("calibrator not fitted")
	ErrLabelMismatch        = errors.New("label not in learned class set")
	ErrDimensionMismatch    = errors.New("feature dimension mismatch")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewConfigurationError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidConfiguration, field, reason)
}

func NewLabelMismatchError(label int) error {
	return fmt.Errorf("%w: label %d", ErrLabelMismatch, label)
}

func NewDimensionError(want, got int) error {
	return fmt.Errorf("%w: want %d features, got %d", ErrDimensionMismatch, want, got)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsCalibrationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrLabelMismatch) ||
		errors.Is(err, ErrDimensionMismatch)
}

func IsNotFittedError(err error) bool {
	return errors.Is(err, ErrNotFitted)
}
