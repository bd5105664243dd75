// Package fault holds the error taxonomy shared by the inference pipeline.
//
// Every failure the pipeline can produce has a sentinel kind usable with
// errors.Is. Failures that carry diagnostic context (an index, an expected
// and actual dimension) are structs reachable with errors.As whose Unwrap
// returns the kind.
package fault

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel kinds.
var (
	ErrModelLoad           = errors.New("model load failed")
	ErrModelUnavailable    = errors.New("model unavailable")
	ErrOutOfRange          = errors.New("input out of range")
	ErrShapeMismatch       = errors.New("feature vector shape mismatch")
	ErrOutputShapeMismatch = errors.New("prediction output shape mismatch")
	ErrInvalidLabel        = errors.New("invalid prediction label")
	ErrPredictionTimeout   = errors.New("prediction timed out")
	ErrPrediction          = errors.New("prediction failed")
	ErrInvalidReading      = errors.New("invalid reading")
)

// ModelLoadError reports an artifact that is missing, unreadable or
// incompatible with the configured dimensions.
type ModelLoadError struct {
	Location string
	Err      error
}

func (e *ModelLoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrModelLoad, e.Location)
	}
	return fmt.Sprintf("%s: %s: %v", ErrModelLoad, e.Location, e.Err)
}

// Unwrap exposes both the kind and the underlying cause.
func (e *ModelLoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrModelLoad}
	}
	return []error{ErrModelLoad, e.Err}
}

// NewModelLoad wraps cause as a ModelLoadError for location.
func NewModelLoad(location string, cause error) error {
	return &ModelLoadError{Location: location, Err: cause}
}

// OutOfRangeError identifies the first reading outside its closed interval.
type OutOfRangeError struct {
	Index int
	Value float64
	Min   float64
	Max   float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s: reading %d = %v not in [%v, %v]", ErrOutOfRange, e.Index, e.Value, e.Min, e.Max)
}

func (e *OutOfRangeError) Unwrap() error { return ErrOutOfRange }

// ShapeMismatchError reports a feature vector whose length differs from the
// model's input dimension.
type ShapeMismatchError struct {
	Expected int
	Actual   int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d features, got %d", ErrShapeMismatch, e.Expected, e.Actual)
}

func (e *ShapeMismatchError) Unwrap() error { return ErrShapeMismatch }

// OutputShapeMismatchError reports a model that returned a label sequence of
// the wrong length.
type OutputShapeMismatchError struct {
	Expected int
	Actual   int
}

func (e *OutputShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %d labels, got %d", ErrOutputShapeMismatch, e.Expected, e.Actual)
}

func (e *OutputShapeMismatchError) Unwrap() error { return ErrOutputShapeMismatch }

// InvalidLabelError reports a label that is neither 0 nor 1.
type InvalidLabelError struct {
	Index int
	Value int
}

func (e *InvalidLabelError) Error() string {
	return fmt.Sprintf("%s: label %d = %d, want 0 or 1", ErrInvalidLabel, e.Index, e.Value)
}

func (e *InvalidLabelError) Unwrap() error { return ErrInvalidLabel }

// PredictionTimeoutError reports a predict call that exceeded its bound.
type PredictionTimeoutError struct {
	Timeout time.Duration
}

func (e *PredictionTimeoutError) Error() string {
	return fmt.Sprintf("%s after %s", ErrPredictionTimeout, e.Timeout)
}

func (e *PredictionTimeoutError) Unwrap() error { return ErrPredictionTimeout }

// Unavailable wraps the load cause under ErrModelUnavailable.
func Unavailable(cause error) error {
	if cause == nil {
		return ErrModelUnavailable
	}
	return fmt.Errorf("%w: %w", ErrModelUnavailable, cause)
}
