package features

import (
	"fmt"

	"github.com/okian/sprinkler/internal/domain/fault"
	"github.com/okian/sprinkler/internal/domain/sensor"
)

// Builder turns N independent readings into a Vector of length N.
// It holds no mutable state and is safe for concurrent use.
type Builder struct {
	sensors []sensor.Sensor
}

// NewBuilder creates a builder for the given sensors. The sensors' order is
// the feature order and their ranges are the accepted intervals.
func NewBuilder(sensors []sensor.Sensor) *Builder {
	cp := make([]sensor.Sensor, len(sensors))
	copy(cp, sensors)
	return &Builder{sensors: cp}
}

// Dimension returns N.
func (b *Builder) Dimension() int { return len(b.sensors) }

// Sensors returns a copy of the sensors backing each feature.
func (b *Builder) Sensors() []sensor.Sensor {
	cp := make([]sensor.Sensor, len(b.sensors))
	copy(cp, b.sensors)
	return cp
}

// Build validates values, given in index order, and returns them as a Vector.
// A wrong count fails with *fault.ShapeMismatchError and the first value
// outside its interval fails with *fault.OutOfRangeError. Nothing is clamped.
func (b *Builder) Build(values []float64) (Vector, error) {
	if len(values) != len(b.sensors) {
		return Vector{}, &fault.ShapeMismatchError{Expected: len(b.sensors), Actual: len(values)}
	}
	for i, v := range values {
		r := b.sensors[i].Range
		if !r.Contains(v) {
			return Vector{}, &fault.OutOfRangeError{Index: i, Value: v, Min: r.Min, Max: r.Max}
		}
	}
	return NewVector(values), nil
}

// BuildReadings orders readings by index and builds the vector. Every index
// in [0, N) must appear exactly once.
func (b *Builder) BuildReadings(readings []Reading) (Vector, error) {
	if len(readings) != len(b.sensors) {
		return Vector{}, &fault.ShapeMismatchError{Expected: len(b.sensors), Actual: len(readings)}
	}
	values := make([]float64, len(b.sensors))
	seen := make([]bool, len(b.sensors))
	for _, r := range readings {
		if r.Index < 0 || r.Index >= len(b.sensors) {
			return Vector{}, fmt.Errorf("%w: index %d outside [0, %d)", fault.ErrInvalidReading, r.Index, len(b.sensors))
		}
		if seen[r.Index] {
			return Vector{}, fmt.Errorf("%w: index %d given twice", fault.ErrInvalidReading, r.Index)
		}
		seen[r.Index] = true
		values[r.Index] = r.Value
	}
	return b.Build(values)
}
