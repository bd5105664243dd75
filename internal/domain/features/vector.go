// Package features assembles validated sensor readings into the ordered
// numeric vector a model consumes.
package features

// Reading is one scalar input at a stable, 0-based position.
type Reading struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
}

// Vector is an immutable, ordered sequence of feature values.
type Vector struct {
	values []float64
}

// NewVector copies values into a Vector without validating them. Use a
// Builder for vectors that come from user input.
func NewVector(values []float64) Vector {
	cp := make([]float64, len(values))
	copy(cp, values)
	return Vector{values: cp}
}

// Len returns the number of features.
func (v Vector) Len() int { return len(v.values) }

// At returns feature i.
func (v Vector) At(i int) float64 { return v.values[i] }

// Values returns a copy of the features in index order.
func (v Vector) Values() []float64 {
	cp := make([]float64, len(v.values))
	copy(cp, v.values)
	return cp
}
