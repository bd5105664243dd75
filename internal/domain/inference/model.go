// Package inference mediates between feature vectors and an opaque
// multi-output binary classifier.
package inference

import (
	"context"

	"github.com/okian/sprinkler/internal/domain/features"
)

// Model is the narrow capability the pipeline needs from a classifier.
// Implementations must be deterministic and safe for concurrent Predict
// calls: the same vector always yields the same labels.
type Model interface {
	// Predict returns one label per output unit, in output order.
	Predict(ctx context.Context, v features.Vector) ([]int, error)
	// InputDimension is the number of features the model was trained on.
	InputDimension() int
	// OutputDimension is the number of labels the model emits.
	OutputDimension() int
	// Info describes the model for diagnostics.
	Info() ModelInfo
}

// ModelInfo identifies a loaded model.
type ModelInfo struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	Source          string `json:"source"`
	InputDimension  int    `json:"input_dimension"`
	OutputDimension int    `json:"output_dimension"`
}
