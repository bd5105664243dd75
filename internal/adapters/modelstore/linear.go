package modelstore

import (
	"context"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okian/sprinkler/internal/domain/features"
	"github.com/okian/sprinkler/internal/domain/inference"
)

const defaultThreshold = 0.5

// Artifact is the on-disk form of a linear one-vs-rest classifier. Both YAML
// and JSON documents decode into it.
type Artifact struct {
	Name            string `yaml:"name" json:"name"`
	Version         string `yaml:"version" json:"version"`
	InputDimension  int    `yaml:"input_dimension" json:"input_dimension"`
	OutputDimension int    `yaml:"output_dimension" json:"output_dimension"`
	Outputs         []Unit `yaml:"outputs" json:"outputs"`
}

// Unit is one logistic output: on when sigmoid(bias + w·x) >= threshold.
type Unit struct {
	Weights   []float64 `yaml:"weights" json:"weights"`
	Bias      float64   `yaml:"bias" json:"bias"`
	Threshold float64   `yaml:"threshold,omitempty" json:"threshold,omitempty"`
}

// LinearModel evaluates an Artifact. It is immutable and safe for
// concurrent use.
type LinearModel struct {
	artifact Artifact
	source   string
}

var _ inference.Model = (*LinearModel)(nil)

// DecodeArtifact parses and validates an artifact document.
func DecodeArtifact(data []byte) (Artifact, error) {
	var a Artifact
	if err := yaml.Unmarshal(data, &a); err != nil {
		return Artifact{}, fmt.Errorf("%w: %w", ErrInvalidArtifact, err)
	}
	if err := a.Validate(); err != nil {
		return Artifact{}, err
	}
	return a, nil
}

// Validate checks the artifact's dimensions and parameters.
func (a Artifact) Validate() error {
	if a.InputDimension <= 0 || a.OutputDimension <= 0 {
		return fmt.Errorf("%w: dimensions must be positive, got %dx%d", ErrInvalidArtifact, a.InputDimension, a.OutputDimension)
	}
	if len(a.Outputs) != a.OutputDimension {
		return fmt.Errorf("%w: %d outputs declared, %d defined", ErrInvalidArtifact, a.OutputDimension, len(a.Outputs))
	}
	for j, u := range a.Outputs {
		if len(u.Weights) != a.InputDimension {
			return fmt.Errorf("%w: output %d has %d weights, want %d", ErrInvalidArtifact, j, len(u.Weights), a.InputDimension)
		}
		if !finite(u.Bias) || !finite(u.Threshold) {
			return fmt.Errorf("%w: output %d has a non-finite parameter", ErrInvalidArtifact, j)
		}
		if u.Threshold != 0 && (u.Threshold <= 0 || u.Threshold >= 1) {
			return fmt.Errorf("%w: output %d threshold %v not in (0, 1)", ErrInvalidArtifact, j, u.Threshold)
		}
		for _, w := range u.Weights {
			if !finite(w) {
				return fmt.Errorf("%w: output %d has a non-finite weight", ErrInvalidArtifact, j)
			}
		}
	}
	return nil
}

// NewLinearModel wraps a validated artifact.
func NewLinearModel(a Artifact, source string) (*LinearModel, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &LinearModel{artifact: a, source: source}, nil
}

// LoadLinear reads and decodes the artifact at path.
func LoadLinear(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	a, err := DecodeArtifact(data)
	if err != nil {
		return nil, err
	}
	return &LinearModel{artifact: a, source: "file:" + path}, nil
}

// Predict evaluates every unit against v.
func (m *LinearModel) Predict(ctx context.Context, v features.Vector) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if v.Len() != m.artifact.InputDimension {
		return nil, fmt.Errorf("%w: got %d features, want %d", ErrInvalidArtifact, v.Len(), m.artifact.InputDimension)
	}
	labels := make([]int, len(m.artifact.Outputs))
	for j, u := range m.artifact.Outputs {
		z := u.Bias
		for i, w := range u.Weights {
			z += w * v.At(i)
		}
		threshold := u.Threshold
		if threshold == 0 {
			threshold = defaultThreshold
		}
		if sigmoid(z) >= threshold {
			labels[j] = 1
		}
	}
	return labels, nil
}

func (m *LinearModel) InputDimension() int  { return m.artifact.InputDimension }
func (m *LinearModel) OutputDimension() int { return m.artifact.OutputDimension }

func (m *LinearModel) Info() inference.ModelInfo {
	return inference.ModelInfo{
		Name:    m.artifact.Name,
		Version: m.artifact.Version,
		Source:  m.source,
	}
}

func sigmoid(z float64) float64 { return 1 / (1 + math.Exp(-z)) }

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
