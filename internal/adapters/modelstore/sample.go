package modelstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	sampleName    = "sample-linear"
	sampleVersion = "1"
	// A unit is on while its own reading is at or below 0.5.
	sampleWeight = -8.0
	sampleBias   = 4.0
)

// SampleArtifact returns a deterministic in x out artifact where output j
// depends only on feature j mod in.
func SampleArtifact(in, out int) Artifact {
	a := Artifact{
		Name:            sampleName,
		Version:         sampleVersion,
		InputDimension:  in,
		OutputDimension: out,
		Outputs:         make([]Unit, out),
	}
	for j := range a.Outputs {
		w := make([]float64, in)
		if in > 0 {
			w[j%in] = sampleWeight
		}
		a.Outputs[j] = Unit{Weights: w, Bias: sampleBias, Threshold: defaultThreshold}
	}
	return a
}

// CreateSampleModel writes SampleArtifact(in, out) to path as YAML.
func CreateSampleModel(path string, in, out int) error {
	a := SampleArtifact(in, out)
	if err := a.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal sample artifact: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// EnsureSampleModel creates the sample artifact only when path does not
// exist. created reports whether a file was written.
func EnsureSampleModel(path string, in, out int) (created bool, err error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	if err := CreateSampleModel(path, in, out); err != nil {
		return false, err
	}
	return true, nil
}
