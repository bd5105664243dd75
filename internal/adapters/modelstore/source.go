// Package modelstore loads classifiers from named locations and watches
// on-disk artifacts for changes.
package modelstore

import (
	"time"
)

// Kind selects how a model is located.
type Kind string

// Supported model sources.
const (
	KindFile   Kind = "file"
	KindRemote Kind = "remote"
)

const defaultRemoteTimeout = 5 * time.Second

// Source names the location of a model.
type Source struct {
	Kind    Kind
	Path    string
	URL     string
	Timeout time.Duration
}

// Location is the human-readable location used in errors and logs.
func (s Source) Location() string {
	if s.Kind == KindRemote {
		return s.URL
	}
	return s.Path
}
