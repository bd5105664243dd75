package modelstore

import "errors"

// Sentinel kinds for model store errors.
var (
	ErrUnknownSource   = errors.New("unknown model source")
	ErrInvalidArtifact = errors.New("invalid model artifact")
	ErrIncompatible    = errors.New("model incompatible with configured dimensions")
	ErrRemote          = errors.New("remote model error")
)
