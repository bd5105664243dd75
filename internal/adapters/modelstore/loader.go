package modelstore

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/sprinkler/internal/domain/fault"
	"github.com/okian/sprinkler/internal/domain/inference"
)

// Load obtains the model named by src. Every failure is a
// *fault.ModelLoadError naming the location.
func Load(ctx context.Context, src Source) (inference.Model, error) {
	var (
		m   inference.Model
		err error
	)
	switch src.Kind {
	case KindFile, "":
		if src.Path == "" {
			return nil, fault.NewModelLoad("<empty path>", fmt.Errorf("%w: no artifact path", ErrUnknownSource))
		}
		m, err = LoadLinear(src.Path)
	case KindRemote:
		if src.URL == "" {
			return nil, fault.NewModelLoad("<empty url>", fmt.Errorf("%w: no remote url", ErrUnknownSource))
		}
		timeout := src.Timeout
		if timeout <= 0 {
			timeout = defaultRemoteTimeout
		}
		m, err = LoadRemote(ctx, src.URL, &http.Client{Timeout: timeout})
	default:
		return nil, fault.NewModelLoad(string(src.Kind), fmt.Errorf("%w: %q", ErrUnknownSource, src.Kind))
	}
	if err != nil {
		return nil, fault.NewModelLoad(src.Location(), err)
	}
	return m, nil
}

// CheckDimensions fails with a *fault.ModelLoadError when the model does not
// accept in features or does not emit out labels.
func CheckDimensions(m inference.Model, location string, in, out int) error {
	if m.InputDimension() != in || m.OutputDimension() != out {
		return fault.NewModelLoad(location, fmt.Errorf("%w: model is %dx%d, configured %dx%d",
			ErrIncompatible, m.InputDimension(), m.OutputDimension(), in, out))
	}
	return nil
}
