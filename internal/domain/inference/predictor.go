package inference

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/sprinkler/internal/domain/fault"
	"github.com/okian/sprinkler/internal/domain/features"
)

// Option applies a configuration option to the Predictor.
type Option func(*Predictor)

// WithTimeout bounds every model call. Zero or negative disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(p *Predictor) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// Predictor is the Prediction Adapter: it checks the vector against the
// model's input dimension, invokes the model exactly once, and checks the
// labels that come back. It is read-only after construction and safe for
// concurrent use.
type Predictor struct {
	model   Model
	cause   error
	timeout time.Duration
}

// NewPredictor wraps a loaded model.
func NewPredictor(model Model, opts ...Option) *Predictor {
	p := &Predictor{model: model}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewUnavailablePredictor returns a Predictor for a process whose model
// failed to load. Every Predict fails with fault.ErrModelUnavailable
// wrapping cause.
func NewUnavailablePredictor(cause error, opts ...Option) *Predictor {
	p := NewPredictor(nil, opts...)
	p.cause = cause
	return p
}

// Available reports whether a model is loaded.
func (p *Predictor) Available() bool { return p.model != nil }

// Cause returns the load error of an unavailable predictor.
func (p *Predictor) Cause() error { return p.cause }

// Info describes the loaded model. ok is false when no model is loaded.
func (p *Predictor) Info() (info ModelInfo, ok bool) {
	if p.model == nil {
		return ModelInfo{}, false
	}
	info = p.model.Info()
	info.InputDimension = p.model.InputDimension()
	info.OutputDimension = p.model.OutputDimension()
	return info, true
}

// Predict returns one on/off status per output unit.
//
// Failures, in the order they are checked: fault.ErrModelUnavailable,
// *fault.ShapeMismatchError (the model is not called), then after the single
// model call *fault.PredictionTimeoutError, errors wrapping
// fault.ErrPrediction, *fault.OutputShapeMismatchError and
// *fault.InvalidLabelError. No partial result is ever returned.
func (p *Predictor) Predict(ctx context.Context, v features.Vector) (Result, error) {
	if p.model == nil {
		return Result{}, fault.Unavailable(p.cause)
	}
	if want := p.model.InputDimension(); v.Len() != want {
		return Result{}, &fault.ShapeMismatchError{Expected: want, Actual: v.Len()}
	}

	labels, err := p.invoke(ctx, v)
	if err != nil {
		return Result{}, err
	}

	if want := p.model.OutputDimension(); len(labels) != want {
		return Result{}, &fault.OutputShapeMismatchError{Expected: want, Actual: len(labels)}
	}
	out := make([]bool, len(labels))
	for i, l := range labels {
		switch l {
		case 0:
		case 1:
			out[i] = true
		default:
			return Result{}, &fault.InvalidLabelError{Index: i, Value: l}
		}
	}
	return Result{labels: out}, nil
}

type outcome struct {
	labels []int
	err    error
}

// invoke calls the model once, bounded by the configured timeout.
func (p *Predictor) invoke(ctx context.Context, v features.Vector) ([]int, error) {
	if p.timeout <= 0 {
		labels, err := p.model.Predict(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", fault.ErrPrediction, err)
		}
		return labels, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// Buffered so the model goroutine never blocks after we stop waiting.
	done := make(chan outcome, 1)
	go func() {
		labels, err := p.model.Predict(callCtx, v)
		done <- outcome{labels: labels, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			if callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
				return nil, &fault.PredictionTimeoutError{Timeout: p.timeout}
			}
			return nil, fmt.Errorf("%w: %w", fault.ErrPrediction, o.err)
		}
		return o.labels, nil
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", fault.ErrPrediction, ctx.Err())
		}
		return nil, &fault.PredictionTimeoutError{Timeout: p.timeout}
	}
}
