package probe

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/okian/sprinkler/pkg/logger"
)

// Verification errors.
var (
	ErrNotReady          = errors.New("service not ready")
	ErrDimensionMismatch = errors.New("sensor catalog and model disagree")
	ErrUnordered         = errors.New("sprinklers not in order")
)

// checkOrdered verifies p holds exactly outputs sprinklers, indexed 0..M-1
// in order, with parcel i for sprinkler i and a matching on_count.
func checkOrdered(p Prediction, outputs int) error {
	if len(p.Sprinklers) != outputs {
		return fmt.Errorf("%w: got %d sprinklers, want %d", ErrUnordered, len(p.Sprinklers), outputs)
	}
	on := 0
	for i, s := range p.Sprinklers {
		if s.Index != i || s.Parcel != i {
			return fmt.Errorf("%w: position %d holds sprinkler %d parcel %d", ErrUnordered, i, s.Index, s.Parcel)
		}
		if s.On {
			on++
		}
	}
	if on != p.OnCount {
		return fmt.Errorf("on_count %d does not match %d sprinklers on", p.OnCount, on)
	}
	return nil
}

// checkDeterminism resubmits up to DeterminismSampleSize successful vectors
// repeat times each and expects identical states.
func checkDeterminism(ctx context.Context, client *HTTPClient, results []Result, outputs, repeat int, stats *Stats) {
	log := logger.Get().Named("probe")
	checked := 0
	for _, r := range results {
		if checked == DeterminismSampleSize {
			break
		}
		if r.States == nil {
			continue
		}
		checked++
		for i := 0; i < repeat; i++ {
			again, kind := submitSingle(ctx, client, r.Readings, outputs)
			stats.DeterminismChecks++
			if kind != outcomeOK || !slices.Equal(r.States, again.States) {
				stats.DeterminismViolations++
				log.Warn(ctx, "prediction not reproducible",
					logger.String("request_id", again.RequestID),
					logger.String("first_request_id", r.RequestID),
					logger.String("error", again.Error))
			}
		}
	}
	log.Info(ctx, "determinism checked",
		logger.Int("samples", checked),
		logger.Int("checks", stats.DeterminismChecks),
		logger.Int("violations", stats.DeterminismViolations))
}

// negativeCheck is one request that must be refused.
type negativeCheck struct {
	name     string
	readings []float64
	code     string
	index    int // expected details.index for out_of_range; -1 otherwise
}

func negativeChecks(inputs int) []negativeCheck {
	base := generateReadings(1, inputs)[0]

	high := append([]float64(nil), base...)
	hi := randomIndex(inputs)
	high[hi] = 1.0 + getRandomFloat() + 1e-6

	low := append([]float64(nil), base...)
	lo := randomIndex(inputs)
	low[lo] = -1e-3

	return []negativeCheck{
		{name: "above range", readings: high, code: "out_of_range", index: hi},
		{name: "below range", readings: low, code: "out_of_range", index: lo},
		{name: "one reading short", readings: base[:inputs-1], code: "shape_mismatch", index: -1},
		{name: "one reading extra", readings: append(append([]float64(nil), base...), 0.5), code: "shape_mismatch", index: -1},
	}
}

// runNegativeChecks expects 422 with the right code, and the offending index
// for out-of-range readings.
func runNegativeChecks(ctx context.Context, client *HTTPClient, inputs int, stats *Stats) {
	log := logger.Get().Named("probe")
	for _, c := range negativeChecks(inputs) {
		stats.NegativeChecks++
		if err := expectRejection(ctx, client, c); err != nil {
			stats.NegativeFailures++
			log.Warn(ctx, "negative check failed", logger.String("check", c.name), logger.Error(err))
			continue
		}
		log.Debug(ctx, "negative check passed", logger.String("check", c.name))
	}
}

func expectRejection(ctx context.Context, client *HTTPClient, c negativeCheck) error {
	resp, err := client.Predict(ctx, newRequestID("negative"), c.readings)
	if err != nil {
		return err
	}
	if resp.Status != StatusUnprocessableEntity {
		return fmt.Errorf("status %d, want %d", resp.Status, StatusUnprocessableEntity)
	}
	var e ErrorResponse
	if err := resp.Decode(&e); err != nil {
		return err
	}
	if e.Code != c.code {
		return fmt.Errorf("code %q, want %q", e.Code, c.code)
	}
	if c.index >= 0 {
		got, ok := e.Details["index"].(float64)
		if !ok || int(got) != c.index {
			return fmt.Errorf("details.index %v, want %d", e.Details["index"], c.index)
		}
	}
	return nil
}
