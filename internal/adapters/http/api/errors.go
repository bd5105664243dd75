package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/sprinkler/internal/domain/fault"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrBodyTooLarge  = errors.New("request body too large")
	ErrAmbiguousBody = errors.New("exactly one of readings or readings_by_index is required")
)

// WrapKind annotates err with the operation and a sentinel kind.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return NewKind(op, kind)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// NewKind returns a bare sentinel kind annotated with the operation.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// problem is the HTTP rendering of a pipeline failure.
type problem struct {
	status  int
	code    string
	details map[string]any
}

// classify maps the pipeline error taxonomy to a status, a stable code and
// the diagnostic fields a client can act on.
func classify(err error) problem {
	var (
		rangeErr  *fault.OutOfRangeError
		shapeErr  *fault.ShapeMismatchError
		outErr    *fault.OutputShapeMismatchError
		labelErr  *fault.InvalidLabelError
		timeout   *fault.PredictionTimeoutError
		tooLarge  *http.MaxBytesError
		malformed = errors.Is(err, ErrBadRequest)
	)
	switch {
	case errors.Is(err, ErrBodyTooLarge) && errors.As(err, &tooLarge):
		return problem{status: http.StatusRequestEntityTooLarge, code: "payload_too_large",
			details: map[string]any{"limit": tooLarge.Limit}}
	case malformed:
		return problem{status: http.StatusBadRequest, code: "bad_request"}
	case errors.As(err, &rangeErr):
		return problem{status: http.StatusUnprocessableEntity, code: "out_of_range", details: map[string]any{
			"index": rangeErr.Index, "value": rangeErr.Value, "min": rangeErr.Min, "max": rangeErr.Max,
		}}
	case errors.As(err, &shapeErr):
		return problem{status: http.StatusUnprocessableEntity, code: "shape_mismatch", details: map[string]any{
			"expected": shapeErr.Expected, "actual": shapeErr.Actual,
		}}
	case errors.Is(err, fault.ErrInvalidReading):
		return problem{status: http.StatusUnprocessableEntity, code: "invalid_reading"}
	case errors.Is(err, fault.ErrModelUnavailable):
		return problem{status: http.StatusServiceUnavailable, code: "model_unavailable"}
	case errors.As(err, &timeout):
		return problem{status: http.StatusGatewayTimeout, code: "prediction_timeout",
			details: map[string]any{"timeout_ms": timeout.Timeout.Milliseconds()}}
	case errors.As(err, &outErr):
		return problem{status: http.StatusInternalServerError, code: "output_shape_mismatch", details: map[string]any{
			"expected": outErr.Expected, "actual": outErr.Actual,
		}}
	case errors.As(err, &labelErr):
		return problem{status: http.StatusInternalServerError, code: "invalid_label", details: map[string]any{
			"index": labelErr.Index, "value": labelErr.Value,
		}}
	case errors.Is(err, fault.ErrPrediction):
		return problem{status: http.StatusInternalServerError, code: "prediction_failed"}
	default:
		return problem{status: http.StatusInternalServerError, code: "internal_error"}
	}
}
