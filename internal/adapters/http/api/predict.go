package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	service "github.com/okian/sprinkler/internal/app"
	"github.com/okian/sprinkler/internal/domain/features"
	"github.com/okian/sprinkler/internal/domain/inference"
	"github.com/okian/sprinkler/pkg/logger"
)

// predictRequest mirrors the OpenAPI schema for POST /predict. Exactly one
// of the two fields must be present.
type predictRequest struct {
	Readings        []float64        `json:"readings"`
	ReadingsByIndex []indexedReading `json:"readings_by_index"`
}

type indexedReading struct {
	Index *int     `json:"index"`
	Value *float64 `json:"value"`
}

func (p predictRequest) validate() error {
	if (p.Readings == nil) == (p.ReadingsByIndex == nil) {
		return ErrAmbiguousBody
	}
	for i, r := range p.ReadingsByIndex {
		if r.Index == nil || r.Value == nil {
			return fmt.Errorf("readings_by_index[%d]: index and value are required", i)
		}
	}
	return nil
}

func (p predictRequest) readings() []features.Reading {
	out := make([]features.Reading, len(p.ReadingsByIndex))
	for i, r := range p.ReadingsByIndex {
		out[i] = features.Reading{Index: *r.Index, Value: *r.Value}
	}
	return out
}

type sprinklerStatus struct {
	Index  int  `json:"index"`
	Parcel int  `json:"parcel"`
	On     bool `json:"on"`
}

type predictResponse struct {
	RequestID  string              `json:"request_id"`
	Model      inference.ModelInfo `json:"model"`
	Sprinklers []sprinklerStatus   `json:"sprinklers"`
	OnCount    int                 `json:"on_count"`
	Actuation  string              `json:"actuation"`
}

func newPredictResponse(p service.Prediction) predictResponse {
	statuses := p.Result.Statuses()
	sprinklers := make([]sprinklerStatus, len(statuses))
	for i, st := range statuses {
		// Sprinkler i waters parcel i.
		sprinklers[i] = sprinklerStatus{Index: st.Index, Parcel: st.Index, On: st.On}
	}
	return predictResponse{
		RequestID:  p.RequestID,
		Model:      p.Model,
		Sprinklers: sprinklers,
		OnCount:    p.Result.OnCount(),
		Actuation:  p.Actuation,
	}
}

// PredictHandler handles prediction requests.
type PredictHandler struct {
	deps         Dependencies
	maxBodyBytes int64
	logger       logger.Logger
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps Dependencies, maxBodyBytes int64, log logger.Logger) *PredictHandler {
	return &PredictHandler{deps: deps, maxBodyBytes: maxBodyBytes, logger: log}
}

// HandlePredict handles POST /predict requests.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	const op = "api.predict"
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	req, err := h.decode(w, r)
	if err != nil {
		kind := ErrBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			kind = ErrBodyTooLarge
		}
		h.fail(w, r, WrapKind(op, kind, err))
		return
	}

	ctx := r.Context()
	requestID := RequestIDFromContext(ctx)
	var p service.Prediction
	if req.Readings != nil {
		p, err = h.deps.Predict(ctx, requestID, req.Readings)
	} else {
		p, err = h.deps.PredictReadings(ctx, requestID, req.readings())
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPredictResponse(p))
}

func (h *PredictHandler) decode(w http.ResponseWriter, r *http.Request) (predictRequest, error) {
	var req predictRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, errors.New("empty body")
		}
		return req, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return req, errors.New("unexpected data after JSON body")
	}
	return req, req.validate()
}

func (h *PredictHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	p := classify(err)
	if p.status >= statusInternalError {
		h.logger.Error(r.Context(), "prediction request failed",
			logger.String("request_id", RequestIDFromContext(r.Context())),
			logger.String("code", p.code),
			logger.Error(err))
	}
	writeErrorDetails(w, p.status, p.code, err, p.details)
}
