// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/okian/sprinkler/internal/app"
	"github.com/okian/sprinkler/internal/domain/features"
	"github.com/okian/sprinkler/internal/domain/sensor"
	"github.com/okian/sprinkler/pkg/logger"
)

const defaultMaxBodyBytes int64 = 64 << 10

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Predict runs the pipeline over values given in sensor order.
	Predict(ctx context.Context, requestID string, values []float64) (service.Prediction, error)
	// PredictReadings runs the pipeline over readings keyed by sensor index.
	PredictReadings(ctx context.Context, requestID string, readings []features.Reading) (service.Prediction, error)

	Sensors() []sensor.Sensor
	Ready() bool
	ModelStatus() service.ModelStatus
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	predictHandler *PredictHandler
	sensorsHandler *SensorsHandler
	modelHandler   *ModelHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := &serverConfig{maxBodyBytes: defaultMaxBodyBytes}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("api")
	}
	return &Server{
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		predictHandler: NewPredictHandler(deps, cfg.maxBodyBytes, cfg.logger),
		sensorsHandler: NewSensorsHandler(deps),
		modelHandler:   NewModelHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(path, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(path, RequestIDMiddleware(MetricsMiddleware(h, endpoint)))
	}
	route("/healthz", "healthz", s.healthHandler.HandleHealth)
	route("/metrics", "metrics", s.healthHandler.HandleHealth)
	route("/readyz", "readyz", s.modelHandler.HandleReady)
	route("/stats", "stats", s.statsHandler.HandleStats)
	route("/predict", "predict", s.predictHandler.HandlePredict)
	route("/sensors", "sensors", s.sensorsHandler.HandleSensors)
	route("/model", "model", s.modelHandler.HandleModel)
}

type errorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeErrorDetails(w, status, code, err, nil)
}

func writeErrorDetails(w http.ResponseWriter, status int, code string, err error, details map[string]any) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg, Details: details})
}

// allowMethod answers 405 and returns false when r does not use method.
func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	return false
}
