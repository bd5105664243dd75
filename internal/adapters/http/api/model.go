package api

import (
	"errors"
	"net/http"

	service "github.com/okian/sprinkler/internal/app"
)

// ModelDependencies reports the state of the loaded model.
type ModelDependencies interface {
	Ready() bool
	ModelStatus() service.ModelStatus
}

// ModelHandler handles model info and readiness requests.
type ModelHandler struct {
	deps ModelDependencies
}

// NewModelHandler creates a new model handler.
func NewModelHandler(deps ModelDependencies) *ModelHandler {
	return &ModelHandler{deps: deps}
}

// HandleModel handles GET /model requests.
func (h *ModelHandler) HandleModel(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, h.deps.ModelStatus())
}

type readyResponse struct {
	Status string `json:"status"`
}

// HandleReady handles GET /readyz: 200 once a model is loaded, 503 otherwise.
func (h *ModelHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	if h.deps.Ready() {
		writeJSON(w, http.StatusOK, readyResponse{Status: "ready"})
		return
	}
	reason := h.deps.ModelStatus().LoadError
	if reason == "" {
		reason = "model not loaded"
	}
	writeError(w, http.StatusServiceUnavailable, "model_unavailable", errors.New(reason))
}
