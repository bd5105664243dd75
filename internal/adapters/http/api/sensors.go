package api

import (
	"net/http"

	"github.com/okian/sprinkler/internal/domain/sensor"
)

// SensorsDependencies exposes the ordered model inputs.
type SensorsDependencies interface {
	Sensors() []sensor.Sensor
}

// SensorsHandler handles sensor catalog requests.
type SensorsHandler struct {
	deps SensorsDependencies
}

// NewSensorsHandler creates a new sensors handler.
func NewSensorsHandler(deps SensorsDependencies) *SensorsHandler {
	return &SensorsHandler{deps: deps}
}

type sensorsResponse struct {
	Count   int             `json:"count"`
	Sensors []sensor.Sensor `json:"sensors"`
}

// HandleSensors handles GET /sensors requests. Order is feature order.
func (h *SensorsHandler) HandleSensors(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	sensors := h.deps.Sensors()
	writeJSON(w, http.StatusOK, sensorsResponse{Count: len(sensors), Sensors: sensors})
}
