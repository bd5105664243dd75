package probe

import "time"

// Config holds configuration for a probe run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Requests   int           // Number of random predictions to submit
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	Repeat     int           // Resubmissions per determinism sample
	OutputFile string        // Output file for results
	Verbose    bool          // Enable verbose logging
}

// Defaults for zero-valued fields.
const (
	defaultRequests = 1000
	defaultTimeout  = 10 * time.Second
	defaultRepeat   = 3
)

// normalize fills zero values and keeps workers within the request count.
func (c *Config) normalize() {
	if c.Requests <= 0 {
		c.Requests = defaultRequests
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Repeat <= 0 {
		c.Repeat = defaultRepeat
	}
	c.Workers = max(1, min(c.Workers, c.Requests))
}

// Sensor mirrors an entry of GET /sensors.
type Sensor struct {
	Index int    `json:"index"`
	Key   string `json:"key"`
	Name  string `json:"name"`
	Range struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	} `json:"range"`
}

// ModelInfo mirrors the model description returned by the service.
type ModelInfo struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	Source          string `json:"source"`
	InputDimension  int    `json:"input_dimension"`
	OutputDimension int    `json:"output_dimension"`
}

// ModelStatus mirrors GET /model.
type ModelStatus struct {
	Ready     bool       `json:"ready"`
	Model     *ModelInfo `json:"model"`
	LoadError string     `json:"load_error"`
}

// Sprinkler is one rendered status of a prediction.
type Sprinkler struct {
	Index  int  `json:"index"`
	Parcel int  `json:"parcel"`
	On     bool `json:"on"`
}

// Prediction mirrors a successful POST /predict response.
type Prediction struct {
	RequestID  string      `json:"request_id"`
	Model      ModelInfo   `json:"model"`
	Sprinklers []Sprinkler `json:"sprinklers"`
	OnCount    int         `json:"on_count"`
	Actuation  string      `json:"actuation"`
}

// States returns the on/off sequence in sprinkler order.
func (p Prediction) States() []bool {
	out := make([]bool, len(p.Sprinklers))
	for i, s := range p.Sprinklers {
		out[i] = s.On
	}
	return out
}

// ErrorResponse mirrors the service error body.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

// Result is one submitted vector and what came back.
type Result struct {
	RequestID string    `json:"request_id"`
	Readings  []float64 `json:"readings"`
	Status    int       `json:"status"`
	States    []bool    `json:"states,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Stats holds probe statistics.
type Stats struct {
	Requests              int           `json:"requests"`
	Succeeded             int           `json:"succeeded"`
	Failed                int           `json:"failed"`
	OnTotal               int           `json:"on_total"`
	ShapeViolations       int           `json:"shape_violations"`
	DeterminismChecks     int           `json:"determinism_checks"`
	DeterminismViolations int           `json:"determinism_violations"`
	NegativeChecks        int           `json:"negative_checks"`
	NegativeFailures      int           `json:"negative_failures"`
	StartTime             time.Time     `json:"start_time"`
	EndTime               time.Time     `json:"end_time"`
	Duration              time.Duration `json:"duration"`
}

// Violations is the number of failed expectations.
func (s *Stats) Violations() int {
	return s.Failed + s.ShapeViolations + s.DeterminismViolations + s.NegativeFailures
}
