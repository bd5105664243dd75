// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keys are flat and lowercase so they map one-to-one onto env vars.
// - New() returns a Config filled with defaults; Load layers sources on top.
// - Validate reports every problem at once, joined under ErrInvalidConfig.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/sprinkler/internal/domain/sensor"
)

// Model source kinds.
const (
	ModelSourceFile   = "file"
	ModelSourceRemote = "remote"
)

const maxMQTTQoS = 2

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ModelSource is "file" for an on-disk artifact or "remote" for an
	// inference service.
	ModelSource string `koanf:"model_source"`

	// ModelPath locates the on-disk artifact.
	ModelPath string `koanf:"model_path"`

	// ModelURL is the base URL of a remote inference service.
	ModelURL string `koanf:"model_url"`

	// ModelRemoteTimeoutMS bounds each HTTP call to the remote service.
	ModelRemoteTimeoutMS int `koanf:"model_remote_timeout_ms"`

	// ModelBootstrapSample writes a sample artifact at ModelPath when none exists.
	ModelBootstrapSample bool `koanf:"model_bootstrap_sample"`

	// ModelWatch reports changes to the artifact after load.
	ModelWatch bool `koanf:"model_watch"`

	// InputDimension and OutputDimension must match the loaded model.
	InputDimension  int `koanf:"input_dimension"`
	OutputDimension int `koanf:"output_dimension"`

	// PredictTimeoutMS bounds a single prediction; 0 disables the bound.
	PredictTimeoutMS int `koanf:"predict_timeout_ms"`

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// Actuation publishes predicted states to field controllers over MQTT.
	ActuationEnabled   bool `koanf:"actuation_enabled"`
	ActuationQueueSize int  `koanf:"actuation_queue_size"`
	ActuationWorkers   int  `koanf:"actuation_workers"`

	MQTTBroker   string `koanf:"mqtt_broker"`
	MQTTClientID string `koanf:"mqtt_client_id"`
	MQTTUsername string `koanf:"mqtt_username"`
	MQTTPassword string `koanf:"mqtt_password"`
	MQTTTopic    string `koanf:"mqtt_topic"`
	MQTTQoS      int    `koanf:"mqtt_qos"`
}

// New creates a Config with defaults for the reference deployment.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		Addr:                 ":9080",
		ModelSource:          ModelSourceFile,
		ModelPath:            "models/sprinkler.yaml",
		ModelRemoteTimeoutMS: 5000,
		ModelBootstrapSample: false,
		ModelWatch:           true,
		InputDimension:       20,
		OutputDimension:      20,
		PredictTimeoutMS:     2000,
		MaxBodyBytes:         64 << 10,
		ActuationEnabled:     false,
		ActuationQueueSize:   1024,
		ActuationWorkers:     2,
		MQTTBroker:           "tcp://localhost:1883",
		MQTTClientID:         "sprinkler-inference",
		MQTTTopic:            "irrigation/sprinklers/state",
		MQTTQoS:              1,
	}
}

// PredictTimeout returns PredictTimeoutMS as a duration.
func (c *Config) PredictTimeout() time.Duration {
	return time.Duration(c.PredictTimeoutMS) * time.Millisecond
}

// ModelRemoteTimeout returns ModelRemoteTimeoutMS as a duration.
func (c *Config) ModelRemoteTimeout() time.Duration {
	return time.Duration(c.ModelRemoteTimeoutMS) * time.Millisecond
}

// Validate checks every field and returns all problems joined under
// ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(c.Addr) == "" {
		add("addr must not be empty")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		add("log_format must be text or json, got %q", c.LogFormat)
	}

	switch c.ModelSource {
	case ModelSourceFile:
		if c.ModelPath == "" {
			add("model_path is required when model_source is %q", ModelSourceFile)
		}
	case ModelSourceRemote:
		if c.ModelURL == "" {
			add("model_url is required when model_source is %q", ModelSourceRemote)
		}
		if c.ModelRemoteTimeoutMS <= 0 {
			add("model_remote_timeout_ms must be positive, got %d", c.ModelRemoteTimeoutMS)
		}
	default:
		add("model_source must be %q or %q, got %q", ModelSourceFile, ModelSourceRemote, c.ModelSource)
	}

	if c.InputDimension <= 0 || c.InputDimension > sensor.Count {
		add("input_dimension must be in [1, %d], got %d", sensor.Count, c.InputDimension)
	}
	if c.OutputDimension <= 0 {
		add("output_dimension must be positive, got %d", c.OutputDimension)
	}
	if c.PredictTimeoutMS < 0 {
		add("predict_timeout_ms must not be negative, got %d", c.PredictTimeoutMS)
	}
	if c.MaxBodyBytes <= 0 {
		add("max_body_bytes must be positive, got %d", c.MaxBodyBytes)
	}

	if c.ActuationEnabled {
		if c.ActuationQueueSize <= 0 {
			add("actuation_queue_size must be positive, got %d", c.ActuationQueueSize)
		}
		if c.ActuationWorkers <= 0 {
			add("actuation_workers must be positive, got %d", c.ActuationWorkers)
		}
		if c.MQTTBroker == "" {
			add("mqtt_broker is required when actuation is enabled")
		}
		if c.MQTTTopic == "" {
			add("mqtt_topic is required when actuation is enabled")
		}
		if c.MQTTQoS < 0 || c.MQTTQoS > maxMQTTQoS {
			add("mqtt_qos must be 0, 1 or 2, got %d", c.MQTTQoS)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
