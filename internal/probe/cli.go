package probe

import (
	"fmt"
	"os"

	"github.com/okian/sprinkler/pkg/logger"
)

// SetupLogging initializes the logger for the probe.
func SetupLogging(verbose bool) error {
	level := "info"
	if verbose {
		level = "debug"
	}
	if err := logger.Init(logger.WithLevel(level)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// ShowHelp prints usage information for the probe.
func ShowHelp() {
	os.Stdout.WriteString(`Sprinkler Inference Probe
=========================

Black-box checks against a running sprinkler inference service.

Usage:
  go run ./cmd/probe [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -requests int
        Number of random predictions to submit (default 1000)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 10s)
  -repeat int
        Resubmissions of each determinism sample (default 3)
  -output string
        Write results as JSON to this file
  -verbose
        Enable verbose logging
  -help
        Show this help message

Checks:
  1. /readyz reports a loaded model
  2. /sensors and /model agree on the input dimension
  3. random in-range vectors all predict exactly M ordered sprinklers
  4. resubmitted vectors predict the same states
  5. out-of-range values yield 422 out_of_range with the offending index
  6. N-1 and N+1 readings yield 422 shape_mismatch

Examples:
  go run ./cmd/probe -requests 5000 -workers 16
  go run ./cmd/probe -url http://farm-gw:9080 -output probe.json
`)
}
