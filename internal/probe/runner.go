package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/sprinkler/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// ErrViolations is returned when any check failed.
var ErrViolations = errors.New("probe found violations")

// Run executes the complete probe and returns its statistics. The error wraps
// ErrViolations when the service misbehaved.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	log := logger.Get().Named("probe")
	stats := &Stats{StartTime: time.Now()}
	config.normalize()

	log.Info(ctx, "starting sprinkler probe",
		logger.String("baseURL", config.BaseURL),
		logger.Int("requests", config.Requests),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Int("repeat", config.Repeat))

	client := NewHTTPClient(config.BaseURL, config.Timeout)

	// Step 1: Check readiness
	if err := checkReady(ctx, client); err != nil {
		return stats, err
	}

	// Step 2: Discover dimensions
	inputs, outputs, err := discover(ctx, client)
	if err != nil {
		return stats, err
	}
	log.Info(ctx, "service discovered", logger.Int("inputs", inputs), logger.Int("outputs", outputs))

	// Step 3: Submit random vectors concurrently
	vectors := generateReadings(config.Requests, inputs)
	results := submitPredictions(ctx, client, config, vectors, outputs, stats)

	// Step 4: Determinism
	checkDeterminism(ctx, client, results, outputs, config.Repeat, stats)

	// Step 5: Rejections
	runNegativeChecks(ctx, client, inputs, stats)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if config.OutputFile != "" {
		if err := saveResults(config.OutputFile, stats, results); err != nil {
			log.Warn(ctx, "failed to save results", logger.Error(err))
		} else {
			log.Info(ctx, "results saved", logger.String("filename", config.OutputFile))
		}
	}

	if n := stats.Violations(); n > 0 {
		return stats, fmt.Errorf("%w: %d", ErrViolations, n)
	}
	log.Info(ctx, "probe completed successfully")
	return stats, nil
}

// checkReady verifies the service has a model loaded.
func checkReady(ctx context.Context, client *HTTPClient) error {
	resp, err := client.Get(ctx, "/readyz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if resp.Status != StatusOK {
		var e ErrorResponse
		_ = resp.Decode(&e)
		return fmt.Errorf("%w: status %d: %s", ErrNotReady, resp.Status, e.Message)
	}
	return nil
}

// discover reads the sensor catalog and the model description and checks
// they agree.
func discover(ctx context.Context, client *HTTPClient) (inputs, outputs int, err error) {
	resp, err := client.Get(ctx, "/sensors")
	if err != nil {
		return 0, 0, err
	}
	var catalog struct {
		Count   int      `json:"count"`
		Sensors []Sensor `json:"sensors"`
	}
	if err := resp.Decode(&catalog); err != nil {
		return 0, 0, err
	}

	resp, err = client.Get(ctx, "/model")
	if err != nil {
		return 0, 0, err
	}
	var status ModelStatus
	if err := resp.Decode(&status); err != nil {
		return 0, 0, err
	}
	if !status.Ready || status.Model == nil {
		return 0, 0, fmt.Errorf("%w: %s", ErrNotReady, status.LoadError)
	}
	if status.Model.InputDimension != len(catalog.Sensors) {
		return 0, 0, fmt.Errorf("%w: %d sensors, model takes %d",
			ErrDimensionMismatch, len(catalog.Sensors), status.Model.InputDimension)
	}
	return status.Model.InputDimension, status.Model.OutputDimension, nil
}

// displayFinalStats logs the final probe statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, requestsPerSecond float64
	if stats.Requests > 0 {
		successRate = float64(stats.Succeeded) / float64(stats.Requests) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		requestsPerSecond = float64(stats.Requests) / stats.Duration.Seconds()
	}

	logger.Get().Named("probe").Info(ctx, "final statistics",
		logger.Int("requests", stats.Requests),
		logger.Int("succeeded", stats.Succeeded),
		logger.Int("failed", stats.Failed),
		logger.Int("shapeViolations", stats.ShapeViolations),
		logger.Int("sprinklersOn", stats.OnTotal),
		logger.Int("determinismChecks", stats.DeterminismChecks),
		logger.Int("determinismViolations", stats.DeterminismViolations),
		logger.Int("negativeChecks", stats.NegativeChecks),
		logger.Int("negativeFailures", stats.NegativeFailures),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("requestsPerSecond", requestsPerSecond))
}

type report struct {
	Stats   *Stats   `json:"stats"`
	Results []Result `json:"results"`
}

// saveResults writes the statistics and every submitted vector as JSON.
func saveResults(filename string, stats *Stats, results []Result) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(report{Stats: stats, Results: results}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}
