// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/sprinkler/internal/adapters/mq/queue"
	workerpool "github.com/okian/sprinkler/internal/adapters/mq/worker"
	"github.com/okian/sprinkler/internal/domain/actuation"
	"github.com/okian/sprinkler/internal/domain/fault"
	"github.com/okian/sprinkler/internal/domain/features"
	"github.com/okian/sprinkler/internal/domain/inference"
	"github.com/okian/sprinkler/internal/domain/sensor"
	"github.com/okian/sprinkler/pkg/logger"
	"github.com/okian/sprinkler/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultQueueSize      = 1024
	defaultWorkerCount    = 2
	defaultPublishTimeout = 5 * time.Second
)

// ErrNoModel is the load cause reported when the service was built without
// a predictor.
var ErrNoModel = errors.New("no model configured")

// Prediction is one served request: the model's labels plus how they were
// handed to the field.
type Prediction struct {
	RequestID string
	Model     inference.ModelInfo
	Result    inference.Result
	Actuation string
}

// ModelStatus describes the loaded model for operators.
type ModelStatus struct {
	Ready            bool                 `json:"ready"`
	Model            *inference.ModelInfo `json:"model,omitempty"`
	LoadError        string               `json:"load_error,omitempty"`
	ArtifactModified bool                 `json:"artifact_modified"`
	SensorCount      int                  `json:"sensor_count"`
}

// Service implements the API dependencies for the sprinkler pipeline.
type Service struct {
	mu sync.RWMutex

	// Core components
	sensors   []sensor.Sensor
	builder   *features.Builder
	predictor *inference.Predictor

	// Actuation; disabled when publisher is nil.
	publisher      actuation.Publisher
	queue          *queue.InMemoryQueue
	pool           *workerpool.Pool
	queueSize      int
	workerCount    int
	publishTimeout time.Duration
	poolCancel     context.CancelFunc

	// State
	started          bool
	startedAt        time.Time
	artifactModified atomic.Bool

	// Counters
	served   atomic.Int64
	rejected atomic.Int64
	failed   atomic.Int64
	queued   atomic.Int64
	dropped  atomic.Int64

	now    func() time.Time
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSensors sets the ordered inputs. Defaults to the full catalog.
func WithSensors(sensors []sensor.Sensor) Option {
	return func(s *Service) {
		if len(sensors) > 0 {
			s.sensors = sensors
		}
	}
}

// WithPredictor sets the prediction adapter.
func WithPredictor(p *inference.Predictor) Option {
	return func(s *Service) {
		if p != nil {
			s.predictor = p
		}
	}
}

// WithActuation enables publishing of every successful prediction.
func WithActuation(p actuation.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithQueueSize sets the maximum number of pending actuation commands.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of actuation workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithPublishTimeout bounds a single actuation publish.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

// WithClock overrides time.Now for command timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		sensors:        sensor.Catalog(),
		queueSize:      defaultQueueSize,
		workerCount:    defaultWorkerCount,
		publishTimeout: defaultPublishTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.predictor == nil {
		s.predictor = inference.NewUnavailablePredictor(ErrNoModel)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.builder = features.NewBuilder(s.sensors)
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	info, ready := s.predictor.Info()
	metrics.UpdateModelState(ready, info.InputDimension, info.OutputDimension)
	metrics.UpdateModelArtifactModified(false)

	if s.publisher != nil {
		s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
		s.pool = workerpool.NewPool(s.workerCount, s.queue, s.publisher,
			workerpool.WithPublishTimeout(s.publishTimeout))
		// Workers outlive the request that started the service; Stop ends them.
		poolCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		s.poolCancel = cancel
		s.pool.Start(poolCtx)
	}

	s.started = true
	s.startedAt = s.now()

	fields := []logger.Field{
		logger.Bool("model_ready", ready),
		logger.Int("sensors", len(s.sensors)),
		logger.Bool("actuation", s.publisher != nil),
	}
	if ready {
		fields = append(fields,
			logger.String("model", info.Name),
			logger.String("version", info.Version),
			logger.String("source", info.Source))
	} else if cause := s.predictor.Cause(); cause != nil {
		fields = append(fields, logger.Error(cause))
	}
	s.logger.Info(ctx, "sprinkler service started", fields...)
	return nil
}

// Stop drains pending actuation commands and shuts the workers down.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	pool, cancel := s.pool, s.poolCancel
	s.mu.Unlock()

	s.logger.Info(ctx, "stopping sprinkler service...")

	// Draining can take a while; predictions racing it see a closed queue.
	var err error
	if pool != nil {
		err = pool.Shutdown(ctx)
		cancel()
	}
	s.logger.Info(ctx, "sprinkler service stopped")
	return err
}

// Predict validates values, given in sensor order, and runs the model once.
func (s *Service) Predict(ctx context.Context, requestID string, values []float64) (Prediction, error) {
	v, err := s.builder.Build(values)
	if err != nil {
		s.reject(err)
		return Prediction{}, err
	}
	return s.predict(ctx, requestID, v)
}

// PredictReadings is Predict for readings that carry their own index.
func (s *Service) PredictReadings(ctx context.Context, requestID string, readings []features.Reading) (Prediction, error) {
	v, err := s.builder.BuildReadings(readings)
	if err != nil {
		s.reject(err)
		return Prediction{}, err
	}
	return s.predict(ctx, requestID, v)
}

func (s *Service) predict(ctx context.Context, requestID string, v features.Vector) (Prediction, error) {
	start := time.Now()
	res, err := s.predictor.Predict(ctx, v)
	if invoked(err) {
		metrics.RecordModelInvocation()
		metrics.RecordPredictionLatency(float64(time.Since(start).Microseconds()) / 1000)
	}
	if err != nil {
		outcome := Outcome(err)
		metrics.RecordPrediction(outcome)
		if errors.Is(err, fault.ErrShapeMismatch) {
			s.rejected.Add(1)
			metrics.RecordInputRejection(outcome)
		} else {
			s.failed.Add(1)
			s.logger.Error(ctx, "prediction failed",
				logger.String("request_id", requestID),
				logger.String("outcome", outcome),
				logger.Error(err))
		}
		return Prediction{}, err
	}

	s.served.Add(1)
	metrics.RecordPrediction(metrics.OutcomeSuccess)
	metrics.RecordSprinklerStates(res.Labels())

	info, _ := s.predictor.Info()
	p := Prediction{
		RequestID: requestID,
		Model:     info,
		Result:    res,
		Actuation: s.actuate(ctx, requestID, info.Name, res),
	}
	s.logger.Debug(ctx, "prediction served",
		logger.String("request_id", requestID),
		logger.Int("on_count", res.OnCount()),
		logger.String("actuation", p.Actuation))
	return p, nil
}

// actuate hands the result to the workers without waiting for delivery.
func (s *Service) actuate(ctx context.Context, requestID, model string, res inference.Result) string {
	s.mu.RLock()
	q := s.queue
	s.mu.RUnlock()
	if q == nil {
		return actuation.OutcomeDisabled
	}
	cmd := actuation.NewCommand(requestID, model, res, s.now())
	if err := q.Enqueue(ctx, cmd); err != nil {
		s.dropped.Add(1)
		s.logger.Warn(ctx, "actuation command dropped",
			logger.String("request_id", requestID), logger.Error(err))
		return actuation.OutcomeDropped
	}
	s.queued.Add(1)
	return actuation.OutcomeQueued
}

func (s *Service) reject(err error) {
	outcome := Outcome(err)
	s.rejected.Add(1)
	metrics.RecordPrediction(outcome)
	metrics.RecordInputRejection(outcome)
	var rangeErr *fault.OutOfRangeError
	if errors.As(err, &rangeErr) {
		metrics.RecordOutOfRange(rangeErr.Index)
	}
}

// invoked reports whether a Predict outcome means the model was called.
func invoked(err error) bool {
	return !errors.Is(err, fault.ErrModelUnavailable) && !errors.Is(err, fault.ErrShapeMismatch)
}

// Outcome classifies a pipeline error for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, fault.ErrOutOfRange):
		return metrics.OutcomeOutOfRange
	case errors.Is(err, fault.ErrShapeMismatch):
		return metrics.OutcomeShapeMismatch
	case errors.Is(err, fault.ErrInvalidReading):
		return metrics.OutcomeInvalidReading
	case errors.Is(err, fault.ErrModelUnavailable):
		return metrics.OutcomeUnavailable
	case errors.Is(err, fault.ErrPredictionTimeout):
		return metrics.OutcomeTimeout
	case errors.Is(err, fault.ErrOutputShapeMismatch):
		return metrics.OutcomeOutputShapeMismatch
	case errors.Is(err, fault.ErrInvalidLabel):
		return metrics.OutcomeInvalidLabel
	default:
		return metrics.OutcomeError
	}
}

// Sensors returns the ordered inputs.
func (s *Service) Sensors() []sensor.Sensor {
	return s.builder.Sensors()
}

// Ready reports whether predictions can be served.
func (s *Service) Ready() bool {
	return s.predictor.Available()
}

// ModelStatus describes the loaded model, or why none is loaded.
func (s *Service) ModelStatus() ModelStatus {
	st := ModelStatus{
		ArtifactModified: s.artifactModified.Load(),
		SensorCount:      len(s.sensors),
	}
	if info, ok := s.predictor.Info(); ok {
		st.Ready = true
		st.Model = &info
	} else if cause := s.predictor.Cause(); cause != nil {
		st.LoadError = cause.Error()
	}
	return st
}

// MarkArtifactModified records that the artifact behind the loaded model
// changed on disk. The model itself is never swapped.
func (s *Service) MarkArtifactModified(ctx context.Context, path, op string) {
	if s.artifactModified.Swap(true) {
		return
	}
	metrics.UpdateModelArtifactModified(true)
	s.logger.Warn(ctx, "model artifact changed on disk; restart to load it",
		logger.String("path", path), logger.String("op", op))
}

// connectivity is implemented by publishers that hold a broker session.
type connectivity interface {
	Connected() bool
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":          s.started,
		"modelReady":       s.predictor.Available(),
		"artifactModified": s.artifactModified.Load(),
		"sensorCount":      len(s.sensors),
		"served":           s.served.Load(),
		"rejected":         s.rejected.Load(),
		"failed":           s.failed.Load(),
		"actuationEnabled": s.publisher != nil,
	}
	if c, ok := s.publisher.(connectivity); ok {
		stats["actuationConnected"] = c.Connected()
	}
	if s.started {
		stats["uptimeSeconds"] = int64(s.now().Sub(s.startedAt).Seconds())
	}
	if s.queue != nil {
		published, publishFailed := s.pool.Stats()
		queueLen := s.queue.Len()
		stats["queueLength"] = queueLen
		stats["queueCapacity"] = s.queue.Capacity()
		stats["workerCount"] = s.pool.Size()
		stats["queued"] = s.queued.Load()
		stats["dropped"] = s.dropped.Load()
		stats["published"] = published
		stats["publishFailed"] = publishFailed
		metrics.UpdateQueueSize(queueLen)
	}
	return stats
}
