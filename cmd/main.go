package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/sprinkler/internal/adapters/http/api"
	"github.com/okian/sprinkler/internal/adapters/http/swagger"
	"github.com/okian/sprinkler/internal/adapters/modelstore"
	"github.com/okian/sprinkler/internal/adapters/mq/mqtt"
	app "github.com/okian/sprinkler/internal/app"
	"github.com/okian/sprinkler/internal/config"
	"github.com/okian/sprinkler/internal/domain/actuation"
	"github.com/okian/sprinkler/internal/domain/inference"
	"github.com/okian/sprinkler/internal/domain/sensor"
	"github.com/okian/sprinkler/pkg/logger"
	"github.com/okian/sprinkler/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	mqttConnectTimeout        = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		// Use fmt for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithLevel(cfg.LogLevel)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg, logger.Get()); err != nil {
		logger.Get().Error(ctx, "sprinkler service failed", logger.Error(err))
		os.Exit(1)
	}
}

// run wires the process and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	sensors, err := sensor.Take(cfg.InputDimension)
	if err != nil {
		return err
	}

	predictor := loadPredictor(ctx, cfg, log)

	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithSensors(sensors),
		app.WithPredictor(predictor),
		app.WithQueueSize(cfg.ActuationQueueSize),
		app.WithWorkerCount(cfg.ActuationWorkers),
	}
	if cfg.ActuationEnabled {
		publisher, closeMQTT, err := newActuation(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer closeMQTT()
		opts = append(opts, app.WithActuation(publisher))
	}

	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Error(stopCtx, "service stop failed", logger.Error(err))
		}
	}()

	if predictor.Available() && cfg.ModelWatch && cfg.ModelSource == config.ModelSourceFile {
		if err := modelstore.Watch(ctx, cfg.ModelPath, func(path, op string) {
			svc.MarkArtifactModified(ctx, path, op)
		}); err != nil {
			log.Warn(ctx, "model artifact watch disabled", logger.String("path", cfg.ModelPath), logger.Error(err))
		}
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	log.Info(shutdownCtx, "server stopped")
	return nil
}

// loadPredictor loads the configured model once. A failed load still yields a
// predictor so the process can serve readiness and explain the failure.
func loadPredictor(ctx context.Context, cfg *config.Config, log logger.Logger) *inference.Predictor {
	predictOpts := []inference.Option{inference.WithTimeout(cfg.PredictTimeout())}

	src := modelstore.Source{
		Kind:    modelstore.Kind(cfg.ModelSource),
		Path:    cfg.ModelPath,
		URL:     cfg.ModelURL,
		Timeout: cfg.ModelRemoteTimeout(),
	}
	if src.Kind == modelstore.KindFile && cfg.ModelBootstrapSample {
		created, err := modelstore.EnsureSampleModel(cfg.ModelPath, cfg.InputDimension, cfg.OutputDimension)
		if err != nil {
			log.Warn(ctx, "sample model bootstrap failed", logger.String("path", cfg.ModelPath), logger.Error(err))
		} else if created {
			log.Warn(ctx, "no model artifact found; wrote the sample model", logger.String("path", cfg.ModelPath))
		}
	}

	model, err := modelstore.Load(ctx, src)
	if err == nil {
		err = modelstore.CheckDimensions(model, src.Location(), cfg.InputDimension, cfg.OutputDimension)
	}
	if err != nil {
		metrics.RecordModelLoadError()
		log.Error(ctx, "model load failed; serving without a model", logger.Error(err))
		return inference.NewUnavailablePredictor(err, predictOpts...)
	}

	info := model.Info()
	log.Info(ctx, "model loaded",
		logger.String("name", info.Name),
		logger.String("version", info.Version),
		logger.String("source", info.Source))
	return inference.NewPredictor(model, predictOpts...)
}

// newActuation connects to the broker and returns the command publisher.
func newActuation(ctx context.Context, cfg *config.Config, log logger.Logger) (actuation.Publisher, func(), error) {
	connectCtx, cancel := context.WithTimeout(ctx, mqttConnectTimeout)
	defer cancel()

	client, err := mqtt.Connect(connectCtx, mqtt.ClientConfig{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID,
		Username: cfg.MQTTUsername,
		Password: cfg.MQTTPassword,
	}, log.Named("mqtt"))
	if err != nil {
		return nil, nil, err
	}
	publisher := mqtt.NewPublisher(client.Native(), mqtt.PublisherConfig{
		Topic:    cfg.MQTTTopic,
		QoS:      byte(cfg.MQTTQoS),
		Retained: true,
	})
	log.Info(ctx, "actuation enabled",
		logger.String("broker", cfg.MQTTBroker),
		logger.String("topic", publisher.Topic()))
	return publisher, client.Close, nil
}

// newMux registers the API reference and the business routes.
func newMux(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc,
		api.WithMaxBodyBytes(cfg.MaxBodyBytes),
		api.WithLogger(log.Named("api")),
	).Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes gauges that are derived from service stats.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if queueCap, ok := stats["queueCapacity"].(int); ok {
		metrics.UpdateQueueCapacity(queueCap)
	}
	if modified, ok := stats["artifactModified"].(bool); ok {
		metrics.UpdateModelArtifactModified(modified)
	}
}
