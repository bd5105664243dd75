// Package worker publishes queued actuation commands in the background.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/sprinkler/internal/adapters/mq/queue"
	"github.com/okian/sprinkler/internal/domain/actuation"
	"github.com/okian/sprinkler/pkg/logger"
	"github.com/okian/sprinkler/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount    = 2
	defaultPublishTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Queue defines how workers receive commands.
type Queue interface {
	Dequeue() <-chan queue.Command
}

// Worker publishes commands until its queue closes or ctx is canceled.
type Worker interface {
	Run(ctx context.Context)
}

// InMemoryWorker implements Worker over a Publisher.
type InMemoryWorker struct {
	queue          Queue
	publisher      actuation.Publisher
	name           string
	publishTimeout time.Duration

	done chan struct{}

	published atomic.Int64
	failed    atomic.Int64

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, publisher actuation.Publisher, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:          q,
		publisher:      publisher,
		name:           "worker",
		publishTimeout: defaultPublishTimeout,
		done:           make(chan struct{}),
		logger:         logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run drains the queue. Commands still buffered when the queue closes are
// published before Run returns.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	commands := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-commands:
			if !ok {
				return
			}
			if err := w.publish(ctx, cmd); err != nil {
				w.logger.Error(ctx, "actuation publish failed",
					logger.String("request_id", cmd.RequestID),
					logger.Error(err),
				)
			}
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// Published returns how many commands this worker delivered.
func (w *InMemoryWorker) Published() int64 { return w.published.Load() }

// Failed returns how many publishes this worker gave up on.
func (w *InMemoryWorker) Failed() int64 { return w.failed.Load() }

func (w *InMemoryWorker) publish(ctx context.Context, cmd queue.Command) error {
	start := time.Now()
	pctx, cancel := context.WithTimeout(ctx, w.publishTimeout)
	defer cancel()

	err := w.publisher.Publish(pctx, cmd)
	metrics.RecordPublish(err == nil, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		w.failed.Add(1)
		return fmt.Errorf("publish %s: %w", cmd.RequestID, err)
	}
	w.published.Add(1)
	w.logger.Debug(ctx, "actuation published",
		logger.String("request_id", cmd.RequestID),
		logger.Int("on_count", cmd.OnCount()),
	)
	return nil
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates workerCount workers. Options apply to every worker.
func NewPool(workerCount int, q Queue, publisher actuation.Publisher, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}
	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(q, publisher, workerOpts...)
	}
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Stats sums delivery counters over all workers.
func (p *Pool) Stats() (published, failed int64) {
	for _, w := range p.workers {
		published += w.Published()
		failed += w.Failed()
	}
	return published, failed
}

// Shutdown closes the queue and waits for the workers to drain it, bounded
// by ctx and an internal ceiling.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut int
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut++
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	if timedOut > 0 {
		return fmt.Errorf("%d workers did not stop: %w", timedOut, shutdownCtx.Err())
	}
	return nil
}
