package probe

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/sprinkler/pkg/logger"
)

const reportInterval = time.Second

// submitPredictions posts every vector with a pool of workers and checks each
// success carries exactly outputs ordered sprinklers.
func submitPredictions(ctx context.Context, client *HTTPClient, config *Config, vectors [][]float64, outputs int, stats *Stats) []Result {
	log := logger.Get().Named("probe")
	log.Info(ctx, "submitting predictions",
		logger.Int("requests", len(vectors)), logger.Int("workers", config.Workers))

	results := make([]Result, len(vectors))
	var (
		submitted  atomic.Int64
		succeeded  atomic.Int64
		failed     atomic.Int64
		violations atomic.Int64
		onTotal    atomic.Int64
		lastReport atomic.Int64
	)

	indexChan := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup
	for w := 0; w < config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexChan {
				res, kind := submitSingle(ctx, client, vectors[i], outputs)
				submitted.Add(1)
				switch kind {
				case outcomeOK:
					succeeded.Add(1)
					onTotal.Add(int64(countOn(res.States)))
				case outcomeViolation:
					violations.Add(1)
				default:
					failed.Add(1)
				}
				if kind != outcomeOK && config.Verbose {
					log.Debug(ctx, "prediction not accepted",
						logger.String("request_id", res.RequestID),
						logger.Int("status", res.Status),
						logger.String("error", res.Error))
				}
				results[i] = res

				now := time.Now().UnixNano()
				last := lastReport.Load()
				if time.Duration(now-last) >= reportInterval && lastReport.CompareAndSwap(last, now) {
					log.Info(ctx, "progress",
						logger.Int("submitted", int(submitted.Load())),
						logger.Int("total", len(vectors)),
						logger.Int("failed", int(failed.Load())))
				}
			}
		}()
	}

	go func() {
		defer close(indexChan)
		for i := range vectors {
			select {
			case <-ctx.Done():
				return
			case indexChan <- i:
			}
		}
	}()
	wg.Wait()

	stats.Requests += int(submitted.Load())
	stats.Succeeded += int(succeeded.Load())
	stats.Failed += int(failed.Load())
	stats.ShapeViolations += int(violations.Load())
	stats.OnTotal += int(onTotal.Load())

	log.Info(ctx, "prediction submission completed",
		logger.Int("succeeded", int(succeeded.Load())),
		logger.Int("failed", int(failed.Load())),
		logger.Int("shapeViolations", int(violations.Load())))
	return results
}

type outcome int

const (
	outcomeOK outcome = iota
	outcomeFailed
	outcomeViolation
)

// submitSingle posts one vector. A 200 whose body is not exactly outputs
// ordered sprinklers is a violation; any other failure is a failed request.
func submitSingle(ctx context.Context, client *HTTPClient, readings []float64, outputs int) (Result, outcome) {
	res := Result{RequestID: newRequestID("probe"), Readings: readings}
	resp, err := client.Predict(ctx, res.RequestID, readings)
	if err != nil {
		res.Error = err.Error()
		return res, outcomeFailed
	}
	res.Status = resp.Status
	if resp.Status != StatusOK {
		var e ErrorResponse
		_ = resp.Decode(&e)
		res.Error = e.Code
		if res.Error == "" {
			res.Error = "unexpected status"
		}
		return res, outcomeFailed
	}
	var p Prediction
	if err := resp.Decode(&p); err != nil {
		res.Error = err.Error()
		return res, outcomeViolation
	}
	if err := checkOrdered(p, outputs); err != nil {
		res.Error = err.Error()
		return res, outcomeViolation
	}
	res.States = p.States()
	return res, outcomeOK
}

func countOn(states []bool) int {
	n := 0
	for _, on := range states {
		if on {
			n++
		}
	}
	return n
}
