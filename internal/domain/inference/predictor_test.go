package inference_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/sprinkler/internal/domain/fault"
	"github.com/okian/sprinkler/internal/domain/features"
	"github.com/okian/sprinkler/internal/domain/inference"
	"github.com/okian/sprinkler/internal/domain/sensor"
	. "github.com/smartystreets/goconvey/convey"
)

// thresholdModel turns feature i on when it is at least 0.5.
type thresholdModel struct {
	in, out int
	calls   atomic.Int64
	labels  []int
	err     error
	delay   time.Duration
}

func (m *thresholdModel) Predict(ctx context.Context, v features.Vector) ([]int, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.labels != nil {
		return m.labels, nil
	}
	labels := make([]int, m.out)
	for i := range labels {
		if v.At(i%v.Len()) >= 0.5 {
			labels[i] = 1
		}
	}
	return labels, nil
}

func (m *thresholdModel) InputDimension() int  { return m.in }
func (m *thresholdModel) OutputDimension() int { return m.out }
func (m *thresholdModel) Info() inference.ModelInfo {
	return inference.ModelInfo{Name: "threshold", Version: "test", Source: "memory"}
}

func TestPredictor_Predict(t *testing.T) {
	Convey("Given a predictor over a 20-in, 20-out model", t, func() {
		ctx := context.Background()
		model := &thresholdModel{in: 20, out: 20}
		p := inference.NewPredictor(model)
		builder := features.NewBuilder(sensor.Catalog())

		Convey("When every reading is at its default", func() {
			v, err := builder.Build(sensor.Defaults(sensor.Catalog()))
			So(err, ShouldBeNil)
			res, err := p.Predict(ctx, v)

			Convey("Then twenty statuses come back in order", func() {
				So(err, ShouldBeNil)
				So(res.Len(), ShouldEqual, 20)
				So(res.OnCount(), ShouldEqual, 20)
				statuses := res.Statuses()
				for i, s := range statuses {
					So(s.Index, ShouldEqual, i)
					So(s.On, ShouldBeTrue)
				}
				So(model.calls.Load(), ShouldEqual, 1)
			})
		})

		Convey("When the same vector is predicted twice", func() {
			values := sensor.Defaults(sensor.Catalog())
			values[3], values[7] = 0.1, 0.2
			v, _ := builder.Build(values)
			a, errA := p.Predict(ctx, v)
			b, errB := p.Predict(ctx, v)

			Convey("Then the results are identical", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(a.Equal(b), ShouldBeTrue)
				So(a.On(3), ShouldBeFalse)
				So(a.On(7), ShouldBeFalse)
				So(a.OnCount(), ShouldEqual, 18)
			})
		})

		Convey("When the vector length differs from the input dimension", func() {
			for _, n := range []int{19, 21} {
				_, err := p.Predict(ctx, features.NewVector(make([]float64, n)))
				var shape *fault.ShapeMismatchError
				So(errors.As(err, &shape), ShouldBeTrue)
				So(shape.Expected, ShouldEqual, 20)
				So(shape.Actual, ShouldEqual, n)
			}

			Convey("Then the model is never invoked", func() {
				So(model.calls.Load(), ShouldEqual, 0)
			})
		})

		Convey("When the model returns the wrong number of labels", func() {
			model.labels = make([]int, 19)
			v, _ := builder.Build(sensor.Defaults(sensor.Catalog()))
			res, err := p.Predict(ctx, v)

			So(res.Len(), ShouldEqual, 0)
			var shape *fault.OutputShapeMismatchError
			So(errors.As(err, &shape), ShouldBeTrue)
			So(shape.Expected, ShouldEqual, 20)
			So(shape.Actual, ShouldEqual, 19)
		})

		Convey("When the model returns a label outside {0, 1}", func() {
			model.labels = make([]int, 20)
			model.labels[5] = 2
			v, _ := builder.Build(sensor.Defaults(sensor.Catalog()))
			_, err := p.Predict(ctx, v)

			var label *fault.InvalidLabelError
			So(errors.As(err, &label), ShouldBeTrue)
			So(label.Index, ShouldEqual, 5)
			So(label.Value, ShouldEqual, 2)
		})

		Convey("When the model itself fails", func() {
			boom := errors.New("boom")
			model.err = boom
			v, _ := builder.Build(sensor.Defaults(sensor.Catalog()))
			_, err := p.Predict(ctx, v)

			So(errors.Is(err, fault.ErrPrediction), ShouldBeTrue)
			So(errors.Is(err, boom), ShouldBeTrue)
			So(model.calls.Load(), ShouldEqual, 1)
		})

		Convey("When predictions run concurrently", func() {
			v, _ := builder.Build(sensor.Defaults(sensor.Catalog()))
			var wg sync.WaitGroup
			var failures atomic.Int64
			for i := 0; i < 32; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := p.Predict(ctx, v); err != nil {
						failures.Add(1)
					}
				}()
			}
			wg.Wait()
			So(failures.Load(), ShouldEqual, 0)
			So(model.calls.Load(), ShouldEqual, 32)
		})
	})
}

func TestPredictor_Timeout(t *testing.T) {
	Convey("Given a slow model and a short timeout", t, func() {
		model := &thresholdModel{in: 2, out: 2, delay: time.Second}
		p := inference.NewPredictor(model, inference.WithTimeout(20*time.Millisecond))

		Convey("When predicting", func() {
			start := time.Now()
			_, err := p.Predict(context.Background(), features.NewVector([]float64{0.1, 0.9}))

			Convey("Then it fails with a timeout well before the model finishes", func() {
				So(errors.Is(err, fault.ErrPredictionTimeout), ShouldBeTrue)
				var timeout *fault.PredictionTimeoutError
				So(errors.As(err, &timeout), ShouldBeTrue)
				So(timeout.Timeout, ShouldEqual, 20*time.Millisecond)
				So(time.Since(start), ShouldBeLessThan, 500*time.Millisecond)
			})
		})

		Convey("When the caller cancels first", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := p.Predict(ctx, features.NewVector([]float64{0.1, 0.9}))

			So(errors.Is(err, fault.ErrPredictionTimeout), ShouldBeFalse)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})

	Convey("Given a fast model and a generous timeout", t, func() {
		model := &thresholdModel{in: 2, out: 2}
		p := inference.NewPredictor(model, inference.WithTimeout(time.Second))
		res, err := p.Predict(context.Background(), features.NewVector([]float64{0.1, 0.9}))

		So(err, ShouldBeNil)
		So(res.Labels(), ShouldResemble, []bool{false, true})
	})
}

func TestPredictor_Unavailable(t *testing.T) {
	Convey("Given a predictor whose model failed to load", t, func() {
		cause := fault.NewModelLoad("/missing.yaml", errors.New("no such file"))
		p := inference.NewUnavailablePredictor(cause)

		So(p.Available(), ShouldBeFalse)
		_, ok := p.Info()
		So(ok, ShouldBeFalse)

		Convey("Then every predict fails as unavailable and carries the cause", func() {
			_, err := p.Predict(context.Background(), features.NewVector(make([]float64, 20)))
			So(errors.Is(err, fault.ErrModelUnavailable), ShouldBeTrue)
			So(errors.Is(err, fault.ErrModelLoad), ShouldBeTrue)
		})
	})

	Convey("Given a loaded predictor", t, func() {
		p := inference.NewPredictor(&thresholdModel{in: 20, out: 20})
		info, ok := p.Info()
		So(ok, ShouldBeTrue)
		So(info.Name, ShouldEqual, "threshold")
		So(info.InputDimension, ShouldEqual, 20)
		So(info.OutputDimension, ShouldEqual, 20)
	})
}
