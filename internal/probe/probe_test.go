package probe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/sprinkler/internal/adapters/http/api"
	"github.com/okian/sprinkler/internal/adapters/modelstore"
	service "github.com/okian/sprinkler/internal/app"
	"github.com/okian/sprinkler/internal/domain/inference"
	"github.com/okian/sprinkler/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// newService starts the real HTTP API over the sample model.
func newService(t *testing.T, ready bool) *httptest.Server {
	t.Helper()
	predictor := inference.NewUnavailablePredictor(errors.New("artifact missing"))
	if ready {
		model, err := modelstore.NewLinearModel(modelstore.SampleArtifact(20, 20), "memory")
		if err != nil {
			t.Fatalf("sample model: %v", err)
		}
		predictor = inference.NewPredictor(model)
	}
	svc := service.New(service.WithPredictor(predictor))
	mux := http.NewServeMux()
	api.NewServer(svc, svc).Register(context.Background(), mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRun(t *testing.T) {
	Convey("Given a healthy service", t, func() {
		srv := newService(t, true)
		out := filepath.Join(t.TempDir(), "reports", "probe.json")
		config := &Config{
			BaseURL:    srv.URL,
			Requests:   60,
			Workers:    4,
			Timeout:    5 * time.Second,
			Repeat:     2,
			OutputFile: out,
		}

		Convey("When the probe runs", func() {
			stats, err := Run(context.Background(), config)

			Convey("Then every check passes", func() {
				So(err, ShouldBeNil)
				So(stats.Requests, ShouldEqual, 60)
				So(stats.Succeeded, ShouldEqual, 60)
				So(stats.Violations(), ShouldEqual, 0)
				So(stats.DeterminismChecks, ShouldEqual, DeterminismSampleSize*2)
				So(stats.NegativeChecks, ShouldEqual, 4)
			})

			Convey("And the results are saved", func() {
				data, readErr := os.ReadFile(out)
				So(readErr, ShouldBeNil)
				var saved report
				So(json.Unmarshal(data, &saved), ShouldBeNil)
				So(saved.Results, ShouldHaveLength, 60)
				So(saved.Results[0].States, ShouldHaveLength, 20)
			})
		})
	})

	Convey("Given a service without a model", t, func() {
		srv := newService(t, false)

		Convey("Then the probe stops at readiness", func() {
			_, err := Run(context.Background(), &Config{BaseURL: srv.URL, Requests: 5, Workers: 1})
			So(errors.Is(err, ErrNotReady), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "artifact missing")
		})
	})
}

func TestRun_MisbehavingService(t *testing.T) {
	Convey("Given a service that accepts anything and reverses its output", t, func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		mux.HandleFunc("/sensors", func(w http.ResponseWriter, _ *http.Request) {
			sensors := make([]Sensor, 3)
			for i := range sensors {
				sensors[i].Index = i
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"count": 3, "sensors": sensors})
		})
		mux.HandleFunc("/model", func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(ModelStatus{Ready: true, Model: &ModelInfo{InputDimension: 3, OutputDimension: 2}})
		})
		mux.HandleFunc("/predict", func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(Prediction{Sprinklers: []Sprinkler{{Index: 1, Parcel: 1}, {Index: 0, Parcel: 0}}})
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		Convey("Then the probe reports every violation", func() {
			stats, err := Run(context.Background(), &Config{BaseURL: srv.URL, Requests: 10, Workers: 2})
			So(errors.Is(err, ErrViolations), ShouldBeTrue)
			So(stats.ShapeViolations, ShouldEqual, 10)
			So(stats.Succeeded, ShouldEqual, 0)
			So(stats.NegativeFailures, ShouldEqual, 4)
		})
	})
}

func TestCheckOrdered(t *testing.T) {
	Convey("Given predictions", t, func() {
		good := Prediction{
			Sprinklers: []Sprinkler{{Index: 0, Parcel: 0, On: true}, {Index: 1, Parcel: 1}},
			OnCount:    1,
		}

		So(checkOrdered(good, 2), ShouldBeNil)
		So(errors.Is(checkOrdered(good, 3), ErrUnordered), ShouldBeTrue)

		swapped := good
		swapped.Sprinklers = []Sprinkler{good.Sprinklers[1], good.Sprinklers[0]}
		So(errors.Is(checkOrdered(swapped, 2), ErrUnordered), ShouldBeTrue)

		miscounted := good
		miscounted.OnCount = 2
		So(checkOrdered(miscounted, 2), ShouldNotBeNil)
	})
}

func TestGenerators(t *testing.T) {
	Convey("Given the reading generators", t, func() {
		Convey("Then random readings stay in range", func() {
			for _, v := range generateReadings(50, 20) {
				So(v, ShouldHaveLength, 20)
				for _, x := range v {
					So(x, ShouldBeBetweenOrEqual, 0.0, 1.0)
				}
			}
		})

		Convey("Then negative checks break exactly one rule each", func() {
			checks := negativeChecks(20)
			So(checks, ShouldHaveLength, 4)
			So(checks[0].readings[checks[0].index], ShouldBeGreaterThan, 1.0)
			So(checks[1].readings[checks[1].index], ShouldBeLessThan, 0.0)
			So(checks[2].readings, ShouldHaveLength, 19)
			So(checks[3].readings, ShouldHaveLength, 21)
		})

		Convey("Then config defaults are filled in", func() {
			c := &Config{Requests: 3, Workers: 16}
			c.normalize()
			So(c.Workers, ShouldEqual, 3)
			So(c.Repeat, ShouldEqual, defaultRepeat)
			So(c.Timeout, ShouldEqual, defaultTimeout)
		})
	})
}
