package modelstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/sprinkler/internal/adapters/modelstore"
	"github.com/okian/sprinkler/internal/domain/features"
	. "github.com/smartystreets/goconvey/convey"
)

const twoByTwo = `
name: tiny
version: "3"
input_dimension: 2
output_dimension: 2
outputs:
  - weights: [10, 0]
    bias: -5
  - weights: [0, -10]
    bias: 5
    threshold: 0.9
`

func TestDecodeArtifact(t *testing.T) {
	Convey("Given a YAML artifact", t, func() {
		a, err := modelstore.DecodeArtifact([]byte(twoByTwo))

		Convey("Then it decodes and validates", func() {
			So(err, ShouldBeNil)
			So(a.Name, ShouldEqual, "tiny")
			So(a.Version, ShouldEqual, "3")
			So(a.Outputs, ShouldHaveLength, 2)
			So(a.Outputs[1].Threshold, ShouldEqual, 0.9)
		})
	})

	Convey("Given the same artifact as JSON", t, func() {
		doc := `{"name":"tiny","version":"3","input_dimension":1,"output_dimension":1,
			"outputs":[{"weights":[1],"bias":0}]}`
		a, err := modelstore.DecodeArtifact([]byte(doc))
		So(err, ShouldBeNil)
		So(a.InputDimension, ShouldEqual, 1)
	})

	Convey("Given invalid artifacts", t, func() {
		cases := map[string]string{
			"not yaml":          "::: [",
			"zero dimensions":   "input_dimension: 0\noutput_dimension: 1\n",
			"missing outputs":   "input_dimension: 1\noutput_dimension: 2\noutputs:\n  - weights: [1]\n",
			"short weights":     "input_dimension: 2\noutput_dimension: 1\noutputs:\n  - weights: [1]\n",
			"threshold too big": "input_dimension: 1\noutput_dimension: 1\noutputs:\n  - weights: [1]\n    threshold: 1.5\n",
			"non-finite weight": "input_dimension: 1\noutput_dimension: 1\noutputs:\n  - weights: [.nan]\n",
		}
		for name, doc := range cases {
			_, err := modelstore.DecodeArtifact([]byte(doc))
			So(errors.Is(err, modelstore.ErrInvalidArtifact), ShouldBeTrue)
			So(err.Error(), ShouldNotBeEmpty)
			t.Logf("rejected %s: %v", name, err)
		}
	})
}

func TestLinearModel_Predict(t *testing.T) {
	Convey("Given the two-unit linear model", t, func() {
		a, err := modelstore.DecodeArtifact([]byte(twoByTwo))
		So(err, ShouldBeNil)
		m, err := modelstore.NewLinearModel(a, "memory")
		So(err, ShouldBeNil)
		So(m.InputDimension(), ShouldEqual, 2)
		So(m.OutputDimension(), ShouldEqual, 2)
		So(m.Info().Name, ShouldEqual, "tiny")

		ctx := context.Background()

		Convey("When the first feature is high and the second low", func() {
			labels, err := m.Predict(ctx, features.NewVector([]float64{0.9, 0.1}))
			So(err, ShouldBeNil)
			So(labels, ShouldResemble, []int{1, 1})
		})

		Convey("When both features are at the midpoint", func() {
			// unit 0: sigmoid(0) = 0.5 >= 0.5; unit 1: sigmoid(0) = 0.5 < 0.9
			labels, err := m.Predict(ctx, features.NewVector([]float64{0.5, 0.5}))
			So(err, ShouldBeNil)
			So(labels, ShouldResemble, []int{1, 0})
		})

		Convey("When called repeatedly", func() {
			v := features.NewVector([]float64{0.3, 0.7})
			first, _ := m.Predict(ctx, v)
			for i := 0; i < 10; i++ {
				again, _ := m.Predict(ctx, v)
				So(again, ShouldResemble, first)
			}
		})

		Convey("When the context is already canceled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := m.Predict(cctx, features.NewVector([]float64{0.3, 0.7}))
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}
