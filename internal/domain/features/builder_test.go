package features_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/sprinkler/internal/domain/fault"
	"github.com/okian/sprinkler/internal/domain/features"
	"github.com/okian/sprinkler/internal/domain/sensor"
	. "github.com/smartystreets/goconvey/convey"
)

func ramp(n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i) / float64(n)
	}
	return values
}

func TestBuilder_Build(t *testing.T) {
	Convey("Given a builder over the full catalog", t, func() {
		b := features.NewBuilder(sensor.Catalog())
		So(b.Dimension(), ShouldEqual, 20)

		Convey("When every reading is valid", func() {
			values := ramp(20)
			v, err := b.Build(values)

			Convey("Then the vector has twenty values in index order", func() {
				So(err, ShouldBeNil)
				So(v.Len(), ShouldEqual, 20)
				for i := 0; i < 20; i++ {
					So(v.At(i), ShouldEqual, values[i])
				}
			})

			Convey("And the vector does not alias the caller's slice", func() {
				values[0] = 0.99
				So(v.At(0), ShouldEqual, 0.0)
				out := v.Values()
				out[1] = 0.77
				So(v.At(1), ShouldEqual, 0.05)
			})
		})

		Convey("When the interval bounds are used exactly", func() {
			values := sensor.Defaults(sensor.Catalog())
			values[0], values[19] = 0.0, 1.0
			_, err := b.Build(values)
			So(err, ShouldBeNil)
		})

		Convey("When one reading is outside [0, 1]", func() {
			for _, bad := range []float64{-0.01, 1.01, math.NaN(), math.Inf(-1)} {
				values := sensor.Defaults(sensor.Catalog())
				values[13] = bad
				v, err := b.Build(values)

				So(errors.Is(err, fault.ErrOutOfRange), ShouldBeTrue)
				var rangeErr *fault.OutOfRangeError
				So(errors.As(err, &rangeErr), ShouldBeTrue)
				So(rangeErr.Index, ShouldEqual, 13)
				So(v.Len(), ShouldEqual, 0)
			}
		})

		Convey("When two readings are out of range", func() {
			values := sensor.Defaults(sensor.Catalog())
			values[4], values[2] = 2, 3
			_, err := b.Build(values)

			Convey("Then the lowest offending index is reported", func() {
				var rangeErr *fault.OutOfRangeError
				So(errors.As(err, &rangeErr), ShouldBeTrue)
				So(rangeErr.Index, ShouldEqual, 2)
				So(rangeErr.Value, ShouldEqual, 3)
			})
		})

		Convey("When the reading count is wrong", func() {
			for _, n := range []int{0, 19, 21} {
				_, err := b.Build(make([]float64, n))
				var shape *fault.ShapeMismatchError
				So(errors.As(err, &shape), ShouldBeTrue)
				So(shape.Expected, ShouldEqual, 20)
				So(shape.Actual, ShouldEqual, n)
			}
		})
	})
}

func TestBuilder_BuildReadings(t *testing.T) {
	Convey("Given a builder over three sensors", t, func() {
		sensors, err := sensor.Take(3)
		So(err, ShouldBeNil)
		b := features.NewBuilder(sensors)

		Convey("When readings arrive out of order", func() {
			v, err := b.BuildReadings([]features.Reading{
				{Index: 2, Value: 0.3},
				{Index: 0, Value: 0.1},
				{Index: 1, Value: 0.2},
			})

			Convey("Then they are placed by index", func() {
				So(err, ShouldBeNil)
				So(v.Values(), ShouldResemble, []float64{0.1, 0.2, 0.3})
			})
		})

		Convey("When an index repeats", func() {
			_, err := b.BuildReadings([]features.Reading{
				{Index: 0, Value: 0.1},
				{Index: 0, Value: 0.2},
				{Index: 1, Value: 0.3},
			})
			So(errors.Is(err, fault.ErrInvalidReading), ShouldBeTrue)
		})

		Convey("When an index is outside the vector", func() {
			_, err := b.BuildReadings([]features.Reading{
				{Index: 0, Value: 0.1},
				{Index: 1, Value: 0.2},
				{Index: 3, Value: 0.3},
			})
			So(errors.Is(err, fault.ErrInvalidReading), ShouldBeTrue)
		})

		Convey("When a reading is out of range", func() {
			_, err := b.BuildReadings([]features.Reading{
				{Index: 1, Value: 1.5},
				{Index: 0, Value: 0.1},
				{Index: 2, Value: 0.3},
			})
			var rangeErr *fault.OutOfRangeError
			So(errors.As(err, &rangeErr), ShouldBeTrue)
			So(rangeErr.Index, ShouldEqual, 1)
		})

		Convey("When too few readings are given", func() {
			_, err := b.BuildReadings([]features.Reading{{Index: 0, Value: 0.1}})
			So(errors.Is(err, fault.ErrShapeMismatch), ShouldBeTrue)
		})
	})
}
