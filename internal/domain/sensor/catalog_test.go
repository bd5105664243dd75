package sensor_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/sprinkler/internal/domain/sensor"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCatalog(t *testing.T) {
	Convey("Given the reference sensor catalog", t, func() {
		sensors := sensor.Catalog()

		Convey("Then it lists twenty sensors in index order", func() {
			So(len(sensors), ShouldEqual, 20)
			So(sensor.Count, ShouldEqual, 20)
			for i, s := range sensors {
				So(s.Index, ShouldEqual, i)
				So(s.Key, ShouldNotBeEmpty)
				So(s.Name, ShouldNotBeEmpty)
			}
			So(sensors[0].Key, ShouldEqual, "soil_moisture")
			So(sensors[19].Key, ShouldEqual, "sunlight_duration")
		})

		Convey("Then every sensor is normalized to [0, 1] with a midpoint default", func() {
			for _, s := range sensors {
				So(s.Range.Min, ShouldEqual, 0.0)
				So(s.Range.Max, ShouldEqual, 1.0)
				So(s.Range.Default, ShouldEqual, 0.5)
				So(s.Range.Step, ShouldEqual, 0.01)
			}
		})

		Convey("Then mutating the returned slice does not leak into later calls", func() {
			sensors[0].Name = "changed"
			So(sensor.Catalog()[0].Name, ShouldEqual, "Soil Moisture")
		})
	})
}

func TestRangeContains(t *testing.T) {
	Convey("Given the normalized range", t, func() {
		r := sensor.Catalog()[0].Range

		So(r.Contains(0), ShouldBeTrue)
		So(r.Contains(1), ShouldBeTrue)
		So(r.Contains(0.5), ShouldBeTrue)
		So(r.Contains(-0.0001), ShouldBeFalse)
		So(r.Contains(1.0001), ShouldBeFalse)
		So(r.Contains(math.NaN()), ShouldBeFalse)
		So(r.Contains(math.Inf(1)), ShouldBeFalse)
	})
}

func TestTakeAndDefaults(t *testing.T) {
	Convey("Given a request for a prefix of the catalog", t, func() {
		Convey("When the prefix fits", func() {
			sensors, err := sensor.Take(5)
			So(err, ShouldBeNil)
			So(len(sensors), ShouldEqual, 5)
			So(sensor.Defaults(sensors), ShouldResemble, []float64{0.5, 0.5, 0.5, 0.5, 0.5})
		})

		Convey("When the prefix is too long or empty", func() {
			_, err := sensor.Take(21)
			So(errors.Is(err, sensor.ErrCatalogTooSmall), ShouldBeTrue)
			_, err = sensor.Take(0)
			So(errors.Is(err, sensor.ErrCatalogTooSmall), ShouldBeTrue)
		})
	})
}
