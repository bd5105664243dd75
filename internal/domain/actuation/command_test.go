package actuation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/sprinkler/internal/domain/actuation"
	"github.com/okian/sprinkler/internal/domain/inference"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewCommand(t *testing.T) {
	Convey("Given a prediction result", t, func() {
		res := inference.NewResult([]bool{true, false, true})
		at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))

		Convey("When a command is built from it", func() {
			cmd := actuation.NewCommand("req-1", "linear", res, at)

			Convey("Then it carries every state in order", func() {
				So(cmd.States, ShouldResemble, []bool{true, false, true})
				So(cmd.OnCount(), ShouldEqual, 2)
				So(cmd.RequestID, ShouldEqual, "req-1")
				So(cmd.IssuedAt.Location(), ShouldEqual, time.UTC)
				So(cmd.Validate(), ShouldBeNil)
			})
		})
	})

	Convey("Given an empty command", t, func() {
		So(errors.Is(actuation.Command{}.Validate(), actuation.ErrEmptyCommand), ShouldBeTrue)
	})

	Convey("Given a publisher func", t, func() {
		var got actuation.Command
		p := actuation.PublisherFunc(func(_ context.Context, c actuation.Command) error {
			got = c
			return nil
		})
		So(p.Publish(context.Background(), actuation.Command{RequestID: "r"}), ShouldBeNil)
		So(got.RequestID, ShouldEqual, "r")
	})
}
