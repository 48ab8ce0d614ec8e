package types_test

import (
	"errors"
	"fmt"
	"testing"

	types "github.com/okian/pythians/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseID(t *testing.T) {
	Convey("Given raw path parameters", t, func() {
		Convey("When the value is a positive integer", func() {
			id, err := types.ParseID("test", "42")

			Convey("Then it should parse", func() {
				So(err, ShouldBeNil)
				So(id, ShouldEqual, types.ID(42))
				So(id.Valid(), ShouldBeTrue)
			})
		})

		Convey("When the value has leading zeros", func() {
			id, err := types.ParseID("test", "007")

			Convey("Then it should parse as decimal", func() {
				So(err, ShouldBeNil)
				So(id, ShouldEqual, types.ID(7))
			})
		})

		for _, raw := range []string{"", "0", "000", "-3", "+5", " 5", "5 ", "\t5", "abc", "1.5", "１", "9999999999999999999999"} {
			raw := raw
			Convey(fmt.Sprintf("When the value is %q", raw), func() {
				_, err := types.ParseID("test", raw)

				Convey("Then it should be a validation error", func() {
					So(err, ShouldNotBeNil)
					So(errors.Is(err, types.ErrValidation), ShouldBeTrue)
					So(errors.Is(err, types.ErrNotFound), ShouldBeFalse)
				})
			})
		}
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Given the error helpers", t, func() {
		Convey("When creating a kind without cause", func() {
			err := types.NewKind("svc.get", types.ErrNotFound)

			Convey("Then it should match the kind and carry the op", func() {
				So(errors.Is(err, types.ErrNotFound), ShouldBeTrue)
				So(err.Error(), ShouldEqual, "svc.get: not found")
				So(types.KindOf(err), ShouldEqual, types.ErrNotFound)
			})
		})

		Convey("When wrapping a cause with a kind", func() {
			cause := errors.New("connection refused")
			err := types.WrapKind("store.open", types.ErrDataSource, cause)

			Convey("Then both kind and cause should be reachable", func() {
				So(errors.Is(err, types.ErrDataSource), ShouldBeTrue)
				So(errors.Is(err, cause), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "connection refused")
			})
		})

		Convey("When re-wrapping an error that already has a kind", func() {
			inner := types.NewKind("engine.one", types.ErrNotFound)
			err := types.Wrap("svc.get_year", inner)

			Convey("Then the kind should survive", func() {
				So(errors.Is(err, types.ErrNotFound), ShouldBeTrue)
				So(types.KindOf(err), ShouldEqual, types.ErrNotFound)
			})
		})

		Convey("When wrapping nil", func() {
			Convey("Then Wrap should return nil", func() {
				So(types.Wrap("op", nil), ShouldBeNil)
			})

			Convey("And WrapKind should still produce the kind", func() {
				So(errors.Is(types.WrapKind("op", types.ErrValidation, nil), types.ErrValidation), ShouldBeTrue)
			})
		})

		Convey("When the error has no taxonomy kind", func() {
			Convey("Then KindOf should return nil", func() {
				So(types.KindOf(errors.New("boom")), ShouldBeNil)
			})
		})
	})
}
