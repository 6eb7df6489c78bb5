package model_test

import (
	"strings"
	"testing"
	"time"

	model "github.com/okian/rollcall/internal/domain/model"
	types "github.com/okian/rollcall/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewEmployeeID(t *testing.T) {
	Convey("Given employee id generation", t, func() {
		Convey("When generating an id", func() {
			id := model.NewEmployeeID()

			Convey("Then it has the EMP prefix and 8 uppercase hex digits", func() {
				So(id, ShouldStartWith, "EMP")
				So(len(id), ShouldEqual, 11)
				suffix := strings.TrimPrefix(id, "EMP")
				So(suffix, ShouldEqual, strings.ToUpper(suffix))
				for _, r := range suffix {
					So(strings.ContainsRune("0123456789ABCDEF", r), ShouldBeTrue)
				}
			})
		})

		Convey("When generating many ids", func() {
			seen := make(map[string]bool)
			for i := 0; i < 1000; i++ {
				seen[model.NewEmployeeID()] = true
			}

			Convey("Then they are unique", func() {
				So(len(seen), ShouldEqual, 1000)
			})
		})
	})
}

func TestNewEventID(t *testing.T) {
	Convey("Given event id generation", t, func() {
		Convey("When generating ids over time", func() {
			first := model.NewEventID()
			time.Sleep(2 * time.Millisecond)
			second := model.NewEventID()

			Convey("Then ids sort in creation order", func() {
				So(first, ShouldBeLessThan, second)
			})

			Convey("And ids have ULID length", func() {
				So(len(first), ShouldEqual, 26)
			})
		})
	})
}

func TestNewAttendanceRecord(t *testing.T) {
	Convey("Given an employee starting at 09:00", t, func() {
		start, err := types.ParseTimeOfDay("09:00")
		So(err, ShouldBeNil)

		Convey("When the employee arrives at 08:55", func() {
			enter := time.Date(2025, 3, 7, 8, 55, 0, 0, time.UTC)
			rec := model.NewAttendanceRecord("EMP12345678", enter, start)

			Convey("Then the record is on time", func() {
				So(rec.IsLate, ShouldBeFalse)
				So(rec.Date, ShouldEqual, "2025-03-07")
				So(rec.EnterTime, ShouldEqual, enter)
				So(rec.EmployeeID, ShouldEqual, "EMP12345678")
			})
		})

		Convey("When the employee arrives at 09:10 the next day", func() {
			enter := time.Date(2025, 3, 8, 9, 10, 0, 0, time.UTC)
			rec := model.NewAttendanceRecord("EMP12345678", enter, start)

			Convey("Then the record is late and dated the next day", func() {
				So(rec.IsLate, ShouldBeTrue)
				So(rec.Date, ShouldEqual, "2025-03-08")
			})
		})

		Convey("When the employee arrives exactly on time", func() {
			enter := time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC)
			rec := model.NewAttendanceRecord("EMP12345678", enter, start)

			Convey("Then the record is not late", func() {
				So(rec.IsLate, ShouldBeFalse)
			})
		})
	})
}

func TestObservation(t *testing.T) {
	Convey("Given a detected face", t, func() {
		enc := make(types.Encoding, types.EncodingSize)
		obs := model.Observation{
			Location: types.Location{Top: 10, Right: 110, Bottom: 120, Left: 20},
			Encoding: enc,
		}

		Convey("Then it carries the box and the encoding", func() {
			So(obs.Location.Width(), ShouldEqual, 90)
			So(obs.Location.Height(), ShouldEqual, 110)
			So(len(obs.Encoding), ShouldEqual, types.EncodingSize)
		})
	})
}
