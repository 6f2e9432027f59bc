package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/evently/internal/app/catalog"
	"github.com/okian/evently/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type stubFetcher struct {
	events []model.Event
	err    error
	calls  int
}

func (s *stubFetcher) FetchEvents(context.Context) ([]model.Event, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.events, nil
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()

	Convey("Given a backend with two events", t, func() {
		f := &stubFetcher{events: []model.Event{{ID: 2, Name: "B"}, {ID: 1, Name: "A"}}}
		c := catalog.New(f, nil)
		So(c.Events(), ShouldBeEmpty)

		Convey("When loading twice", func() {
			So(c.Load(ctx), ShouldBeNil)
			first := c.Events()
			So(c.Load(ctx), ShouldBeNil)
			second := c.Events()

			Convey("Then both loads fetch and yield identical lists in backend order", func() {
				So(f.calls, ShouldEqual, 2)
				So(first, ShouldResemble, second)
				So(first[0].ID, ShouldEqual, 2)
			})

			Convey("And the returned list is a copy", func() {
				first[0].Name = "mutated"
				So(c.Events()[0].Name, ShouldEqual, "B")
			})

			Convey("And Find looks events up by id", func() {
				e, ok := c.Find(1)
				So(ok, ShouldBeTrue)
				So(e.Name, ShouldEqual, "A")
				_, ok = c.Find(99)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When a later load fails", func() {
			So(c.Load(ctx), ShouldBeNil)
			boom := errors.New("boom")
			f.err = boom

			Convey("Then the error is returned and the list is empty", func() {
				So(c.Load(ctx), ShouldEqual, boom)
				So(c.Events(), ShouldBeEmpty)
			})
		})
	})
}
