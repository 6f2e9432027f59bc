package nav_test

import (
	"context"
	"testing"

	"github.com/okian/evently/internal/app/nav"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRecorder(t *testing.T) {
	Convey("Given a recorder", t, func() {
		r := &nav.Recorder{}
		So(r.Current(), ShouldEqual, nav.RouteHome)

		Convey("When navigating twice", func() {
			r.Navigate(context.Background(), nav.RouteLogin)
			r.Navigate(context.Background(), nav.RouteProfile)

			Convey("Then history keeps order and Current is the last route", func() {
				So(r.History(), ShouldResemble, []nav.Route{nav.RouteLogin, nav.RouteProfile})
				So(r.Current(), ShouldEqual, nav.RouteProfile)
			})
		})
	})

	Convey("Given a function navigator", t, func() {
		var got nav.Route
		var n nav.Navigator = nav.Func(func(_ context.Context, to nav.Route) { got = to })
		n.Navigate(context.Background(), nav.RouteMatch)
		So(got, ShouldEqual, nav.RouteMatch)
		So(len(nav.Routes()), ShouldEqual, 8)
	})
}
