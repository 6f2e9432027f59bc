package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/evently/internal/adapters/notify"
	"github.com/okian/evently/internal/app/session"
	"github.com/okian/evently/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestFollow(t *testing.T) {
	convey.Convey("Given a follow loop over update and notification streams", t, func() {
		var out bytes.Buffer
		updates := make(chan session.Update, 1)
		notes := make(chan notify.Notification, 1)
		serveErr := make(chan error, 1)

		convey.Convey("When the notification stream closes before an update arrives", func() {
			notes <- notify.Notification{Level: notify.LevelInfo, Message: "Logged out"}
			close(notes)
			updates <- session.Update{LoggedIn: true, Source: session.SourceRemote, Session: model.Session{Name: "Ada", Email: "a@x"}}
			close(updates)

			err := follow(context.Background(), &out, updates, notes, serveErr)

			convey.Convey("Then the closed stream is not rendered again", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.String(), convey.ShouldNotContainSubstring, "[] ")
				convey.So(out.String(), convey.ShouldContainSubstring, "(remote) logged in as Ada <a@x>")
				convey.So(bytes.Count(out.Bytes(), []byte("\n")), convey.ShouldBeLessThanOrEqualTo, 2)
			})
		})

		convey.Convey("When only a closed notification stream is left", func() {
			close(notes)
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			err := follow(ctx, &out, updates, notes, serveErr)

			convey.Convey("Then the loop waits for cancellation without output", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.Len(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the status server fails", func() {
			boom := errors.New("bind failed")
			serveErr <- boom

			convey.Convey("Then its error ends the loop", func() {
				convey.So(follow(context.Background(), &out, updates, notes, serveErr), convey.ShouldEqual, boom)
			})
		})
	})
}
