package cli_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/okian/evently/internal/adapters/notify"
	"github.com/okian/evently/internal/app/session"
	"github.com/okian/evently/internal/cli"
	"github.com/okian/evently/internal/domain/model"
	"github.com/okian/evently/internal/importer"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRenderEvents(t *testing.T) {
	Convey("Given the events view", t, func() {
		var buf bytes.Buffer

		Convey("When there are no events", func() {
			So(cli.RenderEvents(&buf, nil), ShouldBeNil)
			So(buf.String(), ShouldEqual, cli.TextNoEvents+"\n")
		})

		Convey("When events are listed", func() {
			err := cli.RenderEvents(&buf, []model.Event{
				{ID: 1, Name: "AI Hackathon", Date: "2024-01-15", Location: "SF", RequiredSkills: "Python,ML"},
				{ID: 2, Name: "Go Jam", Date: "2024-02-01", Location: "Berlin"},
			})

			Convey("Then each event is one row in backend order", func() {
				So(err, ShouldBeNil)
				out := buf.String()
				So(out, ShouldStartWith, "ID")
				So(out, ShouldContainSubstring, "AI Hackathon")
				So(out, ShouldContainSubstring, "Python, ML")
				So(bytes.Index(buf.Bytes(), []byte("AI Hackathon")), ShouldBeLessThan, bytes.Index(buf.Bytes(), []byte("Go Jam")))
			})
		})
	})
}

func TestRenderUsers(t *testing.T) {
	Convey("Given the participants view", t, func() {
		var buf bytes.Buffer
		So(cli.RenderUsers(&buf, []model.User{}), ShouldBeNil)
		So(buf.String(), ShouldEqual, cli.TextNoUsers+"\n")

		buf.Reset()
		So(cli.RenderUsers(&buf, []model.User{{ID: 4, Name: "Ada", Email: "ada@x.com", Skills: "Go,Rust", Experience: "senior"}}), ShouldBeNil)
		So(buf.String(), ShouldContainSubstring, "ada@x.com")
		So(buf.String(), ShouldContainSubstring, "Go, Rust")
	})
}

func TestRenderTeams(t *testing.T) {
	Convey("Given a match result", t, func() {
		var buf bytes.Buffer
		teams := []model.Team{{
			TeamID:             3,
			CompatibilityScore: 0.8666,
			Members: []model.Member{
				{Name: "Ada", Email: "ada@x.com", Skills: []string{"Go", "ML"}},
			},
		}}

		Convey("When it has teams", func() {
			So(cli.RenderTeams(&buf, teams, ""), ShouldBeNil)

			Convey("Then the score has two decimals and members list their skills", func() {
				So(buf.String(), ShouldContainSubstring, cli.TextTeamsHeader)
				So(buf.String(), ShouldContainSubstring, "Team 3 — Score 0.87")
				So(buf.String(), ShouldContainSubstring, "Ada (ada@x.com) — Go, ML")
			})
		})

		Convey("When it only has a message", func() {
			So(cli.RenderTeams(&buf, []model.Team{}, "Need at least 2 users for matching"), ShouldBeNil)

			Convey("Then no teams section is shown", func() {
				So(buf.String(), ShouldEqual, "Need at least 2 users for matching\n")
			})
		})
	})
}

func TestRenderProfile(t *testing.T) {
	Convey("Given the profile view", t, func() {
		var buf bytes.Buffer

		Convey("When logged out", func() {
			So(cli.RenderProfile(&buf, model.Session{}, false), ShouldBeNil)
			So(buf.String(), ShouldEqual, cli.TextNotLoggedIn+"\n")
		})

		Convey("When the session has no avatar", func() {
			So(cli.RenderProfile(&buf, model.Session{Name: "Ada Lovelace", Email: "ada@x.com"}, true), ShouldBeNil)
			So(buf.String(), ShouldEqual, "[AL] Ada Lovelace <ada@x.com>\n")
		})

		Convey("When the session has an avatar", func() {
			So(cli.RenderProfile(&buf, model.Session{Name: "Ada", Email: "ada@x.com", Avatar: "https://img/a.png"}, true), ShouldBeNil)
			So(buf.String(), ShouldStartWith, "https://img/a.png Ada")
		})
	})
}

func TestRenderMisc(t *testing.T) {
	Convey("Given notifications, session updates and import stats", t, func() {
		var buf bytes.Buffer

		So(cli.RenderNotifications(&buf, []notify.Notification{
			{Level: notify.LevelSuccess, Message: "Login successful"},
			{Level: notify.LevelError, Message: "Error matching users"},
		}), ShouldBeNil)
		So(buf.String(), ShouldEqual, "[success] Login successful\n[error] Error matching users\n")

		buf.Reset()
		So(cli.RenderUpdate(&buf, session.Update{Source: session.SourceRemote}), ShouldBeNil)
		So(buf.String(), ShouldEqual, "(remote) logged out\n")

		buf.Reset()
		So(cli.RenderUpdate(&buf, session.Update{LoggedIn: true, Source: session.SourceLocal, Session: model.Session{Name: "Ada", Email: "a@x"}}), ShouldBeNil)
		So(buf.String(), ShouldEqual, "(local) logged in as Ada <a@x>\n")

		buf.Reset()
		So(cli.RenderImportStats(&buf, importer.Stats{
			Events:   importer.Counts{Submitted: 2, Created: 1, Duplicate: 1},
			Users:    importer.Counts{Submitted: 1, Failed: 1},
			Duration: 2 * time.Second,
		}), ShouldBeNil)
		So(buf.String(), ShouldContainSubstring, "event")
		So(buf.String(), ShouldContainSubstring, "user")
		So(buf.String(), ShouldEndWith, "took 2s\n")
	})
}
