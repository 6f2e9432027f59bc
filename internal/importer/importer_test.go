package importer_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/okian/evently/internal/domain/model"
	"github.com/okian/evently/internal/importer"
	. "github.com/smartystreets/goconvey/convey"
)

const sampleYAML = `
events:
  - name: AI Hackathon
    date: "2024-01-15"
    location: San Francisco
    description: Build AI apps
    required_skills: [Python, Machine Learning]
  - name: " ai hackathon"
    date: "2024-01-15"
    location: san francisco
    description: same event again
    required_skills: Python
  - name: Web Jam
    date: "2024-02-01"
    location: NYC
    description: Frontend weekend
    required_skills: React, TypeScript
  - name: Missing fields
users:
  - name: Ada
    email: ada@x.com
    skills: Go, Redis
  - name: Ada again
    email: ADA@x.com
    skills: Go
  - name: Bad
    email: not-an-email
    skills: Go
`

type recordingSubmitter struct {
	mu       sync.Mutex
	events   []model.EventInput
	users    []model.Registration
	failUser string
}

func (r *recordingSubmitter) CreateEvent(_ context.Context, in model.EventInput) (model.CreatedEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, in)
	return model.CreatedEvent{EventID: int64(len(r.events))}, nil
}

func (r *recordingSubmitter) RegisterUser(_ context.Context, in model.Registration) (model.RegisteredUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if in.Email == r.failUser {
		return model.RegisteredUser{}, errors.New("backend down")
	}
	r.users = append(r.users, in)
	return model.RegisteredUser{UserID: int64(len(r.users))}, nil
}

func TestParse(t *testing.T) {
	Convey("Given a YAML batch", t, func() {
		b, err := importer.Parse([]byte(sampleYAML))

		Convey("Then events, users and both skill notations decode", func() {
			So(err, ShouldBeNil)
			So(len(b.Events), ShouldEqual, 4)
			So(len(b.Users), ShouldEqual, 3)
			So(string(b.Events[0].RequiredSkills), ShouldEqual, "Python, Machine Learning")
			So(string(b.Events[2].RequiredSkills), ShouldEqual, "React, TypeScript")
			So(b.Events[0].Input().Date, ShouldEqual, "2024-01-15")
		})
	})

	Convey("Given a JSON batch", t, func() {
		b, err := importer.Parse([]byte(`{"users":[{"name":"Ada","email":"ada@x.com","skills":["Go","Redis"]}]}`))
		So(err, ShouldBeNil)
		So(string(b.Users[0].Skills), ShouldEqual, "Go, Redis")
	})

	Convey("Given invalid batches", t, func() {
		_, err := importer.Parse([]byte(``))
		So(errors.Is(err, importer.ErrEmptyBatch), ShouldBeTrue)

		_, err = importer.Parse([]byte(`events: []`))
		So(errors.Is(err, importer.ErrEmptyBatch), ShouldBeTrue)

		_, err = importer.Parse([]byte(`events: [{name: x, colour: red}]`))
		So(errors.Is(err, importer.ErrReadBatch), ShouldBeTrue)

		_, err = importer.Parse([]byte(`users: [{name: x, skills: {a: b}}]`))
		So(errors.Is(err, importer.ErrReadBatch), ShouldBeTrue)
	})

	Convey("Given batch files", t, func() {
		dir := t.TempDir()
		good := filepath.Join(dir, "batch.yml")
		So(os.WriteFile(good, []byte(sampleYAML), 0o600), ShouldBeNil)

		b, err := importer.LoadFile(good)
		So(err, ShouldBeNil)
		So(len(b.Events), ShouldEqual, 4)

		_, err = importer.LoadFile(filepath.Join(dir, "batch.csv"))
		So(errors.Is(err, importer.ErrUnsupportedFormat), ShouldBeTrue)

		_, err = importer.LoadFile(filepath.Join(dir, "missing.json"))
		So(errors.Is(err, importer.ErrReadBatch), ShouldBeTrue)
	})
}

func TestRun(t *testing.T) {
	Convey("Given a batch with duplicates and invalid records", t, func() {
		b, err := importer.Parse([]byte(sampleYAML))
		So(err, ShouldBeNil)
		sub := &recordingSubmitter{}
		imp := importer.New(sub, importer.WithWorkers(4))

		Convey("When running the import", func() {
			stats, err := imp.Run(context.Background(), b)

			Convey("Then each logical record is submitted once", func() {
				So(err, ShouldBeNil)
				So(stats.Events, ShouldResemble, importer.Counts{Submitted: 2, Created: 2, Duplicate: 1, Invalid: 1})
				So(stats.Users, ShouldResemble, importer.Counts{Submitted: 1, Created: 1, Duplicate: 1, Invalid: 1})
				So(len(sub.events), ShouldEqual, 2)
				So(len(sub.users), ShouldEqual, 1)
			})

			Convey("And a second run with the same importer skips everything", func() {
				again, err := imp.Run(context.Background(), b)
				So(err, ShouldBeNil)
				So(again.Events.Submitted, ShouldEqual, 0)
				So(again.Events.Duplicate, ShouldEqual, 3)
			})
		})
	})

	Convey("Given a submitter that rejects one user", t, func() {
		b := importer.Batch{Users: []importer.UserRecord{{Name: "Ada", Email: "ada@x.com", Skills: "Go"}}}
		sub := &recordingSubmitter{failUser: "ada@x.com"}
		imp := importer.New(sub, importer.WithWorkers(1))

		Convey("Then the failure is counted and the record stays retryable", func() {
			stats, err := imp.Run(context.Background(), b)
			So(err, ShouldBeNil)
			So(stats.Users.Failed, ShouldEqual, 1)

			sub.mu.Lock()
			sub.failUser = ""
			sub.mu.Unlock()
			stats, err = imp.Run(context.Background(), b)
			So(err, ShouldBeNil)
			So(stats.Users.Created, ShouldEqual, 1)
		})
	})

	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		b := importer.Batch{Events: []importer.EventRecord{{Name: "A", Date: "d", Location: "l", Description: "x", RequiredSkills: "Go"}}}

		Convey("Then Run returns the context error", func() {
			_, err := importer.New(&recordingSubmitter{}, importer.WithWorkers(1)).Run(ctx, b)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}
