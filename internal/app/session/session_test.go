package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/evently/internal/adapters/storage"
	"github.com/okian/evently/internal/app/session"
	"github.com/okian/evently/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

// writeOnWatch is storage whose Watch lets another handle write first, the
// way a second process may write while this one is starting.
type writeOnWatch struct {
	*storage.Memory
	other *session.Store
	sess  model.Session
}

func (w *writeOnWatch) Watch(ctx context.Context) (<-chan storage.Change, error) {
	if err := w.other.Set(ctx, w.sess); err != nil {
		return nil, err
	}
	return w.Memory.Watch(ctx)
}

func TestStore(t *testing.T) {
	Convey("Given a session store over memory", t, func() {
		ctx := context.Background()
		kv := storage.NewMemory()
		st := session.NewStore(kv, nil)

		Convey("When nothing is stored", func() {
			_, ok, err := st.Get(ctx)
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("When a session is set", func() {
			So(st.Set(ctx, model.Session{Name: "Ada", Email: "ada@x.com"}), ShouldBeNil)

			Convey("Then it reads back and Clear removes it", func() {
				s, ok, err := st.Get(ctx)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(s.Name, ShouldEqual, "Ada")

				So(st.Clear(ctx), ShouldBeNil)
				_, ok, _ = st.Get(ctx)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the stored value is malformed", func() {
			for _, raw := range []string{"{not json", "[1,2]", "null", `"ada"`} {
				So(kv.Set(ctx, session.Key, []byte(raw)), ShouldBeNil)
				_, ok, err := st.Get(ctx)
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			}
		})

		Convey("When the storage is closed", func() {
			So(kv.Close(), ShouldBeNil)
			_, _, err := st.Get(ctx)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestContextReactivity(t *testing.T) {
	Convey("Given a started context and a second handle on the same storage", t, func() {
		ctx := context.Background()
		kv := storage.NewMemory()
		sc := session.NewContext(session.NewStore(kv, nil), nil)
		So(sc.Start(ctx), ShouldBeNil)
		defer sc.Close()

		updates, unsubscribe := sc.Subscribe()
		defer unsubscribe()

		other := session.NewStore(kv.Handle(), nil)

		Convey("When the other handle logs in", func() {
			So(other.Set(ctx, model.Session{Name: "Grace Hopper", Email: "g@x.com"}), ShouldBeNil)

			Convey("Then the context follows without a reload", func() {
				So(waitFor(sc.LoggedIn), ShouldBeTrue)
				s, _ := sc.Current()
				So(s.Name, ShouldEqual, "Grace Hopper")

				select {
				case u := <-updates:
					So(u.LoggedIn, ShouldBeTrue)
					So(u.Source, ShouldEqual, session.SourceRemote)
				case <-time.After(time.Second):
					t.Fatal("no update delivered")
				}
			})

			Convey("And a remote logout makes it anonymous", func() {
				So(waitFor(sc.LoggedIn), ShouldBeTrue)
				So(other.Clear(ctx), ShouldBeNil)
				So(waitFor(func() bool { return !sc.LoggedIn() }), ShouldBeTrue)
			})
		})

		Convey("When the other handle writes garbage", func() {
			So(sc.SetSession(ctx, model.Session{Name: "Ada"}), ShouldBeNil)
			So(kv.Handle().Set(ctx, session.Key, []byte("{oops")), ShouldBeNil)

			Convey("Then the context fails closed", func() {
				So(waitFor(func() bool { return !sc.LoggedIn() }), ShouldBeTrue)
			})
		})

		Convey("When logging out locally", func() {
			So(sc.SetSession(ctx, model.Session{Name: "Ada"}), ShouldBeNil)
			So(sc.Logout(ctx), ShouldBeNil)

			Convey("Then the transition is immediate and persisted", func() {
				So(sc.LoggedIn(), ShouldBeFalse)
				_, ok, err := other.Get(ctx)
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestContextStartRace(t *testing.T) {
	Convey("Given another process that writes while the context is starting", t, func() {
		ctx := context.Background()
		mem := storage.NewMemory()
		kv := &writeOnWatch{
			Memory: mem,
			other:  session.NewStore(mem.Handle(), nil),
			sess:   model.Session{Name: "Ada", Email: "ada@x.com"},
		}
		sc := session.NewContext(session.NewStore(kv, nil), nil)

		Convey("When the context starts", func() {
			So(sc.Start(ctx), ShouldBeNil)
			defer sc.Close()

			Convey("Then the write is not lost", func() {
				s, ok := sc.Current()
				So(ok, ShouldBeTrue)
				So(s.Name, ShouldEqual, "Ada")
			})
		})
	})
}

func TestContextLifecycle(t *testing.T) {
	Convey("Given a context with a stored session", t, func() {
		ctx := context.Background()
		kv := storage.NewMemory()
		st := session.NewStore(kv, nil)
		So(st.Set(ctx, model.Session{Name: "Ada"}), ShouldBeNil)
		sc := session.NewContext(st, nil)

		Convey("When loading", func() {
			So(sc.Load(ctx), ShouldBeNil)
			s, ok := sc.Current()
			So(ok, ShouldBeTrue)
			So(s.Name, ShouldEqual, "Ada")
		})

		Convey("When started twice", func() {
			So(sc.Start(ctx), ShouldBeNil)
			So(sc.Start(ctx), ShouldEqual, session.ErrAlreadyStarted)
			So(sc.Close(), ShouldBeNil)
		})

		Convey("When closed", func() {
			updates, _ := sc.Subscribe()
			So(sc.Close(), ShouldBeNil)

			Convey("Then subscriptions end and writes are refused", func() {
				_, open := <-updates
				So(open, ShouldBeFalse)
				So(sc.SetSession(ctx, model.Session{}), ShouldEqual, session.ErrClosed)
				So(sc.Logout(ctx), ShouldEqual, session.ErrClosed)
				So(sc.Start(ctx), ShouldEqual, session.ErrClosed)
				So(sc.Close(), ShouldBeNil)
			})
		})
	})
}
