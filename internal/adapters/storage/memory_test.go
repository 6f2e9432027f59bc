package storage_test

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/evently/internal/adapters/storage"
	. "github.com/smartystreets/goconvey/convey"
)

func recv(ch <-chan storage.Change, d time.Duration) (storage.Change, bool) {
	select {
	case c, ok := <-ch:
		return c, ok
	case <-time.After(d):
		return storage.Change{}, false
	}
}

func TestMemoryStore(t *testing.T) {
	Convey("Given an in-memory store", t, func() {
		ctx := context.Background()
		m := storage.NewMemory()
		defer m.Close()

		Convey("When a key is missing", func() {
			v, ok, err := m.Get(ctx, "user")
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
			So(v, ShouldBeNil)
		})

		Convey("When a value is set", func() {
			So(m.Set(ctx, "user", []byte(`{"name":"a"}`)), ShouldBeNil)

			Convey("Then it can be read back", func() {
				v, ok, err := m.Get(ctx, "user")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(string(v), ShouldEqual, `{"name":"a"}`)
			})

			Convey("And deleting it removes it", func() {
				So(m.Delete(ctx, "user"), ShouldBeNil)
				_, ok, _ := m.Get(ctx, "user")
				So(ok, ShouldBeFalse)
				So(m.Delete(ctx, "user"), ShouldBeNil)
			})
		})

		Convey("When the key is invalid", func() {
			So(errors.Is(m.Set(ctx, "", nil), storage.ErrInvalidKey), ShouldBeTrue)
			So(errors.Is(m.Set(ctx, "../x", nil), storage.ErrInvalidKey), ShouldBeTrue)
		})

		Convey("When another handle writes", func() {
			wctx, cancel := context.WithCancel(ctx)
			defer cancel()
			changes, err := m.Watch(wctx)
			So(err, ShouldBeNil)

			other := m.Handle()
			So(other.Set(ctx, "user", []byte(`{"name":"b"}`)), ShouldBeNil)

			Convey("Then the watcher sees the change", func() {
				c, ok := recv(changes, time.Second)
				So(ok, ShouldBeTrue)
				So(c.Key, ShouldEqual, "user")
				So(string(c.Value), ShouldEqual, `{"name":"b"}`)
				So(c.Removed, ShouldBeFalse)

				So(other.Delete(ctx, "user"), ShouldBeNil)
				c, ok = recv(changes, time.Second)
				So(ok, ShouldBeTrue)
				So(c.Removed, ShouldBeTrue)
			})
		})

		Convey("When the same handle writes", func() {
			wctx, cancel := context.WithCancel(ctx)
			defer cancel()
			changes, err := m.Watch(wctx)
			So(err, ShouldBeNil)

			So(m.Set(ctx, "user", []byte(`{}`)), ShouldBeNil)

			Convey("Then no change is echoed", func() {
				_, ok := recv(changes, 50*time.Millisecond)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the watch context ends", func() {
			wctx, cancel := context.WithCancel(ctx)
			changes, err := m.Watch(wctx)
			So(err, ShouldBeNil)
			cancel()

			Convey("Then the channel is closed", func() {
				_, ok := recv(changes, time.Second)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the store is closed", func() {
			other := m.Handle()
			So(m.Close(), ShouldBeNil)

			Convey("Then its operations fail but other handles keep working", func() {
				So(errors.Is(m.Set(ctx, "user", nil), storage.ErrClosed), ShouldBeTrue)
				_, err := m.Watch(ctx)
				So(errors.Is(err, storage.ErrClosed), ShouldBeTrue)
				So(other.Set(ctx, "user", []byte(`{}`)), ShouldBeNil)
				So(m.Close(), ShouldBeNil)
			})
		})
	
		Convey("When a handle with never-cancelled watches is closed", func() {
			h := m.Handle()
			baseline := runtime.NumGoroutine()
			var chans []<-chan storage.Change
			for i := 0; i < 20; i++ {
				ch, err := h.Watch(context.Background())
				So(err, ShouldBeNil)
				chans = append(chans, ch)
			}
			So(h.Close(), ShouldBeNil)

			Convey("Then the watch channels close and their goroutines exit", func() {
				for _, ch := range chans {
					_, ok := recv(ch, time.Second)
					So(ok, ShouldBeFalse)
				}
				deadline := time.Now().Add(2 * time.Second)
				for runtime.NumGoroutine() > baseline && time.Now().Before(deadline) {
					time.Sleep(10 * time.Millisecond)
				}
				So(runtime.NumGoroutine(), ShouldBeLessThanOrEqualTo, baseline)
			})
		})
	})
}
