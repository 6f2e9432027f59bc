package storage_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/evently/internal/adapters/storage"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRedisConnect(t *testing.T) {
	Convey("Given an unreachable redis address", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		_, err := storage.Connect(ctx, "127.0.0.1:1")

		Convey("Then Connect fails with ErrConnect", func() {
			So(errors.Is(err, storage.ErrConnect), ShouldBeTrue)
		})
	})
}

// TestRedisStore runs against a live server when EVENTLY_TEST_REDIS_URL is set.
func TestRedisStore(t *testing.T) {
	url := os.Getenv("EVENTLY_TEST_REDIS_URL")
	if url == "" {
		t.Skip("EVENTLY_TEST_REDIS_URL not set")
	}

	Convey("Given two redis stores on the same server", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		c1, err := storage.Connect(ctx, url)
		So(err, ShouldBeNil)
		c2, err := storage.Connect(ctx, url)
		So(err, ShouldBeNil)

		prefix := "evently-test:" + time.Now().Format("150405.000000") + ":"
		a := storage.NewRedis(c1, storage.WithRedisPrefix(prefix), storage.WithRedisChannel(prefix+"changes"))
		b := storage.NewRedis(c2, storage.WithRedisPrefix(prefix), storage.WithRedisChannel(prefix+"changes"))
		defer a.Close()
		defer b.Close()

		changes, err := a.Watch(ctx)
		So(err, ShouldBeNil)

		Convey("When the second store writes and deletes", func() {
			So(b.Set(ctx, "user", []byte(`{"name":"r"}`)), ShouldBeNil)

			Convey("Then the first store sees both changes and the value", func() {
				c, ok := recv(changes, 2*time.Second)
				So(ok, ShouldBeTrue)
				So(string(c.Value), ShouldEqual, `{"name":"r"}`)

				v, found, err := a.Get(ctx, "user")
				So(err, ShouldBeNil)
				So(found, ShouldBeTrue)
				So(string(v), ShouldEqual, `{"name":"r"}`)

				So(b.Delete(ctx, "user"), ShouldBeNil)
				c, ok = recv(changes, 2*time.Second)
				So(ok, ShouldBeTrue)
				So(c.Removed, ShouldBeTrue)
			})
		})
	})
}
