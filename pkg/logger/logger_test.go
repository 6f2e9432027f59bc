package logger

import (
	"bytes"
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given a logger initialized with a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithOutput(&buf)), ShouldBeNil)
		defer func() { _ = Init() }()

		Convey("When logging at info level", func() {
			Get().Info(context.Background(), "test message", String("k", "v"))

			Convey("Then the record contains the message, fields and source", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "test message")
				So(out, ShouldContainSubstring, "k=v")
				So(out, ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When logging below the configured level", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			defer func() { _ = SetLevelString("info") }()
			Get().Info(context.Background(), "hidden")

			Convey("Then nothing is written", func() {
				So(buf.String(), ShouldNotContainSubstring, "hidden")
			})
		})

		Convey("When using a named logger", func() {
			Named("session").Named("watch").Warn(context.Background(), "changed")

			Convey("Then the dotted name is attached", func() {
				So(buf.String(), ShouldContainSubstring, "logger=session.watch")
			})
		})
	})
}

func TestLoggerJSON(t *testing.T) {
	Convey("Given a JSON logger", t, func() {
		var buf bytes.Buffer
		So(Init(WithOutput(&buf), WithJSON(true)), ShouldBeNil)
		defer func() { _ = Init() }()

		Get().Error(context.Background(), "boom", Int("status", 500))

		Convey("Then records are JSON objects", func() {
			So(buf.String(), ShouldStartWith, "{")
			So(buf.String(), ShouldContainSubstring, `"status":500`)
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		So(SetLevelString("debug"), ShouldBeNil)
		So(SetLevelString("WARNING"), ShouldBeNil)
		So(SetLevelString(""), ShouldBeNil)
		So(SetLevelString("loud"), ShouldNotBeNil)
	})
}

func TestNop(t *testing.T) {
	Convey("Given a nop logger", t, func() {
		l := Nop()
		So(func() { l.Error(context.Background(), "ignored") }, ShouldNotPanic)
		So(l.Named("x"), ShouldNotBeNil)
	})
}
