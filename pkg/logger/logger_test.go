package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: "debug", Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithOrderID(ctx, "order-1")

	log.Error(ctx, "boom", errors.New("boom"))

	if !bytes.Contains(buf.Bytes(), []byte(`"request_id":"req-123"`)) {
		t.Fatalf("expected request_id to be preserved; entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"order_id":"order-1"`)) {
		t.Fatalf("expected order_id to be preserved; entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"stack"`)) {
		t.Fatalf("expected stack trace on error; entry=%s", buf.String())
	}
}

func TestLoggerWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf, WarnStack: true})
	log.Warn(context.Background(), "warny")
	if !bytes.Contains(buf.Bytes(), []byte(`"stack"`)) {
		t.Fatalf("expected stack when warn stack enabled; entry=%s", buf.String())
	}

	buf.Reset()
	quiet := New(Options{ServiceName: "test", Output: buf})
	quiet.Warn(context.Background(), "warny")
	if bytes.Contains(buf.Bytes(), []byte(`"stack"`)) {
		t.Fatalf("expected no stack when warn stack disabled; entry=%s", buf.String())
	}
}

func TestLoggerDebugSuppressedAtInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})
	log.Debug(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected debug to be filtered at info level; entry=%s", buf.String())
	}
}

func TestLoggerLevelOption(t *testing.T) {
	cases := map[string]struct {
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		"unset":   {level: "", wantDebug: false, wantInfo: true},
		"unknown": {level: "chatty", wantDebug: false, wantInfo: true},
		"debug":   {level: "debug", wantDebug: true, wantInfo: true},
		"warn":    {level: " WARN ", wantDebug: false, wantInfo: false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			log := New(Options{ServiceName: "test", Level: tc.level, Output: buf})

			log.Debug(context.Background(), "dbg")
			if got := buf.Len() > 0; got != tc.wantDebug {
				t.Fatalf("debug emitted=%v, want %v; entry=%s", got, tc.wantDebug, buf.String())
			}
			buf.Reset()
			log.Info(context.Background(), "inf")
			if got := buf.Len() > 0; got != tc.wantInfo {
				t.Fatalf("info emitted=%v, want %v; entry=%s", got, tc.wantInfo, buf.String())
			}
		})
	}
}

func TestParseLevelDefaults(t *testing.T) {
	if lvl := ParseLevel(""); lvl != zerolog.InfoLevel {
		t.Fatalf("expected default info level, got %v", lvl)
	}
	if lvl := ParseLevel("invalid"); lvl != zerolog.InfoLevel {
		t.Fatalf("invalid level should fallback to info, got %v", lvl)
	}
	if lvl := ParseLevel(" WARN "); lvl != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %v", lvl)
	}
}

func TestLoggerStaticFieldsAndStackFrames(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{
		ServiceName: "api",
		Format:      FormatJSON,
		Output:      buf,
		Fields:      map[string]any{"env": "test", "instance": "i-1"},
	})

	log.Error(context.Background(), "failed", errors.New("boom"))

	for _, want := range []string{`"service":"api"`, `"env":"test"`, `"instance":"i-1"`, `"error":"boom"`, "TestLoggerStaticFieldsAndStackFrames"} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Fatalf("expected %s in entry=%s", want, buf.String())
		}
	}
}

func TestLoggerContextFieldsDoNotLeak(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})

	_ = log.WithUserID(context.Background(), "u-1")
	log.Info(context.Background(), "plain")

	if bytes.Contains(buf.Bytes(), []byte("u-1")) {
		t.Fatalf("field leaked into unrelated context; entry=%s", buf.String())
	}
}
