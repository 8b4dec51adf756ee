package webpaint

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestNopHandler(t *testing.T) {
	h := nopHandler{}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if h.Enabled(context.Background(), level) {
			t.Errorf("nopHandler.Enabled(%v) = true, want false", level)
		}
	}
	if err := h.Handle(context.Background(), slog.Record{}); err != nil {
		t.Errorf("nopHandler.Handle() = %v, want nil", err)
	}
	if _, ok := h.WithAttrs([]slog.Attr{slog.String("k", "v")}).(nopHandler); !ok {
		t.Error("WithAttrs should return nopHandler")
	}
	if _, ok := h.WithGroup("g").(nopHandler); !ok {
		t.Error("WithGroup should return nopHandler")
	}
}

func TestLoggerDefaultSilent(t *testing.T) {
	l := Logger()
	if l == nil {
		t.Fatal("Logger() returned nil")
	}
	if l.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("default logger should be disabled")
	}
}

func TestSetLogger(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	Logger().Warn("tile resubmitted", "x", 1)
	if !strings.Contains(buf.String(), "tile resubmitted") {
		t.Errorf("log output = %q, want message", buf.String())
	}

	SetLogger(nil)
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) should restore the silent logger")
	}
}

func TestSetLoggerConcurrent(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetLogger(slog.Default())
		}()
		go func() {
			defer wg.Done()
			_ = Logger()
		}()
	}
	wg.Wait()
}
