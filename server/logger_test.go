package server

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	prev := Log
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	t.Cleanup(func() { Log = prev })
	return logs
}

func TestSessionLifecycleLogs(t *testing.T) {
	logs := observeLogs(t)
	s, src := newManualSession(t, SessionOptions{})
	_ = s.Join(&fakeSub{id: "c1"})
	src.Advance(frame16)
	s.Close()

	for _, msg := range []string{
		"session test started",
		"session test: client c1 joined (1 clients)",
		"session test closed after 1 ticks",
	} {
		if logs.FilterMessage(msg).Len() != 1 {
			t.Errorf("missing log %q; got %v", msg, logs.All())
		}
	}
}

func TestInitLoggerWritesFile(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	path := filepath.Join(t.TempDir(), "miniarpg.log")
	cfg := DefaultConfig().Logging
	cfg.File = path
	cfg.Format = "json"
	if err := InitLogger(cfg); err != nil {
		t.Fatal(err)
	}
	Log.Infow("hello", "session", "s1")
	if err := SyncLogger(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("log file is empty")
	}
}

func TestInitLoggerBadLevel(t *testing.T) {
	cfg := DefaultConfig().Logging
	cfg.Level = "chatty"
	if err := InitLogger(cfg); err == nil {
		t.Fatal("expected error")
	}
}
