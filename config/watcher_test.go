package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func buildEngine(t *testing.T, loaded *Loaded) *goSession.Engine {
	t.Helper()
	engine, err := goSession.New().
		WithConfig(loaded.Engine).
		WithKeyRing(loaded.Ring).
		WithLogger(discardLogger()).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func TestNewWatcher_NonexistentDir(t *testing.T) {
	if _, err := NewWatcher("/nonexistent/path/gosession.yaml", WithWatcherLogger(discardLogger())); err == nil {
		t.Error("NewWatcher() expected error for nonexistent directory")
	}
}

func TestWatcher_ReloadRunsCallbacks(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, signedDoc("k1"))

	w, err := NewWatcher(path, WithWatcherLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	var calls atomic.Int32
	for i := 0; i < 3; i++ {
		w.OnReload(func(context.Context, *Loaded) { calls.Add(1) })
	}

	loaded, err := w.Reload(context.Background())
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if loaded.Ring.Active().ID() != "k1" {
		t.Errorf("Reload() active key = %q, want k1", loaded.Ring.Active().ID())
	}
	if calls.Load() != 3 {
		t.Errorf("callbacks run = %d, want 3", calls.Load())
	}
}

func TestWatcher_RotateEngine(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, signedDoc("k1"))

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	engine := buildEngine(t, loaded)

	ctx := context.Background()
	old, err := engine.Encode(ctx, engine.NewSession(engine.Now()))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	w, err := NewWatcher(path, WithWatcherLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()
	w.RotateEngine(engine)

	writeConfig(t, dir, signedDoc("k1", "k2"))
	if _, err := w.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	if got := engine.Ring().Active().ID(); got != "k2" {
		t.Errorf("active key after reload = %q, want k2", got)
	}
	if _, keyID, err := engine.DecodeKey(ctx, old, engine.Now()); err != nil || keyID != "k1" {
		t.Errorf("DecodeKey(old cookie) = %q, %v; want k1 still accepted", keyID, err)
	}
}

func TestWatcher_BadReloadKeepsRing(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, signedDoc("k1"))

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	engine := buildEngine(t, loaded)

	w, err := NewWatcher(path, WithWatcherLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()
	w.RotateEngine(engine)

	writeConfig(t, dir, "mode: signed\nkeys: []\n")
	if _, err := w.Reload(context.Background()); err == nil {
		t.Fatal("Reload() expected error for a document without keys")
	}
	if got := engine.Ring().Active().ID(); got != "k1" {
		t.Errorf("active key = %q, want k1 kept", got)
	}
}

func TestWatcher_FileChange(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, signedDoc("k1"))

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	engine := buildEngine(t, loaded)

	w, err := NewWatcher(path, WithWatcherLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.RotateEngine(engine)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.StartAsync(ctx)
	defer w.Stop()

	// Wait for watcher to be ready
	time.Sleep(100 * time.Millisecond)

	// An unrelated file in the same directory is ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	writeConfig(t, dir, signedDoc("k1", "k2"))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if engine.Ring().Active().ID() == "k2" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("active key = %q after file change, want k2", engine.Ring().Active().ID())
}

func TestWatcher_StopTwice(t *testing.T) {
	path := writeConfig(t, t.TempDir(), signedDoc("k1"))
	w, err := NewWatcher(path, WithWatcherLogger(discardLogger()))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.StartAsync(context.Background())
	time.Sleep(50 * time.Millisecond)

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}
