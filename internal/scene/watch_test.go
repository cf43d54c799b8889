package scene

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func nextChange(t *testing.T, w *Watcher, within time.Duration) (string, bool) {
	t.Helper()
	select {
	case p, ok := <-w.Events:
		return p, ok
	case <-time.After(within):
		return "", false
	}
}

func TestWatcherCoalescesBurst(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(50*time.Millisecond, dir)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	path := filepath.Join(dir, "dock.yaml")
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("version: 1\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, ok := nextChange(t, w, 2*time.Second)
	if !ok || got != path {
		t.Fatalf("expected change for %s, got %q", path, got)
	}
	if extra, ok := nextChange(t, w, 300*time.Millisecond); ok {
		t.Errorf("burst reported more than once, extra %q", extra)
	}
}

func TestWatcherReportsScripts(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(20*time.Millisecond, dir)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	path := filepath.Join(dir, "7.tengo")
	if err := os.WriteFile(path, []byte("scene.wait(1)"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got, ok := nextChange(t, w, 2*time.Second); !ok || got != path {
		t.Fatalf("expected change for %s, got %q", path, got)
	}
}

func TestWatcherCloseClosesChannels(t *testing.T) {
	w, err := NewWatcher(0, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if w.quiet != DefaultQuiet {
		t.Errorf("quiet %v, want %v", w.quiet, DefaultQuiet)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
	if _, ok := <-w.Events; ok {
		t.Error("Events not closed")
	}
	if _, ok := <-w.Errors; ok {
		t.Error("Errors not closed")
	}
}

func TestNewWatcherMissingDir(t *testing.T) {
	if _, err := NewWatcher(0, filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for a missing directory")
	}
}
