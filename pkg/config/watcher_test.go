package config

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func TestNewWatcherRequiresPath(t *testing.T) {
	if _, err := NewWatcher(WatcherConfig{}); err == nil {
		t.Error("NewWatcher accepted an empty path")
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := writeConfigFile(t, "logging:\n  level: info\n")

	w, err := NewWatcher(WatcherConfig{Path: path, DebounceInterval: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reloaded := make(chan *Config, 1)
	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func(cfg *Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	// Give the watcher a moment to establish the directory watch.
	time.Sleep(200 * time.Millisecond)

	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Logging.Level != "debug" {
			t.Errorf("reloaded level = %s, want debug", cfg.Logging.Level)
		}
	case <-ctx.Done():
		t.Fatal("no reload before timeout")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Watch returned %v, want context.Canceled", err)
	}
}

func TestWatcherKeepsPreviousConfigOnBadReload(t *testing.T) {
	path := writeConfigFile(t, "logging:\n  level: info\n")

	w, err := NewWatcher(WatcherConfig{Path: path, DebounceInterval: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	reloads := make(chan *Config, 4)
	go func() {
		w.Watch(ctx, func(cfg *Config) { reloads <- cfg })
	}()
	time.Sleep(200 * time.Millisecond)

	// An invalid config must not reach the callback.
	if err := os.WriteFile(path, []byte("logging:\n  level: shouting\n"), 0600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-reloads:
		t.Errorf("invalid config delivered: %+v", cfg.Logging)
	case <-time.After(500 * time.Millisecond):
	}

	// A subsequent valid write recovers.
	if err := os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	select {
	case cfg := <-reloads:
		if cfg.Logging.Level != "warn" {
			t.Errorf("recovered level = %s, want warn", cfg.Logging.Level)
		}
	case <-ctx.Done():
		t.Fatal("no reload after recovery")
	}
}
