// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherDetectsChanges(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	initial := `notify:
  backend: file
  path: first.json
`
	if err := os.WriteFile(configPath, []byte(initial), 0644); err != nil {
		t.Fatalf("failed to write initial config: %v", err)
	}

	watcher, err := NewWatcher([]string{configPath}, WithWatchInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	changes := make(chan *Config, 1)
	watcher.OnChange(func(cfg *Config) {
		changes <- cfg
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher.Start(ctx)
	defer watcher.Stop()

	cfg := watcher.Config()
	if cfg.Notify.Path != "first.json" {
		t.Errorf("expected path 'first.json', got %q", cfg.Notify.Path)
	}

	// Wait a bit to ensure watcher is running
	time.Sleep(100 * time.Millisecond)

	updated := `notify:
  backend: file
  path: second.json
`
	if err := os.WriteFile(configPath, []byte(updated), 0644); err != nil {
		t.Fatalf("failed to write updated config: %v", err)
	}

	select {
	case newCfg := <-changes:
		if newCfg.Notify.Path != "second.json" {
			t.Errorf("expected path 'second.json', got %q", newCfg.Notify.Path)
		}
	case <-time.After(500 * time.Millisecond):
		t.Error("timeout waiting for config change notification")
	}
}

func TestWatcherStops(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte(`notify: {}`), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	watcher, err := NewWatcher([]string{configPath}, WithWatchInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}

	watcher.Start(context.Background())

	done := make(chan struct{})
	go func() {
		watcher.Stop()
		close(done)
	}()

	select {
	case <-done:
		// Good
	case <-time.After(1 * time.Second):
		t.Error("watcher.Stop() did not complete in time")
	}
}

func TestReloadableConfig(t *testing.T) {
	cfg1 := &Config{
		Notify: NotifyConfig{Backend: "memory"},
	}
	cfg2 := &Config{
		Notify: NotifyConfig{Backend: "sqlite"},
	}

	rc := NewReloadableConfig(cfg1)

	if rc.Notify().Backend != "memory" {
		t.Errorf("expected memory, got %q", rc.Notify().Backend)
	}

	rc.Update(cfg2)

	if rc.Notify().Backend != "sqlite" {
		t.Errorf("expected sqlite, got %q", rc.Notify().Backend)
	}
	if rc.Get().Notify.Backend != "sqlite" {
		t.Errorf("expected sqlite from Get(), got %q", rc.Get().Notify.Backend)
	}
}

func TestWatchConfigWithProfiles(t *testing.T) {
	tmpDir := t.TempDir()

	basePath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(basePath, []byte(`notify:
  path: base.json
`), 0644); err != nil {
		t.Fatalf("failed to write base config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher, cfg, err := WatchConfig(ctx, basePath, WithWatchInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("failed to watch config: %v", err)
	}
	defer watcher.Stop()

	if cfg.Notify.Path != "base.json" {
		t.Errorf("expected path 'base.json', got %q", cfg.Notify.Path)
	}
}
