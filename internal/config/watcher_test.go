package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrWong99/voxpi/internal/config"
)

const (
	baseYAML = "log_level: info\ngpio:\n  led_pin: 25\n"
	nextYAML = "log_level: debug\ngpio:\n  led_pin: 24\n"
	badYAML  = "log_level: loud\n"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

type reloads struct {
	old, new []*config.Config
}

func (r *reloads) record(old, new *config.Config) {
	r.old = append(r.old, old)
	r.new = append(r.new, new)
}

func newWatcher(t *testing.T, content string) (*config.Watcher, string, *reloads) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voxpi.yaml")
	writeConfig(t, path, content)
	r := &reloads{}
	w, err := config.NewWatcher(path, r.record)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	return w, path, r
}

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()
	w, _, r := newWatcher(t, baseYAML)
	if got := w.Current().LogLevel; got != config.LogInfo {
		t.Errorf("LogLevel = %q, want info", got)
	}
	if len(r.new) != 0 {
		t.Errorf("initial load reported %d changes", len(r.new))
	}
}

func TestWatcher_InitialLoadFails(t *testing.T) {
	t.Parallel()
	if _, err := config.NewWatcher(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWatcher_Reload(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		content     string
		wantChanged bool
		wantErr     bool
		wantLevel   config.LogLevel
	}{
		{name: "new content", content: nextYAML, wantChanged: true, wantLevel: config.LogDebug},
		{name: "same content", content: baseYAML, wantLevel: config.LogInfo},
		{name: "invalid keeps old", content: badYAML, wantErr: true, wantLevel: config.LogInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w, path, r := newWatcher(t, baseYAML)
			writeConfig(t, path, tt.content)

			changed, err := w.Reload()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Reload err = %v, wantErr %v", err, tt.wantErr)
			}
			if changed != tt.wantChanged {
				t.Errorf("changed = %v, want %v", changed, tt.wantChanged)
			}
			if got := w.Current().LogLevel; got != tt.wantLevel {
				t.Errorf("LogLevel = %q, want %q", got, tt.wantLevel)
			}
			if tt.wantChanged != (len(r.new) == 1) {
				t.Errorf("onChange calls = %d", len(r.new))
			}
		})
	}
}

func TestWatcher_ReloadReportsDiff(t *testing.T) {
	t.Parallel()
	w, path, r := newWatcher(t, baseYAML)
	writeConfig(t, path, nextYAML)
	if _, err := w.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if len(r.old) != 1 {
		t.Fatalf("onChange calls = %d, want 1", len(r.old))
	}
	d := config.Diff(r.old[0], r.new[0])
	if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
		t.Errorf("log level diff = %+v", d)
	}
	if len(d.RestartRequired) != 1 || d.RestartRequired[0] != "gpio" {
		t.Errorf("RestartRequired = %v, want [gpio]", d.RestartRequired)
	}
}

func TestWatcher_RunPicksUpChange(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "voxpi.yaml")
	writeConfig(t, path, baseYAML)

	changed := make(chan *config.Config, 1)
	w, err := config.NewWatcher(path, func(_, new *config.Config) { changed <- new }, config.WithInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// A larger file changes the size even when the mtime granularity is coarse.
	writeConfig(t, path, nextYAML+"\n")

	select {
	case cfg := <-changed:
		if cfg.LogLevel != config.LogDebug {
			t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not report the change")
	}
}
