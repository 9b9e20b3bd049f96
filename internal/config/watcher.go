package config

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher keeps the last valid configuration loaded from a file and reports
// content changes. Run polls the file; Reload forces a read.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(old, new *Config)

	mu      sync.Mutex
	current *Config
	raw     []byte
	stamp   fileStamp
}

// fileStamp is the cheap pre-check done before reading the file.
type fileStamp struct {
	mod  time.Time
	size int64
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval of [Watcher.Run]. Defaults to 5s.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher loads path and returns a Watcher for it. onChange, if non-nil,
// is called after every reload that yields a different valid config.
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{path: path, interval: 5 * time.Second, onChange: onChange}
	for _, o := range opts {
		o(w)
	}
	if _, err := w.Reload(); err != nil {
		return nil, fmt.Errorf("config: watch %q: %w", path, err)
	}
	return w, nil
}

// Current returns the last valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Run polls the file until ctx ends. Invalid content is logged and the
// previous config stays current.
func (w *Watcher) Run(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if !w.stale() {
			continue
		}
		if _, err := w.Reload(); err != nil {
			slog.Warn("config reload rejected", "path", w.path, "error", err)
		}
	}
}

// Reload reads the file and swaps in its config when the content differs
// from the last load. It reports whether the config changed.
func (w *Watcher) Reload() (bool, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(w.path)
	if err != nil {
		return false, err
	}
	stamp := fileStamp{mod: info.ModTime(), size: info.Size()}

	w.mu.Lock()
	if w.current != nil && bytes.Equal(data, w.raw) {
		w.stamp = stamp
		w.mu.Unlock()
		return false, nil
	}
	w.mu.Unlock()

	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return false, err
	}

	w.mu.Lock()
	old := w.current
	w.current, w.raw, w.stamp = cfg, data, stamp
	w.mu.Unlock()

	if old == nil {
		return true, nil
	}
	slog.Info("config reloaded", "path", w.path)
	if w.onChange != nil {
		w.onChange(old, cfg)
	}
	return true, nil
}

func (w *Watcher) stale() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return !info.ModTime().Equal(w.stamp.mod) || info.Size() != w.stamp.size
}
