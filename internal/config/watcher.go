package config

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"os"
	"time"
)

// Watcher polls the config file for content changes and invokes a callback
// when the hash differs. Polling keeps behaviour identical across local
// filesystems and network mounts where inotify is unreliable.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func()
	logger   *slog.Logger

	lastHash [sha256.Size]byte
}

// NewWatcher builds a watcher for path. onChange runs on the watcher's
// goroutine; keep it quick or dispatch from it.
func NewWatcher(path string, interval time.Duration, onChange func(), logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{path: path, interval: interval, onChange: onChange, logger: logger}
	if raw, err := os.ReadFile(path); err == nil {
		w.lastHash = sha256.Sum256(raw)
	}
	return w
}

// Run blocks until ctx is done, checking the file every interval.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *Watcher) check() {
	raw, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Warn("config watch read failed", "path", w.path, "error", err)
		return
	}
	hash := sha256.Sum256(raw)
	if hash == w.lastHash {
		return
	}
	w.lastHash = hash
	w.logger.Info("configuration file changed", "path", w.path)
	w.onChange()
}
