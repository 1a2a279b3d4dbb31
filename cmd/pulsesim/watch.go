//go:build !rp2040 && !rp2350

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"pulsedpin-go/services/config"
	"pulsedpin-go/types"
)

const watchDebounce = 300 * time.Millisecond

// watchConfig reloads path after every write and passes valid configs to
// apply. It watches the parent directory so editors that replace the file
// are seen. Invalid files are logged and skipped. It returns when ctx ends.
func watchConfig(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, apply func(types.PulseConfig)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	defer w.Close()

	path = filepath.Clean(path)
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	logger.Info("watching config", "path", path, "debounce", debounce)

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			timerC = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)
		case <-timerC:
			timerC = nil
			raw, err := os.ReadFile(path)
			if err != nil {
				logger.Warn("config reload failed", "error", err)
				continue
			}
			cfg, err := config.Parse(raw)
			if err != nil {
				logger.Warn("config reload rejected", "error", err)
				continue
			}
			logger.Info("config reloaded", "outputs", len(cfg.Outputs))
			apply(cfg)
		}
	}
}
