//go:build !rp2040 && !rp2350

package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pulsedpin-go/types"
)

func TestWatchConfigReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.toml")
	if err := os.WriteFile(path, []byte(testBoard), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan types.PulseConfig, 4)
	done := make(chan error, 1)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	go func() {
		done <- watchConfig(ctx, path, 20*time.Millisecond, logger, func(c types.PulseConfig) { got <- c })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("this is not toml ["), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	next := testBoard + "\n[[output]]\nname = \"buzzer\"\npin = 15\ndriver = \"buzzer\"\n"
	if err := os.WriteFile(path, []byte(next), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-got:
		if len(cfg.Outputs) != 2 || cfg.Outputs[1].Name != "buzzer" {
			t.Fatalf("reloaded config = %+v", cfg)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("config change not seen")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watchConfig: %v", err)
	}
}
