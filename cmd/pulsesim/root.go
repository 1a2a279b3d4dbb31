//go:build !rp2040 && !rp2350

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"pulsedpin-go/bus"
	"pulsedpin-go/services/config"
	"pulsedpin-go/services/console"
	"pulsedpin-go/services/pulser"
	"pulsedpin-go/services/pulser/platform"
	"pulsedpin-go/types"
	"pulsedpin-go/x/timex"
)

type options struct {
	configFile string
	device     string
	script     string
	linger     time.Duration
	watch      bool
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "pulsesim",
		Short:         "Simulate pulse outputs on host pins",
		Long:          `pulsesim loads a board config, runs the pulse service on in-memory pins and logs every edge. Console commands are read from --script and then stdin.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(opts.logLevel, opts.logFormat, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := run(cmd.Context(), opts, logger, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				logger.Error("simulation failed", "error", err)
				return err
			}
			return nil
		},
	}

	cmd.AddCommand(newRemoteCmd())

	f := cmd.Flags()
	f.StringVarP(&opts.configFile, "config", "c", "", "TOML board config file (default: embedded config for --device)")
	f.StringVarP(&opts.device, "device", "d", "pico", "embedded board config to use when --config is not set")
	f.StringVarP(&opts.script, "script", "s", "", "file of console commands run before stdin")
	f.BoolVarP(&opts.watch, "watch", "w", false, "reload --config when the file changes")
	f.DurationVar(&opts.linger, "linger", 2*time.Second, "time to keep running after input ends")
	addLogFlags(cmd.PersistentFlags(), opts)
	return cmd
}

func addLogFlags(f *pflag.FlagSet, opts *options) {
	f.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	f.StringVar(&opts.logFormat, "log-format", "text", "log format (text, json)")
}

func newLogger(level, format string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	hopts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(w, hopts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, hopts)), nil
	default:
		return nil, fmt.Errorf("invalid --log-format %q", format)
	}
}

func loadConfig(opts *options) (types.PulseConfig, error) {
	if opts.configFile != "" {
		raw, err := os.ReadFile(opts.configFile)
		if err != nil {
			return types.PulseConfig{}, fmt.Errorf("read config: %w", err)
		}
		return config.Parse(raw)
	}
	raw, ok := config.EmbeddedConfigLookup(opts.device)
	if !ok {
		return types.PulseConfig{}, fmt.Errorf("no embedded config for device %q", opts.device)
	}
	return config.Parse(raw)
}

func run(ctx context.Context, opts *options, logger *slog.Logger, stdin io.Reader, stdout io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	in := stdin
	if opts.script != "" {
		f, err := os.Open(opts.script)
		if err != nil {
			return fmt.Errorf("open script: %w", err)
		}
		defer f.Close()
		// A script without a trailing newline must not run into the first stdin line.
		in = io.MultiReader(f, strings.NewReader("\n"), stdin)
	}

	b := bus.NewBus(32)
	start := timex.NowMs()
	pins := &platform.HostFactory{
		MaxPin: 29,
		OnChange: func(n int, level bool) {
			logger.Info("edge", "pin", n, "high", level, "t_ms", timex.Elapsed(timex.NowMs(), start))
		},
	}

	svcCtx, cancelSvc := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		pulser.New(b.NewConnection("pulser"), pins).Run(svcCtx)
	}()
	go func() {
		defer wg.Done()
		logState(svcCtx, b.NewConnection("monitor"), logger)
	}()
	defer func() {
		cancelSvc()
		wg.Wait()
	}()

	cfgConn := b.NewConnection("sim")
	go func() {
		defer wg.Done()
		if !opts.watch || opts.configFile == "" {
			return
		}
		err := watchConfig(svcCtx, opts.configFile, watchDebounce, logger, func(cfg types.PulseConfig) {
			cfgConn.Publish(cfgConn.NewMessage(config.Topic, cfg, true))
		})
		if err != nil {
			logger.Error("config watch stopped", "error", err)
		}
	}()

	ready := cfgConn.Subscribe(pulser.StateTopic)
	cfgConn.Publish(cfgConn.NewMessage(config.Topic, cfg, true))
	logger.Info("config loaded", "outputs", len(cfg.Outputs), "tick_ms", cfg.TickMs)
	if err := waitReady(ctx, ready); err != nil {
		return err
	}
	cfgConn.Unsubscribe(ready)

	con := console.New(b.NewConnection("console"), newReaderPort(in, stdout))
	err = con.Run(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		logger.Debug("input ended", "linger", opts.linger)
		select {
		case <-ctx.Done():
		case <-time.After(opts.linger):
		}
		return nil
	default:
		return err
	}
}

func waitReady(ctx context.Context, sub *bus.Subscription) error {
	timeout := time.After(2 * time.Second)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return errors.New("pulse service did not become ready")
		case m := <-sub.Channel():
			if st, ok := m.Payload.(types.HALState); ok && st.Level == "ready" {
				return nil
			}
		}
	}
}

// logState logs pulser state and output value changes until ctx ends.
func logState(ctx context.Context, conn *bus.Connection, logger *slog.Logger) {
	state := conn.Subscribe(pulser.StateTopic)
	values := conn.Subscribe(bus.T("hal", "pulse", bus.Single, "value"))
	defer conn.Disconnect()

	for {
		select {
		case <-ctx.Done():
			return
		case m := <-state.Channel():
			if st, ok := m.Payload.(types.HALState); ok {
				logger.Info("pulser state", "level", st.Level, "status", st.Status)
			}
		case m := <-values.Channel():
			if v, ok := m.Payload.(types.PulseValue); ok {
				logger.Debug("value", "topic", m.Topic.String(), "on", v.On, "active", v.Active,
					"step", v.Step, "steps", v.Steps, "remaining", v.Remaining, "forever", v.Forever)
			}
		}
	}
}
