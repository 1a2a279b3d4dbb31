package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"pulsedpin-go/bus"
	"pulsedpin-go/errcode"
	"pulsedpin-go/types"
)

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxDeviceKey = "device" // context key used for device ID
)

// Topic is where the pulse service configuration is retained.
var Topic = bus.T(configPrefix, "pulse")

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// Parse decodes a TOML board description.
func Parse(raw []byte) (types.PulseConfig, error) {
	var cfg types.PulseConfig
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return types.PulseConfig{}, fmt.Errorf("parse pulse config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return types.PulseConfig{}, err
	}
	return cfg, nil
}

// Validate rejects configs the pulse service could not build.
func Validate(cfg types.PulseConfig) error {
	names := make(map[string]struct{}, len(cfg.Outputs))
	pins := make(map[int]struct{}, len(cfg.Outputs))
	for i, o := range cfg.Outputs {
		if o.Name == "" {
			return &errcode.E{C: errcode.InvalidParams, Op: "validate", Msg: fmt.Sprintf("output %d has no name", i)}
		}
		if _, dup := names[o.Name]; dup {
			return &errcode.E{C: errcode.InvalidParams, Op: "validate", Msg: "duplicate output " + o.Name}
		}
		if _, dup := pins[o.Pin]; dup {
			return &errcode.E{C: errcode.PinInUse, Op: "validate", Msg: fmt.Sprintf("pin %d used twice", o.Pin)}
		}
		switch o.Driver {
		case "", types.DriverGPIO, types.DriverBuzzer:
		default:
			return &errcode.E{C: errcode.UnknownDriver, Op: "validate", Msg: o.Driver}
		}
		names[o.Name] = struct{}{}
		pins[o.Pin] = struct{}{}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// publishConfig resolves the device config and publishes it retained on
// "config/pulse".
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return errors.New("missing device ID in context")
	}

	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return errors.New("no embedded config for device: " + device)
	}

	cfg, err := Parse(raw)
	if err != nil {
		return err
	}
	conn.Publish(conn.NewMessage(Topic, cfg, true))
	return nil
}

// Start publishes the config in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			println("[config] " + err.Error())
		}
	}()
}
