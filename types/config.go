package types

// Pulse service configuration supplied on topic "config/pulse".

type PulseConfig struct {
	// TickMs is the poll period of the service loop. 0 selects the default.
	TickMs  uint32        `toml:"tick_ms" json:"tick_ms"`
	Outputs []PulseOutput `toml:"output" json:"outputs"`
}

// Output drivers.
const (
	DriverGPIO   = "gpio"
	DriverBuzzer = "buzzer"
)

type PulseOutput struct {
	Name      string `toml:"name" json:"name"`
	Pin       int    `toml:"pin" json:"pin"`
	Driver    string `toml:"driver,omitempty" json:"driver,omitempty"` // DriverGPIO if empty
	ActiveLow bool   `toml:"active_low,omitempty" json:"active_low,omitempty"`
	Initial   bool   `toml:"initial,omitempty" json:"initial,omitempty"`
	// Boot, when set, starts right after the output is built.
	Boot *PulseStart `toml:"boot,omitempty" json:"boot,omitempty"`
}
