package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw TOML for that device
// -----------------------------------------------------------------------------

// Pico with the on-board LED as a heartbeat.
const cfgPico = `
tick_ms = 1

[[output]]
name = "led"
pin = 25
boot = { on_ms = 50, off_ms = 0, tones = 1, pause_ms = 950, forever = true }
`

// Pico with a buzzer on GP15 and a status LED on GP14 (active low).
const cfgPicoBuzzer = `
tick_ms = 1

[[output]]
name = "buzzer"
pin = 15
driver = "buzzer"
boot = { on_ms = 40, off_ms = 60, tones = 2, pause_ms = 0, loops = 1 }

[[output]]
name = "status"
pin = 14
active_low = true
`

var embeddedConfigs = map[string][]byte{
	"pico":        []byte(cfgPico),
	"pico_buzzer": []byte(cfgPicoBuzzer),
}
