package types

// ------------------------
// Pulse output
// ------------------------

type PulseInfo struct {
	Pin       int    `json:"pin"`
	ActiveLow bool   `json:"active_low"`
	Driver    string `json:"driver"`
}

// PulseValue is the retained state of one output.
type PulseValue struct {
	On        bool   `json:"on"`     // logical line level
	Active    bool   `json:"active"` // a pattern is running
	Step      uint32 `json:"step"`
	Steps     uint32 `json:"steps"`
	Remaining uint16 `json:"remaining"`
	Forever   bool   `json:"forever,omitempty"`
	TSms      uint32 `json:"ts_ms"`
}

// PulseSet forces the line and cancels any pattern.
type PulseSet struct {
	On bool `json:"on"`
}

// PulseBeep plays one tone.
type PulseBeep struct {
	OnMs uint32 `json:"on_ms"`
}

// PulseRepeat plays Count tones separated by PauseMs (or forever).
type PulseRepeat struct {
	OnMs    uint32 `json:"on_ms"`
	PauseMs uint32 `json:"pause_ms"`
	Count   uint16 `json:"count"`
	Forever bool   `json:"forever,omitempty"`
}

// PulseStart is the full pattern: Tones on/off pairs, a pause, Loops groups.
type PulseStart struct {
	OnMs    uint32 `toml:"on_ms" json:"on_ms"`
	OffMs   uint32 `toml:"off_ms" json:"off_ms"`
	Tones   uint16 `toml:"tones" json:"tones"`
	PauseMs uint32 `toml:"pause_ms" json:"pause_ms"`
	Loops   uint16 `toml:"loops" json:"loops"`
	Forever bool   `toml:"forever,omitempty" json:"forever,omitempty"`
}
