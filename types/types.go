package types

// ---- Common HAL state (retained on "hal/state") ----

type HALState struct {
	Level  string `json:"level"`  // "idle", "ready", "stopped"
	Status string `json:"status"` // short code
	TSms   uint32 `json:"ts_ms"`
}

// ---- Capability kinds & info ----

type Kind string

const (
	KindPulse Kind = "pulse"
)

// Info envelope each output exposes (retained).
type Info struct {
	SchemaVersion int    `json:"schema_version"`
	Kind          Kind   `json:"kind"`
	Driver        string `json:"driver"`
	Detail        any    `json:"detail,omitempty"`
}

// Reply answers every control request.
type Reply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Value any    `json:"value,omitempty"`
}
