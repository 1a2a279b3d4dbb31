package pulser

import "pulsedpin-go/bus"

// Topic layout:
//
//	hal/pulse/<name>/control/<verb>   requests (beep, repeat, start, set, stop, read)
//	hal/pulse/<name>/info             retained types.PulseInfo
//	hal/pulse/<name>/value            retained types.PulseValue
//	hal/state                         retained types.HALState
const (
	tokHAL     = "hal"
	tokPulse   = "pulse"
	tokControl = "control"
	tokInfo    = "info"
	tokValue   = "value"
	tokState   = "state"
)

// Control verbs.
const (
	VerbBeep   = "beep"
	VerbRepeat = "repeat"
	VerbStart  = "start"
	VerbSet    = "set"
	VerbStop   = "stop"
	VerbRead   = "read"
)

// StateTopic carries the retained types.HALState.
var StateTopic = bus.T(tokHAL, tokState)

// ControlTopic is the request topic for verb on output name.
func ControlTopic(name, verb string) bus.Topic {
	return bus.T(tokHAL, tokPulse, name, tokControl, verb)
}

// ValueTopic is the retained value topic for output name.
func ValueTopic(name string) bus.Topic { return bus.T(tokHAL, tokPulse, name, tokValue) }

// InfoTopic is the retained info topic for output name.
func InfoTopic(name string) bus.Topic { return bus.T(tokHAL, tokPulse, name, tokInfo) }

func controlFilter() bus.Topic {
	return bus.T(tokHAL, tokPulse, bus.Single, tokControl, bus.Single)
}

// parseControl extracts name and verb from a control topic.
func parseControl(t bus.Topic) (name, verb string, ok bool) {
	if t.Len() != 5 || t.At(0) != tokHAL || t.At(1) != tokPulse || t.At(3) != tokControl {
		return "", "", false
	}
	name, ok1 := t.At(2).(string)
	verb, ok2 := t.At(4).(string)
	return name, verb, ok1 && ok2
}
