package pulser

import (
	"pulsedpin-go/bus"
	"pulsedpin-go/errcode"
	"pulsedpin-go/pulse"
	"pulsedpin-go/services/pulser/platform"
	"pulsedpin-go/types"
)

// output is one configured pin and the sequencer driving it. The sequencer
// sees logical levels; active-low wiring is handled by the pin wrapper.
type output struct {
	cfg   types.PulseOutput
	pin   platform.Pin
	seq   *pulse.Sequencer
	info  bus.Topic
	value bus.Topic
}

func buildOutput(pins platform.PinFactory, cfg types.PulseOutput, now uint32) (*output, error) {
	if cfg.Name == "" {
		return nil, errcode.InvalidParams
	}
	if cfg.Driver == "" {
		cfg.Driver = types.DriverGPIO
	}
	pin, err := pins.Claim(cfg.Pin, cfg.Driver)
	if err != nil {
		return nil, err
	}
	if cfg.ActiveLow {
		pin = platform.Invert(pin)
	}
	o := &output{
		cfg:   cfg,
		pin:   pin,
		seq:   pulse.New(pin),
		info:  InfoTopic(cfg.Name),
		value: ValueTopic(cfg.Name),
	}
	if cfg.Initial {
		o.seq.SetStatic(true)
	}
	if cfg.Boot != nil {
		o.seq.Configure(now, startPattern(*cfg.Boot))
	}
	return o, nil
}

func (o *output) infoPayload() types.Info {
	return types.Info{
		SchemaVersion: 1,
		Kind:          types.KindPulse,
		Driver:        o.cfg.Driver,
		Detail: types.PulseInfo{
			Pin:       o.cfg.Pin,
			ActiveLow: o.cfg.ActiveLow,
			Driver:    o.cfg.Driver,
		},
	}
}

func (o *output) valuePayload(now uint32) types.PulseValue {
	st := o.seq.State()
	return types.PulseValue{
		On:        o.pin.Get(),
		Active:    o.seq.Active(),
		Step:      st.Step,
		Steps:     st.Steps,
		Remaining: st.Remaining.Count(),
		Forever:   st.Remaining.Infinite(),
		TSms:      now,
	}
}

// control applies one verb. It reports errcode values for bad payloads and
// unknown verbs.
func (o *output) control(verb string, payload any, now uint32) error {
	switch verb {
	case VerbBeep:
		p, ok := payloadAs[types.PulseBeep](payload)
		if !ok {
			return errcode.InvalidPayload
		}
		o.seq.Beep(now, p.OnMs)
	case VerbRepeat:
		p, ok := payloadAs[types.PulseRepeat](payload)
		if !ok {
			return errcode.InvalidPayload
		}
		o.seq.Repeat(now, p.OnMs, p.PauseMs, loops(p.Count, p.Forever))
	case VerbStart:
		p, ok := payloadAs[types.PulseStart](payload)
		if !ok {
			return errcode.InvalidPayload
		}
		o.seq.Configure(now, startPattern(p))
	case VerbSet:
		p, ok := payloadAs[types.PulseSet](payload)
		if !ok {
			return errcode.InvalidPayload
		}
		o.seq.SetStatic(p.On)
	case VerbStop:
		o.seq.SetStatic(false)
	case VerbRead:
	default:
		return errcode.Unsupported
	}
	return nil
}

func startPattern(p types.PulseStart) pulse.Pattern {
	return pulse.Grouped(p.OnMs, p.OffMs, p.Tones, p.PauseMs, loops(p.Loops, p.Forever))
}

func loops(n uint16, forever bool) pulse.Loops {
	if forever {
		return pulse.Forever
	}
	return pulse.Times(n)
}

// payloadAs accepts T or a non-nil *T.
func payloadAs[T any](v any) (T, bool) {
	switch p := v.(type) {
	case T:
		return p, true
	case *T:
		if p != nil {
			return *p, true
		}
	}
	var zero T
	return zero, false
}
