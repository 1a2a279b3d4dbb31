// Package pulser runs pulse sequencers for the configured output pins and
// exposes them on the bus. One goroutine owns every sequencer: it serves
// control requests, applies configs and polls all outputs with a single
// clock snapshot per tick.
package pulser

import (
	"context"
	"time"

	"pulsedpin-go/bus"
	"pulsedpin-go/errcode"
	"pulsedpin-go/services/config"
	"pulsedpin-go/services/pulser/platform"
	"pulsedpin-go/types"
	"pulsedpin-go/x/mathx"
	"pulsedpin-go/x/timex"
)

const (
	defaultTickMs uint32 = 1
	minTickMs     uint32 = 1
	maxTickMs     uint32 = 100
)

type Service struct {
	conn *bus.Connection
	pins platform.PinFactory
	now  func() uint32

	outputs    map[string]*output
	order      []*output
	tickMs     uint32
	configured bool
}

func New(conn *bus.Connection, pins platform.PinFactory) *Service {
	return &Service{
		conn:    conn,
		pins:    pins,
		now:     timex.NowMs,
		outputs: make(map[string]*output),
		tickMs:  defaultTickMs,
	}
}

// Run serves until ctx is cancelled. All outputs are driven low on exit.
func (s *Service) Run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(config.Topic)
	ctrlSub := s.conn.Subscribe(controlFilter())
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(ctrlSub)

	s.publishState("idle", "awaiting_config")
	println("[pulser] waiting for config …")

	ticker := time.NewTicker(timex.Ms(s.tickMs))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.teardown()
			s.publishState("stopped", "ctx_done")
			return
		case m := <-cfgSub.Channel():
			if m == nil {
				continue
			}
			prev := s.tickMs
			s.applyConfig(m)
			if s.tickMs != prev {
				ticker.Reset(timex.Ms(s.tickMs))
			}
		case m := <-ctrlSub.Channel():
			if m == nil {
				continue
			}
			s.handleControl(m)
		case <-ticker.C:
			s.pollAll(s.now())
		}
	}
}

// applyConfig replaces every output with the ones described by m.
func (s *Service) applyConfig(m *bus.Message) {
	cfg, ok := payloadAs[types.PulseConfig](m.Payload)
	if !ok {
		println("[pulser] config: invalid payload")
		s.publishState("idle", string(errcode.InvalidPayload))
		return
	}
	if err := config.Validate(cfg); err != nil {
		println("[pulser] config: " + err.Error())
		s.publishState("idle", string(errcode.Of(err)))
		return
	}

	s.teardown()
	s.configured = true

	s.tickMs = defaultTickMs
	if cfg.TickMs != 0 {
		s.tickMs = mathx.Clamp(cfg.TickMs, minTickMs, maxTickMs)
	}

	now := s.now()
	status := string(errcode.OK)
	for _, oc := range cfg.Outputs {
		o, err := buildOutput(s.pins, oc, now)
		if err != nil {
			println("[pulser] output " + oc.Name + ": " + err.Error())
			status = string(errcode.Of(err))
			continue
		}
		s.outputs[oc.Name] = o
		s.order = append(s.order, o)
		s.conn.Publish(s.conn.NewMessage(o.info, o.infoPayload(), true))
		s.publishValue(o, now)
		println("[pulser] output " + oc.Name + " ready")
	}
	s.publishState("ready", status)
}

// teardown drives every output low, releases its pin and clears its
// retained topics.
func (s *Service) teardown() {
	for _, o := range s.order {
		o.seq.SetStatic(false)
		s.pins.Release(o.cfg.Pin)
		s.conn.Publish(s.conn.NewMessage(o.info, nil, true))
		s.conn.Publish(s.conn.NewMessage(o.value, nil, true))
	}
	s.order = nil
	s.outputs = make(map[string]*output)
}

func (s *Service) handleControl(m *bus.Message) {
	name, verb, ok := parseControl(m.Topic)
	if !ok {
		s.replyErr(m, errcode.InvalidTopic)
		return
	}
	o := s.outputs[name]
	if o == nil && !s.configured {
		s.replyErr(m, errcode.NotReady)
		return
	}
	if o == nil {
		s.replyErr(m, errcode.UnknownOutput)
		return
	}
	now := s.now()
	if err := o.control(verb, m.Payload, now); err != nil {
		s.replyErr(m, err)
		return
	}
	v := s.publishValue(o, now)
	s.conn.Reply(m, types.Reply{OK: true, Value: v}, false)
}

// pollAll advances every output once against the same timestamp.
func (s *Service) pollAll(now uint32) {
	for _, o := range s.order {
		if o.seq.Poll(now) {
			s.publishValue(o, now)
		}
	}
}

func (s *Service) publishValue(o *output, now uint32) types.PulseValue {
	v := o.valuePayload(now)
	s.conn.Publish(s.conn.NewMessage(o.value, v, true))
	return v
}

func (s *Service) publishState(level, status string) {
	s.conn.Publish(s.conn.NewMessage(StateTopic, types.HALState{
		Level:  level,
		Status: status,
		TSms:   s.now(),
	}, true))
}

func (s *Service) replyErr(m *bus.Message, err error) {
	s.conn.Reply(m, types.Reply{OK: false, Error: string(errcode.Of(err))}, false)
}
