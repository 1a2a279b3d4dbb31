package pulser

import (
	"context"
	"testing"
	"time"

	"pulsedpin-go/bus"
	"pulsedpin-go/errcode"
	"pulsedpin-go/services/config"
	"pulsedpin-go/services/pulser/platform"
	"pulsedpin-go/types"
)

// ---- Test harness ----

type harness struct {
	t     *testing.T
	b     *bus.Bus
	svc   *Service
	pins  *platform.HostFactory
	ui    *bus.Connection
	clock uint32
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t, b: bus.NewBus(32), pins: platform.DefaultPinFactory()}
	h.svc = New(h.b.NewConnection("pulser"), h.pins)
	h.svc.now = func() uint32 { return h.clock }
	h.ui = h.b.NewConnection("ui")
	return h
}

func (h *harness) configure(cfg types.PulseConfig) {
	h.svc.applyConfig(h.b.NewMessage(config.Topic, cfg, true))
}

// control runs one request through the service synchronously and returns
// the reply.
func (h *harness) control(name, verb string, payload any) types.Reply {
	h.t.Helper()
	req := h.ui.NewMessage(ControlTopic(name, verb), payload, false)
	replies := h.ui.Request(req)
	defer h.ui.Unsubscribe(replies)
	h.svc.handleControl(req)
	select {
	case m := <-replies.Channel():
		r, ok := m.Payload.(types.Reply)
		if !ok {
			h.t.Fatalf("reply payload %T", m.Payload)
		}
		return r
	case <-time.After(200 * time.Millisecond):
		h.t.Fatalf("no reply for %s/%s", name, verb)
	}
	return types.Reply{}
}

func (h *harness) pin(n int) *platform.HostPin {
	h.t.Helper()
	p, ok := h.pins.Pin(n)
	if !ok {
		h.t.Fatalf("pin %d not claimed", n)
	}
	return p
}

func (h *harness) lastValue(name string) types.PulseValue {
	h.t.Helper()
	sub := h.ui.Subscribe(ValueTopic(name))
	defer h.ui.Unsubscribe(sub)
	select {
	case m := <-sub.Channel():
		v, ok := m.Payload.(types.PulseValue)
		if !ok {
			h.t.Fatalf("value payload %T", m.Payload)
		}
		return v
	case <-time.After(200 * time.Millisecond):
		h.t.Fatalf("no retained value for %s", name)
	}
	return types.PulseValue{}
}

// advance moves the clock forward one millisecond at a time, polling each step.
func (h *harness) advance(ms uint32) {
	for i := uint32(0); i < ms; i++ {
		h.clock++
		h.svc.pollAll(h.clock)
	}
}

var boardCfg = types.PulseConfig{
	TickMs: 2,
	Outputs: []types.PulseOutput{
		{Name: "buzzer", Pin: 15, Driver: types.DriverBuzzer},
		{Name: "status", Pin: 14, ActiveLow: true},
	},
}

// ---- Tests ----

func TestApplyConfigBuildsOutputs(t *testing.T) {
	h := newHarness(t)
	h.configure(boardCfg)

	if len(h.svc.order) != 2 || h.svc.tickMs != 2 {
		t.Fatalf("outputs=%d tick=%d", len(h.svc.order), h.svc.tickMs)
	}
	bz := h.pin(15)
	if !bz.IsOutput() || bz.Get() || bz.Driver() != types.DriverBuzzer {
		t.Fatalf("buzzer pin not set up low as output")
	}
	// Active-low output idles logically low, physically high.
	if st := h.pin(14); !st.Get() {
		t.Fatalf("active-low pin should idle high")
	}

	sub := h.ui.Subscribe(InfoTopic("status"))
	defer h.ui.Unsubscribe(sub)
	m := <-sub.Channel()
	info := m.Payload.(types.Info)
	detail := info.Detail.(types.PulseInfo)
	if info.Kind != types.KindPulse || detail.Pin != 14 || !detail.ActiveLow || detail.Driver != types.DriverGPIO {
		t.Fatalf("info = %+v", info)
	}
}

func TestBeepOverBus(t *testing.T) {
	h := newHarness(t)
	h.configure(boardCfg)
	h.clock = 1000

	r := h.control("buzzer", VerbBeep, types.PulseBeep{OnMs: 100})
	if !r.OK {
		t.Fatalf("beep failed: %s", r.Error)
	}
	if !h.pin(15).Get() {
		t.Fatalf("beep must drive the pin high immediately")
	}
	v := r.Value.(types.PulseValue)
	if !v.On || !v.Active || v.Steps != 2 || v.Remaining != 1 || v.TSms != 1000 {
		t.Fatalf("reply value = %+v", v)
	}

	h.advance(99)
	if !h.pin(15).Get() {
		t.Fatalf("tone ended early")
	}
	h.advance(1)
	if h.pin(15).Get() {
		t.Fatalf("tone did not end at 100 ms")
	}
	if v := h.lastValue("buzzer"); v.Active || v.On || v.TSms != 1100 {
		t.Fatalf("final value = %+v", v)
	}
}

func TestStartFullPattern(t *testing.T) {
	h := newHarness(t)
	h.configure(boardCfg)

	var edges []bool
	r := h.control("buzzer", VerbStart, &types.PulseStart{
		OnMs: 50, OffMs: 50, Tones: 3, PauseMs: 200, Loops: 2,
	})
	if !r.OK {
		t.Fatalf("start failed: %s", r.Error)
	}

	p := h.pin(15)
	prev := p.Get()
	for i := 0; i < 2000 && h.svc.outputs["buzzer"].seq.Active(); i++ {
		h.advance(1)
		if l := p.Get(); l != prev {
			edges = append(edges, l)
			prev = l
		}
	}
	// 5 edges per group plus the rising edge after the pause, and the last
	// group ends without a pause.
	if len(edges) != 11 {
		t.Fatalf("edges = %d (%v)", len(edges), edges)
	}
	if h.clock != 450+250 {
		t.Fatalf("pattern ended at %d, want 700", h.clock)
	}
}

func TestRepeatForeverAndStop(t *testing.T) {
	h := newHarness(t)
	h.configure(boardCfg)

	r := h.control("status", VerbRepeat, types.PulseRepeat{OnMs: 10, PauseMs: 10, Forever: true})
	if !r.OK {
		t.Fatalf("repeat failed: %s", r.Error)
	}
	h.advance(5000)
	v := h.lastValue("status")
	if !v.Active || !v.Forever {
		t.Fatalf("forever pattern stopped: %+v", v)
	}

	if r := h.control("status", VerbStop, nil); !r.OK {
		t.Fatalf("stop failed: %s", r.Error)
	}
	if h.svc.outputs["status"].seq.Active() {
		t.Fatalf("stop must cancel the pattern")
	}
	if !h.pin(14).Get() {
		t.Fatalf("stopped active-low output must sit physically high")
	}
}

func TestSetStatic(t *testing.T) {
	h := newHarness(t)
	h.configure(boardCfg)
	h.control("buzzer", VerbRepeat, types.PulseRepeat{OnMs: 10, PauseMs: 10, Count: 5})

	r := h.control("buzzer", VerbSet, types.PulseSet{On: true})
	if !r.OK {
		t.Fatalf("set failed: %s", r.Error)
	}
	v := r.Value.(types.PulseValue)
	if !v.On || v.Active || v.Steps != 0 || v.Remaining != 0 {
		t.Fatalf("set value = %+v", v)
	}
	writes := h.pin(15).Writes()
	h.advance(100)
	if h.pin(15).Writes() != writes {
		t.Fatalf("static output must not be polled into toggling")
	}
}

func TestControlErrors(t *testing.T) {
	h := newHarness(t)
	h.configure(boardCfg)

	cases := []struct {
		name, out, verb string
		payload         any
		want            errcode.Code
	}{
		{"unknown output", "siren", VerbBeep, types.PulseBeep{OnMs: 1}, errcode.UnknownOutput},
		{"bad payload", "buzzer", VerbBeep, "loud", errcode.InvalidPayload},
		{"nil pointer", "buzzer", VerbSet, (*types.PulseSet)(nil), errcode.InvalidPayload},
		{"bad verb", "buzzer", "chirp", nil, errcode.Unsupported},
	}
	for _, tc := range cases {
		r := h.control(tc.out, tc.verb, tc.payload)
		if r.OK || r.Error != string(tc.want) {
			t.Errorf("%s: reply = %+v, want %s", tc.name, r, tc.want)
		}
	}
}

func TestControlBeforeConfigNotReady(t *testing.T) {
	h := newHarness(t)
	if r := h.control("buzzer", VerbBeep, types.PulseBeep{OnMs: 10}); r.OK || r.Error != string(errcode.NotReady) {
		t.Fatalf("before config: %+v", r)
	}
	// A rejected config does not make the service ready.
	h.configure(types.PulseConfig{Outputs: []types.PulseOutput{{Name: ""}}})
	if r := h.control("buzzer", VerbRead, nil); r.Error != string(errcode.NotReady) {
		t.Fatalf("after invalid config: %+v", r)
	}
	h.configure(boardCfg)
	if r := h.control("siren", VerbRead, nil); r.Error != string(errcode.UnknownOutput) {
		t.Fatalf("after config: %+v", r)
	}
}

func TestBootPatternAndInitial(t *testing.T) {
	h := newHarness(t)
	h.clock = 500
	h.configure(types.PulseConfig{Outputs: []types.PulseOutput{
		{Name: "led", Pin: 25, Boot: &types.PulseStart{OnMs: 20, PauseMs: 30, Tones: 1, Loops: 2}},
		{Name: "power", Pin: 3, Initial: true},
	}})
	if h.svc.tickMs != defaultTickMs {
		t.Fatalf("tick = %d, want default", h.svc.tickMs)
	}
	if !h.pin(3).Get() {
		t.Fatalf("initial=true output must start high")
	}
	if !h.pin(25).Get() || !h.svc.outputs["led"].seq.Active() {
		t.Fatalf("boot pattern not started")
	}
	h.advance(20 + 30 + 20)
	if h.svc.outputs["led"].seq.Active() || h.pin(25).Get() {
		t.Fatalf("boot pattern should have finished low")
	}
}

func TestReconfigureReleasesPins(t *testing.T) {
	h := newHarness(t)
	h.configure(boardCfg)
	h.control("buzzer", VerbSet, types.PulseSet{On: true})
	old := h.pin(15)

	h.configure(types.PulseConfig{TickMs: 1000, Outputs: []types.PulseOutput{
		{Name: "chime", Pin: 15},
	}})
	if old.Get() {
		t.Fatalf("old output must be driven low on teardown")
	}
	if _, ok := h.svc.outputs["buzzer"]; ok {
		t.Fatalf("old output still registered")
	}
	if h.pin(15).Driver() != types.DriverGPIO {
		t.Fatalf("pin 15 not reclaimed by the new output")
	}
	if h.svc.tickMs != maxTickMs {
		t.Fatalf("tick not clamped: %d", h.svc.tickMs)
	}
}

func TestInvalidConfigKeepsOutputs(t *testing.T) {
	h := newHarness(t)
	h.configure(boardCfg)
	h.configure(types.PulseConfig{Outputs: []types.PulseOutput{{Name: ""}}})
	if len(h.svc.order) != 2 {
		t.Fatalf("invalid config must not tear down outputs")
	}
	h.svc.applyConfig(h.b.NewMessage(config.Topic, "nope", true))
	if len(h.svc.order) != 2 {
		t.Fatalf("bad payload must not tear down outputs")
	}
}

func TestBadPinReportedInState(t *testing.T) {
	h := newHarness(t)
	h.configure(types.PulseConfig{Outputs: []types.PulseOutput{
		{Name: "ok", Pin: 1},
		{Name: "far", Pin: 99},
	}})
	if len(h.svc.order) != 1 {
		t.Fatalf("outputs = %d, want 1", len(h.svc.order))
	}
	sub := h.ui.Subscribe(StateTopic)
	defer h.ui.Unsubscribe(sub)
	st := (<-sub.Channel()).Payload.(types.HALState)
	if st.Level != "ready" || st.Status != string(errcode.UnknownPin) {
		t.Fatalf("state = %+v", st)
	}
}

func TestRunEndToEnd(t *testing.T) {
	b := bus.NewBus(16)
	pins := platform.DefaultPinFactory()
	svc := New(b.NewConnection("pulser"), pins)
	ui := b.NewConnection("ui")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	ui.Publish(ui.NewMessage(config.Topic, types.PulseConfig{Outputs: []types.PulseOutput{
		{Name: "led", Pin: 25},
	}}, true))

	// Retry until the service has picked up the config.
	var r types.Reply
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rctx, rcancel := context.WithTimeout(ctx, 100*time.Millisecond)
		m, err := ui.RequestWait(rctx, ui.NewMessage(ControlTopic("led", VerbBeep), types.PulseBeep{OnMs: 20}, false))
		rcancel()
		if err == nil {
			r = m.Payload.(types.Reply)
			if r.OK {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !r.OK {
		t.Fatalf("beep never accepted: %+v", r)
	}

	led, _ := pins.Pin(25)
	deadline = time.Now().Add(2 * time.Second)
	for led.Get() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if led.Get() {
		t.Fatal("beep never ended")
	}

	cancel()
	<-done
	if _, ok := pins.Pin(25); ok {
		t.Fatal("pin not released on shutdown")
	}
}

func TestParseControl(t *testing.T) {
	name, verb, ok := parseControl(ControlTopic("buzzer", VerbBeep))
	if !ok || name != "buzzer" || verb != VerbBeep {
		t.Fatalf("parseControl = %q %q %v", name, verb, ok)
	}
	if _, _, ok := parseControl(bus.T("hal", "pulse", "buzzer", "value")); ok {
		t.Fatal("value topic parsed as control")
	}
	if _, _, ok := parseControl(bus.T("hal", "pulse", 3, "control", "beep")); ok {
		t.Fatal("int name accepted")
	}
}
