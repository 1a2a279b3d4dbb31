//go:build rp2040 || rp2350

package platform

import (
	"machine"

	"tinygo.org/x/drivers/buzzer"

	"pulsedpin-go/errcode"
	"pulsedpin-go/types"
)

// GP0..GP28 as broken out on Pico and Pico 2.
const maxGPIO = 28

// DefaultPinFactory maps logical numbers directly to machine.Pin(n).
func DefaultPinFactory() PinFactory { return &rp2Factory{claims: make(claims)} }

type rp2Factory struct {
	claims claims
}

func (f *rp2Factory) Claim(n int, driver string) (Pin, error) {
	if n < 0 || n > maxGPIO {
		return nil, errcode.UnknownPin
	}
	var p Pin
	switch driver {
	case "", types.DriverGPIO:
		p = &rp2Pin{p: machine.Pin(n), n: n}
	case types.DriverBuzzer:
		mp := machine.Pin(n)
		p = &buzzerPin{p: mp, d: buzzer.New(mp), n: n}
	default:
		return nil, errcode.UnknownDriver
	}
	if !f.claims.take(n) {
		return nil, errcode.PinInUse
	}
	return p, nil
}

func (f *rp2Factory) Release(n int) { f.claims.drop(n) }

// ---- plain GPIO ----

type rp2Pin struct {
	p machine.Pin
	n int
}

func (r *rp2Pin) ConfigureOutput() { r.p.Configure(machine.PinConfig{Mode: machine.PinOutput}) }
func (r *rp2Pin) Set(level bool)   { r.p.Set(level) }
func (r *rp2Pin) Get() bool        { return r.p.Get() }
func (r *rp2Pin) Number() int      { return r.n }

func (r *rp2Pin) Toggle() {
	if r.p.Get() {
		r.p.Low()
	} else {
		r.p.High()
	}
}

// ---- buzzer ----

// buzzerPin drives a self-oscillating buzzer through the TinyGo driver, which
// tracks the level itself.
type buzzerPin struct {
	p machine.Pin
	d buzzer.Device
	n int
}

func (b *buzzerPin) ConfigureOutput() { b.p.Configure(machine.PinConfig{Mode: machine.PinOutput}) }

func (b *buzzerPin) Set(level bool) {
	if level {
		_ = b.d.On()
	} else {
		_ = b.d.Off()
	}
}

func (b *buzzerPin) Toggle()     { _ = b.d.Toggle() }
func (b *buzzerPin) Get() bool   { return b.d.High }
func (b *buzzerPin) Number() int { return b.n }
