//go:build !rp2040 && !rp2350

package platform

import (
	"sync"

	"pulsedpin-go/errcode"
	"pulsedpin-go/types"
)

// HostPin is an in-memory output used by tests and the simulator.
type HostPin struct {
	mu       sync.Mutex
	n        int
	driver   string
	output   bool
	level    bool
	writes   int
	onChange func(n int, level bool)
}

func (p *HostPin) ConfigureOutput() {
	p.mu.Lock()
	p.output = true
	p.mu.Unlock()
}

func (p *HostPin) Set(level bool) { p.write(func(bool) bool { return level }) }
func (p *HostPin) Toggle()        { p.write(func(l bool) bool { return !l }) }

func (p *HostPin) write(next func(bool) bool) {
	p.mu.Lock()
	prev := p.level
	p.level = next(prev)
	p.writes++
	level, hook := p.level, p.onChange
	p.mu.Unlock()
	if hook != nil && level != prev {
		hook(p.n, level)
	}
}

func (p *HostPin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *HostPin) Number() int    { return p.n }
func (p *HostPin) Driver() string { return p.driver }

// IsOutput reports whether ConfigureOutput was called.
func (p *HostPin) IsOutput() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.output
}

// Writes counts Set and Toggle calls.
func (p *HostPin) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

// HostFactory creates HostPins in [0, MaxPin]. OnChange, if set, is called
// on every level change of any pin it created.
type HostFactory struct {
	MaxPin   int
	OnChange func(n int, level bool)

	mu     sync.Mutex
	claims claims
	pins   map[int]*HostPin
}

// DefaultPinFactory returns a host factory with 30 pins, like an RP2040.
func DefaultPinFactory() *HostFactory { return &HostFactory{MaxPin: 29} }

func (f *HostFactory) Claim(n int, driver string) (Pin, error) {
	switch driver {
	case "", types.DriverGPIO:
		driver = types.DriverGPIO
	case types.DriverBuzzer:
	default:
		return nil, errcode.UnknownDriver
	}
	if n < 0 || n > f.MaxPin {
		return nil, errcode.UnknownPin
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claims == nil {
		f.claims = make(claims)
		f.pins = make(map[int]*HostPin)
	}
	if !f.claims.take(n) {
		return nil, errcode.PinInUse
	}
	p := &HostPin{n: n, driver: driver, onChange: f.OnChange}
	f.pins[n] = p
	return p, nil
}

func (f *HostFactory) Release(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claims.drop(n)
	delete(f.pins, n)
}

// Pin returns the claimed pin n, if any.
func (f *HostFactory) Pin(n int) (*HostPin, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pins[n]
	return p, ok
}
