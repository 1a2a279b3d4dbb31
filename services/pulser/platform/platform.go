// Package platform supplies the output pins the pulse service drives. The
// host build provides recording fake pins; RP2 builds map pin numbers to
// machine.Pin, optionally through the TinyGo buzzer driver.
package platform

import "pulsedpin-go/pulse"

// Pin is an output line that can also report its level.
type Pin interface {
	pulse.Line
	Get() bool
	Number() int
}

// PinFactory hands out pins by number. A pin stays claimed until released.
type PinFactory interface {
	Claim(n int, driver string) (Pin, error)
	Release(n int)
}

// Invert wraps p so that logical high drives the physical line low.
func Invert(p Pin) Pin { return inverted{p} }

type inverted struct{ Pin }

func (i inverted) Set(level bool) { i.Pin.Set(!level) }
func (i inverted) Get() bool      { return !i.Pin.Get() }

// claims tracks pin ownership for the factories.
type claims map[int]struct{}

func (c claims) take(n int) bool {
	if _, ok := c[n]; ok {
		return false
	}
	c[n] = struct{}{}
	return true
}

func (c claims) drop(n int) { delete(c, n) }
