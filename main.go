package main

import (
	"time"

	"pulsedpin-go/pulse"
	"pulsedpin-go/services/pulser/platform"
	"pulsedpin-go/types"
	"pulsedpin-go/x/timex"
)

// ledPin is the on-board LED of a Pico.
const ledPin = 25

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("boot")

	pin, err := platform.DefaultPinFactory().Claim(ledPin, types.DriverGPIO)
	if err != nil {
		println("[heartbeat] led: " + err.Error())
		return
	}
	seq := pulse.New(pin)
	seq.Repeat(timex.NowMs(), 50, 950, pulse.Forever)

	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()

	beats := 0
	for range tick.C {
		now := timex.NowMs()
		if seq.Poll(now) && pin.Get() {
			beats++
			if beats%10 == 0 {
				println("[heartbeat] beats:", beats)
			}
		}
	}
}
