//go:build rp2040 || rp2350

package main

import (
	"context"
	"machine"
	"runtime"
	"time"

	"github.com/jangala-dev/tinygo-uartx/uartx"

	"pulsedpin-go/bus"
	"pulsedpin-go/services/config"
	"pulsedpin-go/services/console"
	"pulsedpin-go/services/pulser"
	"pulsedpin-go/services/pulser/platform"
	"pulsedpin-go/types"
)

// device selects the embedded board config. Override with
// -ldflags "-X main.device=pico".
var device = "pico_buzzer"

const consoleBaud = 115200

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("[main] boot, device=" + device)

	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, device)
	b := bus.NewBus(8)

	pulserConn := b.NewConnection("pulser")
	go pulser.New(pulserConn, platform.DefaultPinFactory()).Run(ctx)

	config.NewConfigService().Start(ctx, b.NewConnection("config"))

	mon := b.NewConnection("monitor").Subscribe(pulser.StateTopic)
	go func() {
		for m := range mon.Channel() {
			if st, ok := m.Payload.(types.HALState); ok {
				println("[main] pulser " + st.Level + " (" + st.Status + ")")
			}
		}
	}()

	uart := uartx.UART0
	_ = uart.Configure(uartx.UARTConfig{
		BaudRate: consoleBaud,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})
	con := console.New(b.NewConnection("console"), uart)
	go func() {
		if err := con.Run(ctx); err != nil {
			println("[console] stopped: " + err.Error())
		}
	}()

	for {
		time.Sleep(30 * time.Second)
		printMem()
	}
}

// printMem prints a compact snapshot of TinyGo runtime memory stats.
func printMem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	println(
		"[mem]",
		"alloc:", uint32(ms.Alloc),
		"heapInuse:", uint32(ms.HeapInuse),
		"mallocs:", uint32(ms.Mallocs),
		"frees:", uint32(ms.Frees),
	)
}
