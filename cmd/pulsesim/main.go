//go:build !rp2040 && !rp2350

// Command pulsesim runs the pulse service against in-memory pins and logs
// every pin edge. Commands are read from an optional script file, then from
// stdin, using the same syntax as the device console.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
