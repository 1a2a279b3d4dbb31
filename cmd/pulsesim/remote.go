//go:build !rp2040 && !rp2350

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.bug.st/serial"
)

const remoteReadTimeout = 100 * time.Millisecond

// newRemoteCmd drives a device running the pico-pulse firmware over its
// console UART instead of simulating pins.
func newRemoteCmd() *cobra.Command {
	var (
		portName string
		baud     int
		list     bool
	)
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Send console commands to a device over a serial port",
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				ports, err := serial.GetPortsList()
				if err != nil {
					return fmt.Errorf("list ports: %w", err)
				}
				for _, p := range ports {
					fmt.Fprintln(cmd.OutOrStdout(), p)
				}
				return nil
			}
			if portName == "" {
				return errors.New("--port is required")
			}
			port, err := serial.Open(portName, &serial.Mode{BaudRate: baud})
			if err != nil {
				return fmt.Errorf("open %s: %w", portName, err)
			}
			defer port.Close()
			if err := port.SetReadTimeout(remoteReadTimeout); err != nil {
				return fmt.Errorf("set read timeout: %w", err)
			}
			return forward(cmd.Context(), port, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVarP(&portName, "port", "p", "", "serial port of the device (e.g. /dev/ttyACM0)")
	f.IntVarP(&baud, "baud", "b", 115200, "console baud rate")
	f.BoolVarP(&list, "list", "l", false, "list serial ports and exit")
	return cmd
}

// forward sends each input line to dev terminated by CRLF and copies
// everything dev returns to out. Reads from dev must time out so the copy
// loop can observe ctx; a zero-length read counts as a timeout.
func forward(ctx context.Context, dev io.ReadWriter, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	copyDone := make(chan error, 1)
	go func() {
		buf := make([]byte, 256)
		for ctx.Err() == nil {
			n, err := dev.Read(buf)
			if n > 0 {
				if _, werr := out.Write(buf[:n]); werr != nil {
					copyDone <- werr
					return
				}
			}
			if err != nil && !errors.Is(err, io.EOF) {
				copyDone <- err
				return
			}
		}
		copyDone <- nil
	}()

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if _, err := dev.Write([]byte(sc.Text() + "\r\n")); err != nil {
			return fmt.Errorf("write: %w", err)
		}
		select {
		case err := <-copyDone:
			return err
		default:
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}

	// Leave time for the last reply.
	select {
	case <-time.After(2 * remoteReadTimeout):
	case <-ctx.Done():
	case err := <-copyDone:
		return err
	}
	cancel()
	return <-copyDone
}
