// Package console is a line-oriented command shell that turns text commands
// into pulser bus requests. It reads from any byte port: the RP2 UART on the
// device, stdin in the simulator.
package console

import (
	"context"
	"errors"
	"time"

	"github.com/google/shlex"

	"pulsedpin-go/bus"
	"pulsedpin-go/errcode"
	"pulsedpin-go/services/pulser"
	"pulsedpin-go/types"
	"pulsedpin-go/x/conv"
	"pulsedpin-go/x/strconvx"
)

const (
	maxLine        = 128
	defaultTimeout = 500 * time.Millisecond
)

// Port is the byte stream the console serves. uartx.UART satisfies it.
type Port interface {
	RecvSomeContext(ctx context.Context, buf []byte) (int, error)
	Write(p []byte) (int, error)
}

type Console struct {
	conn    *bus.Connection
	port    Port
	Timeout time.Duration

	line     []byte
	overflow bool
}

func New(conn *bus.Connection, port Port) *Console {
	return &Console{
		conn:    conn,
		port:    port,
		Timeout: defaultTimeout,
		line:    make([]byte, 0, maxLine),
	}
}

// Run reads commands until ctx is cancelled or the port fails. Lines end
// with CR or LF; empty lines are ignored. When the port fails (io.EOF
// included) a pending unterminated line is still run before the error is
// returned. A cancelled ctx is not an error.
func (c *Console) Run(ctx context.Context) error {
	buf := make([]byte, 64)
	for {
		n, err := c.port.RecvSomeContext(ctx, buf)
		for _, b := range buf[:n] {
			c.feed(ctx, b)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if !c.overflow && len(c.line) > 0 {
				c.endLine(ctx)
			}
			return err
		}
	}
}

func (c *Console) feed(ctx context.Context, b byte) {
	switch b {
	case '\r', '\n':
		c.endLine(ctx)
	default:
		if len(c.line) == maxLine {
			c.overflow = true
			return
		}
		c.line = append(c.line, b)
	}
}

func (c *Console) endLine(ctx context.Context) {
	if c.overflow {
		c.write("err " + string(errcode.InvalidParams))
	} else if r := c.Exec(ctx, string(c.line)); r != "" {
		c.write(r)
	}
	c.line = c.line[:0]
	c.overflow = false
}

func (c *Console) write(s string) {
	_, _ = c.port.Write([]byte(s + "\r\n"))
}

// Exec runs one command line and returns the reply text.
func (c *Console) Exec(ctx context.Context, line string) string {
	args, err := shlex.Split(line)
	if err != nil {
		return errReply(errcode.InvalidParams)
	}
	if len(args) == 0 {
		return ""
	}
	cmd, args := args[0], args[1:]
	if cmd == "help" {
		return usage
	}

	verb, payload, err := parseCommand(cmd, args)
	if err != nil {
		return errReply(errcode.Of(err))
	}
	r, err := c.request(ctx, args[0], verb, payload)
	if err != nil {
		return errReply(errcode.Of(err))
	}
	if !r.OK {
		return "err " + r.Error
	}
	if verb == pulser.VerbRead {
		v, _ := r.Value.(types.PulseValue)
		return formatValue(args[0], v)
	}
	return "ok"
}

func (c *Console) request(ctx context.Context, name, verb string, payload any) (types.Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	m, err := c.conn.RequestWait(ctx, c.conn.NewMessage(pulser.ControlTopic(name, verb), payload, false))
	if err != nil {
		return types.Reply{}, err
	}
	r, ok := m.Payload.(types.Reply)
	if !ok {
		return types.Reply{}, errcode.InvalidPayload
	}
	return r, nil
}

var errArgs = errors.New("bad arguments")

// arity counts the arguments of each command, output name included.
var arity = map[string]int{
	"beep": 2, "repeat": 4, "pulse": 6,
	"on": 1, "off": 1, "read": 1,
}

// parseCommand maps a command and its arguments (output name first) onto a
// pulser verb and payload.
func parseCommand(cmd string, args []string) (string, any, error) {
	n, ok := arity[cmd]
	if !ok {
		return "", nil, errcode.Unsupported
	}
	if len(args) != n {
		return "", nil, &errcode.E{C: errcode.InvalidParams, Op: cmd, Err: errArgs}
	}

	p := argParser{args: args[1:]}
	switch cmd {
	case "beep":
		v := types.PulseBeep{OnMs: p.ms()}
		return pulser.VerbBeep, v, p.err(cmd)
	case "repeat":
		v := types.PulseRepeat{OnMs: p.ms(), PauseMs: p.ms()}
		v.Count, v.Forever = p.loops()
		return pulser.VerbRepeat, v, p.err(cmd)
	case "pulse":
		v := types.PulseStart{OnMs: p.ms(), OffMs: p.ms(), Tones: p.u16(), PauseMs: p.ms()}
		v.Loops, v.Forever = p.loops()
		return pulser.VerbStart, v, p.err(cmd)
	case "on":
		return pulser.VerbSet, types.PulseSet{On: true}, nil
	case "off":
		return pulser.VerbStop, nil, nil
	default:
		return pulser.VerbRead, nil, nil
	}
}

// argParser consumes numeric arguments in order and keeps the first error.
type argParser struct {
	args []string
	bad  error
}

func (p *argParser) next(bits int) uint64 {
	if p.bad != nil || len(p.args) == 0 {
		p.bad = errArgs
		return 0
	}
	s := p.args[0]
	p.args = p.args[1:]
	v, err := strconvx.ParseUint(s, 0, bits)
	if err != nil {
		p.bad = err
	}
	return v
}

func (p *argParser) ms() uint32  { return uint32(p.next(32)) }
func (p *argParser) u16() uint16 { return uint16(p.next(16)) }

func (p *argParser) loops() (uint16, bool) {
	if p.bad == nil && len(p.args) > 0 && (p.args[0] == "forever" || p.args[0] == "inf") {
		p.args = p.args[1:]
		return 0, true
	}
	return p.u16(), false
}

func (p *argParser) err(op string) error {
	if p.bad == nil {
		return nil
	}
	return &errcode.E{C: errcode.InvalidParams, Op: op, Err: p.bad}
}

func errReply(c errcode.Code) string { return "err " + string(c) }

// formatValue renders a read reply as "led on=1 active=1 step=3/6 loops=2".
func formatValue(name string, v types.PulseValue) string {
	b := make([]byte, 0, 64)
	b = append(b, name...)
	b = append(b, " on="...)
	b = conv.AppendBool(b, v.On)
	b = append(b, " active="...)
	b = conv.AppendBool(b, v.Active)
	b = append(b, " step="...)
	b = conv.AppendU32(b, v.Step)
	b = append(b, '/')
	b = conv.AppendU32(b, v.Steps)
	b = append(b, " loops="...)
	if v.Forever {
		b = append(b, "forever"...)
	} else {
		b = conv.AppendU32(b, uint32(v.Remaining))
	}
	return string(b)
}

const usage = "beep <out> <on_ms>\r\n" +
	"repeat <out> <on_ms> <pause_ms> <count|forever>\r\n" +
	"pulse <out> <on_ms> <off_ms> <tones> <pause_ms> <loops|forever>\r\n" +
	"on <out>\r\n" +
	"off <out>\r\n" +
	"read <out>"
