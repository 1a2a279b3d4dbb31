package pulse

import (
	"pulsedpin-go/x/conv"
	"pulsedpin-go/x/mathx"
)

// Timing holds the three phase lengths of a pattern, in milliseconds.
type Timing struct {
	OnMs    uint32
	OffMs   uint32
	PauseMs uint32
}

func (t Timing) bounded() Timing {
	return Timing{
		OnMs:    mathx.Min(t.OnMs, MaxDurationMs),
		OffMs:   mathx.Min(t.OffMs, MaxDurationMs),
		PauseMs: mathx.Min(t.PauseMs, MaxDurationMs),
	}
}

// Loops counts the pulse-groups left to play. The zero value means idle.
type Loops struct {
	n       uint16
	forever bool
}

// Forever repeats the pulse-group until the sequencer is reconfigured.
var Forever = Loops{forever: true}

// Times returns a finite repeat count.
func Times(n uint16) Loops { return Loops{n: n} }

func (l Loops) Infinite() bool { return l.forever }

// Count is the number of groups left; it is 0 for Forever.
func (l Loops) Count() uint16 { return l.n }

// Done reports whether no group is left to play.
func (l Loops) Done() bool { return !l.forever && l.n == 0 }

func (l Loops) last() bool { return !l.forever && l.n == 1 }

func (l Loops) next() Loops {
	if l.forever || l.n == 0 {
		return l
	}
	return Loops{n: l.n - 1}
}

func (l Loops) String() string {
	if l.forever {
		return "forever"
	}
	return conv.U32(uint32(l.n))
}

// Pattern is a full sequencer program: Tones on/off pairs per group, a pause
// between groups, Loops groups.
type Pattern struct {
	Timing Timing
	Tones  uint16
	Loops  Loops
}

// Single is one tone of onMs.
func Single(onMs uint32) Pattern {
	return Pattern{Timing: Timing{OnMs: onMs}, Tones: 1, Loops: Times(1)}
}

// Repeated is n equal tones separated by pauseMs. With one tone per group the
// off phase is folded into the pause.
func Repeated(onMs, pauseMs uint32, n Loops) Pattern {
	return Pattern{Timing: Timing{OnMs: onMs, PauseMs: pauseMs}, Tones: 1, Loops: n}
}

// Grouped is the general form.
func Grouped(onMs, offMs uint32, tones uint16, pauseMs uint32, loops Loops) Pattern {
	return Pattern{
		Timing: Timing{OnMs: onMs, OffMs: offMs, PauseMs: pauseMs},
		Tones:  tones,
		Loops:  loops,
	}
}
