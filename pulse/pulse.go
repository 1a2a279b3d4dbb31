// Package pulse drives a single digital output through timed on/off patterns
// without blocking. The caller owns the loop: it calls Poll with the current
// millisecond clock as often as the shortest configured phase.
//
// A pattern is a pulse-group of Tones on/off pairs followed by a pause,
// repeated Loops times (or forever). On the last repetition the trailing
// pause is skipped and the sequencer goes idle as soon as the final OFF
// edge has been written.
//
// A Sequencer is not safe for concurrent use.
package pulse

import "pulsedpin-go/x/timex"

// Line is the output a Sequencer drives.
type Line interface {
	ConfigureOutput()
	Set(level bool)
	Toggle()
}

// MaxDurationMs is the longest phase the wrap-safe elapsed comparison can
// represent.
const MaxDurationMs = timex.HalfRange - 1

// Sequencer is the pulse state machine bound to one Line. The zero value is
// inert and must be bound with Begin before any other call; New does both.
type Sequencer struct {
	line     Line
	timing   Timing
	step     uint32
	steps    uint32
	loops    Loops
	lastTick uint32
}

// New returns a Sequencer bound to line, with the line configured as an
// output and driven low.
func New(line Line) *Sequencer {
	s := &Sequencer{}
	s.Begin(line)
	return s
}

// Begin binds the line, configures it as an output, drives it low and
// clears all pattern state.
func (s *Sequencer) Begin(line Line) {
	*s = Sequencer{line: line}
	line.ConfigureOutput()
	line.Set(false)
}

// SetStatic cancels any running pattern and writes level immediately.
func (s *Sequencer) SetStatic(level bool) {
	s.steps = 0
	s.step = 0
	s.loops = Loops{}
	s.line.Set(level)
}

// Configure starts p at now, replacing any pattern in flight. The line goes
// high immediately.
//
// A pattern with zero loops leaves the line high and the sequencer idle.
func (s *Sequencer) Configure(now uint32, p Pattern) {
	s.timing = p.Timing.bounded()
	if p.Tones != 0 {
		s.steps = uint32(p.Tones) * 2
	} else {
		s.steps = 1
	}
	s.loops = p.Loops
	s.step = 0
	s.line.Set(true)
	s.lastTick = now
}

// Beep plays one tone of onMs.
func (s *Sequencer) Beep(now, onMs uint32) { s.Configure(now, Single(onMs)) }

// Repeat plays n tones of onMs separated by pauseMs.
func (s *Sequencer) Repeat(now, onMs, pauseMs uint32, n Loops) {
	s.Configure(now, Repeated(onMs, pauseMs, n))
}

// Poll advances the pattern by at most one phase. Phases that elapsed
// while Poll was not called are not caught up; the next phase is timed from
// this call. It reports whether a transition happened.
func (s *Sequencer) Poll(now uint32) bool {
	if s.loops.Done() {
		return false
	}
	if timex.Elapsed(now, s.lastTick) < s.delay() {
		return false
	}

	s.step++
	if s.step == s.steps {
		s.loops = s.loops.next()
		s.step = 0
	}

	if !s.loops.Done() {
		s.line.Toggle()
	}

	// Last group: stop on its final OFF edge instead of sitting out the pause.
	if s.loops.last() && s.step == s.steps-1 {
		s.loops = Loops{}
		s.step = 0
	}

	s.lastTick = now
	return true
}

// delay is the length of the current phase.
func (s *Sequencer) delay() uint32 {
	switch {
	case s.step == 0:
		return s.timing.OnMs
	case s.step < s.steps-1:
		if s.step%2 == 0 {
			return s.timing.OnMs
		}
		return s.timing.OffMs
	default:
		return s.timing.PauseMs
	}
}

// Active reports whether a pattern is running.
func (s *Sequencer) Active() bool { return !s.loops.Done() }

// State is a snapshot of the sequencer counters.
type State struct {
	Timing    Timing
	Step      uint32
	Steps     uint32
	Remaining Loops
	LastTick  uint32
}

func (s *Sequencer) State() State {
	return State{
		Timing:    s.timing,
		Step:      s.step,
		Steps:     s.steps,
		Remaining: s.loops,
		LastTick:  s.lastTick,
	}
}
