package errcode

import "errors"

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }
func (c Code) Code() Code    { return c }

const (
	OK             Code = "ok"
	Unsupported    Code = "unsupported"
	InvalidParams  Code = "invalid_params"
	InvalidPayload Code = "invalid_payload"
	InvalidTopic   Code = "invalid_topic"
	UnknownOutput  Code = "unknown_output"
	UnknownPin     Code = "unknown_pin"
	UnknownDriver  Code = "unknown_driver"
	PinInUse       Code = "pin_in_use"
	NotReady       Code = "not_ready"
	Timeout        Code = "timeout"

	Error Code = "error" // generic fallback
)

// E carries a Code together with the failing operation and an optional cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Wrap returns an *E for op, or nil if err is nil. The code is taken from
// err when it carries one.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &E{C: Of(err), Op: op, Err: err}
}

// Of extracts a Code from an error, defaulting to Error. The outermost
// coded error in the chain wins, so an *E keeps its own code even when its
// cause is another Code.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var c interface{ Code() Code }
	if errors.As(err, &c) {
		return c.Code()
	}
	return Error
}
