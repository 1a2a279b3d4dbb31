package timex

import "time"

var boot = time.Now()

// NowMs returns milliseconds since process start as a free-running 32-bit
// counter. It wraps after ~49.7 days; use Elapsed to compare stamps.
func NowMs() uint32 { return uint32(time.Since(boot).Milliseconds()) }

// Elapsed returns now-since using modular arithmetic, so a single wrap of
// the counter between the two stamps still yields the true delta as long as
// it is below HalfRange.
func Elapsed(now, since uint32) uint32 { return now - since }

// HalfRange is the largest delta Elapsed can report unambiguously.
const HalfRange uint32 = 1 << 31

// Ms converts a millisecond count to a time.Duration.
func Ms(ms uint32) time.Duration { return time.Duration(ms) * time.Millisecond }
