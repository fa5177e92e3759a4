package alarm

import "time"

// Clock reads boot-relative monotonic time in milliseconds. Implementations
// must never observe time moving backward.
//
// The default implementation ([systemClock]) is the same monotonic source
// used to program both the in-process timer and the kernel wake alarm, so
// their expirations can be compared against an alarm's deadline without a
// unit conversion.
type Clock interface {
	NowMS() int64
}

// systemClock is the production Clock, backed by the platform's monotonic
// clock (see clock_linux.go / clock_other.go).
type systemClock struct{}

func (systemClock) NowMS() int64 {
	ns, ok := monotonicNanos()
	if !ok {
		// Degrade to 0 rather than panic on a clock read failure. The
		// dispatcher re-validates the pending list front against a
		// fresh NowMS() read before firing, so a transient 0 cannot cause
		// a not-yet-due alarm to fire.
		return 0
	}
	return ns / int64(time.Millisecond)
}

// DefaultClock is the Clock used by [New] when no [WithClock] option is
// supplied.
var DefaultClock Clock = systemClock{}

// fakeClock is a manually-advanced Clock for deterministic tests.
type fakeClock struct {
	ms int64
}

func newFakeClock(startMS int64) *fakeClock {
	return &fakeClock{ms: startMS}
}

func (c *fakeClock) NowMS() int64 {
	return c.ms
}

func (c *fakeClock) Advance(deltaMS int64) {
	c.ms += deltaMS
}

func (c *fakeClock) Set(ms int64) {
	c.ms = ms
}
