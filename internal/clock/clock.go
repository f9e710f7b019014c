// Package clock abstracts the time source and delayed callbacks so the
// countdown can run against the system clock or a manually advanced one.
package clock

import "time"

// Clock provides the current time and one-shot delayed callbacks.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f after d has elapsed. The returned Timer cancels it.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc callback.
type Timer interface {
	// Stop prevents the callback from running. It reports false if the
	// callback already ran or was stopped before.
	Stop() bool
}

type realClock struct{}

// Real returns a Clock backed by package time.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Func adapts a bare now function, the kind a caller supplies to pin a
// time zone or a fixed epoch, into a Clock. Delayed callbacks use package
// time.
type Func func() time.Time

func (f Func) Now() time.Time {
	return f()
}

func (f Func) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
