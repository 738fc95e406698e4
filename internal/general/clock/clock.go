// Package clock abstracts timers so the motion engine can run against a
// deterministic fake in tests.
package clock

import "time"

// Clock is the subset of the time package the rider needs.
type Clock interface {
	Now() time.Time

	// NewTicker panics if d <= 0, like time.NewTicker.
	NewTicker(d time.Duration) *Ticker

	// NewTimer fires once on C after d.
	NewTimer(d time.Duration) *Timer
}

// Ticker delivers ticks on C. Ticks are dropped when the reader falls behind.
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop turns the ticker off. C is not closed.
func (t *Ticker) Stop() { t.stopFunc() }

// Timer is a one-shot cancellable timer.
type Timer struct {
	C <-chan time.Time

	stopFunc func() bool
}

// Stop prevents the timer from firing. It reports whether the call stopped
// a pending timer. Safe to call on a nil Timer.
func (t *Timer) Stop() bool {
	if t == nil {
		return false
	}
	return t.stopFunc()
}
