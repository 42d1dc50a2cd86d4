package services

import "time"

// Clock abstracts wall-clock time so timer-driven logic stays deterministic
// under test.
type Clock interface {
	Now() time.Time
}

// TimerHandle is a cancellable pending timer.
type TimerHandle interface {
	// Stop cancels the timer. It reports whether the timer was still
	// pending; a false return means the callback already fired or was
	// stopped before.
	Stop() bool
}

// Scheduler schedules one-shot callbacks.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) TimerHandle
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }

type systemTimer struct {
	timer *time.Timer
}

func (t systemTimer) Stop() bool { return t.timer.Stop() }

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) TimerHandle {
	return systemTimer{timer: time.AfterFunc(d, f)}
}

// SystemScheduler returns a scheduler backed by time.AfterFunc.
func SystemScheduler() Scheduler { return systemScheduler{} }
