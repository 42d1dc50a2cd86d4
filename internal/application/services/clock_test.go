package services

import (
	"sort"
	"sync"
	"time"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.now) {
		c.now = t
	}
}

// fakeTimer is a pending callback in the fake scheduler.
type fakeTimer struct {
	deadline time.Time
	f        func()
	stopped  bool
	fired    bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fakeScheduler collects timers and fires them under test control.
// Not goroutine safe beyond what the monitor's own locking provides; the
// tests drive it from a single goroutine.
type fakeScheduler struct {
	clock  *fakeClock
	mu     sync.Mutex
	timers []*fakeTimer
}

func newFakeScheduler(clock *fakeClock) *fakeScheduler {
	return &fakeScheduler{clock: clock}
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) TimerHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{deadline: s.clock.Now().Add(d), f: f}
	s.timers = append(s.timers, t)
	return t
}

// nextDue returns the earliest live timer with deadline <= limit.
func (s *fakeScheduler) nextDue(limit time.Time) *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []*fakeTimer
	for _, t := range s.timers {
		if !t.stopped && !t.fired && !t.deadline.After(limit) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool { return due[i].deadline.Before(due[j].deadline) })
	return due[0]
}

// advance moves the clock forward, firing due timers in deadline order.
// Callbacks run with the clock set to their own deadline, mirroring how a
// live process experiences timer delivery.
func (s *fakeScheduler) advance(d time.Duration) {
	target := s.clock.Now().Add(d)
	for {
		t := s.nextDue(target)
		if t == nil {
			break
		}
		s.clock.set(t.deadline)
		t.fired = true
		t.f()
	}
	s.clock.set(target)
}

// suspend jumps the clock forward without delivering timers, then fires
// whatever became due all at once. Models a laptop lid close / tab freeze.
func (s *fakeScheduler) suspend(d time.Duration) {
	s.clock.set(s.clock.Now().Add(d))
	for {
		t := s.nextDue(s.clock.Now())
		if t == nil {
			break
		}
		t.fired = true
		t.f()
	}
}
