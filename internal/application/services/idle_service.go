package services

import (
	"sync"
	"time"

	"github.com/Livingbruce/nextstep-mentorship-sub001/pkg/logger"
)

// IdlePhase is the inactivity state of the monitor.
type IdlePhase string

const (
	// PhaseActive means recent activity was observed.
	PhaseActive IdlePhase = "active"
	// PhaseWarning means the warning countdown is running.
	PhaseWarning IdlePhase = "warning"
	// PhaseExpired means the countdown ran out and the session was ended.
	PhaseExpired IdlePhase = "expired"
)

// PhaseChange is delivered to the phase callback on every transition and
// on every countdown tick.
type PhaseChange struct {
	Phase            IdlePhase
	RemainingSeconds int
}

// SessionEnder is the only session capability the monitor holds: it may
// end the session, never read or mutate it.
type SessionEnder interface {
	Logout(reason LogoutReason)
}

// IdleMonitor watches for user inactivity while a session is active and
// forces a logout after the configured timeout, surfacing an interruptible
// warning first.
//
// The monitor never mutates session state directly; its only effect on the
// session is the single Logout(ReasonIdle) call when the countdown expires.
// All platform input adapters fan into NotifyActivity, which keeps the
// monitor free of any UI or event-system dependency.
type IdleMonitor struct {
	sessions SessionEnder
	total    time.Duration
	lead     time.Duration
	clock    Clock
	sched    Scheduler
	log      logger.Logger

	mu        sync.Mutex
	running   bool
	gen       uint64
	phase     IdlePhase
	deadline  time.Time
	remaining int
	warnTimer TimerHandle
	tickTimer TimerHandle
	onChange  func(PhaseChange)
}

// NewIdleMonitor creates a monitor bound to the session service.
// total is the full inactivity timeout; lead is how long before the forced
// logout the warning fires.
func NewIdleMonitor(
	sessions SessionEnder,
	total time.Duration,
	lead time.Duration,
	clock Clock,
	sched Scheduler,
	log logger.Logger,
) *IdleMonitor {
	return &IdleMonitor{
		sessions: sessions,
		total:    total,
		lead:     lead,
		clock:    clock,
		sched:    sched,
		log:      log,
		phase:    PhaseActive,
	}
}

// SetPhaseCallback installs the callback for phase transitions and
// countdown ticks. Invoked outside the monitor lock.
func (m *IdleMonitor) SetPhaseCallback(fn func(PhaseChange)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// Start begins watching. Called when a session becomes active. Starting an
// already running monitor resets it, so a new login always gets a full
// inactivity budget.
func (m *IdleMonitor) Start() {
	m.mu.Lock()
	m.running = true
	change := m.resetLocked()
	m.mu.Unlock()

	m.emit(change)
}

// Stop cancels all pending timers and detaches the monitor. Called on
// logout and on teardown. No transition fires after Stop returns until
// Start is called again.
func (m *IdleMonitor) Stop() {
	m.mu.Lock()
	m.running = false
	m.gen++
	m.cancelTimersLocked()
	m.phase = PhaseActive
	m.remaining = 0
	m.mu.Unlock()
}

// NotifyActivity records a user activity signal. Any signal fully restarts
// the inactivity cycle, including during the warning countdown. Safe to
// call at any event frequency; resets are idempotent.
func (m *IdleMonitor) NotifyActivity() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	change := m.resetLocked()
	m.mu.Unlock()

	m.emit(change)
}

// ExtendSession is the explicit "stay logged in" action from the warning
// dialog. It behaves exactly like an activity signal.
func (m *IdleMonitor) ExtendSession() {
	m.NotifyActivity()
}

// Phase returns the current phase.
func (m *IdleMonitor) Phase() IdlePhase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// RemainingSeconds returns the countdown value, meaningful only in the
// warning phase.
func (m *IdleMonitor) RemainingSeconds() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remaining
}

// resetLocked cancels pending timers and restarts the full inactivity
// timer. The generation counter invalidates any callback already in
// flight, so a stale timer can never act after a reset.
func (m *IdleMonitor) resetLocked() *PhaseChange {
	m.gen++
	gen := m.gen
	m.cancelTimersLocked()

	wasWarning := m.phase != PhaseActive
	m.phase = PhaseActive
	m.remaining = 0
	m.deadline = time.Time{}

	m.warnTimer = m.sched.AfterFunc(m.total-m.lead, func() { m.onWarn(gen) })

	if wasWarning {
		return &PhaseChange{Phase: PhaseActive}
	}
	return nil
}

func (m *IdleMonitor) cancelTimersLocked() {
	if m.warnTimer != nil {
		m.warnTimer.Stop()
		m.warnTimer = nil
	}
	if m.tickTimer != nil {
		m.tickTimer.Stop()
		m.tickTimer = nil
	}
}

// onWarn fires when the inactivity period reaches total-lead.
func (m *IdleMonitor) onWarn(gen uint64) {
	m.mu.Lock()
	if !m.running || gen != m.gen {
		m.mu.Unlock()
		return
	}

	m.phase = PhaseWarning
	m.deadline = m.clock.Now().Add(m.lead)
	m.remaining = secondsUntil(m.deadline, m.clock.Now())
	m.tickTimer = m.sched.AfterFunc(time.Second, func() { m.onTick(gen) })
	change := PhaseChange{Phase: PhaseWarning, RemainingSeconds: m.remaining}
	m.mu.Unlock()

	m.log.Info("idle warning started",
		logger.Component("idle"),
		logger.Int("remaining_seconds", change.RemainingSeconds),
	)
	m.emit(&change)
}

// onTick recomputes the countdown against the wall clock. Deadlines are
// absolute, so a suspended and resumed process gets no extra grace time.
func (m *IdleMonitor) onTick(gen uint64) {
	m.mu.Lock()
	if !m.running || gen != m.gen || m.phase != PhaseWarning {
		m.mu.Unlock()
		return
	}

	m.remaining = secondsUntil(m.deadline, m.clock.Now())

	if m.remaining <= 0 {
		// Terminal: invalidate the generation so late ticks are inert,
		// then end the session outside the lock.
		m.remaining = 0
		m.phase = PhaseExpired
		m.running = false
		m.gen++
		m.cancelTimersLocked()
		m.mu.Unlock()

		m.log.Info("idle timeout reached, ending session", logger.Component("idle"))
		m.emit(&PhaseChange{Phase: PhaseExpired})
		m.sessions.Logout(ReasonIdle)
		return
	}

	m.tickTimer = m.sched.AfterFunc(time.Second, func() { m.onTick(gen) })
	change := PhaseChange{Phase: PhaseWarning, RemainingSeconds: m.remaining}
	m.mu.Unlock()

	m.emit(&change)
}

func (m *IdleMonitor) emit(change *PhaseChange) {
	if change == nil {
		return
	}

	m.mu.Lock()
	fn := m.onChange
	m.mu.Unlock()

	if fn != nil {
		fn(*change)
	}
}

// secondsUntil rounds up to whole seconds, clamped at zero.
func secondsUntil(deadline, now time.Time) int {
	left := deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}
