package sim

import "noiser/core"

// Result of a timer callback
const (
	TimerDone       = 0
	TimerReschedule = 1
)

// Timer is one entry of the machine's sorted software timer list. It serves
// both as a oneshot compare channel (core.OneshotTimer) and as the periodic
// source behind the RTC and the matrix row scan.
type Timer struct {
	m    *Machine
	irq  core.IRQ
	wake uint64
	next *Timer

	// fire runs with the machine lock held
	fire func(*Timer) uint8

	queued     bool
	event      bool
	intEnabled bool
}

// insertTimer links t in wake order; equal wake times keep insertion order.
// Caller holds m.mu.
func (m *Machine) insertTimer(t *Timer) {
	t.queued = true
	if m.timers == nil || t.wake < m.timers.wake {
		t.next = m.timers
		m.timers = t
		return
	}
	cur := m.timers
	for cur.next != nil && cur.next.wake <= t.wake {
		cur = cur.next
	}
	t.next = cur.next
	cur.next = t
}

// removeTimer unlinks t if queued. Caller holds m.mu.
func (m *Machine) removeTimer(t *Timer) {
	if !t.queued {
		return
	}
	t.queued = false
	if m.timers == t {
		m.timers = t.next
		t.next = nil
		return
	}
	for cur := m.timers; cur != nil; cur = cur.next {
		if cur.next == t {
			cur.next = t.next
			break
		}
	}
	t.next = nil
}

// NewTimer returns an idle oneshot compare channel raising irq
func (m *Machine) NewTimer(irq core.IRQ) *Timer {
	return &Timer{m: m, irq: irq, fire: fireOneshot}
}

// fireOneshot latches the compare event and requests the interrupt
func fireOneshot(t *Timer) uint8 {
	t.event = true
	if t.intEnabled {
		t.m.nvic.Raise(t.irq)
	}
	return TimerDone
}

// Start clears the counter and compares at cycles ticks from now
func (t *Timer) Start(cycles uint32) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.m.removeTimer(t)
	t.wake = t.m.now + uint64(cycles)
	t.m.insertTimer(t)
}

func (t *Timer) ResetEvent() {
	t.m.mu.Lock()
	t.event = false
	t.m.mu.Unlock()
}

// EnableInterrupt raises at once if an event is already latched, as the
// hardware does
func (t *Timer) EnableInterrupt() {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.intEnabled = true
	if t.event {
		t.m.nvic.Raise(t.irq)
	}
}

func (t *Timer) DisableInterrupt() {
	t.m.mu.Lock()
	t.intEnabled = false
	t.m.mu.Unlock()
}

// Armed reports whether a compare is pending
func (t *Timer) Armed() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	return t.queued
}
