// Package sim runs the noise toy core on the host. Software peripherals sit
// on a virtual 1 MHz clock and their interrupts are delivered from a pump
// loop instead of hardware.
package sim

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"noiser/core"
)

// Machine is a simulated board
type Machine struct {
	mu     sync.Mutex // guards the timer list, timer state and now
	now    uint64
	timers *Timer

	nvic *NVIC

	FreqTimer  *Timer
	FrameTimer *Timer
	Wave       *Waveform
	Ticker     *Ticker
	Matrix     *Matrix

	buttons atomic.Uint32 // bit 0 A, bit 1 B
	poller  core.Buttons

	log *slog.Logger
}

// New builds a machine for the given timing. Call Boot before running it.
func New(timing core.Timing, log *slog.Logger) *Machine {
	if log == nil {
		log = slog.Default()
	}
	m := &Machine{nvic: newNVIC(), log: log}
	m.FreqTimer = m.NewTimer(core.IRQFrequency)
	m.FrameTimer = m.NewTimer(core.IRQFrameAdvance)
	m.Wave = &Waveform{}
	m.Ticker = newTicker(m, timing.TickPrescaler)
	m.Matrix = newMatrix(m)
	return m
}

// NVIC returns the interrupt controller
func (m *Machine) NVIC() *NVIC { return m.nvic }

// Boot brings the core up the way the board does: entropy, display,
// frequency scheduler, then the tone driver, left stopped. A zero seed
// reads the seed from hw.
func (m *Machine) Boot(seed uint64, hw io.Reader) {
	m.nvic.Bind(core.IRQMatrixRefresh, core.HandleMatrixRefresh)
	m.nvic.Bind(core.IRQFrameAdvance, core.HandleFrameAdvance)
	m.nvic.Bind(core.IRQFrequency, core.HandleFrequencyTimer)
	m.nvic.Bind(core.IRQToneTick, core.HandleToneTick)

	if seed != 0 {
		core.InitEntropySource(rand.NewPCG(seed, seed))
	} else {
		core.InitEntropy(hw)
	}
	core.InitDisplay(m.Matrix, m.FrameTimer, m.nvic)
	core.InitFrequencyScheduler(m.FreqTimer, m.nvic)
	core.InitTone(m.Wave, m.Ticker, m.nvic)
	core.ToneStop()

	m.Matrix.start()
	m.log.Debug("booted", "seed", seed, "tick_period", m.Ticker.Period())
}

// Now returns the simulated time in timer ticks
func (m *Machine) Now() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by ticks, firing timers in order and
// servicing the interrupts each one raises before the next fires
func (m *Machine) Advance(ticks uint32) {
	target := m.Now() + uint64(ticks)
	for {
		m.mu.Lock()
		t := m.timers
		if t == nil || t.wake > target {
			m.now = target
			m.mu.Unlock()
			break
		}
		m.timers = t.next
		t.next = nil
		t.queued = false
		m.now = t.wake
		if t.fire(t) == TimerReschedule {
			m.insertTimer(t)
		}
		now := m.now
		m.mu.Unlock()

		core.SetTime(uint32(now))
		m.nvic.dispatch()
	}
	core.SetTime(uint32(target))
	m.nvic.dispatch()
}

// SetButtons sets the held state of buttons A and B
func (m *Machine) SetButtons(a, b bool) {
	var v uint32
	if a {
		v |= 1
	}
	if b {
		v |= 2
	}
	m.buttons.Store(v)
}

// PollButtons runs one foreground iteration of the button loop
func (m *Machine) PollButtons() {
	v := m.buttons.Load()
	m.poller.Poll(v&1 != 0, v&2 != 0)
}

// Run pumps the machine in steps until ctx is done. With speed > 0 each
// step is paced to step/speed of wall time.
func (m *Machine) Run(ctx context.Context, step uint32, speed float64) error {
	var pace <-chan time.Time
	if speed > 0 {
		wall := time.Duration(float64(core.TimerToUS(step)) * float64(time.Microsecond) / speed)
		ticker := time.NewTicker(max(wall, time.Microsecond))
		defer ticker.Stop()
		pace = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		m.PollButtons()
		m.Advance(step)

		if pace != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-pace:
			}
		}
	}
}
