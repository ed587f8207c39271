//go:build microbit_v2

package main

import (
	"device/nrf"
	"runtime/interrupt"

	"noiser/core"
)

// nrfTimer is a TIMER peripheral in 32-bit timer mode at 1 MHz, stopping
// and clearing itself on compare 0
type nrfTimer struct {
	regs *nrf.TIMER_Type
}

func newOneshotTimer(regs *nrf.TIMER_Type) *nrfTimer {
	regs.TASKS_STOP.Set(1)
	regs.MODE.Set(nrf.TIMER_MODE_MODE_Timer)
	regs.BITMODE.Set(nrf.TIMER_BITMODE_BITMODE_32Bit)
	regs.PRESCALER.Set(4) // 16 MHz / 2^4
	regs.SHORTS.Set(nrf.TIMER_SHORTS_COMPARE0_CLEAR_Msk | nrf.TIMER_SHORTS_COMPARE0_STOP_Msk)
	regs.TASKS_CLEAR.Set(1)
	return &nrfTimer{regs: regs}
}

func (t *nrfTimer) Start(cycles uint32) {
	t.regs.TASKS_STOP.Set(1)
	t.regs.TASKS_CLEAR.Set(1)
	t.regs.CC[0].Set(cycles)
	t.regs.TASKS_START.Set(1)
}

func (t *nrfTimer) ResetEvent() {
	t.regs.EVENTS_COMPARE[0].Set(0)
}

func (t *nrfTimer) EnableInterrupt() {
	t.regs.INTENSET.Set(nrf.TIMER_INTENSET_COMPARE0_Msk)
}

func (t *nrfTimer) DisableInterrupt() {
	t.regs.INTENCLR.Set(nrf.TIMER_INTENCLR_COMPARE0_Msk)
}

// periodic reconfigures the timer to clear but keep running on compare 0
func (t *nrfTimer) periodic(cycles uint32) {
	t.regs.SHORTS.Set(nrf.TIMER_SHORTS_COMPARE0_CLEAR_Msk)
	t.EnableInterrupt()
	t.Start(cycles)
}

// clock is a free running TIMER used for the protocol timestamps
type clock struct {
	regs *nrf.TIMER_Type
}

func newClock(regs *nrf.TIMER_Type) *clock {
	regs.MODE.Set(nrf.TIMER_MODE_MODE_Timer)
	regs.BITMODE.Set(nrf.TIMER_BITMODE_BITMODE_32Bit)
	regs.PRESCALER.Set(4)
	regs.TASKS_CLEAR.Set(1)
	regs.TASKS_START.Set(1)
	return &clock{regs: regs}
}

func (c *clock) now() uint32 {
	c.regs.TASKS_CAPTURE[1].Set(1)
	return c.regs.CC[1].Get()
}

// rtcTicker is RTC0 with the TICK event enabled
type rtcTicker struct {
	regs *nrf.RTC_Type
}

func newTicker(regs *nrf.RTC_Type, prescaler uint32) *rtcTicker {
	regs.TASKS_STOP.Set(1)
	regs.PRESCALER.Set(prescaler)
	return &rtcTicker{regs: regs}
}

func (r *rtcTicker) EnableCounter() {
	r.regs.TASKS_START.Set(1)
}

func (r *rtcTicker) EnableTickInterrupt() {
	r.regs.INTENSET.Set(nrf.RTC_INTENSET_TICK_Msk)
}

func (r *rtcTicker) ResetTickEvent() {
	r.regs.EVENTS_TICK.Set(0)
}

// nvic maps core interrupt lines to the peripheral interrupts
type nvic struct {
	lines map[core.IRQ]interrupt.Interrupt
}

func (n *nvic) Unmask(irq core.IRQ) {
	if intr, ok := n.lines[irq]; ok {
		intr.Enable()
	}
}

// newNVIC registers the handlers. Lines stay masked until the core unmasks
// them.
func newNVIC() *nvic {
	lines := map[core.IRQ]interrupt.Interrupt{
		core.IRQFrequency: interrupt.New(nrf.IRQ_TIMER1, func(interrupt.Interrupt) {
			core.HandleFrequencyTimer()
		}),
		core.IRQFrameAdvance: interrupt.New(nrf.IRQ_TIMER2, func(interrupt.Interrupt) {
			core.HandleFrameAdvance()
		}),
		core.IRQMatrixRefresh: interrupt.New(nrf.IRQ_TIMER3, func(interrupt.Interrupt) {
			core.HandleMatrixRefresh()
		}),
		core.IRQToneTick: interrupt.New(nrf.IRQ_RTC0, func(interrupt.Interrupt) {
			core.HandleToneTick()
		}),
	}
	// the row scan outranks everything so the matrix does not flicker
	lines[core.IRQMatrixRefresh].SetPriority(0x40)
	lines[core.IRQFrequency].SetPriority(0x80)
	lines[core.IRQFrameAdvance].SetPriority(0x80)
	lines[core.IRQToneTick].SetPriority(0xC0)
	return &nvic{lines: lines}
}
