package core

// TickSource is the auxiliary real-time counter started by the tone driver.
// Its interrupt only acknowledges the tick event.
type TickSource struct {
	counter TickCounter
	running bool
	ticks   uint32
}

var tick *TickSource

// initTickSource starts the counter and unmasks its interrupt.
// Caller holds the critical section.
func initTickSource(counter TickCounter, ic InterruptController) {
	counter.EnableCounter()
	counter.EnableTickInterrupt()
	tick = &TickSource{counter: counter, running: true}
	ic.Unmask(IRQToneTick)
}

// HandleToneTick is the tick interrupt handler
func HandleToneTick() {
	free(func() {
		if tick == nil {
			return
		}
		tick.counter.ResetTickEvent()
		tick.ticks++
		recordEvent(EvtToneTick, tick.ticks, 0)
	})
}

// TickRunning reports whether the auxiliary tick has been started
func TickRunning() bool {
	var running bool
	free(func() {
		running = tick != nil && tick.running
	})
	return running
}

// TickCount returns how many tick events have been acknowledged
func TickCount() uint32 {
	var n uint32
	free(func() {
		if tick != nil {
			n = tick.ticks
		}
	})
	return n
}
