package core

import "tinygo.org/x/drivers"

// IRQ names the interrupt lines the core reacts to
type IRQ uint8

const (
	IRQMatrixRefresh IRQ = iota // nonblocking matrix row scan
	IRQFrameAdvance             // display frame timer
	IRQFrequency                // frequency scheduler timer
	IRQToneTick                 // tone driver auxiliary tick
)

// String returns the line name used in logs
func (irq IRQ) String() string {
	switch irq {
	case IRQMatrixRefresh:
		return "matrix_refresh"
	case IRQFrameAdvance:
		return "frame_advance"
	case IRQFrequency:
		return "frequency"
	case IRQToneTick:
		return "tone_tick"
	default:
		return "irq" + itoa(int(irq))
	}
}

// InterruptController unmasks interrupt lines at the NVIC level.
type InterruptController interface {
	Unmask(irq IRQ)
}

// OneshotTimer is a compare timer that fires once per Start.
// Handlers re-arm it themselves to get periodic behavior.
type OneshotTimer interface {
	// Start (re)arms the timer to fire after cycles ticks of TimerFreq
	Start(cycles uint32)

	// ResetEvent acknowledges the compare event
	ResetEvent()

	// EnableInterrupt lets the compare event reach the interrupt line
	EnableInterrupt()

	// DisableInterrupt stops the compare event from raising the line
	DisableInterrupt()
}

// WaveformGenerator is the square-wave output behind the speaker pin.
type WaveformGenerator interface {
	// SetFrequency reprograms the period register. It never changes
	// whether the output is driven.
	SetFrequency(hz uint32)

	// Enable drives a 50% duty square wave at the programmed frequency
	Enable()

	// Stop holds the output low
	Stop()
}

// TickCounter is the real-time counter providing the auxiliary tick.
type TickCounter interface {
	EnableCounter()
	EnableTickInterrupt()
	ResetTickEvent()
}

// MatrixDisplay is the LED matrix driver. SetPixel and Display fill and
// latch a frame; HandleDisplayEvent advances the row scan from the
// matrix refresh interrupt.
//
// Brightness is carried in the alpha channel: see Brightness.
type MatrixDisplay interface {
	drivers.Displayer
	HandleDisplayEvent()
}
