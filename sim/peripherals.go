package sim

import (
	"image/color"
	"sync"

	"noiser/core"
)

// Waveform records what the speaker PWM would output
type Waveform struct {
	mu      sync.Mutex
	freq    uint32
	active  bool
	retunes uint64
}

func (w *Waveform) SetFrequency(hz uint32) {
	w.mu.Lock()
	w.freq = hz
	w.retunes++
	w.mu.Unlock()
}

func (w *Waveform) Enable() {
	w.mu.Lock()
	w.active = true
	w.mu.Unlock()
}

func (w *Waveform) Stop() {
	w.mu.Lock()
	w.active = false
	w.mu.Unlock()
}

// State returns the period register and whether the pin is driven
func (w *Waveform) State() (freq uint32, active bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.freq, w.active
}

// Retunes counts period register writes
func (w *Waveform) Retunes() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.retunes
}

// rtcFreq is the low frequency clock feeding the RTC
const rtcFreq = 32768

// Ticker is the RTC: a counter that raises a tick event every
// (prescaler+1)/32768 s once started
type Ticker struct {
	timer  *Timer
	period uint64
	acks   uint64
}

func newTicker(m *Machine, prescaler uint32) *Ticker {
	r := &Ticker{period: uint64(prescaler+1) * core.TimerFreq / rtcFreq}
	r.timer = &Timer{m: m, irq: core.IRQToneTick, fire: r.fire}
	return r
}

func (r *Ticker) fire(t *Timer) uint8 {
	t.event = true
	if t.intEnabled {
		t.m.nvic.Raise(t.irq)
	}
	t.wake += r.period
	return TimerReschedule
}

// EnableCounter starts the RTC; it cannot be stopped
func (r *Ticker) EnableCounter() {
	m := r.timer.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if !r.timer.queued {
		r.timer.wake = m.now + r.period
		m.insertTimer(r.timer)
	}
}

func (r *Ticker) EnableTickInterrupt() {
	r.timer.EnableInterrupt()
}

func (r *Ticker) ResetTickEvent() {
	m := r.timer.m
	m.mu.Lock()
	r.timer.event = false
	r.acks++
	m.mu.Unlock()
}

// Period is the tick interval in timer ticks
func (r *Ticker) Period() uint32 { return uint32(r.period) }

// RowPeriod is the time each matrix row is lit
const RowPeriod = 2000

// Matrix is the 5x5 LED matrix. SetPixel writes a back buffer, Display
// latches it and the row scan interrupt walks the rows.
type Matrix struct {
	mu      sync.Mutex
	pending core.Frame
	latched core.Frame
	latches uint64
	row     int
	scans   uint64
	frames  chan core.Frame

	refresh *Timer
}

func newMatrix(m *Machine) *Matrix {
	mx := &Matrix{frames: make(chan core.Frame, 16)}
	mx.refresh = &Timer{m: m, irq: core.IRQMatrixRefresh, intEnabled: true, fire: mx.fireRow}
	return mx
}

func (mx *Matrix) fireRow(t *Timer) uint8 {
	t.event = true
	t.m.nvic.Raise(t.irq)
	t.wake += RowPeriod
	return TimerReschedule
}

// start begins the row scan
func (mx *Matrix) start() {
	m := mx.refresh.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if !mx.refresh.queued {
		mx.refresh.wake = m.now + RowPeriod
		m.insertTimer(mx.refresh)
	}
}

func (mx *Matrix) Size() (x, y int16) { return core.GridSize, core.GridSize }

func (mx *Matrix) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || y < 0 || x >= core.GridSize || y >= core.GridSize {
		return
	}
	mx.mu.Lock()
	mx.pending[y][x] = core.Level(c)
	mx.mu.Unlock()
}

// Display latches the back buffer and offers it on Frames without blocking
func (mx *Matrix) Display() error {
	mx.mu.Lock()
	mx.latched = mx.pending
	mx.latches++
	f := mx.latched
	mx.mu.Unlock()

	select {
	case mx.frames <- f:
	default:
	}
	return nil
}

// HandleDisplayEvent lights the next row
func (mx *Matrix) HandleDisplayEvent() {
	m := mx.refresh.m
	m.mu.Lock()
	mx.refresh.event = false
	m.mu.Unlock()

	mx.mu.Lock()
	mx.row = (mx.row + 1) % core.GridSize
	if mx.row == 0 {
		mx.scans++
	}
	mx.mu.Unlock()
}

// Frame returns the latched frame
func (mx *Matrix) Frame() core.Frame {
	mx.mu.Lock()
	defer mx.mu.Unlock()
	return mx.latched
}

// Latches counts Display calls
func (mx *Matrix) Latches() uint64 {
	mx.mu.Lock()
	defer mx.mu.Unlock()
	return mx.latches
}

// Scans counts completed passes over all rows
func (mx *Matrix) Scans() uint64 {
	mx.mu.Lock()
	defer mx.mu.Unlock()
	return mx.scans
}

// Frames delivers latched frames; frames are dropped while it is full
func (mx *Matrix) Frames() <-chan core.Frame { return mx.frames }
