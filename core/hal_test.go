package core

import (
	"errors"
	"image/color"
	"testing"
)

// fakeTimer records how the oneshot timer was driven
type fakeTimer struct {
	starts     []uint32
	resets     int
	intEnabled bool
}

func (f *fakeTimer) Start(cycles uint32) { f.starts = append(f.starts, cycles) }
func (f *fakeTimer) ResetEvent()         { f.resets++ }
func (f *fakeTimer) EnableInterrupt()    { f.intEnabled = true }
func (f *fakeTimer) DisableInterrupt()   { f.intEnabled = false }

func (f *fakeTimer) lastStart() uint32 {
	if len(f.starts) == 0 {
		return 0
	}
	return f.starts[len(f.starts)-1]
}

// fakeWave models the PWM: period register plus output enable
type fakeWave struct {
	freq   uint32
	active bool
}

func (f *fakeWave) SetFrequency(hz uint32) { f.freq = hz }
func (f *fakeWave) Enable()                { f.active = true }
func (f *fakeWave) Stop()                  { f.active = false }

type fakeTicker struct {
	counting   bool
	intEnabled bool
	resets     int
}

func (f *fakeTicker) EnableCounter()       { f.counting = true }
func (f *fakeTicker) EnableTickInterrupt() { f.intEnabled = true }
func (f *fakeTicker) ResetTickEvent()      { f.resets++ }

// fakeMatrix keeps every latched frame
type fakeMatrix struct {
	pending Frame
	shown   []Frame
	events  int
	err     error
}

func (f *fakeMatrix) Size() (x, y int16) { return GridSize, GridSize }

func (f *fakeMatrix) SetPixel(x, y int16, c color.RGBA) {
	f.pending[y][x] = Level(c)
}

func (f *fakeMatrix) Display() error {
	if f.err != nil {
		return f.err
	}
	f.shown = append(f.shown, f.pending)
	return nil
}

func (f *fakeMatrix) HandleDisplayEvent() { f.events++ }

func (f *fakeMatrix) last() Frame {
	return f.shown[len(f.shown)-1]
}

type fakeNVIC struct {
	unmasked map[IRQ]bool
}

func newFakeNVIC() *fakeNVIC {
	return &fakeNVIC{unmasked: make(map[IRQ]bool)}
}

func (f *fakeNVIC) Unmask(irq IRQ) { f.unmasked[irq] = true }

// seqSource replays raw draws in a loop
type seqSource struct {
	vals []uint64
	i    int
}

func (s *seqSource) Uint64() uint64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

type errReader struct{}

func (errReader) Read(p []byte) (int, error) {
	return 0, errors.New("rng not ready")
}

// resetCore drops every component so each test starts before init
func resetCore(t *testing.T) {
	t.Helper()
	reset := func() {
		free(func() {
			entropy = nil
			tone = nil
			tick = nil
			scheduler = nil
			display = nil
			timing = DefaultTiming()
		})
		ClearEventRing()
		SetTime(0)
	}
	reset()
	t.Cleanup(reset)
}

// testRig is a fully initialized core on fake peripherals
type testRig struct {
	nvic       *fakeNVIC
	wave       *fakeWave
	ticker     *fakeTicker
	freqTimer  *fakeTimer
	frameTimer *fakeTimer
	matrix     *fakeMatrix
}

func newTestRig(t *testing.T, src *seqSource) *testRig {
	t.Helper()
	resetCore(t)

	r := &testRig{
		nvic:       newFakeNVIC(),
		wave:       &fakeWave{},
		ticker:     &fakeTicker{},
		freqTimer:  &fakeTimer{},
		frameTimer: &fakeTimer{},
		matrix:     &fakeMatrix{},
	}
	if src != nil {
		InitEntropySource(src)
	}
	InitDisplay(r.matrix, r.frameTimer, r.nvic)
	InitFrequencyScheduler(r.freqTimer, r.nvic)
	InitTone(r.wave, r.ticker, r.nvic)
	return r
}
