//go:build microbit_v2

package main

import (
	"image/color"
	"machine"

	"noiser/core"
)

var (
	rowPins = [core.GridSize]machine.Pin{
		machine.LED_ROW_1, machine.LED_ROW_2, machine.LED_ROW_3, machine.LED_ROW_4, machine.LED_ROW_5,
	}
	colPins = [core.GridSize]machine.Pin{
		machine.LED_COL_1, machine.LED_COL_2, machine.LED_COL_3, machine.LED_COL_4, machine.LED_COL_5,
	}
)

// slotTicks is one brightness slot; a row stays selected for MaxLevel slots
const slotTicks = 2000 / core.MaxLevel

// matrix scans the LED matrix one brightness slot per refresh interrupt.
// SetPixel and Display run from the frame interrupt, HandleDisplayEvent from
// the refresh interrupt, both inside the core critical section.
type matrix struct {
	refresh *nrfTimer
	pending core.Frame
	latched core.Frame
	row     int
	slot    uint8
}

func newMatrix(refresh *nrfTimer) *matrix {
	for _, p := range rowPins {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
		p.Low()
	}
	for _, p := range colPins {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
		p.High()
	}
	return &matrix{refresh: refresh}
}

// start begins the row scan
func (m *matrix) start() {
	m.refresh.periodic(slotTicks)
}

func (m *matrix) Size() (x, y int16) { return core.GridSize, core.GridSize }

func (m *matrix) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || y < 0 || x >= core.GridSize || y >= core.GridSize {
		return
	}
	m.pending[y][x] = core.Level(c)
}

func (m *matrix) Display() error {
	m.latched = m.pending
	return nil
}

func (m *matrix) HandleDisplayEvent() {
	m.refresh.ResetEvent()

	m.slot++
	if m.slot >= core.MaxLevel {
		m.slot = 0
		rowPins[m.row].Low()
		m.row = (m.row + 1) % core.GridSize
		rowPins[m.row].High()
	}
	for x, p := range colPins {
		// columns sink current
		p.Set(m.latched[m.row][x] <= m.slot)
	}
}
