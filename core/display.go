package core

import "image/color"

// Grid and trail dimensions
const (
	GridSize    = 5
	TrailLength = 5
	MaxLevel    = 9
)

// DisplayMode is the animation mode, changed only by explicit calls
type DisplayMode uint8

const (
	DisplayModeIdle DisplayMode = iota
	DisplayModeRunning
)

// String returns the mode name
func (m DisplayMode) String() string {
	if m == DisplayModeRunning {
		return "running"
	}
	return "idle"
}

// Point is a cell of the 5x5 grid
type Point struct {
	X, Y uint8
}

// Trail holds the recently visited cells. Index 0 is the tail (evicted next),
// index TrailLength-1 is the head.
type Trail [TrailLength]Point

// Head returns the most recently added cell
func (t Trail) Head() Point {
	return t[TrailLength-1]
}

// Frame is a brightness image indexed [y][x], levels 0..MaxLevel
type Frame [GridSize][GridSize]uint8

// trailLevels maps trail index to brightness, dimmest at the tail
var trailLevels = [TrailLength]uint8{1, 3, 5, 7, 9}

// RenderTrail draws the trail on a blank frame. When cells coincide the
// newer (brighter) entry wins.
func RenderTrail(t Trail) Frame {
	var f Frame
	for i, p := range t {
		f[p.Y][p.X] = trailLevels[i]
	}
	return f
}

// Brightness returns the matrix color for a level, with the level encoded in
// the alpha channel the way the micro:bit matrix driver expects it: alpha
// 255 is off, each level removes 255/9 of transparency.
func Brightness(level uint8) color.RGBA {
	if level == 0 {
		return color.RGBA{}
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return color.RGBA{R: 255, G: 255, B: 255, A: 255 - (255/MaxLevel)*level}
}

// Level decodes a Brightness color back to its level
func Level(c color.RGBA) uint8 {
	if c.R == 0 && c.G == 0 && c.B == 0 {
		return 0
	}
	return MaxLevel - c.A/(255/MaxLevel)
}

// Display owns the LED matrix and the frame advance timer.
type Display struct {
	matrix MatrixDisplay
	timer  OneshotTimer
	trail  Trail
	mode   DisplayMode
	delay  uint32
	frames uint32
}

var display *Display

// InitDisplay shows the single-pixel start frame, arms the frame timer at the
// idle cadence and unmasks both display interrupts.
func InitDisplay(matrix MatrixDisplay, timer OneshotTimer, ic InterruptController) {
	var start Frame
	start[0][0] = MaxLevel
	if err := show(matrix, start); err != nil {
		panic("display: " + err.Error())
	}

	free(func() {
		ic.Unmask(IRQMatrixRefresh)
		ic.Unmask(IRQFrameAdvance)
		delay := timing.IdlePeriod
		timer.EnableInterrupt()
		timer.Start(delay)
		display = &Display{
			matrix: matrix,
			timer:  timer,
			mode:   DisplayModeIdle,
			delay:  delay,
		}
	})
}

// show pushes a frame to the matrix
func show(matrix MatrixDisplay, f Frame) error {
	for y := 0; y < GridSize; y++ {
		for x := 0; x < GridSize; x++ {
			matrix.SetPixel(int16(x), int16(y), Brightness(f[y][x]))
		}
	}
	return matrix.Display()
}

// DisplayIdle selects the raster sweep at the idle cadence.
// It takes effect on the next frame advance.
func DisplayIdle() {
	setDisplayMode(DisplayModeIdle, func() uint32 { return timing.IdlePeriod })
}

// DisplayRunning selects the random walk at the running cadence
func DisplayRunning() {
	setDisplayMode(DisplayModeRunning, func() uint32 { return timing.RunningPeriod })
}

func setDisplayMode(mode DisplayMode, delay func() uint32) {
	free(func() {
		if display == nil {
			return
		}
		display.mode = mode
		display.delay = delay()
		recordEvent(EvtModeChange, 0, uint32(mode))
	})
}

// DisplayState returns the current trail and mode
func DisplayState() (trail Trail, mode DisplayMode, ok bool) {
	free(func() {
		if display == nil {
			return
		}
		trail, mode, ok = display.trail, display.mode, true
	})
	return trail, mode, ok
}

// sweep returns the cell after p in raster order, wrapping (4,4) to (0,0)
func sweep(p Point) Point {
	switch {
	case p.X == GridSize-1 && p.Y == GridSize-1:
		return Point{}
	case p.X == GridSize-1:
		return Point{X: 0, Y: p.Y + 1}
	default:
		return Point{X: p.X + 1, Y: p.Y}
	}
}

// cell decomposes a cell index in [0,25) into a point
func cell(idx uint32) Point {
	x := idx % GridSize
	return Point{X: uint8(x), Y: uint8((idx - x) / GridSize)}
}

// advance shifts the trail and picks the new head. In running mode without
// an entropy source the trail is left as it is.
// Caller holds the critical section.
func (d *Display) advance() {
	var next Point
	switch d.mode {
	case DisplayModeIdle:
		next = sweep(d.trail.Head())
	case DisplayModeRunning:
		v, ok := randomCell()
		if !ok {
			d.frames++
			return
		}
		next = v
	}
	copy(d.trail[:TrailLength-1], d.trail[1:])
	d.trail[TrailLength-1] = next
	d.frames++
}

// randomCell draws a cell. Caller holds the critical section.
func randomCell() (Point, bool) {
	if entropy == nil {
		return Point{}, false
	}
	return cell(entropy.NextInRange(0, GridSize*GridSize)), true
}

// HandleFrameAdvance is the frame timer interrupt handler: advance the
// trail, render it and re-arm for the current cadence.
func HandleFrameAdvance() {
	free(func() {
		if display == nil {
			return
		}
		d := display
		d.advance()
		if err := show(d.matrix, RenderTrail(d.trail)); err != nil {
			recordEvent(EvtDisplayError, d.frames, 0)
		}
		head := d.trail.Head()
		recordEvent(EvtFrameAdvance, uint32(head.Y)*GridSize+uint32(head.X), uint32(d.mode))

		d.timer.ResetEvent()
		d.timer.Start(d.delay)
	})
}

// HandleMatrixRefresh is the matrix refresh interrupt handler
func HandleMatrixRefresh() {
	free(func() {
		if display != nil {
			display.matrix.HandleDisplayEvent()
		}
	})
}
