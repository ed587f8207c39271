package core

import (
	"errors"
	"testing"
)

func TestRenderTrailLevels(t *testing.T) {
	trail := Trail{{0, 0}, {1, 2}, {4, 4}, {3, 0}, {2, 3}}
	f := RenderTrail(trail)

	prev := uint8(0)
	for i, p := range trail {
		level := f[p.Y][p.X]
		if level <= prev {
			t.Errorf("trail index %d at %v has level %d, not above %d", i, p, level, prev)
		}
		prev = level
	}
	if f[trail[0].Y][trail[0].X] != 1 || f[trail[4].Y][trail[4].X] != 9 {
		t.Error("tail must be 1 and head 9")
	}

	lit := 0
	for y := range f {
		for x := range f[y] {
			if f[y][x] != 0 {
				lit++
			}
		}
	}
	if lit != TrailLength {
		t.Errorf("expected %d lit cells, got %d", TrailLength, lit)
	}
}

func TestRenderTrailNewerWins(t *testing.T) {
	f := RenderTrail(Trail{{2, 2}, {2, 2}, {2, 2}, {1, 1}, {2, 2}})
	if f[2][2] != 9 || f[1][1] != 7 {
		t.Errorf("got %d at head and %d at (1,1)", f[2][2], f[1][1])
	}
}

func TestBrightnessRoundTrip(t *testing.T) {
	for level := uint8(0); level <= MaxLevel; level++ {
		if got := Level(Brightness(level)); got != level {
			t.Errorf("Level(Brightness(%d)) = %d", level, got)
		}
	}
	if Brightness(0).A != 0 || Brightness(9).A != 3 || Brightness(1).A != 227 {
		t.Error("alpha encoding does not match the matrix driver")
	}
}

func TestDisplayInit(t *testing.T) {
	r := newTestRig(t, nil)

	if len(r.matrix.shown) != 1 {
		t.Fatalf("expected one frame at init, got %d", len(r.matrix.shown))
	}
	var want Frame
	want[0][0] = 9
	if r.matrix.last() != want {
		t.Errorf("init frame = %v", r.matrix.last())
	}
	if !r.nvic.unmasked[IRQMatrixRefresh] || !r.nvic.unmasked[IRQFrameAdvance] {
		t.Error("display lines not unmasked")
	}
	if !r.frameTimer.intEnabled || r.frameTimer.lastStart() != 140000 {
		t.Errorf("frame timer not armed at idle cadence: %+v", r.frameTimer)
	}
	if _, mode, _ := DisplayState(); mode != DisplayModeIdle {
		t.Errorf("initial mode %v", mode)
	}
}

func TestIdleSweepRasterOrder(t *testing.T) {
	newTestRig(t, nil)

	want := Point{}
	wraps := 0
	for i := 0; i < 75; i++ {
		prev := want
		want = Point{X: (prev.X + 1) % GridSize, Y: prev.Y}
		if prev.X == GridSize-1 {
			want.Y = (prev.Y + 1) % GridSize
		}

		HandleFrameAdvance()
		trail, _, _ := DisplayState()
		if trail.Head() != want {
			t.Fatalf("advance %d: head %v, want %v", i+1, trail.Head(), want)
		}
		if want == (Point{}) {
			wraps++
			if (i+1)%25 != 0 {
				t.Fatalf("wrapped to origin at advance %d", i+1)
			}
		}
	}
	if wraps != 3 {
		t.Errorf("expected 3 wraps in 75 advances, got %d", wraps)
	}
}

func TestFrameAdvanceRendersTrail(t *testing.T) {
	r := newTestRig(t, nil)

	for i := 0; i < 12; i++ {
		HandleFrameAdvance()
		trail, _, _ := DisplayState()
		if got := r.matrix.last(); got != RenderTrail(trail) {
			t.Fatalf("advance %d: latched %v, want %v", i+1, got, RenderTrail(trail))
		}
	}
	if r.frameTimer.resets != 12 {
		t.Errorf("expected 12 acknowledged frame events, got %d", r.frameTimer.resets)
	}
}

func TestRunningRandomWalkScenario(t *testing.T) {
	r := newTestRig(t, &seqSource{vals: []uint64{0, 12, 24, 1, 2, 3, 4, 5}})

	DisplayRunning()

	var heads []Point
	var trails []Trail
	for i := 0; i < 8; i++ {
		HandleFrameAdvance()
		trail, _, _ := DisplayState()
		heads = append(heads, trail.Head())
		trails = append(trails, trail)
	}

	wantHeads := []Point{{0, 0}, {2, 2}, {4, 4}, {1, 0}, {2, 0}, {3, 0}, {4, 0}, {0, 1}}
	for i, w := range wantHeads {
		if heads[i] != w {
			t.Errorf("advance %d: head %v, want %v", i+1, heads[i], w)
		}
	}

	if want := (Trail{{0, 0}, {2, 2}, {4, 4}, {1, 0}, {2, 0}}); trails[4] != want {
		t.Errorf("after 5 advances trail %v, want %v", trails[4], want)
	}
	if want := (Trail{{2, 2}, {4, 4}, {1, 0}, {2, 0}, {3, 0}}); trails[5] != want {
		t.Errorf("(0,0) should be pushed out on the 6th advance: %v", trails[5])
	}
	if want := (Trail{{4, 4}, {1, 0}, {2, 0}, {3, 0}, {4, 0}}); trails[6] != want {
		t.Errorf("(2,2) should be pushed out on the 7th advance: %v", trails[6])
	}
	if want := (Trail{{1, 0}, {2, 0}, {3, 0}, {4, 0}, {0, 1}}); trails[7] != want {
		t.Errorf("(4,4) should be pushed out on the 8th advance: %v", trails[7])
	}

	if r.frameTimer.lastStart() != 80000 {
		t.Errorf("running cadence: re-armed for %d", r.frameTimer.lastStart())
	}
}

func TestRunningWithoutEntropyHoldsTrail(t *testing.T) {
	r := newTestRig(t, nil)

	for i := 0; i < 3; i++ {
		HandleFrameAdvance()
	}
	before, _, _ := DisplayState()
	want := Trail{{0, 0}, {0, 0}, {1, 0}, {2, 0}, {3, 0}}
	if before != want {
		t.Fatalf("idle trail %v, want %v", before, want)
	}

	DisplayRunning()
	for i := 0; i < TrailLength; i++ {
		HandleFrameAdvance()
	}

	after, _, _ := DisplayState()
	if after != before {
		t.Errorf("trail %v changed to %v without entropy", before, after)
	}
	if r.matrix.last() != RenderTrail(before) {
		t.Error("held trail not redrawn")
	}
	if r.frameTimer.lastStart() != 80000 {
		t.Errorf("re-armed for %d", r.frameTimer.lastStart())
	}
}

func TestDisplayCadenceSwitch(t *testing.T) {
	r := newTestRig(t, nil)

	DisplayRunning()
	if r.frameTimer.lastStart() != 140000 {
		t.Error("mode switch must wait for the next frame advance")
	}
	HandleFrameAdvance()
	if r.frameTimer.lastStart() != 80000 {
		t.Errorf("running: re-armed for %d", r.frameTimer.lastStart())
	}

	DisplayIdle()
	HandleFrameAdvance()
	if r.frameTimer.lastStart() != 140000 {
		t.Errorf("idle: re-armed for %d", r.frameTimer.lastStart())
	}
}

func TestDisplayErrorKeepsTimerRunning(t *testing.T) {
	r := newTestRig(t, nil)
	r.matrix.err = errors.New("bus fault")

	HandleFrameAdvance()

	if r.frameTimer.lastStart() != 140000 || len(r.frameTimer.starts) != 2 {
		t.Error("frame timer must be re-armed after a failed latch")
	}
	found := false
	for _, evt := range Events() {
		if evt.Type == EvtDisplayError {
			found = true
		}
	}
	if !found {
		t.Error("display error not recorded")
	}
}

func TestMatrixRefreshPassThrough(t *testing.T) {
	r := newTestRig(t, nil)

	for i := 0; i < 4; i++ {
		HandleMatrixRefresh()
	}
	if r.matrix.events != 4 {
		t.Errorf("expected 4 refresh events, got %d", r.matrix.events)
	}
}

func TestDisplayBeforeInitIsNoop(t *testing.T) {
	resetCore(t)

	DisplayIdle()
	DisplayRunning()
	HandleFrameAdvance()
	HandleMatrixRefresh()

	if _, _, ok := DisplayState(); ok {
		t.Error("display should not exist before init")
	}
}
