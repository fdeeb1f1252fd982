package compositor

import "testing"

func TestZOrderLaterWindowOverwritesEarlierOnOverlap(t *testing.T) {
	sink := NewFakeSink(40, 40)
	m := New(sink)

	back, _ := m.AddWindow("back", 0, 0, 20, 20)
	for i := range back.Pixels {
		back.Pixels[i] = 0x00ff0000 // red
	}
	front, _ := m.AddWindow("front", 5, 5, 20, 20)
	for i := range front.Pixels {
		front.Pixels[i] = 0x0000ff00 // green
	}

	m.RenderFrame()

	// overlap region (5,5)-(19,19): front (added later) must win.
	if sink.Rows[10][10] != 0x0000ff00 {
		t.Fatalf("overlap pixel = %#x, want green (front window)", sink.Rows[10][10])
	}
	// non-overlapping part of back window must still show back's color.
	if sink.Rows[2][2] != 0x00ff0000 {
		t.Fatalf("non-overlap pixel = %#x, want red (back window)", sink.Rows[2][2])
	}
}

func TestDragMovesWindowByPressMinusOrigin(t *testing.T) {
	// S6: window at (100,100) w=300 h=200, titlebar height 20. Press at
	// (120,110), move to (180,150), release. Final origin = (160,140).
	sink := NewFakeSink(800, 600)
	m := New(sink)
	win, _ := m.AddWindow("t", 100, 100, 300, 200)
	_ = win

	m.cursorX, m.cursorY = 120, 110
	m.HandleMouseButton(true) // press: hits title bar (y=110 < 100+20)

	// move by (60,40) in one step for simplicity; HandleMouseMotion takes
	// relative deltas so this models "pointer moved (60,40) while dragging".
	m.HandleMouseMotion(60, 40)

	m.HandleMouseButton(false) // release

	if win.X != 160 || win.Y != 140 {
		t.Fatalf("window origin = (%d,%d), want (160,140)", win.X, win.Y)
	}
}

func TestPressOnNonTitleBarAreaFocusesButDoesNotDrag(t *testing.T) {
	sink := NewFakeSink(800, 600)
	m := New(sink)
	win, _ := m.AddWindow("t", 100, 100, 300, 200)

	m.cursorX, m.cursorY = 150, 150 // inside body, below title bar
	m.HandleMouseButton(true)
	m.HandleMouseMotion(10, 10)

	if win.X != 100 || win.Y != 100 {
		t.Fatalf("window should not move when press misses the title bar, got (%d,%d)", win.X, win.Y)
	}
}

func TestHitTestPrefersTopmostWindowInReverseOrder(t *testing.T) {
	sink := NewFakeSink(200, 200)
	m := New(sink)
	back, _ := m.AddWindow("back", 0, 0, 100, 100)
	front, _ := m.AddWindow("front", 10, 10, 100, 100)

	m.cursorX, m.cursorY = 50, 50 // inside both
	m.HandleMouseButton(true)

	id, ok := m.ActiveWindowID()
	if !ok || id != front.ID {
		t.Fatalf("active window id = %d, ok=%v, want front window %d", id, ok, front.ID)
	}
	_ = back
}

func TestCursorTrailLeavesNoResidueOutsideCurrentBoundingBox(t *testing.T) {
	// S7 simplified: a desktop pixel the cursor has moved away from must
	// show the plain desktop background again once a new frame has
	// rendered, outside the cursor's current footprint.
	sink := NewFakeSink(100, 100)
	m := New(sink)
	m.cursorX, m.cursorY = 0, 0

	for step := 0; step < 5; step++ {
		m.RenderFrame()
		m.HandleMouseMotion(1, 0)
	}
	m.RenderFrame()

	farX, farY := 90, 90
	if sink.Rows[farY][farX] != colorDesktopBG {
		t.Fatalf("pixel far from cursor = %#x, want desktop background %#x", sink.Rows[farY][farX], colorDesktopBG)
	}
}

func TestFuelGaugeUnderBudgetIsGreenAndPartialWidth(t *testing.T) {
	win := NewWindow(1, "top", 0, 0, 100, 40)
	DrawFuelGauge(win, 2, 22, 60, 10, 2_500_000, 900_000)

	sawGreen := false
	for x := 3; x < 62; x++ {
		if win.Pixels[23*100+x] == colorGaugeGreen {
			sawGreen = true
		}
	}
	if !sawGreen {
		t.Fatal("expected some green fill pixels for a well-under-budget cost")
	}
	// A cost well under half the budget should not fill past roughly half
	// the bar's interior width.
	filled := 0
	for x := 3; x < 62; x++ {
		if win.Pixels[23*100+x] == colorGaugeGreen {
			filled++
		}
	}
	if filled > 40 {
		t.Fatalf("filled %d columns of a 58-wide interior for cost/budget=0.36, too wide", filled)
	}
}

func TestFuelGaugeOverBudgetIsRed(t *testing.T) {
	win := NewWindow(1, "top", 0, 0, 100, 40)
	DrawFuelGauge(win, 2, 22, 60, 10, 1_000_000, 5_000_000)

	sawRed := false
	for x := 3; x < 62; x++ {
		if win.Pixels[23*100+x] == colorGaugeRed {
			sawRed = true
		}
	}
	if !sawRed {
		t.Fatal("expected red fill pixels once cost exceeds budget")
	}
}

func TestRemoveWindowPromotesNewActive(t *testing.T) {
	sink := NewFakeSink(200, 200)
	m := New(sink)
	a, _ := m.AddWindow("a", 0, 0, 50, 50)
	b, _ := m.AddWindow("b", 0, 0, 50, 50)

	if err := m.RemoveWindow(b.ID); err != 0 {
		t.Fatalf("RemoveWindow: %v", err)
	}
	id, ok := m.ActiveWindowID()
	if !ok || id != a.ID {
		t.Fatalf("after removing topmost, active = %d ok=%v, want %d", id, ok, a.ID)
	}
}
