package compositor

import (
	"fmt"

	"chronos/internal/bootcfg"
	"chronos/internal/kerr"
)

const taskbarHeight = 18

// AddTermWindow creates a window at the default geometry the shell's `term`
// command uses (spec §6 CLI table), cascading each successive window 24px
// down/right so they don't all stack exactly on top of each other.
func (m *Manager) AddTermWindow(title string) (*Window, bool) {
	m.mu.Lock()
	n := len(m.windows)
	m.mu.Unlock()
	offset := (n % 8) * 24
	win, err := m.AddWindow(title, 40+offset, 40+offset, bootcfg.DefaultWindowW, bootcfg.DefaultWindowH)
	return win, err == kerr.None
}

// RenderFrame runs the five-step render pass spec §4.6 lists in order:
// clear, taskbar, windows in z-order, cursor overlay, copy to sink. It
// holds mu for the whole pass (the window list must not mutate mid-blit),
// matching "per-window pixel buffers are... read only by the render pass,
// which does so while holding the list lock."
func (m *Manager) RenderFrame() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clearBackbuffer()
	m.drawTaskbar()
	m.blitWindows()
	m.restoreCursorScratch()
	m.saveCursorScratch()
	m.drawCursor()
	m.flush()
}

func (m *Manager) clearBackbuffer() {
	for i := range m.back {
		m.back[i] = colorDesktopBG
	}
}

func (m *Manager) drawTaskbar() {
	for y := 0; y < taskbarHeight && y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			m.setPixel(x, y, colorTaskbarBG)
		}
	}
	x := 4
	for _, win := range m.windows {
		drawString(m, x, 4, win.Title, colorTaskbarTxt)
		x += (len(win.Title) + 1) * glyphW
	}
	hh, mm, ss := m.clock.Now()
	clockStr := fmt.Sprintf("%02d:%02d:%02d", hh, mm, ss)
	drawString(m, m.w-len(clockStr)*glyphW-4, 4, clockStr, colorTaskbarTxt)
}

// blitWindows copies each window's pixel buffer into the backbuffer in
// list order, clipped to backbuffer bounds — later windows overwrite
// earlier ones at any overlap, which is exactly z-order correctness
// (testable property 2).
func (m *Manager) blitWindows() {
	for _, win := range m.windows {
		for row := 0; row < win.H; row++ {
			dstY := win.Y + row
			if dstY < 0 || dstY >= m.h {
				continue
			}
			srcRow := win.Pixels[row*win.W : (row+1)*win.W]
			for col := 0; col < win.W; col++ {
				dstX := win.X + col
				if dstX < 0 || dstX >= m.w {
					continue
				}
				m.back[dstY*m.w+dstX] = srcRow[col]
			}
		}
	}
}

// restoreCursorScratch writes back the pixels the previous frame's cursor
// overlay saved, undoing last frame's cursor draw before this frame's
// content (taskbar+windows, already drawn above) is allowed to show
// through — the "restore" half of save-draw-restore.
func (m *Manager) restoreCursorScratch() {
	if !m.cursorValid {
		return
	}
	i := 0
	for dy := 0; dy < cursorH; dy++ {
		for dx := 0; dx < cursorW; dx++ {
			x, y := m.lastCursorX+dx, m.lastCursorY+dy
			if x >= 0 && x < m.w && y >= 0 && y < m.h {
				m.back[y*m.w+x] = m.cursorScratch[i]
			}
			i++
		}
	}
}

// saveCursorScratch captures the N×M rectangle under the cursor's new
// position, before drawCursor overwrites it, so next frame's
// restoreCursorScratch can undo exactly this draw.
func (m *Manager) saveCursorScratch() {
	i := 0
	for dy := 0; dy < cursorH; dy++ {
		for dx := 0; dx < cursorW; dx++ {
			x, y := m.cursorX+dx, m.cursorY+dy
			if x >= 0 && x < m.w && y >= 0 && y < m.h {
				m.cursorScratch[i] = m.back[y*m.w+x]
			} else {
				m.cursorScratch[i] = 0
			}
			i++
		}
	}
	m.lastCursorX, m.lastCursorY = m.cursorX, m.cursorY
	m.cursorValid = true
}

func (m *Manager) drawCursor() {
	for dy := 0; dy < cursorH; dy++ {
		for dx := 0; dx < cursorW; dx++ {
			if dx != dy && dx+dy != cursorW-1 {
				continue // a simple X-shaped pointer, not a filled block
			}
			m.setPixel(m.cursorX+dx, m.cursorY+dy, colorCursor)
		}
	}
}

func (m *Manager) flush() {
	for y := 0; y < m.h; y++ {
		m.sink.WriteRow(y, m.back[y*m.w:(y+1)*m.w])
	}
}
