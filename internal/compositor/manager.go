// Package compositor implements Chronos's window manager and render pass
// (spec §4.6): a global, lock-protected window list in z-order, a
// backbuffer composed once per frame and copied to the PixelSink in a
// single pass, and the save-draw-restore cursor overlay. The single-writer-
// lock-with-try-acquire-from-IRQ discipline is grounded on the try-lock
// pattern in the teacher's own contended-resource code
// (src/lib/trust.go's sink swap is unguarded by design, but the pattern of
// "never block inside an interrupt path" is carried from the teacher's
// IRQ-context mailbox usage notes in videocore/mailbox.go, generalized here
// into an explicit TryLock).
package compositor

import (
	"sync"

	"chronos/internal/kerr"
)

// Clock decouples the taskbar's live clock from the RTC package so
// compositor has no direct dependency on hardware CMOS ports; cmd/chronos
// wires internal/rtc's reader in at boot.
type Clock interface {
	Now() (hh, mm, ss int)
}

type nullClock struct{}

func (nullClock) Now() (int, int, int) { return 0, 0, 0 }

// Manager owns the window list, the cursor, drag state, and the backbuffer.
// Exactly one lock (mu) guards all of it — the "writer lock" spec §5 names
// — so the deadlock-prevention rule (at most one of {writer, window-list,
// scheduler} lock held at once) reduces here to "never call back into the
// scheduler or shell while mu is held".
type Manager struct {
	mu sync.Mutex

	sink  PixelSink
	back  []uint32
	w, h  int
	clock Clock

	windows   []*Window
	activeIdx int // -1 means none active
	nextID    uint32

	cursorX, cursorY int
	dragging         bool
	dragDX, dragDY   int

	cursorScratch [cursorW * cursorH]uint32
	cursorValid   bool
	lastCursorX   int
	lastCursorY   int
}

const (
	cursorW = 8
	cursorH = 8
)

func New(sink PixelSink) *Manager {
	w, h := sink.Width(), sink.Height()
	return &Manager{
		sink:      sink,
		back:      make([]uint32, w*h),
		w:         w,
		h:         h,
		clock:     nullClock{},
		activeIdx: -1,
		cursorX:   w / 2,
		cursorY:   h / 2,
	}
}

func (m *Manager) SetClock(c Clock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c == nil {
		c = nullClock{}
	}
	m.clock = c
}

// setPixel lets Manager itself satisfy pixelSetter so drawString/drawGlyph
// can target the backbuffer for the taskbar text, the same interface
// *Window satisfies for its own body text.
func (m *Manager) setPixel(x, y int, c uint32) {
	if x < 0 || x >= m.w || y < 0 || y >= m.h {
		return
	}
	m.back[y*m.w+x] = c
}

// AddWindow appends a window to the end of the list (new windows render on
// top, per spec §3's z-order-by-position rule) and makes it active.
func (m *Manager) AddWindow(title string, x, y, w, h int) (*Window, kerr.Code) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w <= 0 || h <= 0 {
		return nil, kerr.New(kerr.Window, kerr.WindowAllocFailed)
	}
	m.nextID++
	win := NewWindow(m.nextID, title, x, y, w, h)
	m.windows = append(m.windows, win)
	m.activeIdx = len(m.windows) - 1
	return win, kerr.None
}

// RemoveWindow deletes a window by id. If it was active, the topmost
// remaining window (if any) becomes active.
func (m *Manager) RemoveWindow(id uint32) kerr.Code {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, win := range m.windows {
		if win.ID != id {
			continue
		}
		m.windows = append(m.windows[:i:i], m.windows[i+1:]...)
		switch {
		case len(m.windows) == 0:
			m.activeIdx = -1
		case i == m.activeIdx:
			m.activeIdx = len(m.windows) - 1
		case i < m.activeIdx:
			m.activeIdx--
		}
		return kerr.None
	}
	return kerr.New(kerr.Window, kerr.WindowNotFound)
}

// ActiveWindowID reports the id of the currently active window, if any.
// The shell router calls this, then releases mu before touching its own
// lock — crossing writer-lock -> shell-lock requires release-then-acquire,
// never held-together, per the deadlock-prevention rule.
func (m *Manager) ActiveWindowID() (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeIdx < 0 {
		return 0, false
	}
	return m.windows[m.activeIdx].ID, true
}

// Window looks a window up by id for callers (the shell router) that need
// to call AppendText on the window they are echoing into.
func (m *Manager) Window(id uint32) (*Window, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, win := range m.windows {
		if win.ID == id {
			return win, true
		}
	}
	return nil, false
}

// HandleMouseMotion updates the cursor position (clamped to screen bounds)
// and, while dragging, the active window's origin. Called from the main
// loop after draining the mouse FIFO, never from interrupt context
// directly (spec §4.5: "a kernel task drains both FIFOs per frame").
func (m *Manager) HandleMouseMotion(dx, dy int8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursorX = clamp(m.cursorX+int(dx), 0, m.w-1)
	m.cursorY = clamp(m.cursorY+int(dy), 0, m.h-1)
	if m.dragging && m.activeIdx >= 0 {
		win := m.windows[m.activeIdx]
		win.X = m.cursorX - m.dragDX
		win.Y = m.cursorY - m.dragDY
	}
}

// HandleMouseButton implements the hit-test/focus/drag state machine from
// spec §4.6's "Input handling" subsection.
func (m *Manager) HandleMouseButton(pressed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !pressed {
		m.dragging = false
		return
	}
	for i := len(m.windows) - 1; i >= 0; i-- {
		win := m.windows[i]
		if !win.Contains(m.cursorX, m.cursorY) {
			continue
		}
		m.activeIdx = i
		if win.OnTitleBar(m.cursorX, m.cursorY) {
			m.dragging = true
			m.dragDX = m.cursorX - win.X
			m.dragDY = m.cursorY - win.Y
		}
		return
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DrawFuelGauge renders the on-screen bar visualizing lastCost against
// budget (spec glossary "Fuel gauge", scenario S1): green while under
// budget, red once cost exceeds it, width proportional to cost/budget
// capped at the full bar.
func DrawFuelGauge(dst pixelSetter, x, y, w, h int, budget, lastCost uint64) {
	for i := 0; i < w; i++ {
		for j := 0; j < h; j++ {
			dst.setPixel(x+i, y+j, colorGaugeFrame)
		}
	}
	if budget == 0 {
		return
	}
	frac := float64(lastCost) / float64(budget)
	if frac > 1 {
		frac = 1
	}
	fillW := int(frac * float64(w-2))
	color := colorGaugeGreen
	if lastCost > budget {
		color = colorGaugeRed
	}
	for i := 0; i < fillW; i++ {
		for j := 1; j < h-1; j++ {
			dst.setPixel(x+1+i, y+j, color)
		}
	}
}
