package compositor

import "chronos/internal/bootinfo"

// PixelSink is the "device pixel sink" abstraction design note §9 calls
// for: the framebuffer pointer is reachable from several contexts, but the
// only thing ever done to it is a whole-row write during the single
// frame-copy step, so that is the entire surface exposed here. Nothing
// outside this package ever dereferences bootinfo.Framebuffer.Base
// directly, the same narrow-surface discipline the teacher's
// videocore.MailboxRegisterMap gives the VideoCore mailbox.
type PixelSink interface {
	WriteRow(y int, pixels []uint32)
	Width() int
	Height() int
}

// vramSink is the production PixelSink: bootinfo.Framebuffer.Base cast to a
// row-addressable slice via Pitch. Row writes go through unsafe pointer
// arithmetic once, at construction, rather than on every call.
type vramSink struct {
	fb bootinfo.Framebuffer
}

func NewVRAMSink(fb bootinfo.Framebuffer) PixelSink {
	return &vramSink{fb: fb}
}

func (v *vramSink) Width() int  { return int(v.fb.Width) }
func (v *vramSink) Height() int { return int(v.fb.Height) }

// WriteRow copies one row of already-composited ARGB pixels to VRAM. The
// framebuffer's Pitch may exceed Width*4 (row padding), so the row offset
// is computed from Pitch, not from Width.
func (v *vramSink) WriteRow(y int, pixels []uint32) {
	if y < 0 || y >= int(v.fb.Height) {
		return
	}
	rowBase := v.fb.Base + uintptr(y)*uintptr(v.fb.Pitch)
	dst := rowPixels(rowBase, len(pixels))
	copy(dst, pixels)
}

// FakeSink is an in-memory PixelSink for tests and for the property tests
// in compositor_test.go that need to inspect exactly what the render pass
// would have sent to VRAM without any unsafe pointer arithmetic.
type FakeSink struct {
	W, H int
	Rows [][]uint32
}

func NewFakeSink(w, h int) *FakeSink {
	rows := make([][]uint32, h)
	for y := range rows {
		rows[y] = make([]uint32, w)
	}
	return &FakeSink{W: w, H: h, Rows: rows}
}

func (f *FakeSink) Width() int  { return f.W }
func (f *FakeSink) Height() int { return f.H }

func (f *FakeSink) WriteRow(y int, pixels []uint32) {
	if y < 0 || y >= f.H {
		return
	}
	copy(f.Rows[y], pixels)
}
