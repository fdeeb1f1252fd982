package compositor

// glyphTable and Glyph come from glyphs_generated.go, produced offline by
// tools/fontgen (spec-full §3) from golang.org/x/image/font/basicfont; this
// file holds the small amount of hand-written blitting logic that consumes
// that table, kept separate so regenerating the table never touches logic.

const (
	glyphW = 8
	glyphH = 8
)

// pixelSetter is satisfied by *Window (and, for the taskbar, the backbuffer
// wrapper in render.go), so drawString doesn't need to know which kind of
// pixel-owning surface it is writing into.
type pixelSetter interface {
	setPixel(x, y int, c uint32)
}

func drawGlyph(dst pixelSetter, ox, oy int, ch byte, color uint32) {
	g, ok := glyphTable[ch]
	if !ok {
		g = glyphTable[' ']
	}
	for row := 0; row < glyphH; row++ {
		bits := g[row]
		for col := 0; col < glyphW; col++ {
			if bits&(1<<(7-col)) != 0 {
				dst.setPixel(ox+col, oy+row, color)
			}
		}
	}
}

func drawString(dst pixelSetter, ox, oy int, s string, color uint32) {
	x := ox
	for i := 0; i < len(s); i++ {
		drawGlyph(dst, x, oy, s[i], color)
		x += glyphW
	}
}
