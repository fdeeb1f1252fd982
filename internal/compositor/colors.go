package compositor

// Pixel colors are packed 0xAARRGGBB (alpha byte unused, per spec §3); the
// compositor never reads the alpha byte so it is left zero everywhere.
const (
	colorDesktopBG  uint32 = 0x00103050
	colorTaskbarBG  uint32 = 0x00202020
	colorTaskbarTxt uint32 = 0x00ffffff
	colorWindowBG   uint32 = 0x00e8e8e8
	colorWindowText uint32 = 0x00000000
	colorTitleBar   uint32 = 0x00305080
	colorTitleText  uint32 = 0x00ffffff
	colorCursor     uint32 = 0x00ffffff
	colorGaugeGreen uint32 = 0x0000c000
	colorGaugeRed   uint32 = 0x00c00000
	colorGaugeFrame uint32 = 0x00000000
)

const lineHeight = 10
