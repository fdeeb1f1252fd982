// Command fontgen rasterizes a host font into the 8x8 glyph table the
// kernel's compositor package compiles in directly, the same offline
// code-generation role the teacher's tools/sysdec/generate.go plays for
// its own board-specific binary blobs (and iansmith-mazarin's
// tools/imageconvert plays for image assets): run once on the host, check
// in the result, never touch image decoding at boot time. The kernel
// itself never parses a font file — this is the only place
// golang.org/x/image touches the build.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/draw"
	"log"
	"os"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	outPath = flag.String("out", "internal/compositor/glyphs_generated.go", "output Go source file")
	charset = flag.String("charset", asciiPrintable(), "characters to rasterize")
)

func asciiPrintable() string {
	var b strings.Builder
	for c := byte(0x20); c < 0x7f; c++ {
		b.WriteByte(c)
	}
	return b.String()
}

const cell = 8

func main() {
	flag.Parse()

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("fontgen: %v", err)
	}
	defer f.Close()

	fmt.Fprintln(f, "// Code generated by tools/fontgen from golang.org/x/image/font/basicfont. DO NOT EDIT.")
	fmt.Fprintln(f)
	fmt.Fprintln(f, "package compositor")
	fmt.Fprintln(f)
	fmt.Fprintln(f, "// Glyph is one 8x8 monochrome character cell; bit 7 of row i is the")
	fmt.Fprintln(f, "// leftmost pixel.")
	fmt.Fprintln(f, "type Glyph [8]byte")
	fmt.Fprintln(f)
	fmt.Fprintln(f, "var glyphTable = map[byte]Glyph{")

	for i := 0; i < len(*charset); i++ {
		ch := (*charset)[i]
		g := rasterize(ch)
		fmt.Fprintf(f, "\t%s: {%s},\n", goByteLiteral(ch), formatBytes(g))
	}

	fmt.Fprintln(f, "}")
}

// rasterize renders ch with basicfont.Face7x13 into a cell x cell mask and
// packs each row into one byte, one bit per column, matching the bit
// layout drawGlyph (internal/compositor/glyphs.go) expects.
func rasterize(ch byte) [cell]byte {
	img := image.NewGray(image.Rect(0, 0, cell, cell))
	draw.Draw(img, img.Bounds(), image.Black, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(0, cell-2),
	}
	d.DrawString(string(ch))

	var rows [cell]byte
	for y := 0; y < cell; y++ {
		var row byte
		for x := 0; x < cell; x++ {
			if img.GrayAt(x, y).Y > 0x7f {
				row |= 1 << (7 - x)
			}
		}
		rows[y] = row
	}
	return rows
}

func formatBytes(g [cell]byte) string {
	var b strings.Builder
	for i, v := range g {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "0x%02X", v)
	}
	return b.String()
}

func goByteLiteral(ch byte) string {
	switch ch {
	case '\'', '\\':
		return fmt.Sprintf("'\\%c'", ch)
	default:
		return fmt.Sprintf("'%c'", ch)
	}
}
