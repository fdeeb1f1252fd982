// Package ioport wraps the x86 IN/OUT instructions, the one piece of raw
// hardware access every port-based driver package (pic, ata, rtc) needs but
// none of them may implement itself — keeping exactly one place that emits
// these privileged instructions, the same layering the teacher uses for
// LGDT/LTR/INVLPG (gdt_amd64.s, paging/invlpg_amd64.s): a bodyless Go
// function backed by hand-written assembly in this package.
package ioport

// Bus satisfies ata.Port and rtc.Port directly and backs pic.Port through
// cmd/chronos's picBus adapter (pic.Port names its methods Out/In) — every
// port-based driver in this kernel needs only these four primitives, so
// one concrete type backs all three drivers.
type Bus struct{}

func (Bus) Out8(port uint16, value uint8)   { outb(port, value) }
func (Bus) In8(port uint16) uint8           { return inb(port) }
func (Bus) Out16(port uint16, value uint16) { outw(port, value) }
func (Bus) In16(port uint16) uint16         { return inw(port) }

//go:noescape
func outb(port uint16, value uint8)

//go:noescape
func inb(port uint16) uint8

//go:noescape
func outw(port uint16, value uint16)

//go:noescape
func inw(port uint16) uint16
