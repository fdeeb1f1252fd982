package gdt

import "unsafe"

// descriptorTablePointer matches the operand LGDT/LIDT expect: a 16-bit
// limit followed by a 64-bit linear base.
type descriptorTablePointer struct {
	limit uint16
	base  uint64
}

// lgdt and ltr are bodyless Go functions backed by hand-written amd64
// assembly (gdt_amd64.s) in this package, the same convention the teacher
// uses for its mmio_write/mmio_read primitives in src/kernel.go: the
// privileged instructions LGDT/LTR have no Go-language equivalent, so the
// boundary is a plain extern func rather than a device package that
// doesn't exist for this target.
//
//go:noescape
func lgdt(ptr unsafe.Pointer)

//go:noescape
func ltr(selector uint16)

// Load installs the table as the active GDT and loads the task register
// with the TSS selector. Must run once, early in boot, before any
// interrupt can fire.
func (t *Table) Load() {
	dtp := descriptorTablePointer{
		limit: uint16(unsafe.Sizeof(t.entries)+4) - 1,
		base:  uint64(uintptr(unsafe.Pointer(&t.entries[0]))),
	}
	lgdt(unsafe.Pointer(&dtp))
	ltr(Selector(SegTSS, 0))
}
