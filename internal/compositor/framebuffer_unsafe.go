package compositor

import "unsafe"

// rowPixels views n uint32s starting at the physical row address addr (which
// must already be HHDM-mapped and user-inaccessible kernel memory, i.e. the
// bootloader-handed framebuffer base) as a Go slice, the same
// unsafe.Slice-over-a-raw-address technique the teacher's volatile register
// maps use to address MMIO, applied here to linear VRAM instead.
func rowPixels(addr uintptr, n int) []uint32 {
	return unsafe.Slice((*uint32)(unsafe.Pointer(addr)), n)
}
