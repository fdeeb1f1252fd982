// Package gdt builds the global descriptor table and task-state segment
// Chronos needs for ring-0/ring-3 transitions. Segment layout follows spec
// §4.2: null, kernel code, kernel data, user data, user code, TSS — in
// that order, because the selectors' index-in-table is baked into the
// privilege-transition frame synthesized by package sched
// (NewUserProcess).
package gdt

import (
	"unsafe"

	"chronos/internal/kerr"
)

// Selector indices, in GDT entry units (each entry is 8 bytes; the
// selector value is index*8 | requested-privilege-level).
const (
	SegNull     = 0
	SegKernelCS = 1
	SegKernelDS = 2
	SegUserDS   = 3
	SegUserCS   = 4
	SegTSS      = 5 // occupies two 8-byte slots on amd64

	entrySize = 8
)

// Selector returns the full selector value (index<<3 | rpl) for seg.
func Selector(seg int, rpl uint8) uint16 {
	return uint16(seg*entrySize) | uint16(rpl&0x3)
}

// KernelCodeSelector / KernelDataSelector / UserCodeSelector /
// UserDataSelector are the selectors loaded by the privilege-transition
// frame and by the kernel's own segment registers at boot.
func KernelCodeSelector() uint16 { return Selector(SegKernelCS, 0) }
func KernelDataSelector() uint16 { return Selector(SegKernelDS, 0) }
func UserCodeSelector() uint16   { return Selector(SegUserCS, 3) }
func UserDataSelector() uint16   { return Selector(SegUserDS, 3) }

// access and flags bytes for 64-bit code/data descriptors.
const (
	accPresent  = 1 << 7
	accDPL3     = 3 << 5
	accCodeData = 1 << 4
	accExec     = 1 << 3
	accRW       = 1 << 1
	gran64bit   = 1 << 5 // L bit in the flags nibble
)

// descriptor is the raw 8-byte GDT entry layout.
type descriptor struct {
	limitLow  uint16
	baseLow   uint16
	baseMid   uint8
	access    uint8
	limitHigh uint8 // high nibble flags, low nibble limit
	baseHigh  uint8
}

// TSS is the x86_64 task-state segment. Only RSP0 and the IST slots are
// meaningful here: RSP0 is loaded by the CPU on any interrupt that raises
// privilege (ring3 -> ring0), and IST1 backs the double-fault handler's
// dedicated stack (spec §4.1).
type TSS struct {
	reserved0 uint32
	RSP0      uint64
	RSP1      uint64
	RSP2      uint64
	reserved1 uint64
	IST1      uint64
	IST2      uint64
	IST3      uint64
	IST4      uint64
	IST5      uint64
	IST6      uint64
	IST7      uint64
	reserved2 uint64
	reserved3 uint16
	IOMapBase uint16
}

// Table owns the GDT entries and the TSS they reference. A kernel boots
// with exactly one Table; there is no per-CPU table because Chronos is
// explicitly single-core (spec §1 non-goals).
type Table struct {
	entries [6]descriptor // SegTSS's descriptor occupies entries[5] plus an
	// extra hidden high-half word (tssHigh, filled in by New), matching the
	// amd64 16-byte TSS descriptor format.
	tssHigh uint32
	tss     TSS
}

// New builds a Table with the kernel/user code+data descriptors installed
// and the TSS descriptor pointing at the embedded TSS. kernelStack0 is the
// top of the dedicated interrupt-entry stack (RSP0); doubleFaultStack is
// the top of the IST1 stack the double-fault handler runs on.
func New(kernelStack0, doubleFaultStack uintptr) *Table {
	t := &Table{}
	t.entries[SegKernelCS] = codeDescriptor(0)
	t.entries[SegKernelDS] = dataDescriptor(0)
	t.entries[SegUserDS] = dataDescriptor(3)
	t.entries[SegUserCS] = codeDescriptor(3)
	t.tss.RSP0 = uint64(kernelStack0)
	t.tss.IST1 = uint64(doubleFaultStack)
	t.entries[SegTSS] = tssDescriptorLow(&t.tss)
	t.tssHigh = tssDescriptorHigh(&t.tss)
	return t
}

func codeDescriptor(dpl uint8) descriptor {
	var access uint8 = accPresent | accCodeData | accExec | accRW
	if dpl == 3 {
		access |= accDPL3
	}
	return descriptor{access: access, limitHigh: gran64bit}
}

func dataDescriptor(dpl uint8) descriptor {
	var access uint8 = accPresent | accCodeData | accRW
	if dpl == 3 {
		access |= accDPL3
	}
	return descriptor{access: access}
}

func tssDescriptorLow(tss *TSS) descriptor {
	base := uintptr(unsafe.Pointer(tss))
	limit := uint32(unsafe.Sizeof(*tss) - 1)
	return descriptor{
		limitLow:  uint16(limit),
		baseLow:   uint16(base),
		baseMid:   uint8(base >> 16),
		access:    accPresent | 0x9, // present, type=0x9 (64-bit TSS available)
		limitHigh: uint8((limit >> 16) & 0xf),
		baseHigh:  uint8(base >> 24),
	}
}

func tssDescriptorHigh(tss *TSS) uint32 {
	base := uintptr(unsafe.Pointer(tss))
	return uint32(base >> 32)
}

// SetStack0 updates RSP0, the kernel stack that backs the next ring-3
// interrupt entry. The scheduler does not call it: RSP0 keeps the value
// New set at boot for every task.
func (t *Table) SetStack0(rsp0 uintptr) {
	t.tss.RSP0 = uint64(rsp0)
}

// RSP0 reports the stack the CPU will switch to on the next ring3->ring0
// transition.
func (t *Table) RSP0() uintptr { return uintptr(t.tss.RSP0) }

// Validate returns a kerr.Code if the table was not built through New
// (e.g. zero value), used by a boot-time self check.
func (t *Table) Validate() kerr.Code {
	if t.entries[SegKernelCS] == (descriptor{}) {
		return kerr.New(kerr.Paging, kerr.PagingMisaligned)
	}
	return kerr.None
}
