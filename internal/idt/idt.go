// Package idt builds the x86_64 interrupt descriptor table: the CPU
// exception vectors, the timer/keyboard/mouse IRQ stubs, and the vector
// 128 software-interrupt syscall gate callable from ring 3 (spec §4.1).
//
// The table itself is plain data (testable without hardware); the actual
// vector entry points are hand-written assembly trampolines
// (isr_amd64.s) that save the full GPR set and call back into the single
// Go dispatch point trapEntry, the same shape as the teacher's
// `//export raw_exception_handler` entry point in src/joy/exception.go.
package idt

import "unsafe"

// Gate types, per the Intel SDM's IDT entry type field.
const (
	GateInterrupt64 = 0xE
	GateTrap64      = 0xF
)

// Vector numbers fixed by spec §4.1.
const (
	VecBreakpoint      = 3
	VecDoubleFault     = 8
	VecGeneralProtect  = 13
	VecPageFault       = 14
	VecTimer           = 32
	VecKeyboard        = 33
	VecCOM1            = 36 // IRQ4, chronoscope's serial console line
	VecMouse           = 44
	VecSyscall         = 128
	doubleFaultISTSlot = 1
)

// entry is the raw 16-byte IDT gate layout on amd64.
type entry struct {
	offsetLow  uint16
	selector   uint16
	istAndZero uint8 // low 3 bits: IST index, rest reserved zero
	typeAttr   uint8
	offsetMid  uint16
	offsetHigh uint32
	reserved   uint32
}

// Table is the 256-entry IDT.
type Table struct {
	entries [256]entry
}

// SetGate installs a handler at vector v. dpl is the minimum privilege
// level allowed to invoke the gate with a software interrupt (3 for the
// syscall gate, 0 for everything else so ring-3 code cannot directly
// trigger, say, the page-fault handler).
func (t *Table) SetGate(v uint8, handler uintptr, codeSelector uint16, dpl uint8, ist uint8) {
	t.entries[v] = entry{
		offsetLow:  uint16(handler),
		selector:   codeSelector,
		istAndZero: ist & 0x7,
		typeAttr:   0x80 | (dpl&0x3)<<5 | GateInterrupt64,
		offsetMid:  uint16(handler >> 16),
		offsetHigh: uint32(handler >> 32),
	}
}

// Installed reports whether a gate has been set for v (its present bit is
// set), used by tests and by the boot-time self check.
func (t *Table) Installed(v uint8) bool {
	e := t.entries[v]
	return e.typeAttr&0x80 != 0
}

// DPL returns the privilege level a gate was installed with.
func (t *Table) DPL(v uint8) uint8 {
	return (t.entries[v].typeAttr >> 5) & 0x3
}

// IST returns the interrupt-stack-table slot a gate uses, 0 meaning "use
// the current stack / RSP0 on privilege change" rather than a dedicated
// IST stack.
func (t *Table) IST(v uint8) uint8 {
	return t.entries[v].istAndZero & 0x7
}

// descriptorTablePointer matches the LIDT operand.
type descriptorTablePointer struct {
	limit uint16
	base  uint64
}

//go:noescape
func lidt(ptr unsafe.Pointer)

// Load installs the table as the active IDT.
func (t *Table) Load() {
	dtp := descriptorTablePointer{
		limit: uint16(unsafe.Sizeof(t.entries)) - 1,
		base:  uint64(uintptr(unsafe.Pointer(&t.entries[0]))),
	}
	lidt(unsafe.Pointer(&dtp))
}

// Build installs every gate spec §4.1 requires. codeSelector is the
// kernel code selector (gdt.KernelCodeSelector()); handlers are the
// addresses of the assembly trampolines in isr_amd64.s, resolved via
// trampolineAddr so this package stays the single place vector wiring is
// decided.
func Build(codeSelector uint16) *Table {
	t := &Table{}
	t.SetGate(VecBreakpoint, trampolineAddr(VecBreakpoint), codeSelector, 0, 0)
	t.SetGate(VecDoubleFault, trampolineAddr(VecDoubleFault), codeSelector, 0, doubleFaultISTSlot)
	t.SetGate(VecGeneralProtect, trampolineAddr(VecGeneralProtect), codeSelector, 0, 0)
	t.SetGate(VecPageFault, trampolineAddr(VecPageFault), codeSelector, 0, 0)
	t.SetGate(VecTimer, trampolineAddr(VecTimer), codeSelector, 0, 0)
	t.SetGate(VecKeyboard, trampolineAddr(VecKeyboard), codeSelector, 0, 0)
	t.SetGate(VecCOM1, trampolineAddr(VecCOM1), codeSelector, 0, 0)
	t.SetGate(VecMouse, trampolineAddr(VecMouse), codeSelector, 0, 0)
	t.SetGate(VecSyscall, trampolineAddr(VecSyscall), codeSelector, 3, 0)
	return t
}
