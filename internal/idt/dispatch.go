package idt

import (
	"unsafe"

	"chronos/internal/trust"
)

// rawFramePtr is written by the assembly trampoline's common tail with the
// address of the Frame it just built on the trap stack, then trapEntry is
// called with no arguments. Passing data this way (a known symbol instead
// of a register/stack argument) sidesteps depending on Go's internal amd64
// calling convention inside hand-written assembly, the same sidestep the
// teacher takes by giving its raw_exception_handler a fixed, simple
// parameter list filled in by the bootloader-provided trampoline rather
// than a hand-rolled ABI.
var rawFramePtr uintptr

// ExceptionHandler handles a CPU exception. It returns true if the fault
// was contained (the offending process should simply be removed) and
// false if the fault is kernel-fatal and the machine must halt.
type ExceptionHandler func(f *Frame) (contained bool)

// IRQHandler handles a hardware interrupt. It must not block and must
// never itself call EndOfInterrupt — Dispatcher.dispatch does that once, after the
// handler returns, so a handler can never forget it (spec §4.1).
type IRQHandler func(f *Frame)

// SyscallHandler handles the vector-128 software interrupt. It reads the
// operation and argument registers from f and writes the return value
// back into f.RAX.
type SyscallHandler func(f *Frame)

// EOINotifier abstracts the PIC's end-of-interrupt call so this package
// does not import package pic directly; NewDispatcher binds it.
type EOINotifier interface {
	EndOfInterrupt(vector uint8)
}

// Dispatcher routes trapEntry callbacks from the assembly trampolines to
// the Go handlers the kernel registers at boot. There is exactly one
// Dispatcher per kernel, installed as the package-level active instance
// because the assembly trampolines have no way to carry a receiver.
type Dispatcher struct {
	exceptions [256]ExceptionHandler
	irqs       [256]IRQHandler
	syscall    SyscallHandler
	eoi        EOINotifier
	// HaltOnKernelFault is called when an exception handler reports the
	// fault as not contained while the trapped context was in ring 0.
	HaltOnKernelFault func(f *Frame)
}

var active *Dispatcher

// NewDispatcher creates a Dispatcher and makes it the one the assembly
// trampolines call into.
func NewDispatcher(eoi EOINotifier) *Dispatcher {
	d := &Dispatcher{eoi: eoi}
	active = d
	return d
}

func (d *Dispatcher) RegisterException(vector uint8, h ExceptionHandler) {
	d.exceptions[vector] = h
}

func (d *Dispatcher) RegisterIRQ(vector uint8, h IRQHandler) {
	d.irqs[vector] = h
}

func (d *Dispatcher) SetSyscallHandler(h SyscallHandler) {
	d.syscall = h
}

// trapEntry is called by every assembly trampoline after it stashes the
// just-saved Frame's address in rawFramePtr. It is the single Go-side
// chokepoint, mirroring the teacher's raw_exception_handler entry point.
func trapEntry() {
	f := (*Frame)(unsafe.Pointer(rawFramePtr))
	if active == nil {
		trust.Fatalf("trap on vector %d before Dispatcher installed", f.Vector)
		return
	}
	active.dispatch(f)
}

func (d *Dispatcher) dispatch(f *Frame) {
	v := uint8(f.Vector)
	switch {
	case v == VecSyscall:
		if d.syscall != nil {
			d.syscall(f)
		}
		return
	case v < 32:
		if h := d.exceptions[v]; h != nil {
			if !h(f) && !f.FromUserMode() {
				if d.HaltOnKernelFault != nil {
					d.HaltOnKernelFault(f)
				}
				trust.Fatalf("unrecoverable kernel exception, vector %d", v)
			}
		} else {
			trust.Errorf("unhandled exception vector %d, error=%#x", v, f.ErrorCode)
		}
		return
	default:
		if h := d.irqs[v]; h != nil {
			h(f)
		}
		if d.eoi != nil {
			d.eoi.EndOfInterrupt(v)
		}
	}
}
