// Package syscall implements the software-interrupt syscall gate's
// dispatcher (spec §4.2): the three-operation ABI (YIELD=0, PRINT=1,
// EXIT=2) read straight out of the trapped idt.Frame's System V argument
// registers, the same Frame/Registers layout gopher-os's gate_amd64.go
// documents for its own interrupt gate entrypoints.
package syscall

import (
	"chronos/internal/idt"
	"chronos/internal/kerr"
	"chronos/internal/sched"
	"chronos/internal/trust"
)

const (
	OpYield = 0
	OpPrint = 1
	OpExit  = 2
)

// Printer is the active shell's write sink for syscall PRINT; decoupled
// from any concrete shell type so this package never imports internal/shell.
type Printer interface {
	Write(p []byte)
}

// UserRange validates that [ptr, ptr+len) lies entirely inside a caller's
// mapped user region, the bounds check PRINT must perform before touching
// caller memory (spec §4.2). cmd/chronos wires this to the loader's
// recorded per-task mapping.
type UserRange interface {
	Contains(taskID uint32, ptr, length uintptr) bool
}

// ReadUser copies length bytes starting at ptr out of the kernel's own
// address space (valid because paging is a single shared address space —
// spec's non-goal list excludes inter-process memory protection) into a
// fresh slice, for Dispatcher.handlePrint to hand to Printer.
type ReadUser func(ptr, length uintptr) []byte

// Dispatcher wires the syscall table to the scheduler (for EXIT/YIELD) and
// to the active shell (for PRINT). It holds no lock of its own: EXIT/YIELD
// only touch the scheduler's own list lock, and PRINT only touches
// whatever lock Printer.Write takes internally.
type Dispatcher struct {
	tasks    *sched.List
	printer  Printer
	ranges   UserRange
	readUser ReadUser
}

func NewDispatcher(tasks *sched.List, printer Printer, ranges UserRange, readUser ReadUser) *Dispatcher {
	return &Dispatcher{tasks: tasks, printer: printer, ranges: ranges, readUser: readUser}
}

// Handle is installed as the idt.Dispatcher's SyscallHandler. It reads the
// operation number from RAX and the three argument registers (RDI, RSI,
// RDX, per spec §6's ABI table), executes in ring 0, and writes the return
// value back into RAX before returning — the syscall ABI contract exactly.
func (d *Dispatcher) Handle(f *idt.Frame, callerID uint32, callerTask *sched.Task) {
	switch f.RAX {
	case OpYield:
		d.tasks.Yield(callerTask)
		f.RAX = 0
	case OpPrint:
		if code := d.handlePrint(callerID, f.RDI, f.RSI); code != kerr.None {
			f.RAX = uint64(code)
			d.terminate(callerID, callerTask, code)
		} else {
			f.RAX = 0
		}
	case OpExit:
		callerTask.MarkExited()
		d.tasks.Yield(callerTask)
		f.RAX = 0
	default:
		d.terminate(callerID, callerTask, kerr.New(kerr.Syscall, kerr.SyscallBadOperation))
	}
}

// handlePrint bounds-checks (ptr, len) against the caller's known mapping
// and, on success, writes those bytes to the active shell. A failed bounds
// check reports SyscallOutOfRange to Handle, which terminates the caller —
// never the kernel (spec §4.2, §7): an out-of-range PRINT pointer is the
// caller's bug, not grounds for the kernel to trust it further.
func (d *Dispatcher) handlePrint(callerID uint32, ptr, length uint64) kerr.Code {
	if d.ranges != nil && !d.ranges.Contains(callerID, uintptr(ptr), uintptr(length)) {
		return kerr.New(kerr.Syscall, kerr.SyscallOutOfRange)
	}
	if d.printer == nil || d.readUser == nil {
		return kerr.New(kerr.Syscall, kerr.SyscallOutOfRange)
	}
	d.printer.Write(d.readUser(uintptr(ptr), uintptr(length)))
	return kerr.None
}

// terminate marks callerTask exited and, like OpExit, hands control back
// to the scheduler via Yield: a terminated task must never resume, and
// falling through to the ISR's IRETQ instead of yielding would resume it
// anyway (the same hang the OpExit fix closes).
func (d *Dispatcher) terminate(callerID uint32, callerTask *sched.Task, reason kerr.Code) {
	trust.Warnf("syscall: terminating task %d: %v", callerID, reason)
	callerTask.MarkExited()
	d.tasks.Yield(callerTask)
}
