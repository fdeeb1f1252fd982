package idt

import "unsafe"

// The nine assembly trampolines this package wires into the table. Each
// is a bodyless Go func backed by a hand-written TEXT block in
// isr_amd64.s; funcPC recovers the raw code address from a Go func value,
// the same trick used throughout the retrieval pack's bare-metal kernels
// (e.g. a scheduler's NewTask(entry func())) to turn a function value into
// something an assembly context switch or, here, an IDT gate, can jump to
// directly.
func isrBreakpoint()
func isrDoubleFault()
func isrGeneralProtect()
func isrPageFault()
func isrTimer()
func isrKeyboard()
func isrMouse()
func isrCOM1()
func isrSyscall()

func trampolineAddr(vector uint8) uintptr {
	switch vector {
	case VecBreakpoint:
		return funcPC(isrBreakpoint)
	case VecDoubleFault:
		return funcPC(isrDoubleFault)
	case VecGeneralProtect:
		return funcPC(isrGeneralProtect)
	case VecPageFault:
		return funcPC(isrPageFault)
	case VecTimer:
		return funcPC(isrTimer)
	case VecKeyboard:
		return funcPC(isrKeyboard)
	case VecMouse:
		return funcPC(isrMouse)
	case VecCOM1:
		return funcPC(isrCOM1)
	case VecSyscall:
		return funcPC(isrSyscall)
	default:
		return 0
	}
}

func funcPC(fn func()) uintptr {
	if fn == nil {
		return 0
	}
	fnVal := *(*uintptr)(unsafe.Pointer(&fn))
	if fnVal == 0 {
		return 0
	}
	return *(*uintptr)(unsafe.Pointer(fnVal))
}
