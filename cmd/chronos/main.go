// Command chronos is the kernel's entry point: a plain func main compiled
// for bare metal, the same shape the teacher's src/joy/main.go boots from,
// rather than a hand-written assembly stub calling into a kmain. Limine
// loads this binary, fills in the four request structs below, and jumps
// here directly.
package main

import (
	"unsafe"

	"chronos/internal/ata"
	"chronos/internal/bootcfg"
	"chronos/internal/bootinfo"
	"chronos/internal/compositor"
	"chronos/internal/fat32"
	"chronos/internal/gdt"
	"chronos/internal/heap"
	"chronos/internal/idt"
	"chronos/internal/input"
	"chronos/internal/ioport"
	"chronos/internal/kerr"
	"chronos/internal/limine"
	"chronos/internal/paging"
	"chronos/internal/pic"
	"chronos/internal/ramfs"
	"chronos/internal/rtc"
	"chronos/internal/sched"
	"chronos/internal/shell"
	"chronos/internal/syscall"
	"chronos/internal/trust"
)

// The linker script (outside this package's scope) places these four
// values in the `.limine_requests` section, where the bootloader's
// scanner finds them by magic number before jumping to main.
var (
	framebufferRequest = limine.NewFramebufferRequest()
	hhdmRequest        = limine.NewHHDMRequest()
	memmapRequest      = limine.NewMemmapRequest()
	moduleRequest      = limine.NewModuleRequest()
)

// kernelStack0 and doubleFaultStack are static BSS storage for the two
// stacks the GDT/TSS needs before the heap exists to allocate them from —
// RSP0 for every ring3->ring0 transition and IST1 for the double-fault
// handler (spec §4.1).
var (
	kernelStack0     [bootcfg.KernelStack0Size]byte
	doubleFaultStack [bootcfg.DoubleFaultStackSize]byte
)

//go:noescape
func readCR3() uintptr

//go:noescape
func enableInterrupts()

func stackTop(buf []byte) uintptr {
	return uintptr(unsafe.Pointer(&buf[0])) + uintptr(len(buf))
}

func main() {
	trust.SetSink(newCOM1Serial())
	trust.Infof("chronos: boot")

	handover := limine.BuildHandover(framebufferRequest, hhdmRequest, memmapRequest, moduleRequest)

	gdtTable := gdt.New(stackTop(kernelStack0[:]), stackTop(doubleFaultStack[:]))
	gdtTable.Load()

	idtTable := idt.Build(gdt.KernelCodeSelector())

	picController := pic.New(picBus{})
	dispatcher := idt.NewDispatcher(picController)
	dispatcher.HaltOnKernelFault = func(f *idt.Frame) {
		trust.Fatalf("unrecoverable fault vector=%d rip=%#x error=%#x", f.Vector, f.RIP, f.ErrorCode)
	}

	tasks := sched.NewList()
	registerExceptionHandlers(dispatcher, tasks)

	pipeline := input.NewPipeline()
	registerIRQHandlers(dispatcher, pipeline)

	idtTable.Load()
	picController.Remap()

	usable := handover.UsableRegions(bootcfg.HeapSize)
	if len(usable) == 0 {
		trust.Fatalf("chronos: no usable memory region at least %d bytes", bootcfg.HeapSize)
	}
	kernelHeap := heap.New(handover.HHDMOffset+usable[0].Base, bootcfg.HeapSize, handover.HHDMOffset)

	mapper := paging.New(handover.HHDMOffset, readCR3(), kernelHeap)

	sink := compositor.NewVRAMSink(handover.Framebuffer)
	windows := compositor.New(sink)
	windows.SetClock(rtc.New(ioport.Bus{}))

	var disk shell.Disk
	if reader, code := fat32.Mount(ata.New(ioport.Bus{})); code == kerr.None {
		disk = reader
		trust.Infof("chronos: fat32 disk mounted")
	} else {
		trust.Warnf("chronos: no disk mounted: %v", code)
	}

	fs := ramfs.New()
	preloadBootModules(fs, handover)

	budget := shell.NewCycleBudget()
	runner := newModuleRunner(mapper, tasks)
	router := shell.NewRouter(windows, pipeline, fs, disk, runner, tasks, budget)

	readUser := func(ptr, length uintptr) []byte {
		src := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), int(length))
		out := make([]byte, length)
		copy(out, src)
		return out
	}
	syscallDispatcher := syscall.NewDispatcher(tasks, router, runner, readUser)
	dispatcher.SetSyscallHandler(func(f *idt.Frame) {
		t := tasks.CurrentTask()
		if t == nil {
			trust.Warnf("chronos: syscall trap with no current task")
			return
		}
		syscallDispatcher.Handle(f, t.ID(), t)
	})

	if _, code := windows.AddWindow("chronos", 40, 40, bootcfg.DefaultWindowW, bootcfg.DefaultWindowH); code != kerr.None {
		trust.Warnf("chronos: could not open initial window: %v", code)
	}

	enableInterrupts()
	trust.Infof("chronos: entering main loop")

	for {
		router.DrainFrame()
		tasks.RunFrame()
		windows.RenderFrame()
	}
}

// preloadBootModules copies every module the bootloader staged into the
// RAM filesystem, so `run NAME` finds a boot-staged binary the same way it
// finds one the user `write`s in from the shell.
func preloadBootModules(fs *ramfs.FS, handover *bootinfo.Handover) {
	for _, m := range handover.Modules {
		data := unsafe.Slice((*byte)(unsafe.Pointer(handover.HHDMOffset+m.Base)), int(m.Size))
		if code := fs.Write(m.Name, data); code != kerr.None {
			trust.Warnf("chronos: could not stage boot module %q: %v", m.Name, code)
		}
	}
}

// registerExceptionHandlers installs the small set of CPU exception
// handlers spec §4.1 calls out by name. A fault trapped from ring 3 is
// contained by exiting the offending task; a fault trapped from ring 0 is
// always fatal (Dispatcher.dispatch enforces this by consulting
// HaltOnKernelFault when a handler returns false). An exception vector
// with no handler registered at all is only logged, not halted on.
func registerExceptionHandlers(d *idt.Dispatcher, tasks *sched.List) {
	d.RegisterException(idt.VecBreakpoint, func(f *idt.Frame) bool {
		trust.Debugf("breakpoint at rip=%#x", f.RIP)
		return true
	})
	d.RegisterException(idt.VecGeneralProtect, func(f *idt.Frame) bool {
		trust.Errorf("general protection fault rip=%#x error=%#x", f.RIP, f.ErrorCode)
		return containCurrentTask(f, tasks)
	})
	d.RegisterException(idt.VecPageFault, func(f *idt.Frame) bool {
		reason := idt.DecodePageFaultError(f.ErrorCode)
		trust.Errorf("page fault rip=%#x present=%v write=%v user=%v", f.RIP, reason.Present, reason.Write, reason.User)
		return containCurrentTask(f, tasks)
	})
	d.RegisterException(idt.VecDoubleFault, func(f *idt.Frame) bool {
		trust.Errorf("double fault rip=%#x", f.RIP)
		return false
	})
}

// containCurrentTask exits the task that was running when a ring-3 fault
// trapped, and reports the fault as contained; a fault trapped from ring 0
// is never contained regardless of what tasks.CurrentTask returns; it
// belongs to the kernel itself, not to whatever user task last ran.
func containCurrentTask(f *idt.Frame, tasks *sched.List) bool {
	if !f.FromUserMode() {
		return false
	}
	if t := tasks.CurrentTask(); t != nil {
		t.MarkExited()
	}
	return true
}

// registerIRQHandlers wires the keyboard, mouse, and COM1 interrupt lines
// to the input pipeline. Both PS/2 devices share port 0x60 for their data
// byte; the PIC routes IRQ1 (keyboard) and IRQ12 (mouse) to distinct
// vectors, so which device the byte came from is determined by which
// vector fired. COM1's line is chronoscope's console: bytes typed on the
// host arrive here already as ASCII, so they're pushed straight into the
// keyboard FIFO rather than through scancode decoding.
func registerIRQHandlers(d *idt.Dispatcher, pipeline *input.Pipeline) {
	var bus ioport.Bus
	d.RegisterIRQ(idt.VecKeyboard, func(f *idt.Frame) {
		pipeline.HandleScancode(bus.In8(0x60))
	})
	d.RegisterIRQ(idt.VecMouse, func(f *idt.Frame) {
		pipeline.HandleMouseByte(bus.In8(0x60))
	})
	d.RegisterIRQ(idt.VecCOM1, func(f *idt.Frame) {
		if code := pipeline.PushKeyboardOrErr(bus.In8(com1Port)); code != kerr.None {
			trust.Warnf("chronos: dropped chronoscope byte: %v", code)
		}
	})
}
