// Package bootcfg centralizes Chronos's layout and tuning constants in one
// place, the way the teacher's lib/loader/mem_layout.go centralizes its
// address-space layout rather than scattering magic numbers across files.
package bootcfg

const (
	// InitialCycleBudget is the global cycle-budget default; user
	// keystrokes '+'/'-' shift it by CycleBudgetStep.
	InitialCycleBudget uint64 = 5_000_000
	CycleBudgetStep    uint64 = 1_000_000
	MinCycleBudget     uint64 = 1

	// HeapSize is the size of the single reserved heap region.
	HeapSize = 32 * 1024 * 1024

	// UserCodeVA is the fixed virtual address user binaries are mapped
	// at, per the shell's `run`/`rundisk` commands.
	UserCodeVA   uintptr = 0x0040_0000
	UserStackVA  uintptr = 0x0060_0000
	UserStackLen uintptr = 4096
	UserMaxSize  uintptr = 16 * 1024 * 1024

	// FlatBinaryPrologue is the optional header size skipped before the
	// entry point of a flat (non-ELF) user binary.
	FlatBinaryPrologue = 0x80

	// Default window geometry used by `term`.
	DefaultWindowW = 400
	DefaultWindowH = 300
	TitleBarHeight = 20

	// KeyboardFIFOCapacity / MouseFIFOCapacity bound the input queues;
	// overflow drops the newest event (spec open question resolved as
	// drop-newest, matching the keyboard FIFO policy).
	KeyboardFIFOCapacity = 256
	MouseFIFOCapacity    = 256

	// SchedulerMaxTasks caps the scheduler's task list; sched.List.Add
	// rejects a task beyond it with SchedulerFull.
	SchedulerMaxTasks = 64

	// KernelStack0Size backs the TSS's RSP0, loaded on every ring3->ring0
	// transition; DoubleFaultStackSize backs IST1, the double fault
	// handler's dedicated stack (spec §4.1).
	KernelStack0Size     = 16 * 1024
	DoubleFaultStackSize = 16 * 1024

	// DefaultTaskBudget seeds every new task's audited cycle budget before
	// the shell's cycle-budget keys ever adjust it (the per-task Budget
	// field, distinct from shell.CycleBudget's process-wide value).
	DefaultTaskBudget uint64 = 2_000_000
)

// Defaults describes the boot-time-overridable subset of the above,
// mirroring the teacher's boot_params.go pattern of a struct the bootstrap
// code can adjust from a kernel command line module before subsystems
// initialize. Fields default to the constants above.
type Defaults struct {
	InitialCycleBudget uint64
	HeapSize           uintptr
}

func NewDefaults() Defaults {
	return Defaults{
		InitialCycleBudget: InitialCycleBudget,
		HeapSize:           HeapSize,
	}
}
