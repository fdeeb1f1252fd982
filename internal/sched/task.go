// Package sched implements Chronos's audited, cooperative scheduler and
// the stack-switching process model it evolves into (spec §4.4). A Task
// is always a concrete tagged union, never an interface — design note §9
// rules out dynamic dispatch in the hot path so the per-frame cost stays
// predictable, mirroring the teacher's concrete TaskImpl/family structs
// (src/joy/task.go, family.go) and the forged-stack technique from
// Nonepf-xv6-in-go's scheduler (allocProc's context.ra pointed at
// GetTaskStubAddr/TaskStub, the same "return into a fixed entry" trick
// forgeStack below uses), extended here with the audit/budget bookkeeping
// from original_source's scheduler.rs.
package sched

import (
	"unsafe"

	"chronos/internal/idt"
	"chronos/internal/kerr"
)

func ptr(addr uintptr) unsafe.Pointer { return unsafe.Pointer(addr) }

// Kind tags which of the two execution models a Task uses.
type Kind int

const (
	KindAudited Kind = iota
	KindKernelStack
	KindUserStack
)

// Status is the outcome of a task's most recent tick.
type Status int

const (
	Waiting Status = iota
	Success
	Failure
)

func (s Status) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "unknown"
	}
}

// Job is a side-effect-producing action run in kernel mode, for the
// audited model.
type Job func()

// Task is the scheduler's single concrete unit of work.
type Task struct {
	id     uint32
	Name   string
	Kind   Kind
	Budget uint64

	LastCost uint64
	Status   Status

	// KindAudited only.
	job Job

	// KindKernelStack / KindUserStack only. StackBase/StackLen describe
	// the owned stack allocation (reaping the task does not free it);
	// SavedRSP is updated by every context switch out of this task.
	StackBase uintptr
	StackLen  uintptr
	SavedRSP  uintptr

	// KindUserStack only. entryFrame is the forged interrupt-return frame
	// enterUserFrame IRETQs into on this task's first dispatch, laid out
	// exactly like idt.Frame because that assembly reuses idt's own
	// pop-then-IRETQ tail; started flips true the moment that first
	// dispatch happens, after which the task behaves like any other
	// stack-switching task and resumes through SavedRSP/switchContext.
	EntryPoint uintptr
	entryFrame idt.Frame
	started    bool
	exited     bool
}

// ID returns the task's scheduler-assigned identity, the id syscall and
// fault logging report for this task.
func (t *Task) ID() uint32 { return t.id }

// MarkExited flags a stack-switching task as done; the scheduler removes
// it on its next pass rather than mutating the list mid-iteration.
func (t *Task) MarkExited() { t.exited = true }

func (t *Task) Exited() bool { return t.exited }

// registerSaveWords is how many 8-byte GPR slots switchContext pushes and
// pops; the forged initial stack must reserve exactly this many zeroed
// words below the entry-point return address (spec §4.4, §9 "forged
// stack").
const registerSaveWords = 15

// forgeStack writes the initial stack image a never-run stack-switching
// task needs: the entry address as if an earlier switchContext had just
// pushed a return address, and below it a zeroed register-save area
// matching switchContext's exact push order (switch_amd64.s). The
// first switch into this task then "returns" into entry.
func forgeStack(base uintptr, length uintptr, entry uintptr) uintptr {
	top := (base + length) &^ 0xf // 16-byte align
	retSlot := top - 8
	*(*uintptr)(ptr(retSlot)) = entry

	savedRSP := retSlot - registerSaveWords*8
	for i := 0; i < registerSaveWords; i++ {
		*(*uintptr)(ptr(savedRSP + uintptr(i)*8)) = 0
	}
	return savedRSP
}

// NewAudited creates a KindAudited task: its job runs to completion every
// tick with no context switch, the degenerate "kernel task with no user
// stack" case design note §9 allows.
func NewAudited(id uint32, name string, budget uint64, job Job) *Task {
	return &Task{id: id, Name: name, Kind: KindAudited, Budget: budget, job: job}
}

// NewKernelProcess forges a stack-switching task that runs entry in ring 0.
func NewKernelProcess(id uint32, name string, budget uint64, stackBase, stackLen uintptr, entry uintptr) *Task {
	t := &Task{id: id, Name: name, Kind: KindKernelStack, Budget: budget,
		StackBase: stackBase, StackLen: stackLen, EntryPoint: entry}
	t.SavedRSP = forgeStack(stackBase, stackLen, entry)
	return t
}

// NewUserProcess forges a task that will run entry in ring 3, not ring 0.
// Unlike NewKernelProcess it does not forge a stack switchContext's RET can
// resume: raising CPL from 0 to 3 needs IRETQ, not RET, so SavedRSP starts
// at zero and List.RunFrame's first dispatch of this task instead goes
// through enterUserFrame, which loads entryFrame as an interrupt-return
// frame — RIP at entry, CS/SS carrying RPL 3, RSP at the top of the task's
// own stack — the same shape idt/isr_amd64.s's commonTrapTail already
// IRETQs out of on every ordinary trap return, borrowed here to manufacture
// the machine's very first ring-3 entry instead of resuming from one.
// Every dispatch after the task's first one behaves like any other stack
// task, resuming through the ordinary SavedRSP/switchContext path, because
// by then SavedRSP holds a real continuation a genuine YIELD or EXIT trap
// captured. The caller is responsible for having already marked the stack
// and code pages user-accessible (paging.MarkUser) before this task is
// ever switched into, per spec §4.2/§4.3.
func NewUserProcess(id uint32, name string, budget uint64, stackBase, stackLen uintptr, entry uintptr, codeSelector, dataSelector uint16) *Task {
	t := &Task{id: id, Name: name, Kind: KindUserStack, Budget: budget,
		StackBase: stackBase, StackLen: stackLen, EntryPoint: entry}
	t.entryFrame = idt.Frame{
		RIP:    uint64(entry),
		CS:     uint64(codeSelector),
		RFlags: idt.RFlagsInterruptEnable,
		RSP:    uint64((stackBase + stackLen) &^ 0xf),
		SS:     uint64(dataSelector),
	}
	return t
}

// applyAudit records cost against budget and sets Status, per spec §4.4's
// universal audit semantics: it applies identically whether cost came
// from running a Job directly or from a full context-switch round trip.
func (t *Task) applyAudit(cost uint64) {
	t.LastCost = cost
	if cost <= t.Budget {
		t.Status = Success
	} else {
		t.Status = Failure
	}
}

// errNotFound is returned by List operations that look a task up by id.
var errNotFound = kerr.New(kerr.Scheduler, kerr.SchedulerNotFound)
