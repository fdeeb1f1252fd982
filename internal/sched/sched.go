package sched

import (
	"sync"
	"unsafe"

	"chronos/internal/bootcfg"
	"chronos/internal/kerr"
)

// List is the scheduler's ordered task list. Insertion appends; removal
// preserves order; there is no priority field (spec §4.4: budget is
// advisory, never a scheduling weight). Held behind one lock, which must
// be released before acquiring the shell lock — the deadlock-prevention
// rule in spec §5.
type List struct {
	mu       sync.Mutex
	tasks    []*Task
	nextID   uint32
	ownRSP   uintptr // the scheduler's own stack pointer slot, switched out of/into when running a stack task
	runFrame uint64  // monotonically increasing count of RunFrame passes; task ids come from nextID

	current *Task // the stack-switching task presently resumed, if any; read by the syscall dispatcher to attribute a trap
}

// CurrentTask reports the task presently resumed via switchContext, so the
// syscall gate's trap handler (which only ever fires while a stack-switching
// task is running) knows which task to charge EXIT/YIELD/PRINT against.
func (l *List) CurrentTask() *Task {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

func NewList() *List {
	return &List{}
}

// Add appends a task to the end of the list (spec §4.4: "insertion
// appends").
func (l *List) Add(t *Task) kerr.Code {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.tasks) >= bootcfg.SchedulerMaxTasks {
		return kerr.New(kerr.Scheduler, kerr.SchedulerFull)
	}
	l.tasks = append(l.tasks, t)
	return kerr.None
}

// NextID hands out a monotonically increasing task id; callers building a
// Task via NewAudited/NewKernelProcess/NewUserProcess pass it in so the id
// is known before the task is added (needed to forge EntryPoint-carrying
// syscall state that refers back to the owning task).
func (l *List) NextID() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	return l.nextID
}

// Remove deletes the task with the given id, preserving the order of the
// remainder (spec §4.4: "removal preserves order"). The EXIT syscall and
// the page-fault handler's containment path do not call it: they mark the
// task exited and RunFrame reaps it.
func (l *List) Remove(id uint32) kerr.Code {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, t := range l.tasks {
		if t.id == id {
			l.tasks = append(l.tasks[:i:i], l.tasks[i+1:]...)
			return kerr.None
		}
	}
	return errNotFound
}

func (l *List) reapExited() {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.tasks[:0:0]
	for _, t := range l.tasks {
		if !t.exited {
			kept = append(kept, t)
		}
	}
	l.tasks = kept
}

// TaskView is a read-only snapshot row, what `top` and property tests
// see — the mutable backing slice is never exposed directly, matching the
// teacher's TaskListImpl pattern of a fixed internal array behind a
// narrow public surface.
type TaskView struct {
	ID       uint32
	Name     string
	Kind     Kind
	Budget   uint64
	LastCost uint64
	Status   Status
}

func (l *List) Snapshot() []TaskView {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]TaskView, len(l.tasks))
	for i, t := range l.tasks {
		out[i] = TaskView{t.id, t.Name, t.Kind, t.Budget, t.LastCost, t.Status}
	}
	return out
}

// RDTSC reads the CPU's timestamp counter; swapped out in tests for a
// deterministic fake clock.
var RDTSC = rdtsc

// RunFrame executes every task in list order, fully serialized (spec §5):
// audited jobs run to completion directly; stack-switching processes are
// resumed with one context-switch round trip, which returns here only
// once that process yields (syscall 0) or is about to exit (syscall 2
// marks it exited first). Tasks that exited during this frame are reaped
// before the next frame begins, never mid-iteration.
func (l *List) RunFrame() {
	l.mu.Lock()
	snapshot := make([]*Task, len(l.tasks))
	copy(snapshot, l.tasks)
	l.mu.Unlock()

	for _, t := range snapshot {
		if t.exited {
			continue
		}
		start := RDTSC()
		switch t.Kind {
		case KindAudited:
			if t.job != nil {
				t.job()
			}
		case KindKernelStack:
			l.mu.Lock()
			l.current = t
			l.mu.Unlock()
			switchContext(&l.ownRSP, t.SavedRSP)
			l.mu.Lock()
			l.current = nil
			l.mu.Unlock()
		case KindUserStack:
			l.mu.Lock()
			l.current = t
			l.mu.Unlock()
			if !t.started {
				t.started = true
				enterUserFrame(&l.ownRSP, uintptr(unsafe.Pointer(&t.entryFrame)))
			} else {
				switchContext(&l.ownRSP, t.SavedRSP)
			}
			l.mu.Lock()
			l.current = nil
			l.mu.Unlock()
		}
		cost := RDTSC() - start
		t.applyAudit(cost)
	}
	l.runFrame++
	l.reapExited()
}

// Yield is called from within a running stack-switching task (via the
// YIELD or EXIT syscall handler) to hand control back to RunFrame for
// this tick. It records the caller's new SavedRSP itself, via the same
// primitive RunFrame used to switch in, so the round trip is symmetric.
// Audited tasks never went through switchContext to begin with, and a
// call arriving before RunFrame has ever switched into a stack task has
// nothing to switch back to (l.ownRSP is only ever set by RunFrame's own
// switchContext or enterUserFrame call) — both are a safe no-op rather than a jump into
// whatever garbage l.ownRSP happens to hold.
func (l *List) Yield(t *Task) {
	if t.Kind == KindAudited || l.ownRSP == 0 {
		return
	}
	switchContext(&t.SavedRSP, l.ownRSP)
}

// switchContext is the opaque context-switch primitive (switch_amd64.s,
// spec §4.4/§9): it pushes the caller's full GPR state, stores the
// resulting stack pointer at *out, loads in as the new stack pointer, pops
// the GPR state the new stack's last switch-out (or forgeStack) left
// there, and returns — which resumes whatever instruction follows the
// matching switchContext call on the other side, or a freshly forged
// task's entry point.
//
//go:noescape
func switchContext(out *uintptr, in uintptr)

// enterUserFrame (enter_user_amd64.s) is switchContext's save half
// paired with an IRETQ instead of a RET: it raises privilege to ring 3 by
// loading framePtr's forged idt.Frame and returning from it as if from a
// trap that never happened. Used only for a KindUserStack task's first
// dispatch; every dispatch after that goes through switchContext like any
// other stack task.
//
//go:noescape
func enterUserFrame(out *uintptr, framePtr uintptr)
