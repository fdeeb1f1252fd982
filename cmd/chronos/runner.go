package main

import (
	"sync"

	"chronos/internal/bootcfg"
	"chronos/internal/gdt"
	"chronos/internal/kerr"
	"chronos/internal/loader"
	"chronos/internal/paging"
	"chronos/internal/sched"
)

// userRange records the code and stack extents MapFreshUser installed for
// one task, so a later PRINT syscall can be bounds-checked against exactly
// the memory that task owns (spec §4.2) without granting it the whole
// address space.
type userRange struct {
	codeBase, codeLen   uintptr
	stackBase, stackLen uintptr
}

// moduleRunner implements shell.Runner and syscall.UserRange: the same
// object that maps a binary in also knows what it mapped, so the syscall
// gate's bounds check and the shell's `run`/`rundisk` commands share one
// source of truth instead of two structures drifting apart.
type moduleRunner struct {
	mapper *paging.Mapper
	tasks  *sched.List

	mu     sync.Mutex
	ranges map[uint32]userRange
}

func newModuleRunner(mapper *paging.Mapper, tasks *sched.List) *moduleRunner {
	return &moduleRunner{mapper: mapper, tasks: tasks, ranges: make(map[uint32]userRange)}
}

// RunModule maps data at the fixed user code/stack addresses and adds a
// new ring-3 task to run it (spec §4.2/§4.3). background is not threaded
// any further: this scheduler has no foreground/background distinction
// beyond "in the task list or not" (session.go's cmdRun carries the same
// reasoning for its own fromDisk parameter of the same shape).
func (r *moduleRunner) RunModule(data []byte, background bool) kerr.Code {
	img, code := loader.Load(data)
	if code != kerr.None {
		return code
	}

	codeVA := bootcfg.UserCodeVA
	stackVA := bootcfg.UserStackVA

	dst, code := r.mapper.MapFreshUser(codeVA, uintptr(len(img.Bytes)))
	if code != kerr.None {
		return code
	}
	copy(dst, img.Bytes)

	if _, code := r.mapper.MapFreshUser(stackVA, bootcfg.UserStackLen); code != kerr.None {
		return code
	}

	id := r.tasks.NextID()
	r.mu.Lock()
	r.ranges[id] = userRange{codeBase: codeVA, codeLen: uintptr(len(img.Bytes)), stackBase: stackVA, stackLen: bootcfg.UserStackLen}
	r.mu.Unlock()

	entry := codeVA + img.EntryOffset
	task := sched.NewUserProcess(id, "user", bootcfg.DefaultTaskBudget, stackVA, bootcfg.UserStackLen, entry,
		gdt.UserCodeSelector(), gdt.UserDataSelector())
	return r.tasks.Add(task)
}

// Contains satisfies syscall.UserRange: ptr..ptr+length must lie entirely
// within either the code or stack region this runner mapped for taskID.
// An unknown taskID (a caller PRINT-ing after its own record was reaped,
// or a kernel-mode task that never went through RunModule) always fails
// closed.
func (r *moduleRunner) Contains(taskID uint32, ptr, length uintptr) bool {
	r.mu.Lock()
	cr, ok := r.ranges[taskID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	end := ptr + length
	if end < ptr {
		return false // overflow
	}
	if ptr >= cr.codeBase && end <= cr.codeBase+cr.codeLen {
		return true
	}
	if ptr >= cr.stackBase && end <= cr.stackBase+cr.stackLen {
		return true
	}
	return false
}
