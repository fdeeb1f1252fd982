package shell

import (
	"chronos/internal/compositor"
	"chronos/internal/input"
	"chronos/internal/kerr"
	"chronos/internal/ramfs"
	"chronos/internal/sched"
)

// Router is the kernel task spec §4.5 describes: "a kernel task drains both
// FIFOs per frame." It owns no locks of its own beyond what compositor.Manager
// and input.Pipeline already provide, and it never holds the compositor
// writer lock while calling into a Session — ActiveWindowID and Window both
// return after releasing mu, satisfying the deadlock-prevention rule spec
// §5 states.
type Router struct {
	windows *compositor.Manager
	pipe    *input.Pipeline
	fs      *ramfs.FS
	disk    Disk
	runner  Runner
	tasks   *sched.List
	budget  *CycleBudget

	sessions map[uint32]*Session
}

func NewRouter(windows *compositor.Manager, pipe *input.Pipeline, fs *ramfs.FS, disk Disk, runner Runner, tasks *sched.List, budget *CycleBudget) *Router {
	return &Router{
		windows:  windows,
		pipe:     pipe,
		fs:       fs,
		disk:     disk,
		runner:   runner,
		tasks:    tasks,
		budget:   budget,
		sessions: make(map[uint32]*Session),
	}
}

// OpenTerm implements the `term` command: create a new window, and bind a
// fresh Session to it (spec §3: "Windows: created by the shell term
// command"). Returns the new window's id.
func (r *Router) OpenTerm() (uint32, kerr.Code) {
	win, ok := r.windows.AddTermWindow("term")
	if !ok {
		return 0, kerr.New(kerr.Window, kerr.WindowAllocFailed)
	}
	r.sessionFor(win.ID)
	return win.ID, kerr.None
}

// DrainFrame is called once per frame from the kernel's main loop (spec
// §4.5): it drains every pending keyboard character to the currently active
// window's session and every pending mouse packet to the compositor.
func (r *Router) DrainFrame() {
	for {
		p, ok := r.pipe.PopMouse()
		if !ok {
			break
		}
		r.windows.HandleMouseMotion(p.DX, p.DY)
		pressed := p.Buttons&0x1 != 0
		r.windows.HandleMouseButton(pressed)
	}

	id, ok := r.windows.ActiveWindowID()
	if !ok {
		// Nothing to route keystrokes to; drain and discard so the FIFO
		// doesn't fill while no window exists.
		for {
			if _, ok := r.pipe.PopChar(); !ok {
				break
			}
		}
		return
	}
	session := r.sessionFor(id)
	for {
		ch, ok := r.pipe.PopChar()
		if !ok {
			break
		}
		session.Feed(ch)
	}
}

// sessionFor returns the Session bound to the given window id, creating one
// (bound to that window's AppendText) the first time it is seen — covers
// windows created directly through compositor.Manager.AddTermWindow rather
// than through Router.OpenTerm.
func (r *Router) sessionFor(id uint32) *Session {
	if s, ok := r.sessions[id]; ok {
		return s
	}
	win, _ := r.windows.Window(id)
	s := NewSession(win, r.fs, r.disk, r.runner, r.tasks, r.budget)
	s.SetOpenTerm(r.OpenTerm)
	r.sessions[id] = s
	return s
}

// Forget drops a session when its window closes, so DrainFrame never
// resurrects state for a dead window id.
func (r *Router) Forget(id uint32) {
	delete(r.sessions, id)
}

// Write satisfies syscall.Printer: a running module's PRINT syscall lands
// in whichever window currently has focus, which is not necessarily the
// window the user typed `run`/`rundisk` into to launch it.
func (r *Router) Write(p []byte) {
	id, ok := r.windows.ActiveWindowID()
	if !ok {
		return
	}
	r.sessionFor(id).Print(string(p))
}
