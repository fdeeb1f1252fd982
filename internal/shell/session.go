// Package shell implements the CLI surface spec §6 lists (ls, cat, touch,
// write, rm, lsdisk, catdisk, run, rundisk, term, top) and the echo/command-
// execution loop spec §4.5 describes, grounded on the teacher's terse
// flag/command dispatch style in boot/anticipation/cmd/release/main.go
// generalized from a one-shot CLI to a per-window, line-buffered REPL.
package shell

import (
	"fmt"
	"strconv"
	"strings"

	"chronos/internal/kerr"
	"chronos/internal/ramfs"
	"chronos/internal/sched"
	"chronos/internal/trust"
)

const maxHistoryLines = 20

// WindowSink is the narrow surface a Session needs from its owning window —
// deliberately not *compositor.Window, so shell has no import-time
// dependency on the compositor package beyond this interface (the Router
// is the one piece that actually imports compositor, to create windows).
type WindowSink interface {
	AppendText(line int, s string)
}

// Disk is the read-only boundary to the FAT32 filesystem, satisfied by
// *fat32.Reader; kept as an interface here so shell never imports the
// ata/fat32 packages directly and can be tested with a fake.
type Disk interface {
	List() ([]string, kerr.Code)
	ReadFile(name string) ([]byte, kerr.Code)
}

// Runner is the boundary to starting a loaded binary as a scheduled
// process, satisfied by whatever cmd/chronos wires up from
// internal/loader + internal/paging + internal/sched.
type Runner interface {
	RunModule(data []byte, background bool) kerr.Code
}

// Session is one shell instance — one per window, matching spec §3's
// "Windows: created by the shell term command" and §4.5's "a kernel task
// drains both FIFOs per frame" into whichever window is active.
type Session struct {
	win    WindowSink
	fs     *ramfs.FS
	disk   Disk
	runner Runner
	tasks  *sched.List
	budget *CycleBudget

	current string
	history []string

	// openTerm is set by Router.sessionFor to Router.OpenTerm, so the
	// `term` command can spawn another window without Session importing
	// Router (which would import compositor, which Session must not).
	openTerm func() (uint32, kerr.Code)
}

func NewSession(win WindowSink, fs *ramfs.FS, disk Disk, runner Runner, tasks *sched.List, budget *CycleBudget) *Session {
	return &Session{win: win, fs: fs, disk: disk, runner: runner, tasks: tasks, budget: budget}
}

// SetOpenTerm wires the `term` command's window-spawning callback; called
// once by Router right after constructing a Session.
func (s *Session) SetOpenTerm(f func() (uint32, kerr.Code)) {
	s.openTerm = f
}

// Feed processes one decoded keyboard character (spec §4.5): newline
// executes the buffered line, backspace erases the last character and
// repaints, anything else is appended to the line buffer and echoed.
func (s *Session) Feed(ch byte) {
	switch ch {
	case '\n':
		s.pushLine(s.current)
		s.execute(s.current)
		s.current = ""
	case '\b':
		if len(s.current) > 0 {
			s.current = s.current[:len(s.current)-1]
		}
	case '+':
		s.budget.Raise()
		s.current += string(ch)
	case '-':
		s.budget.Lower()
		s.current += string(ch)
	default:
		s.current += string(ch)
	}
	s.redraw()
}

func (s *Session) pushLine(line string) {
	s.history = append(s.history, line)
	if len(s.history) > maxHistoryLines {
		s.history = s.history[len(s.history)-maxHistoryLines:]
	}
}

func (s *Session) printLine(line string) {
	s.pushLine(line)
	s.redraw()
}

// Print writes a line from outside the REPL loop — a running module's
// PRINT syscall lands here via Router, which satisfies syscall.Printer by
// forwarding to the session of whichever window is active at that moment.
func (s *Session) Print(line string) {
	s.printLine(line)
}

func (s *Session) redraw() {
	for i, line := range s.history {
		s.win.AppendText(i, line)
	}
	s.win.AppendText(len(s.history), "> "+s.current)
}

// execute dispatches one command line, matching the table in spec §6.
// Unknown input still records an attempted lookup (scenario S3: "the shell
// has attempted command lookup for 'hi'"), it just fails quietly past the
// log line.
func (s *Session) execute(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	cmd, args := fields[0], fields[1:]
	trust.Debugf("shell: lookup command %q", cmd)

	switch cmd {
	case "ls":
		s.printLine(strings.Join(s.fs.List(), " "))
	case "cat":
		s.cmdCat(args)
	case "touch":
		s.cmdTouch(args)
	case "write":
		s.cmdWrite(args)
	case "rm":
		s.cmdRm(args)
	case "lsdisk":
		s.cmdLsdisk()
	case "catdisk":
		s.cmdCatdisk(args)
	case "run":
		s.cmdRun(args, false)
	case "rundisk":
		s.cmdRun(args, true)
	case "top":
		s.cmdTop()
	case "term":
		s.cmdTerm()
	default:
		trust.Debugf("shell: %q not found", cmd)
	}
}

func (s *Session) cmdCat(args []string) {
	if len(args) != 1 {
		s.printLine("cat: usage: cat NAME")
		return
	}
	data, err := s.fs.Read(args[0])
	if err != kerr.None {
		s.printLine("cat: " + err.Error())
		return
	}
	s.printLine(string(data))
}

func (s *Session) cmdTouch(args []string) {
	if len(args) != 1 {
		s.printLine("touch: usage: touch NAME")
		return
	}
	if err := s.fs.Touch(args[0]); err != kerr.None {
		s.printLine("touch: " + err.Error())
	}
}

func (s *Session) cmdWrite(args []string) {
	if len(args) < 2 {
		s.printLine("write: usage: write NAME TEXT")
		return
	}
	text := strings.Join(args[1:], " ")
	if err := s.fs.Write(args[0], []byte(text)); err != kerr.None {
		s.printLine("write: " + err.Error())
	}
}

func (s *Session) cmdRm(args []string) {
	if len(args) != 1 {
		s.printLine("rm: usage: rm NAME")
		return
	}
	if err := s.fs.Remove(args[0]); err != kerr.None {
		s.printLine("rm: " + err.Error())
	}
}

func (s *Session) cmdLsdisk() {
	if s.disk == nil {
		s.printLine("lsdisk: no disk attached")
		return
	}
	names, err := s.disk.List()
	if err != kerr.None {
		s.printLine("lsdisk: " + err.Error())
		return
	}
	s.printLine(strings.Join(names, " "))
}

func (s *Session) cmdCatdisk(args []string) {
	if len(args) != 1 {
		s.printLine("catdisk: usage: catdisk NAME")
		return
	}
	if s.disk == nil {
		s.printLine("catdisk: no disk attached")
		return
	}
	data, err := s.disk.ReadFile(args[0])
	if err != kerr.None {
		s.printLine("catdisk: error")
		return
	}
	s.printLine(string(data))
}

// cmdRun loads a binary (RAM file for `run`, FAT32 file for `rundisk`) and
// hands it to the Runner. `rundisk` is explicitly background (spec §6:
// "runs as background process"); `run` runs it the same way since this
// kernel has no foreground/background distinction beyond the scheduler
// slot itself — both just become a KindUserStack task.
func (s *Session) cmdRun(args []string, fromDisk bool) {
	if len(args) != 1 {
		s.printLine("run: usage: run NAME")
		return
	}
	var data []byte
	var err kerr.Code
	if fromDisk {
		if s.disk == nil {
			s.printLine("rundisk: no disk attached")
			return
		}
		data, err = s.disk.ReadFile(args[0])
	} else {
		data, err = s.fs.Read(args[0])
	}
	if err != kerr.None {
		s.printLine("run: " + err.Error())
		return
	}
	if rerr := s.runner.RunModule(data, fromDisk); rerr != kerr.None {
		s.printLine("run: " + rerr.Error())
	}
}

// cmdTop implements the `top` command (spec §6, glossary "Fuel gauge"): one
// line per scheduled task showing its budget, last cost, and audit status,
// plus the current global cycle budget.
func (s *Session) cmdTop() {
	s.printLine(fmt.Sprintf("cycle budget: %d", s.budget.Get()))
	for _, v := range s.tasks.Snapshot() {
		s.printLine(fmt.Sprintf("%3d %-12s budget=%-8d last=%-8d %s", v.ID, v.Name, v.Budget, v.LastCost, v.Status))
	}
}

// cmdTerm implements the `term` command: spawns a new terminal window via
// the callback Router wired in, per spec §3's "Windows: created by the
// shell term command."
func (s *Session) cmdTerm() {
	if s.openTerm == nil {
		s.printLine("term: unavailable")
		return
	}
	if _, err := s.openTerm(); err != kerr.None {
		s.printLine("term: " + err.Error())
	}
}

func (s *Session) ParseInt(v string) (int, bool) {
	n, err := strconv.Atoi(v)
	return n, err == nil
}
