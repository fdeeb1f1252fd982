package shell

import (
	"strings"
	"testing"

	"chronos/internal/kerr"
	"chronos/internal/ramfs"
	"chronos/internal/sched"
)

// fakeWindow records every AppendText call so tests can assert on the
// rendered lines without pulling in the compositor package.
type fakeWindow struct {
	lines map[int]string
}

func newFakeWindow() *fakeWindow { return &fakeWindow{lines: map[int]string{}} }

func (w *fakeWindow) AppendText(line int, s string) { w.lines[line] = s }

func (w *fakeWindow) joined() string {
	var b strings.Builder
	for i := 0; i < len(w.lines); i++ {
		b.WriteString(w.lines[i])
		b.WriteByte('\n')
	}
	return b.String()
}

type fakeDisk struct {
	files map[string][]byte
}

func (d *fakeDisk) List() ([]string, kerr.Code) {
	var names []string
	for n := range d.files {
		names = append(names, n)
	}
	return names, kerr.None
}

func (d *fakeDisk) ReadFile(name string) ([]byte, kerr.Code) {
	data, ok := d.files[name]
	if !ok {
		return nil, kerr.New(kerr.FAT32, kerr.FAT32NotFound)
	}
	return data, kerr.None
}

type fakeRunner struct {
	ran        [][]byte
	background []bool
	fail       kerr.Code
}

func (r *fakeRunner) RunModule(data []byte, background bool) kerr.Code {
	if r.fail != kerr.None {
		return r.fail
	}
	r.ran = append(r.ran, data)
	r.background = append(r.background, background)
	return kerr.None
}

func newTestSession() (*Session, *fakeWindow, *ramfs.FS, *fakeRunner) {
	win := newFakeWindow()
	fs := ramfs.New()
	runner := &fakeRunner{}
	disk := &fakeDisk{files: map[string][]byte{"readme.txt": []byte("hello disk")}}
	s := NewSession(win, fs, disk, runner, sched.NewList(), NewCycleBudget())
	return s, win, fs, runner
}

func feedLine(s *Session, line string) {
	for i := 0; i < len(line); i++ {
		s.Feed(line[i])
	}
	s.Feed('\n')
}

func TestTouchThenLsShowsFile(t *testing.T) {
	s, win, _, _ := newTestSession()
	feedLine(s, "touch a.txt")
	feedLine(s, "ls")
	if !strings.Contains(win.joined(), "a.txt") {
		t.Fatalf("expected a.txt in output, got %q", win.joined())
	}
}

func TestWriteThenCatRoundTrips(t *testing.T) {
	s, win, _, _ := newTestSession()
	feedLine(s, "write a.txt hello world")
	feedLine(s, "cat a.txt")
	if !strings.Contains(win.joined(), "hello world") {
		t.Fatalf("expected written text in output, got %q", win.joined())
	}
}

func TestRmRemovesFile(t *testing.T) {
	s, win, fs, _ := newTestSession()
	fs.Write("a.txt", []byte("x"))
	feedLine(s, "rm a.txt")
	feedLine(s, "ls")
	// lines[0] and lines[1] echo "rm a.txt" and "ls"; lines[2] is ls's output.
	if strings.Contains(win.lines[2], "a.txt") {
		t.Fatalf("expected a.txt to be gone, got %q", win.joined())
	}
}

func TestBackspaceErasesLastCharacterBeforeExecution(t *testing.T) {
	s, win, _, _ := newTestSession()
	for _, ch := range "lsx" {
		s.Feed(byte(ch))
	}
	s.Feed('\b')
	s.Feed('\n')
	// "lsx" with the trailing 'x' erased becomes "ls", which should not
	// error even though the file list is empty.
	if strings.Contains(win.joined(), "not found") {
		t.Fatalf("backspace did not erase the trailing character: %q", win.joined())
	}
}

func TestPlusAndMinusAdjustCycleBudgetWithoutBreakingTheLineBuffer(t *testing.T) {
	s, _, _, _ := newTestSession()
	before := s.budget.Get()
	s.Feed('+')
	if s.budget.Get() <= before {
		t.Fatal("expected '+' to raise the cycle budget")
	}
	if s.current != "+" {
		t.Fatalf("expected '+' to also be echoed into the line buffer, got %q", s.current)
	}
}

func TestLsdiskListsDiskFiles(t *testing.T) {
	s, win, _, _ := newTestSession()
	feedLine(s, "lsdisk")
	if !strings.Contains(win.joined(), "readme.txt") {
		t.Fatalf("expected readme.txt in output, got %q", win.joined())
	}
}

func TestCatdiskReadsDiskFile(t *testing.T) {
	s, win, _, _ := newTestSession()
	feedLine(s, "catdisk readme.txt")
	if !strings.Contains(win.joined(), "hello disk") {
		t.Fatalf("expected disk contents in output, got %q", win.joined())
	}
}

func TestRunLoadsFromRamfsAndInvokesRunner(t *testing.T) {
	s, _, fs, runner := newTestSession()
	fs.Write("prog", []byte{0x90, 0xc3})
	feedLine(s, "run prog")
	if len(runner.ran) != 1 {
		t.Fatalf("expected RunModule called once, got %d", len(runner.ran))
	}
	if runner.background[0] {
		t.Fatal("run (ramfs) should not be marked as loaded from disk")
	}
}

func TestRundiskLoadsFromDiskAndInvokesRunner(t *testing.T) {
	s, _, _, runner := newTestSession()
	feedLine(s, "rundisk readme.txt")
	if len(runner.ran) != 1 {
		t.Fatalf("expected RunModule called once, got %d", len(runner.ran))
	}
	if !runner.background[0] {
		t.Fatal("rundisk should be marked as loaded from disk")
	}
}

func TestRunMissingFileReportsErrorWithoutInvokingRunner(t *testing.T) {
	s, win, _, runner := newTestSession()
	feedLine(s, "run nope")
	if len(runner.ran) != 0 {
		t.Fatal("RunModule should not be called for a missing file")
	}
	if !strings.Contains(win.joined(), "not found") {
		t.Fatalf("expected a not-found message, got %q", win.joined())
	}
}

func TestUnknownCommandDoesNotPanicOrPrintGarbage(t *testing.T) {
	s, win, _, _ := newTestSession()
	feedLine(s, "hi")
	if strings.Contains(win.joined(), "hi:") {
		t.Fatalf("unknown command should not synthesize a fake error line, got %q", win.joined())
	}
}

func TestTermWithoutRouterWiringReportsUnavailable(t *testing.T) {
	s, win, _, _ := newTestSession()
	feedLine(s, "term")
	if !strings.Contains(win.joined(), "unavailable") {
		t.Fatalf("expected term to report unavailable when no openTerm is wired, got %q", win.joined())
	}
}

func TestTermInvokesWiredCallback(t *testing.T) {
	s, _, _, _ := newTestSession()
	called := false
	s.SetOpenTerm(func() (uint32, kerr.Code) {
		called = true
		return 7, kerr.None
	})
	feedLine(s, "term")
	if !called {
		t.Fatal("expected term to invoke the wired openTerm callback")
	}
}

func TestTopPrintsCycleBudgetLine(t *testing.T) {
	s, win, _, _ := newTestSession()
	feedLine(s, "top")
	if !strings.Contains(win.joined(), "cycle budget:") {
		t.Fatalf("expected a cycle budget line, got %q", win.joined())
	}
}

func TestCycleBudgetNeverFallsBelowMinimum(t *testing.T) {
	b := NewCycleBudget()
	for i := 0; i < 10000; i++ {
		b.Lower()
	}
	if b.Get() < 1 {
		t.Fatalf("cycle budget underflowed to %d", b.Get())
	}
}
