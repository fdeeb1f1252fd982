// Command chronoscope is the host-side companion to the kernel's COM1
// console: it attaches to the serial device QEMU exposes for the
// machine's first UART, streams the kernel's trust log lines back to the
// terminal, and forwards whatever the developer types into the kernel's
// shell running on the other end.
//
// Grounded on the teacher's cmd/release tool (outhandler.go/ioproto.go),
// which drives a target device the same way: open it with
// github.com/mattn/go-tty, put it in raw mode with MustRaw, and read it
// byte at a time with the same control-character filter. That tool talks
// a line protocol one direction only; chronoscope is bidirectional, so it
// runs the target link and the operator's own terminal as two independent
// pumps.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	tty "github.com/mattn/go-tty"
)

var devFlag = flag.String("d", "", "serial device to attach to, e.g. the pty QEMU printed for -serial pty")

func main() {
	flag.Parse()
	if *devFlag == "" {
		fmt.Fprintln(os.Stderr, "usage: chronoscope -d /dev/pts/N")
		os.Exit(2)
	}

	target := newTargetLink(*devFlag)
	defer target.Close()

	operator, err := tty.Open()
	if err != nil {
		log.Fatalf("chronoscope: opening controlling terminal: %v", err)
	}
	defer operator.Close()
	_ = operator.MustRaw()

	done := make(chan struct{})
	go target.streamLines(os.Stdout, done)
	go pumpKeystrokes(operator, target, done)
	<-done
}

// targetLink wraps the kernel's serial line. Reading it drains trust log
// bytes as the kernel's UART driver writes them; writing it feeds bytes
// straight into the COM1 IRQ handler chronoscope's kernel-side half
// installs, which pushes them into the same keyboard FIFO scancodes land
// in.
type targetLink struct {
	io *tty.TTY
}

func newTargetLink(devPath string) *targetLink {
	t, err := tty.OpenDevice(devPath)
	if err != nil {
		log.Fatalf("chronoscope: opening %s: %v", devPath, err)
	}
	_ = t.MustRaw()
	return &targetLink{io: t}
}

func (t *targetLink) Close() error {
	return t.io.Close()
}

func (t *targetLink) WriteByte(b byte) error {
	_, err := t.io.Output().Write([]byte{b})
	return err
}

// readLine accumulates bytes until a newline, dropping stray control
// characters the way outhandler.go's ttyReceiver.Read does — the kernel's
// trust sink only ever emits printable ASCII lines terminated by '\n', so
// anything else on the wire is line noise from the emulator, not content.
func (t *targetLink) readLine(buf []byte) (string, error) {
	count := 0
	for {
		n, err := t.io.Input().Read(buf[count : count+1])
		if err != nil {
			return "", err
		}
		if n == 0 {
			continue
		}
		switch {
		case buf[count] < 32 && buf[count] != 10:
			continue
		case buf[count] == 10:
			return string(buf[:count]), nil
		default:
			if count == len(buf)-1 {
				continue // line too long for the buffer, drop the rest silently
			}
			count++
		}
	}
}

func (t *targetLink) streamLines(w *os.File, done chan<- struct{}) {
	buf := make([]byte, 4096)
	for {
		line, err := t.readLine(buf)
		if err != nil {
			close(done)
			return
		}
		fmt.Fprintf(w, "\r\nkernel: %s\r\n", line)
	}
}

// pumpKeystrokes forwards every byte the operator types straight onto the
// wire. The kernel's own shell owns echo and line editing on its end, so
// this stays a dumb byte pipe rather than duplicating that logic here.
// Ctrl-D detaches chronoscope without touching the kernel.
func pumpKeystrokes(operator *tty.TTY, target *targetLink, done chan<- struct{}) {
	for {
		r, err := operator.ReadRune()
		if err != nil {
			close(done)
			return
		}
		if r == 4 { // Ctrl-D
			close(done)
			return
		}
		for _, b := range []byte(string(r)) {
			if err := target.WriteByte(b); err != nil {
				close(done)
				return
			}
		}
	}
}
