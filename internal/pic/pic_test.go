package pic

import "testing"

type recorder struct {
	writes []write
	regs   map[uint16]uint8
}

type write struct {
	port  uint16
	value uint8
}

func newRecorder() *recorder {
	return &recorder{regs: map[uint16]uint8{masterData: 0xff, slaveData: 0xff}}
}

func (r *recorder) Out(port uint16, value uint8) {
	r.writes = append(r.writes, write{port, value})
	r.regs[port] = value
}

func (r *recorder) In(port uint16) uint8 {
	return r.regs[port]
}

func TestRemapMasksExactlyTimerKeyboardCascadeCOM1Mouse(t *testing.T) {
	rec := newRecorder()
	c := New(rec)
	c.Remap()

	if rec.regs[masterData] != masterMask {
		t.Fatalf("master mask = %#x, want %#x", rec.regs[masterData], masterMask)
	}
	if rec.regs[slaveData] != slaveMask {
		t.Fatalf("slave mask = %#x, want %#x", rec.regs[slaveData], slaveMask)
	}
	// IRQ0, IRQ1, IRQ2, IRQ4 must be unmasked (bit clear) on the master.
	for _, irq := range []uint8{0, 1, 2, 4} {
		if rec.regs[masterData]&(1<<irq) != 0 {
			t.Errorf("IRQ%d should be unmasked", irq)
		}
	}
	// IRQ12 (mouse, bit 4 of slave) must be unmasked.
	if rec.regs[slaveData]&(1<<4) != 0 {
		t.Error("IRQ12 (mouse) should be unmasked")
	}
}

func TestEndOfInterruptNotifiesRightChips(t *testing.T) {
	rec := newRecorder()
	c := New(rec)

	c.EndOfInterrupt(Offset1) // timer, IRQ0, master only
	wantOnly(t, rec, masterCommand, cmdEOI)

	rec = newRecorder()
	c = New(rec)
	c.EndOfInterrupt(Offset2 + 4) // mouse, IRQ12, both chips, slave first
	if len(rec.writes) != 2 {
		t.Fatalf("expected 2 EOI writes for a slave IRQ, got %d", len(rec.writes))
	}
	if rec.writes[0].port != slaveCommand || rec.writes[1].port != masterCommand {
		t.Fatalf("slave must be EOI'd before master: got %+v", rec.writes)
	}
}

func wantOnly(t *testing.T, rec *recorder, port uint16, value uint8) {
	if len(rec.writes) != 1 {
		t.Fatalf("expected exactly 1 write, got %+v", rec.writes)
	}
	if rec.writes[0].port != port || rec.writes[0].value != value {
		t.Fatalf("got write %+v, want {%d %d}", rec.writes[0], port, value)
	}
}

func TestMaskUnmaskFlipsCorrectBit(t *testing.T) {
	rec := newRecorder()
	c := New(rec)
	c.Remap()
	before := rec.regs[masterData]
	c.Mask(0)
	if rec.regs[masterData]&1 == 0 {
		t.Fatal("Mask(0) should set bit 0")
	}
	c.Unmask(0)
	if rec.regs[masterData] != before {
		t.Fatalf("Unmask(0) should restore prior mask, got %#x want %#x", rec.regs[masterData], before)
	}
}
