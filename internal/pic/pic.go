// Package pic drives the legacy 8259 programmable interrupt controller
// pair. Grounded on the remap/mask/EOI sequence in original_source's
// interrupts.rs and on the teacher's habit (src/hardware/bcm2835) of
// modeling a hardware controller as a small struct wrapping raw port/MMIO
// access rather than free functions over package globals.
package pic

// Port is the minimal byte-wide I/O port interface the controller needs.
// A real implementation backs this with IN/OUT instructions (cmd/chronos's
// picBus adapter over ioport.Bus);
// tests back it with an in-memory recorder so the EOI discipline (spec
// §4.1: "failure to EOI must be treated as a programming bug detectable in
// tests") can be asserted without hardware.
type Port interface {
	Out(port uint16, value uint8)
	In(port uint16) uint8
}

const (
	masterCommand = 0x20
	masterData    = 0x21
	slaveCommand  = 0xA0
	slaveData     = 0xA1

	cmdInit    = 0x11
	cmdEOI     = 0x20
	icw4_8086  = 0x01
	masterMask = 0xE8 // IRQ0 (timer), IRQ1 (keyboard), IRQ2 (cascade), IRQ4 (COM1) unmasked
	slaveMask  = 0xEF // IRQ12 (mouse) unmasked
)

// Offset vectors: master PIC IRQ0 maps to vector 32, slave IRQ8 maps to 40.
const (
	Offset1 = 32
	Offset2 = Offset1 + 8
)

// Controller is the pair of chained 8259 chips.
type Controller struct {
	port Port
}

func New(port Port) *Controller {
	return &Controller{port: port}
}

// Remap reprograms both chips to the Offset1/Offset2 vector bases and then
// masks every line except timer, keyboard, cascade, COM1, and mouse (spec
// §4.1's "0xE8 then 0xEF" pattern).
func (c *Controller) Remap() {
	m1 := c.port.In(masterData)
	m2 := c.port.In(slaveData)

	c.port.Out(masterCommand, cmdInit)
	c.port.Out(slaveCommand, cmdInit)
	c.port.Out(masterData, Offset1)
	c.port.Out(slaveData, Offset2)
	c.port.Out(masterData, 4) // tell master about slave on IRQ2
	c.port.Out(slaveData, 2)  // tell slave its cascade identity
	c.port.Out(masterData, icw4_8086)
	c.port.Out(slaveData, icw4_8086)

	_, _ = m1, m2 // original masks discarded: boot always starts from the documented mask
	c.port.Out(masterData, masterMask)
	c.port.Out(slaveData, slaveMask)
}

// EndOfInterrupt must be called exactly once by every IRQ handler before
// it returns. IRQs 0-7 only need the master chip acknowledged; IRQs 8-15
// (vector >= Offset2) need both, slave first.
func (c *Controller) EndOfInterrupt(vector uint8) {
	if vector >= Offset2 {
		c.port.Out(slaveCommand, cmdEOI)
	}
	c.port.Out(masterCommand, cmdEOI)
}

// Mask/Unmask flip a single IRQ line's bit on the owning chip's data port,
// used by input drivers that want to temporarily silence their own line
// (none currently do, but tests exercise this against the recorder).
func (c *Controller) Mask(irq uint8) {
	c.setBit(irq, true)
}

func (c *Controller) Unmask(irq uint8) {
	c.setBit(irq, false)
}

func (c *Controller) setBit(irq uint8, set bool) {
	port := uint16(masterData)
	bit := irq
	if irq >= 8 {
		port = slaveData
		bit -= 8
	}
	cur := c.port.In(port)
	if set {
		cur |= 1 << bit
	} else {
		cur &^= 1 << bit
	}
	c.port.Out(port, cur)
}
