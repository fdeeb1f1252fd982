// Package rtc reads the wall-clock time from the CMOS real-time clock, the
// source behind the taskbar clock spec §4.6 draws (compositor.Clock).
// Grounded on the same Port-interface-over-raw-hardware shape as
// internal/pic and internal/ata: a struct wrapping IN/OUT access instead of
// free functions over package globals, so it can be driven by an in-memory
// register file in tests.
package rtc

const (
	cmosAddress = 0x70
	cmosData    = 0x71

	regSeconds = 0x00
	regMinutes = 0x02
	regHours   = 0x04
	regStatusA = 0x0A
	regStatusB = 0x0B

	statusAUpdateInProgress = 0x80
	statusBBinaryMode       = 0x04
	statusB24HourMode       = 0x02
)

// Port is the byte-wide I/O port interface the driver needs.
type Port interface {
	Out8(port uint16, value uint8)
	In8(port uint16) uint8
}

// Clock reads the CMOS RTC. It satisfies compositor.Clock.
type Clock struct {
	port Port
}

func New(port Port) *Clock {
	return &Clock{port: port}
}

func (c *Clock) read(reg uint8) uint8 {
	c.port.Out8(cmosAddress, reg)
	return c.port.In8(cmosData)
}

// waitForUpdateComplete spins while the RTC is mid-update, so Now never
// samples a torn read across the seconds/minutes/hours registers. Bounded
// the same way ata's poll is: a hard iteration cap rather than an infinite
// spin on faulty hardware.
func (c *Clock) waitForUpdateComplete() {
	const pollLimit = 100000
	for i := 0; i < pollLimit; i++ {
		if c.read(regStatusA)&statusAUpdateInProgress == 0 {
			return
		}
	}
}

// Now reads hours, minutes, and seconds, normalizing BCD-encoded and
// 12-hour values to plain decimal 24-hour form based on status register B,
// the same normalization original_source's rtc.rs performs before handing
// the triple to the taskbar.
func (c *Clock) Now() (hh, mm, ss int) {
	c.waitForUpdateComplete()
	second := c.read(regSeconds)
	minute := c.read(regMinutes)
	hour := c.read(regHours)
	statusB := c.read(regStatusB)

	pmBit := hour & 0x80
	hour &= 0x7F
	if statusB&statusBBinaryMode == 0 {
		second = bcdToBinary(second)
		minute = bcdToBinary(minute)
		hour = bcdToBinary(hour)
	}
	if statusB&statusB24HourMode == 0 {
		switch {
		case pmBit != 0 && hour < 12:
			hour += 12
		case pmBit == 0 && hour == 12:
			hour = 0
		}
	}
	return int(hour), int(minute), int(second)
}

func bcdToBinary(v uint8) uint8 {
	return (v & 0x0F) + (v/16)*10
}
