package z80

import "github.com/possum-systems/possum/pkg/bus"

// Step fetches and executes one instruction (or services a pending
// interrupt) and returns the number of T-states consumed.
func (c *CPU) Step(b bus.Bus) int {
	c.justReti = false

	if edge := c.nmiLine && !c.nmiPrev; edge {
		c.nmiPrev = c.nmiLine
		return c.serviceNMI(b)
	}
	c.nmiPrev = c.nmiLine

	wasEIDelay := c.eiDelay
	c.eiDelay = false

	if c.irqLine && c.IFF1 && !wasEIDelay {
		if c.Halted {
			c.Halted = false
			c.PC++
		}
		return c.serviceIRQ(b)
	}

	if c.Halted {
		c.incrementR()
		return 4
	}

	opcode := c.fetchByte(b)
	c.incrementR()
	return c.base[opcode](c, b)
}

func (c *CPU) serviceNMI(b bus.Bus) int {
	if c.Halted {
		c.Halted = false
		c.PC++
	}
	c.IFF2 = c.IFF1
	c.IFF1 = false
	c.incrementR()
	c.push(b, c.PC)
	c.PC = 0x0066
	c.WZ = c.PC
	return 11
}

func (c *CPU) serviceIRQ(b bus.Bus) int {
	c.IFF1 = false
	c.IFF2 = false
	c.incrementR()
	c.push(b, c.PC)
	switch c.IM {
	case IM0:
		// Mode 0 executes whatever instruction the interrupting device
		// drives onto the bus; in practice this is always a single-byte
		// RST n, so the device's interrupt vector is interpreted as that
		// RST opcode (defaulting to RST 38 for any other byte).
		opcode := c.ibus(b).InterruptVector()
		target := uint16(0x0038)
		if opcode&0xC7 == 0xC7 {
			target = uint16(opcode & 0x38)
		}
		c.PC = target
		c.WZ = c.PC
		return 13
	case IM1:
		c.PC = 0x0038
		c.WZ = c.PC
		return 13
	default: // IM2
		vec := c.ibus(b).InterruptVector()
		addr := uint16(c.I)<<8 | uint16(vec&0xFE)
		lo := b.Read(addr)
		hi := b.Read(addr + 1)
		c.PC = uint16(hi)<<8 | uint16(lo)
		c.WZ = c.PC
		return 19
	}
}

// ibus narrows a plain Bus down to an InterruptBus when the caller's bus
// implements it. A bare Bus (e.g. in unit tests) is wrapped in
// noInterruptBus, which reports no device interrupt and a vector byte of
// 0xFF; an IRQ raised through SetIRQLine is serviced on either kind.
func (c *CPU) ibus(b bus.Bus) bus.InterruptBus {
	if ib, ok := b.(bus.InterruptBus); ok {
		return ib
	}
	return noInterruptBus{b}
}

type noInterruptBus struct{ bus.Bus }

func (noInterruptBus) Interrupted() bool     { return false }
func (noInterruptBus) InterruptVector() byte { return 0xFF }
func (noInterruptBus) AckInterrupt()         {}
