package z80

import "github.com/possum-systems/possum/pkg/bus"

// readR8/writeR8 implement the standard 3-bit register encoding
// B,C,D,E,H,L,(HL),A (index 6 dereferences HL in memory).
func (c *CPU) readR8(b bus.Bus, idx int) byte {
	switch idx {
	case 0:
		return c.B
	case 1:
		return c.C
	case 2:
		return c.D
	case 3:
		return c.E
	case 4:
		return c.H
	case 5:
		return c.L
	case 6:
		return b.Read(c.HL())
	default:
		return c.A
	}
}

func (c *CPU) writeR8(b bus.Bus, idx int, v byte) {
	switch idx {
	case 0:
		c.B = v
	case 1:
		c.C = v
	case 2:
		c.D = v
	case 3:
		c.E = v
	case 4:
		c.H = v
	case 5:
		c.L = v
	case 6:
		b.Write(c.HL(), v)
	default:
		c.A = v
	}
}

func (c *CPU) getRP(idx int) uint16 {
	switch idx {
	case 0:
		return c.BC()
	case 1:
		return c.DE()
	case 2:
		return c.HL()
	default:
		return c.SP
	}
}

func (c *CPU) setRP(idx int, v uint16) {
	switch idx {
	case 0:
		c.SetBC(v)
	case 1:
		c.SetDE(v)
	case 2:
		c.SetHL(v)
	default:
		c.SP = v
	}
}

func (c *CPU) getRP2(idx int) uint16 {
	switch idx {
	case 0:
		return c.BC()
	case 1:
		return c.DE()
	case 2:
		return c.HL()
	default:
		return c.AF()
	}
}

func (c *CPU) setRP2(idx int, v uint16) {
	switch idx {
	case 0:
		c.SetBC(v)
	case 1:
		c.SetDE(v)
	case 2:
		c.SetHL(v)
	default:
		c.SetAF(v)
	}
}

func (c *CPU) condTrue(idx int) bool {
	switch idx {
	case 0:
		return !c.Flag(FlagZ)
	case 1:
		return c.Flag(FlagZ)
	case 2:
		return !c.Flag(FlagC)
	case 3:
		return c.Flag(FlagC)
	case 4:
		return !c.Flag(FlagPV)
	case 5:
		return c.Flag(FlagPV)
	case 6:
		return !c.Flag(FlagS)
	default:
		return c.Flag(FlagS)
	}
}

func (c *CPU) aluOp(idx int, v byte) {
	switch idx {
	case 0:
		c.addA(v, false)
	case 1:
		c.addA(v, true)
	case 2:
		c.subA(v, false, true)
	case 3:
		c.subA(v, true, true)
	case 4:
		c.andA(v)
	case 5:
		c.xorA(v)
	case 6:
		c.orA(v)
	default:
		c.subA(v, false, false)
	}
}
