package z80

import "github.com/possum-systems/possum/pkg/bus"

// initEDOps builds the ED-prefixed dispatch table. Every byte not given
// documented behavior below acts as a NOP for the ED byte itself, then
// re-decodes the following byte on the unprefixed page (spec §7): the ED
// byte costs 4 T-states on top of whatever that re-decoded instruction
// costs, since it may itself consume further operand bytes.
func initEDOps(c *CPU) {
	baseCopy := c.base
	for opcode := range c.ed {
		fallback := baseCopy[opcode]
		c.ed[opcode] = func(c *CPU, b bus.Bus) int { return 4 + fallback(c, b) }
	}

	for opcode := 0x40; opcode <= 0x7F; opcode++ {
		c.ed[opcode] = buildED40to7F(opcode)
	}

	blockOps := map[int]opFunc{
		0xA0: opLDI, 0xA1: opCPI, 0xA2: opINI, 0xA3: opOUTI,
		0xA8: opLDD, 0xA9: opCPD, 0xAA: opIND, 0xAB: opOUTD,
		0xB0: opLDIR, 0xB1: opCPIR, 0xB2: opINIR, 0xB3: opOTIR,
		0xB8: opLDDR, 0xB9: opCPDR, 0xBA: opINDR, 0xBB: opOTDR,
	}
	for opcode, fn := range blockOps {
		c.ed[opcode] = fn
	}
}

func opEDNop(c *CPU, b bus.Bus) int { return 8 }

func buildED40to7F(opcode int) opFunc {
	y := (opcode >> 3) & 7
	z := opcode & 7
	p := y >> 1
	q := y & 1

	switch z {
	case 0:
		return opEDIn(y)
	case 1:
		return opEDOut(y)
	case 2:
		if q == 0 {
			return opSBCHLrp(p)
		}
		return opADCHLrp(p)
	case 3:
		if q == 0 {
			return opEDLDnnRP(p)
		}
		return opEDLDRPnn(p)
	case 4:
		return opNEG
	case 5:
		if y == 1 {
			return opRETI
		}
		return opRETN
	case 6:
		imTable := [8]InterruptMode{IM0, IM0, IM1, IM2, IM0, IM0, IM1, IM2}
		mode := imTable[y]
		return func(c *CPU, b bus.Bus) int {
			c.IM = mode
			return 8
		}
	case 7:
		switch y {
		case 0:
			return opLDIA
		case 1:
			return opLDRA
		case 2:
			return opLDAI
		case 3:
			return opLDAR
		case 4:
			return opRRD
		case 5:
			return opRLD
		default:
			return opEDNop
		}
	}
	return opEDNop
}

func opEDIn(y int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		v := b.In(c.BC())
		c.WZ = c.BC() + 1
		if y != 6 {
			c.writeR8(b, y, v)
		}
		c.F = (c.F & FlagC) | sz53pTable[v]
		return 12
	}
}

func opEDOut(y int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		var v byte
		if y != 6 {
			v = c.readR8(b, y)
		}
		b.Out(c.BC(), v)
		c.WZ = c.BC() + 1
		return 12
	}
}

func opSBCHLrp(p int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		c.WZ = c.HL() + 1
		c.SetHL(c.sbc16(c.HL(), c.getRP(p)))
		return 15
	}
}

func opADCHLrp(p int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		c.WZ = c.HL() + 1
		c.SetHL(c.adc16(c.HL(), c.getRP(p)))
		return 15
	}
}

func opEDLDnnRP(p int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		nn := c.fetchWord(b)
		v := c.getRP(p)
		b.Write(nn, byte(v))
		b.Write(nn+1, byte(v>>8))
		c.WZ = nn + 1
		return 20
	}
}

func opEDLDRPnn(p int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		nn := c.fetchWord(b)
		lo := b.Read(nn)
		hi := b.Read(nn + 1)
		c.setRP(p, uint16(hi)<<8|uint16(lo))
		c.WZ = nn + 1
		return 20
	}
}

func opNEG(c *CPU, b bus.Bus) int {
	v := c.A
	c.A = 0
	c.subA(v, false, true)
	return 8
}

func opRETN(c *CPU, b bus.Bus) int {
	c.PC = c.pop(b)
	c.WZ = c.PC
	c.IFF1 = c.IFF2
	return 14
}

func opRETI(c *CPU, b bus.Bus) int {
	c.PC = c.pop(b)
	c.WZ = c.PC
	c.IFF1 = c.IFF2
	c.justReti = true
	return 14
}

func opLDIA(c *CPU, b bus.Bus) int { c.I = c.A; return 9 }
func opLDRA(c *CPU, b bus.Bus) int { c.R = c.A; return 9 }

func opLDAI(c *CPU, b bus.Bus) int {
	c.A = c.I
	c.setIRFlags()
	return 9
}

func opLDAR(c *CPU, b bus.Bus) int {
	c.A = c.R
	c.setIRFlags()
	return 9
}

func (c *CPU) setIRFlags() {
	f := c.F & FlagC
	f |= sz53Table[c.A]
	if c.IFF2 {
		f |= FlagPV
	}
	c.F = f
}

func opRRD(c *CPU, b bus.Bus) int {
	addr := c.HL()
	mem := b.Read(addr)
	result := (c.A & 0xF0) | (mem & 0x0F)
	newMem := (mem >> 4) | (c.A << 4)
	c.A = result
	b.Write(addr, newMem)
	c.WZ = addr + 1
	c.F = (c.F & FlagC) | sz53pTable[c.A]
	return 18
}

func opRLD(c *CPU, b bus.Bus) int {
	addr := c.HL()
	mem := b.Read(addr)
	result := (c.A & 0xF0) | (mem >> 4)
	newMem := (mem << 4) | (c.A & 0x0F)
	c.A = result
	b.Write(addr, newMem)
	c.WZ = addr + 1
	c.F = (c.F & FlagC) | sz53pTable[c.A]
	return 18
}
