package z80

import "github.com/possum-systems/possum/pkg/bus"

// LDI/LDD/LDIR/LDDR transfer (HL) to (DE), updating BC/HL/DE and setting
// P/V to (BC != 0) after the decrement, per spec §4.7 invariant 7. The
// undocumented X/Y flags are bits 3 and 1 of (A + transferred byte).

func ldStep(c *CPU, b bus.Bus, forward bool) {
	n := b.Read(c.HL())
	b.Write(c.DE(), n)
	if forward {
		c.SetHL(c.HL() + 1)
		c.SetDE(c.DE() + 1)
	} else {
		c.SetHL(c.HL() - 1)
		c.SetDE(c.DE() - 1)
	}
	c.SetBC(c.BC() - 1)

	f := c.F & (FlagS | FlagZ | FlagC)
	if c.BC() != 0 {
		f |= FlagPV
	}
	t := c.A + n
	if t&0x02 != 0 {
		f |= FlagY
	}
	if t&0x08 != 0 {
		f |= FlagX
	}
	c.F = f
}

func opLDI(c *CPU, b bus.Bus) int { ldStep(c, b, true); return 16 }
func opLDD(c *CPU, b bus.Bus) int { ldStep(c, b, false); return 16 }

func opLDIR(c *CPU, b bus.Bus) int {
	ldStep(c, b, true)
	if c.BC() != 0 {
		c.PC -= 2
		c.WZ = c.PC + 1
		return 21
	}
	return 16
}

func opLDDR(c *CPU, b bus.Bus) int {
	ldStep(c, b, false)
	if c.BC() != 0 {
		c.PC -= 2
		c.WZ = c.PC + 1
		return 21
	}
	return 16
}

// cpStep implements CPI/CPD: compare A with (HL), advance/retreat HL and
// WZ, decrement BC and set P/V to (BC != 0).
func cpStep(c *CPU, b bus.Bus, forward bool) {
	n := b.Read(c.HL())
	result := c.A - n
	half := c.A&0x0F < n&0x0F

	if forward {
		c.SetHL(c.HL() + 1)
		c.WZ++
	} else {
		c.SetHL(c.HL() - 1)
		c.WZ--
	}
	c.SetBC(c.BC() - 1)

	f := (c.F & FlagC) | FlagN
	if half {
		f |= FlagH
	}
	if c.BC() != 0 {
		f |= FlagPV
	}
	f |= sz53Table[result] & (FlagS | FlagZ)

	t := result
	if half {
		t--
	}
	if t&0x02 != 0 {
		f |= FlagY
	}
	if t&0x08 != 0 {
		f |= FlagX
	}
	c.F = f
}

func opCPI(c *CPU, b bus.Bus) int { cpStep(c, b, true); return 16 }
func opCPD(c *CPU, b bus.Bus) int { cpStep(c, b, false); return 16 }

func opCPIR(c *CPU, b bus.Bus) int {
	cpStep(c, b, true)
	if c.BC() != 0 && !c.Flag(FlagZ) {
		c.PC -= 2
		c.WZ = c.PC + 1
		return 21
	}
	return 16
}

func opCPDR(c *CPU, b bus.Bus) int {
	cpStep(c, b, false)
	if c.BC() != 0 && !c.Flag(FlagZ) {
		c.PC -= 2
		c.WZ = c.PC + 1
		return 21
	}
	return 16
}

// Block I/O: INI/IND/INIR/INDR/OUTI/OUTD/OTIR/OTDR. Previously stubbed in
// the source this spec was distilled from; implemented here per Zilog's
// documented flag and cycle semantics.

func inStep(c *CPU, b bus.Bus, forward bool) byte {
	v := b.In(c.BC())
	b.Write(c.HL(), v)
	if forward {
		c.SetHL(c.HL() + 1)
		c.WZ = c.BC() + 1
	} else {
		c.SetHL(c.HL() - 1)
		c.WZ = c.BC() - 1
	}
	c.B--

	f := byte(0)
	if v&0x80 != 0 {
		f |= FlagN
	}
	var k int
	if forward {
		k = int(v) + int((c.C+1)&0xFF)
	} else {
		k = int(v) + int((c.C-1)&0xFF)
	}
	if k > 0xFF {
		f |= FlagH | FlagC
	}
	if parity(byte(k&0x07)^c.B) != 0 {
		f |= FlagPV
	}
	f |= sz53Table[c.B]
	c.F = f
	return v
}

func opINI(c *CPU, b bus.Bus) int { inStep(c, b, true); return 16 }
func opIND(c *CPU, b bus.Bus) int { inStep(c, b, false); return 16 }

func opINIR(c *CPU, b bus.Bus) int {
	inStep(c, b, true)
	if c.B != 0 {
		c.PC -= 2
		return 21
	}
	return 16
}

func opINDR(c *CPU, b bus.Bus) int {
	inStep(c, b, false)
	if c.B != 0 {
		c.PC -= 2
		return 21
	}
	return 16
}

func outStep(c *CPU, b bus.Bus, forward bool) byte {
	v := b.Read(c.HL())
	if forward {
		c.SetHL(c.HL() + 1)
	} else {
		c.SetHL(c.HL() - 1)
	}
	c.B--
	b.Out(c.BC(), v)
	c.WZ = c.BC() + 1

	f := byte(0)
	if v&0x80 != 0 {
		f |= FlagN
	}
	k := int(v) + int(c.L)
	if k > 0xFF {
		f |= FlagH | FlagC
	}
	if parity(byte(k&0x07)^c.B) != 0 {
		f |= FlagPV
	}
	f |= sz53Table[c.B]
	c.F = f
	return v
}

func opOUTI(c *CPU, b bus.Bus) int { outStep(c, b, true); return 16 }
func opOUTD(c *CPU, b bus.Bus) int { outStep(c, b, false); return 16 }

func opOTIR(c *CPU, b bus.Bus) int {
	outStep(c, b, true)
	if c.B != 0 {
		c.PC -= 2
		return 21
	}
	return 16
}

func opOTDR(c *CPU, b bus.Bus) int {
	outStep(c, b, false)
	if c.B != 0 {
		c.PC -= 2
		return 21
	}
	return 16
}
