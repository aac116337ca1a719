package z80

import "github.com/possum-systems/possum/pkg/bus"

// initBaseOps builds the unprefixed opcode dispatch table using the
// standard x/y/z/p/q decomposition of the opcode byte (x = bits 7-6, y =
// bits 5-3, z = bits 2-0, p = y>>1, q = y&1). Each entry's func computes
// its own T-state total, matching the documented Zilog counts.
func initBaseOps(c *CPU) {
	for opcode := 0; opcode < 256; opcode++ {
		c.base[opcode] = buildBaseOp(opcode)
	}
}

func buildBaseOp(opcode int) opFunc {
	x := opcode >> 6
	y := (opcode >> 3) & 7
	z := opcode & 7
	p := y >> 1
	q := y & 1

	switch x {
	case 0:
		switch z {
		case 0:
			switch {
			case y == 0:
				return opNop
			case y == 1:
				return opExAFAF
			case y == 2:
				return opDJNZ
			case y == 3:
				return opJR
			default:
				cc := y - 4
				return opJRCond(cc)
			}
		case 1:
			if q == 0 {
				return opLDRPnn(p)
			}
			return opADDHLrp(p)
		case 2:
			return opIndirectLoad(p, q)
		case 3:
			if q == 0 {
				return opIncRP(p)
			}
			return opDecRP(p)
		case 4:
			return opIncR(y)
		case 5:
			return opDecR(y)
		case 6:
			return opLDRn(y)
		case 7:
			return opBlockAccum(y)
		}
	case 1:
		if y == 6 && z == 6 {
			return opHalt
		}
		return opLDRR(y, z)
	case 2:
		return opAluR(y, z)
	case 3:
		switch z {
		case 0:
			return opRetCond(y)
		case 1:
			if q == 0 {
				return opPopRP2(p)
			}
			switch p {
			case 0:
				return opRet
			case 1:
				return opExx
			case 2:
				return opJPHLIndirect
			default:
				return opLDSPHL
			}
		case 2:
			return opJPCondnn(y)
		case 3:
			switch y {
			case 0:
				return opJPnn
			case 1:
				return opPrefixCB
			case 2:
				return opOutNA
			case 3:
				return opInANop
			case 4:
				return opExSPHL
			case 5:
				return opExDEHL
			case 6:
				return opDI
			default:
				return opEI
			}
		case 4:
			return opCallCondnn(y)
		case 5:
			if q == 0 {
				return opPushRP2(p)
			}
			switch p {
			case 0:
				return opCallnn
			case 1:
				return opPrefixDD
			case 2:
				return opPrefixED
			default:
				return opPrefixFD
			}
		case 6:
			return opAluN(y)
		case 7:
			return opRST(y)
		}
	}
	return opNop
}

func opNop(c *CPU, b bus.Bus) int { return 4 }

func opExAFAF(c *CPU, b bus.Bus) int {
	c.ExAF()
	return 4
}

func opExx(c *CPU, b bus.Bus) int {
	c.Exx()
	return 4
}

func opDJNZ(c *CPU, b bus.Bus) int {
	d := int8(c.fetchByte(b))
	c.B--
	if c.B != 0 {
		c.PC = uint16(int32(c.PC) + int32(d))
		c.WZ = c.PC
		return 13
	}
	return 8
}

func opJR(c *CPU, b bus.Bus) int {
	d := int8(c.fetchByte(b))
	c.PC = uint16(int32(c.PC) + int32(d))
	c.WZ = c.PC
	return 12
}

func opJRCond(cc int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		d := int8(c.fetchByte(b))
		if c.condTrue(cc) {
			c.PC = uint16(int32(c.PC) + int32(d))
			c.WZ = c.PC
			return 12
		}
		return 7
	}
}

func opLDRPnn(p int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		v := c.fetchWord(b)
		c.setRP(p, v)
		return 10
	}
}

func opADDHLrp(p int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		c.WZ = c.HL() + 1
		c.SetHL(c.add16(c.HL(), c.getRP(p)))
		return 11
	}
}

func opIndirectLoad(p, q int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		switch {
		case q == 0 && p == 0: // LD (BC),A
			b.Write(c.BC(), c.A)
			c.WZ = uint16(c.A)<<8 | (c.BC()+1)&0xFF
			return 7
		case q == 0 && p == 1: // LD (DE),A
			b.Write(c.DE(), c.A)
			c.WZ = uint16(c.A)<<8 | (c.DE()+1)&0xFF
			return 7
		case q == 0 && p == 2: // LD (nn),HL
			nn := c.fetchWord(b)
			b.Write(nn, c.L)
			b.Write(nn+1, c.H)
			c.WZ = nn + 1
			return 16
		case q == 0: // LD (nn),A
			nn := c.fetchWord(b)
			b.Write(nn, c.A)
			c.WZ = uint16(c.A)<<8 | (nn+1)&0xFF
			return 13
		case q == 1 && p == 0: // LD A,(BC)
			c.A = b.Read(c.BC())
			c.WZ = c.BC() + 1
			return 7
		case q == 1 && p == 1: // LD A,(DE)
			c.A = b.Read(c.DE())
			c.WZ = c.DE() + 1
			return 7
		case q == 1 && p == 2: // LD HL,(nn)
			nn := c.fetchWord(b)
			c.L = b.Read(nn)
			c.H = b.Read(nn + 1)
			c.WZ = nn + 1
			return 16
		default: // LD A,(nn)
			nn := c.fetchWord(b)
			c.A = b.Read(nn)
			c.WZ = nn + 1
			return 13
		}
	}
}

func opIncRP(p int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		c.setRP(p, c.getRP(p)+1)
		return 6
	}
}

func opDecRP(p int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		c.setRP(p, c.getRP(p)-1)
		return 6
	}
}

func opIncR(y int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		v := c.readR8(b, y)
		c.writeR8(b, y, c.incByte(v))
		if y == 6 {
			return 11
		}
		return 4
	}
}

func opDecR(y int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		v := c.readR8(b, y)
		c.writeR8(b, y, c.decByte(v))
		if y == 6 {
			return 11
		}
		return 4
	}
}

func opLDRn(y int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		n := c.fetchByte(b)
		c.writeR8(b, y, n)
		if y == 6 {
			return 10
		}
		return 7
	}
}

func opBlockAccum(y int) opFunc {
	fns := [8]func(*CPU, bus.Bus) int{
		func(c *CPU, b bus.Bus) int { c.rlca(); return 4 },
		func(c *CPU, b bus.Bus) int { c.rrca(); return 4 },
		func(c *CPU, b bus.Bus) int { c.rla(); return 4 },
		func(c *CPU, b bus.Bus) int { c.rra(); return 4 },
		func(c *CPU, b bus.Bus) int { c.daa(); return 4 },
		func(c *CPU, b bus.Bus) int { c.cpl(); return 4 },
		func(c *CPU, b bus.Bus) int { c.scf(); return 4 },
		func(c *CPU, b bus.Bus) int { c.ccf(); return 4 },
	}
	return fns[y]
}

func opHalt(c *CPU, b bus.Bus) int {
	c.Halted = true
	c.PC--
	return 4
}

func opLDRR(y, z int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		v := c.readR8(b, z)
		c.writeR8(b, y, v)
		if y == 6 || z == 6 {
			return 7
		}
		return 4
	}
}

func opAluR(y, z int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		v := c.readR8(b, z)
		c.aluOp(y, v)
		if z == 6 {
			return 7
		}
		return 4
	}
}

func opAluN(y int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		n := c.fetchByte(b)
		c.aluOp(y, n)
		return 7
	}
}

func opRetCond(cc int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		if c.condTrue(cc) {
			c.PC = c.pop(b)
			c.WZ = c.PC
			return 11
		}
		return 5
	}
}

func opRet(c *CPU, b bus.Bus) int {
	c.PC = c.pop(b)
	c.WZ = c.PC
	return 10
}

func opPopRP2(p int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		c.setRP2(p, c.pop(b))
		return 10
	}
}

func opPushRP2(p int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		c.push(b, c.getRP2(p))
		return 11
	}
}

func opJPHLIndirect(c *CPU, b bus.Bus) int {
	c.PC = c.HL()
	return 4
}

func opLDSPHL(c *CPU, b bus.Bus) int {
	c.SP = c.HL()
	return 6
}

func opJPCondnn(cc int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		nn := c.fetchWord(b)
		c.WZ = nn
		if c.condTrue(cc) {
			c.PC = nn
		}
		return 10
	}
}

func opJPnn(c *CPU, b bus.Bus) int {
	nn := c.fetchWord(b)
	c.PC = nn
	c.WZ = nn
	return 10
}

func opOutNA(c *CPU, b bus.Bus) int {
	n := c.fetchByte(b)
	port := uint16(c.A)<<8 | uint16(n)
	b.Out(port, c.A)
	c.WZ = (uint16(c.A) << 8) | uint16(n+1)
	return 11
}

func opInANop(c *CPU, b bus.Bus) int {
	n := c.fetchByte(b)
	port := uint16(c.A)<<8 | uint16(n)
	c.A = b.In(port)
	c.WZ = port + 1
	return 11
}

func opExSPHL(c *CPU, b bus.Bus) int {
	lo := b.Read(c.SP)
	hi := b.Read(c.SP + 1)
	old := c.HL()
	b.Write(c.SP, byte(old))
	b.Write(c.SP+1, byte(old>>8))
	c.SetHL(uint16(hi)<<8 | uint16(lo))
	c.WZ = c.HL()
	return 19
}

func opExDEHL(c *CPU, b bus.Bus) int {
	de, hl := c.DE(), c.HL()
	c.SetDE(hl)
	c.SetHL(de)
	return 4
}

func opDI(c *CPU, b bus.Bus) int {
	c.IFF1, c.IFF2 = false, false
	return 4
}

func opEI(c *CPU, b bus.Bus) int {
	c.IFF1, c.IFF2 = true, true
	c.eiDelay = true
	return 4
}

func opCallCondnn(cc int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		nn := c.fetchWord(b)
		c.WZ = nn
		if c.condTrue(cc) {
			c.push(b, c.PC)
			c.PC = nn
			return 17
		}
		return 10
	}
}

func opCallnn(c *CPU, b bus.Bus) int {
	nn := c.fetchWord(b)
	c.WZ = nn
	c.push(b, c.PC)
	c.PC = nn
	return 17
}

func opRST(y int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		c.push(b, c.PC)
		c.PC = uint16(y * 8)
		c.WZ = c.PC
		return 11
	}
}

// opPrefixCB/opPrefixED dispatch into tables whose entries already store
// the full documented T-state total for the two-byte instruction (the CB
// or ED byte's own 4 T-states included), so nothing is added here.
func opPrefixCB(c *CPU, b bus.Bus) int {
	opcode := c.fetchByte(b)
	c.incrementR()
	return c.cb[opcode](c, b)
}

func opPrefixED(c *CPU, b bus.Bus) int {
	opcode := c.fetchByte(b)
	c.incrementR()
	return c.ed[opcode](c, b)
}

// opPrefixDD/opPrefixFD, unlike CB/ED above, dispatch into tables cloned
// from the base page: their entries store the same T-state values as the
// equivalent unprefixed instruction, so the prefix byte's own 4 T-states
// are added here on top.
func opPrefixDD(c *CPU, b bus.Bus) int {
	opcode := c.fetchByte(b)
	c.incrementR()
	return 4 + c.dd[opcode](c, b)
}

func opPrefixFD(c *CPU, b bus.Bus) int {
	opcode := c.fetchByte(b)
	c.incrementR()
	return 4 + c.fd[opcode](c, b)
}
