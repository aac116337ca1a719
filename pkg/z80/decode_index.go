package z80

import "github.com/possum-systems/possum/pkg/bus"

// initIndexOps builds the DD/FD-prefixed dispatch table. Most opcode bytes
// carry no IX/IY-specific meaning at all: per spec §4.7 invariant 6, an
// unrecognized DD/FD byte falls back to plain base-page behavior (at an
// extra 4 T-states the caller already charges for the prefix fetch), so
// the table starts as a literal copy of the base table and only the
// entries that actually touch H/L/(HL) are overridden.
func initIndexOps(c *CPU, table *[256]opFunc, isIX bool) {
	base := c.base
	for i := range table {
		table[i] = base[i]
	}

	table[0x09] = opIndexAddRP(isIX, 0)
	table[0x19] = opIndexAddRP(isIX, 1)
	table[0x21] = opIndexLDnn(isIX)
	table[0x22] = opIndexLDnnMem(isIX)
	table[0x23] = opIndexIncRP(isIX)
	table[0x24] = opIndexIncHi(isIX)
	table[0x25] = opIndexDecHi(isIX)
	table[0x26] = opIndexLDHiN(isIX)
	table[0x29] = opIndexAddRP(isIX, 2)
	table[0x2A] = opIndexLDMemnn(isIX)
	table[0x2B] = opIndexDecRP(isIX)
	table[0x2C] = opIndexIncLo(isIX)
	table[0x2D] = opIndexDecLo(isIX)
	table[0x2E] = opIndexLDLoN(isIX)
	table[0x34] = opIndexIncMem(isIX)
	table[0x35] = opIndexDecMem(isIX)
	table[0x36] = opIndexLDMemN(isIX)
	table[0x39] = opIndexAddRP(isIX, 3)

	for opcode := 0x40; opcode <= 0x7F; opcode++ {
		if opcode == 0x76 {
			continue // DD/FD 76 is still HALT, not LD (idx),(idx)
		}
		y := (opcode >> 3) & 7
		z := opcode & 7
		if y == 4 || y == 5 || y == 6 || z == 4 || z == 5 || z == 6 {
			table[opcode] = opIndexLDRR(isIX, y, z)
		}
	}

	for opcode := 0x80; opcode <= 0xBF; opcode++ {
		y := (opcode >> 3) & 7
		z := opcode & 7
		if z == 4 || z == 5 || z == 6 {
			table[opcode] = opIndexAluR(isIX, y, z)
		}
	}

	table[0xCB] = opIndexPrefixCB(isIX)
	table[0xE1] = opIndexPopRP(isIX)
	table[0xE3] = opIndexExSPRP(isIX)
	table[0xE5] = opIndexPushRP(isIX)
	table[0xE9] = opIndexJPMem(isIX)
	table[0xF9] = opIndexLDSP(isIX)
}

func ixReg(c *CPU, isIX bool) uint16 {
	if isIX {
		return c.IX
	}
	return c.IY
}

func setIxReg(c *CPU, isIX bool, v uint16) {
	if isIX {
		c.IX = v
	} else {
		c.IY = v
	}
}

func ixHi(c *CPU, isIX bool) byte { return byte(ixReg(c, isIX) >> 8) }
func ixLo(c *CPU, isIX bool) byte { return byte(ixReg(c, isIX)) }

func setIxHi(c *CPU, isIX bool, v byte) {
	setIxReg(c, isIX, uint16(v)<<8|uint16(ixLo(c, isIX)))
}

func setIxLo(c *CPU, isIX bool, v byte) {
	setIxReg(c, isIX, uint16(ixHi(c, isIX))<<8|uint16(v))
}

// indexedAddr fetches the displacement byte following the opcode and
// updates WZ to the resulting effective address, per spec §4.7 invariant
// 2's table for indexed addressing modes.
func indexedAddr(c *CPU, b bus.Bus, isIX bool) uint16 {
	d := int8(c.fetchByte(b))
	addr := uint16(int32(ixReg(c, isIX)) + int32(d))
	c.WZ = addr
	return addr
}

func opIndexAddRP(isIX bool, p int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		var rp uint16
		switch p {
		case 0:
			rp = c.BC()
		case 1:
			rp = c.DE()
		case 2:
			rp = ixReg(c, isIX)
		default:
			rp = c.SP
		}
		c.WZ = ixReg(c, isIX) + 1
		setIxReg(c, isIX, c.add16(ixReg(c, isIX), rp))
		return 11
	}
}

func opIndexLDnn(isIX bool) opFunc {
	return func(c *CPU, b bus.Bus) int {
		setIxReg(c, isIX, c.fetchWord(b))
		return 10
	}
}

func opIndexLDnnMem(isIX bool) opFunc {
	return func(c *CPU, b bus.Bus) int {
		nn := c.fetchWord(b)
		v := ixReg(c, isIX)
		b.Write(nn, byte(v))
		b.Write(nn+1, byte(v>>8))
		c.WZ = nn + 1
		return 16
	}
}

func opIndexLDMemnn(isIX bool) opFunc {
	return func(c *CPU, b bus.Bus) int {
		nn := c.fetchWord(b)
		lo := b.Read(nn)
		hi := b.Read(nn + 1)
		setIxReg(c, isIX, uint16(hi)<<8|uint16(lo))
		c.WZ = nn + 1
		return 16
	}
}

func opIndexIncRP(isIX bool) opFunc {
	return func(c *CPU, b bus.Bus) int {
		setIxReg(c, isIX, ixReg(c, isIX)+1)
		return 6
	}
}

func opIndexDecRP(isIX bool) opFunc {
	return func(c *CPU, b bus.Bus) int {
		setIxReg(c, isIX, ixReg(c, isIX)-1)
		return 6
	}
}

func opIndexIncHi(isIX bool) opFunc {
	return func(c *CPU, b bus.Bus) int {
		setIxHi(c, isIX, c.incByte(ixHi(c, isIX)))
		return 4
	}
}

func opIndexDecHi(isIX bool) opFunc {
	return func(c *CPU, b bus.Bus) int {
		setIxHi(c, isIX, c.decByte(ixHi(c, isIX)))
		return 4
	}
}

func opIndexIncLo(isIX bool) opFunc {
	return func(c *CPU, b bus.Bus) int {
		setIxLo(c, isIX, c.incByte(ixLo(c, isIX)))
		return 4
	}
}

func opIndexDecLo(isIX bool) opFunc {
	return func(c *CPU, b bus.Bus) int {
		setIxLo(c, isIX, c.decByte(ixLo(c, isIX)))
		return 4
	}
}

func opIndexLDHiN(isIX bool) opFunc {
	return func(c *CPU, b bus.Bus) int {
		setIxHi(c, isIX, c.fetchByte(b))
		return 7
	}
}

func opIndexLDLoN(isIX bool) opFunc {
	return func(c *CPU, b bus.Bus) int {
		setIxLo(c, isIX, c.fetchByte(b))
		return 7
	}
}

func opIndexIncMem(isIX bool) opFunc {
	return func(c *CPU, b bus.Bus) int {
		addr := indexedAddr(c, b, isIX)
		b.Write(addr, c.incByte(b.Read(addr)))
		return 19
	}
}

func opIndexDecMem(isIX bool) opFunc {
	return func(c *CPU, b bus.Bus) int {
		addr := indexedAddr(c, b, isIX)
		b.Write(addr, c.decByte(b.Read(addr)))
		return 19
	}
}

func opIndexLDMemN(isIX bool) opFunc {
	return func(c *CPU, b bus.Bus) int {
		addr := indexedAddr(c, b, isIX)
		n := c.fetchByte(b)
		b.Write(addr, n)
		return 15
	}
}

// ixRead8/ixWrite8 read/write the register slot used by LD/ALU opcodes
// under a DD/FD prefix: idx 4/5 address IXH/IXL (no displacement byte),
// idx 6 addresses (IX+d) (consumes a displacement byte), everything else
// is an ordinary B/C/D/E/A access untouched by the prefix.
func ixRead8(c *CPU, b bus.Bus, isIX bool, idx int) byte {
	switch idx {
	case 4:
		return ixHi(c, isIX)
	case 5:
		return ixLo(c, isIX)
	case 6:
		return b.Read(indexedAddr(c, b, isIX))
	default:
		return c.readR8(b, idx)
	}
}

func ixWrite8(c *CPU, b bus.Bus, isIX bool, idx int, v byte) {
	switch idx {
	case 4:
		setIxHi(c, isIX, v)
	case 5:
		setIxLo(c, isIX, v)
	case 6:
		b.Write(indexedAddr(c, b, isIX), v)
	default:
		c.writeR8(b, idx, v)
	}
}

func opIndexLDRR(isIX bool, y, z int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		v := ixRead8(c, b, isIX, z)
		ixWrite8(c, b, isIX, y, v)
		if y == 6 || z == 6 {
			return 15
		}
		return 4
	}
}

func opIndexAluR(isIX bool, y, z int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		v := ixRead8(c, b, isIX, z)
		c.aluOp(y, v)
		if z == 6 {
			return 15
		}
		return 4
	}
}

func opIndexPopRP(isIX bool) opFunc {
	return func(c *CPU, b bus.Bus) int {
		setIxReg(c, isIX, c.pop(b))
		return 10
	}
}

func opIndexPushRP(isIX bool) opFunc {
	return func(c *CPU, b bus.Bus) int {
		c.push(b, ixReg(c, isIX))
		return 11
	}
}

func opIndexExSPRP(isIX bool) opFunc {
	return func(c *CPU, b bus.Bus) int {
		lo := b.Read(c.SP)
		hi := b.Read(c.SP + 1)
		old := ixReg(c, isIX)
		b.Write(c.SP, byte(old))
		b.Write(c.SP+1, byte(old>>8))
		setIxReg(c, isIX, uint16(hi)<<8|uint16(lo))
		c.WZ = ixReg(c, isIX)
		return 19
	}
}

func opIndexJPMem(isIX bool) opFunc {
	return func(c *CPU, b bus.Bus) int {
		c.PC = ixReg(c, isIX)
		return 4
	}
}

func opIndexLDSP(isIX bool) opFunc {
	return func(c *CPU, b bus.Bus) int {
		c.SP = ixReg(c, isIX)
		return 6
	}
}

// opIndexPrefixCB implements the DDCB/FDCB compound page: displacement
// byte, then a CB-style opcode that operates on (IX+d)/(IY+d), optionally
// also copying the result into an 8-bit register (the undocumented
// "shadow" forms where z != 6 still writes back to (IX+d)).
func opIndexPrefixCB(isIX bool) opFunc {
	return func(c *CPU, b bus.Bus) int {
		d := int8(c.fetchByte(b))
		opcode := c.fetchByte(b)
		addr := uint16(int32(ixReg(c, isIX)) + int32(d))
		c.WZ = addr

		x := opcode >> 6
		y := int((opcode >> 3) & 7)
		z := int(opcode & 7)

		v := b.Read(addr)
		var result byte

		switch x {
		case 0:
			result = rotOps[y](c, v)
		case 1:
			c.bitTest(uint(y), v, byte(c.WZ>>8))
			return 16
		case 2:
			result = resBit(uint(y), v)
		default:
			result = setBit(uint(y), v)
		}

		b.Write(addr, result)
		if z != 6 {
			c.writeR8(b, z, result)
		}
		return 19
	}
}
