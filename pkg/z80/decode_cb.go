package z80

import "github.com/possum-systems/possum/pkg/bus"

// initCBOps builds the CB-prefixed dispatch table: x=0 rotate/shift
// group, x=1 BIT, x=2 RES, x=3 SET, all indexed by (y, z) exactly as the
// unprefixed table's r[z] selects the operand.
func initCBOps(c *CPU) {
	for opcode := 0; opcode < 256; opcode++ {
		c.cb[opcode] = buildCBOp(opcode)
	}
}

func buildCBOp(opcode int) opFunc {
	x := opcode >> 6
	y := (opcode >> 3) & 7
	z := opcode & 7

	switch x {
	case 0:
		return opCBRot(y, z)
	case 1:
		return opCBBit(y, z)
	case 2:
		return opCBRes(y, z)
	default:
		return opCBSet(y, z)
	}
}

func opCBRot(y, z int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		v := c.readR8(b, z)
		result := rotOps[y](c, v)
		c.writeR8(b, z, result)
		if z == 6 {
			return 15
		}
		return 8
	}
}

func opCBBit(n, z int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		v := c.readR8(b, z)
		xy := v
		if z == 6 {
			xy = byte(c.WZ >> 8)
		}
		c.bitTest(uint(n), v, xy)
		if z == 6 {
			return 12
		}
		return 8
	}
}

func opCBRes(n, z int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		v := c.readR8(b, z)
		c.writeR8(b, z, resBit(uint(n), v))
		if z == 6 {
			return 15
		}
		return 8
	}
}

func opCBSet(n, z int) opFunc {
	return func(c *CPU, b bus.Bus) int {
		v := c.readR8(b, z)
		c.writeR8(b, z, setBit(uint(n), v))
		if z == 6 {
			return 15
		}
		return 8
	}
}
