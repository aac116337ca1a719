// Package z80 implements a cycle-counted, flag- and WZ-accurate emulator
// for the Z80 instruction set, including all four prefix pages and the
// compound DDCB/FDCB indexed-bit pages.
package z80

import "github.com/possum-systems/possum/pkg/bus"

// InterruptMode is the CPU's interrupt-mode register (IM 0/1/2).
type InterruptMode int

const (
	IM0 InterruptMode = iota
	IM1
	IM2
)

// CPU holds the full architectural state of a Z80 core.
type CPU struct {
	A, F byte
	B, C byte
	D, E byte
	H, L byte

	A2, F2 byte
	B2, C2 byte
	D2, E2 byte
	H2, L2 byte

	IX, IY uint16
	SP, PC uint16
	I, R   byte
	WZ     uint16

	IM   InterruptMode
	IFF1 bool
	IFF2 bool

	Halted   bool
	eiDelay  bool // true for the instruction immediately after EI
	justReti bool

	irqLine bool
	nmiLine bool
	nmiPrev bool

	base [256]opFunc
	cb   [256]opFunc
	ed   [256]opFunc
	dd   [256]opFunc
	fd   [256]opFunc
}

// opFunc executes one decoded instruction and returns its T-state cost.
// Entries of the base, cb and ed tables return the full total, CB/ED
// prefix byte included; dd and fd entries leave out the 4 T-states of
// the DD/FD byte, which the DD/FD prefix handlers add.
type opFunc func(c *CPU, b bus.Bus) int

// New returns a CPU in its post-reset state.
func New() *CPU {
	c := &CPU{}
	c.Reset()
	return c
}

// Reset restores power-on state: PC and registers zeroed, SP=0xFFFF, IFF1/IFF2 clear,
// IM0, AF=0xFFFF (matches the teacher's own convention of an all-ones
// flag/accumulator reset state, harmless since software always sets A/F
// explicitly before relying on them).
func (c *CPU) Reset() {
	*c = CPU{}
	c.A, c.F = 0xFF, 0xFF
	c.A2, c.F2 = 0xFF, 0xFF
	c.SP = 0xFFFF
	initBaseOps(c)
	initCBOps(c)
	initEDOps(c)
	initIndexOps(c, &c.dd, true)
	initIndexOps(c, &c.fd, false)
}

func (c *CPU) BC() uint16 { return uint16(c.B)<<8 | uint16(c.C) }
func (c *CPU) DE() uint16 { return uint16(c.D)<<8 | uint16(c.E) }
func (c *CPU) HL() uint16 { return uint16(c.H)<<8 | uint16(c.L) }
func (c *CPU) AF() uint16 { return uint16(c.A)<<8 | uint16(c.F) }

func (c *CPU) SetBC(v uint16) { c.B, c.C = byte(v>>8), byte(v) }
func (c *CPU) SetDE(v uint16) { c.D, c.E = byte(v>>8), byte(v) }
func (c *CPU) SetHL(v uint16) { c.H, c.L = byte(v>>8), byte(v) }
func (c *CPU) SetAF(v uint16) { c.A, c.F = byte(v>>8), byte(v) }

func (c *CPU) Flag(mask byte) bool { return c.F&mask != 0 }

func (c *CPU) SetFlag(mask byte, v bool) {
	if v {
		c.F |= mask
	} else {
		c.F &^= mask
	}
}

// ExAF exchanges AF with its shadow.
func (c *CPU) ExAF() {
	c.A, c.A2 = c.A2, c.A
	c.F, c.F2 = c.F2, c.F
}

// Exx exchanges BC/DE/HL with their shadows.
func (c *CPU) Exx() {
	c.B, c.B2 = c.B2, c.B
	c.C, c.C2 = c.C2, c.C
	c.D, c.D2 = c.D2, c.D
	c.E, c.E2 = c.E2, c.E
	c.H, c.H2 = c.H2, c.H
	c.L, c.L2 = c.L2, c.L
}

// SetIRQLine sets the level of the maskable interrupt line.
func (c *CPU) SetIRQLine(v bool) { c.irqLine = v }

// SetNMILine sets the level of the non-maskable interrupt line; NMI fires
// on the rising edge.
func (c *CPU) SetNMILine(v bool) { c.nmiLine = v }

// Reti reports whether the instruction just executed by Step was RETI.
// True for exactly one Step call, so a caller driving devices off the
// reti edge (spec §4.8) sees it on the tick immediately following.
func (c *CPU) Reti() bool { return c.justReti }

func (c *CPU) incrementR() {
	c.R = (c.R & 0x80) | ((c.R + 1) & 0x7F)
}

func (c *CPU) fetchByte(b bus.Bus) byte {
	v := b.Read(c.PC)
	c.PC++
	return v
}

func (c *CPU) fetchWord(b bus.Bus) uint16 {
	lo := c.fetchByte(b)
	hi := c.fetchByte(b)
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) push(b bus.Bus, v uint16) {
	c.SP--
	b.Write(c.SP, byte(v>>8))
	c.SP--
	b.Write(c.SP, byte(v))
}

func (c *CPU) pop(b bus.Bus) uint16 {
	lo := b.Read(c.SP)
	c.SP++
	hi := b.Read(c.SP)
	c.SP++
	return uint16(hi)<<8 | uint16(lo)
}
