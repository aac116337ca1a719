package z80

import (
	"testing"

	"github.com/possum-systems/possum/pkg/bus"
)

func TestNop(t *testing.T) {
	c := New()
	b := bus.NewTestBus()
	b.Mem[0] = 0x00

	r := c.R
	t_ := c.Step(b)

	if t_ != 4 {
		t.Fatalf("NOP took %d T-states, want 4", t_)
	}
	if c.PC != 1 {
		t.Fatalf("PC = %d, want 1", c.PC)
	}
	if c.R != (r&0x80)|((r+1)&0x7F) {
		t.Fatalf("R = %#x, want low 7 bits incremented from %#x", c.R, r)
	}
}

func TestLDBCnn(t *testing.T) {
	c := New()
	b := bus.NewTestBus()
	b.Mem[0] = 0x01
	b.Mem[1] = 0x34
	b.Mem[2] = 0x12

	tStates := c.Step(b)

	if c.PC != 3 {
		t.Fatalf("PC = %d, want 3", c.PC)
	}
	if c.BC() != 0x1234 {
		t.Fatalf("BC = %#x, want 0x1234", c.BC())
	}
	if tStates != 10 {
		t.Fatalf("LD BC,nn took %d T-states, want 10", tStates)
	}
}

func TestIncABoundaries(t *testing.T) {
	cases := []struct {
		a, want byte
		h, z, s, pv bool
	}{
		{0x0F, 0x10, true, false, false, false},
		{0x7F, 0x80, true, false, true, true},
		{0xFF, 0x00, true, true, false, false},
	}
	for _, tc := range cases {
		c := New()
		b := bus.NewTestBus()
		c.A = tc.a
		b.Mem[0] = 0x3C // INC A

		c.Step(b)

		if c.A != tc.want {
			t.Fatalf("INC A: %#x -> %#x, want %#x", tc.a, c.A, tc.want)
		}
		if c.Flag(FlagH) != tc.h {
			t.Errorf("INC A %#x: H = %v, want %v", tc.a, c.Flag(FlagH), tc.h)
		}
		if c.Flag(FlagZ) != tc.z {
			t.Errorf("INC A %#x: Z = %v, want %v", tc.a, c.Flag(FlagZ), tc.z)
		}
		if c.Flag(FlagS) != tc.s {
			t.Errorf("INC A %#x: S = %v, want %v", tc.a, c.Flag(FlagS), tc.s)
		}
		if c.Flag(FlagPV) != tc.pv {
			t.Errorf("INC A %#x: P/V = %v, want %v", tc.a, c.Flag(FlagPV), tc.pv)
		}
	}
}

func TestHaltReentersUntilInterrupt(t *testing.T) {
	c := New()
	b := bus.NewTestBus()
	b.Mem[0] = 0x76 // HALT

	c.Step(b)
	if !c.Halted {
		t.Fatalf("expected Halted after HALT")
	}
	pc := c.PC
	for i := 0; i < 3; i++ {
		tStates := c.Step(b)
		if tStates != 4 {
			t.Fatalf("halted NOP-step took %d, want 4", tStates)
		}
		if c.PC != pc {
			t.Fatalf("PC moved while halted: %d -> %d", pc, c.PC)
		}
	}
}

func TestCPIDecrementsBCAndSetsPV(t *testing.T) {
	c := New()
	b := bus.NewTestBus()
	c.A = 0x42
	c.SetHL(0x1000)
	c.SetBC(2)
	b.Mem[0x1000] = 0x42

	opCPI(c, b)

	if c.HL() != 0x1001 {
		t.Fatalf("HL = %#x, want 0x1001", c.HL())
	}
	if c.BC() != 1 {
		t.Fatalf("BC = %#x, want 1", c.BC())
	}
	if !c.Flag(FlagZ) {
		t.Fatalf("expected Z set when A == (HL)")
	}
	if !c.Flag(FlagPV) {
		t.Fatalf("expected P/V set while BC != 0")
	}
}

func TestCPIRRepeatsUntilMatchOrBCZero(t *testing.T) {
	c := New()
	b := bus.NewTestBus()
	c.A = 0x99
	c.SetHL(0x2000)
	c.SetBC(3)
	b.Mem[0x2000] = 0x01
	b.Mem[0x2001] = 0x02
	b.Mem[0x2002] = 0x99
	c.PC = 0x4000
	b.Mem[0x4000] = 0xED
	b.Mem[0x4001] = 0xB1 // CPIR

	for i := 0; i < 3; i++ {
		c.Step(b)
	}

	if c.HL() != 0x2003 {
		t.Fatalf("HL = %#x, want 0x2003", c.HL())
	}
	if c.BC() != 0 {
		t.Fatalf("BC = %#x, want 0", c.BC())
	}
	if !c.Flag(FlagZ) {
		t.Fatalf("expected Z set on the matching byte")
	}
	if c.PC != 0x4002 {
		t.Fatalf("PC = %#x, want 0x4002 once the match stops the repeat", c.PC)
	}
}

func TestLDIRCopiesBlock(t *testing.T) {
	c := New()
	b := bus.NewTestBus()
	c.SetHL(0x1000)
	c.SetDE(0x2000)
	c.SetBC(3)
	b.Mem[0x1000], b.Mem[0x1001], b.Mem[0x1002] = 0xAA, 0xBB, 0xCC
	c.PC = 0x4000
	b.Mem[0x4000] = 0xED
	b.Mem[0x4001] = 0xB0 // LDIR

	for i := 0; i < 3; i++ {
		c.Step(b)
	}

	if b.Mem[0x2000] != 0xAA || b.Mem[0x2001] != 0xBB || b.Mem[0x2002] != 0xCC {
		t.Fatalf("block not copied: %v", b.Mem[0x2000:0x2003])
	}
	if c.BC() != 0 {
		t.Fatalf("BC = %#x, want 0", c.BC())
	}
	if c.Flag(FlagPV) {
		t.Fatalf("expected P/V clear once BC reaches 0")
	}
}

func TestIndexedLoadIXPlusD(t *testing.T) {
	c := New()
	b := bus.NewTestBus()
	c.IX = 0x3000
	b.Mem[0x3005] = 0x77
	c.PC = 0x8000
	b.Mem[0x8000] = 0xDD
	b.Mem[0x8001] = 0x7E // LD A,(IX+d)
	b.Mem[0x8002] = 5

	tStates := c.Step(b)

	if c.A != 0x77 {
		t.Fatalf("A = %#x, want 0x77", c.A)
	}
	if tStates != 19 {
		t.Fatalf("LD A,(IX+d) took %d T-states, want 19", tStates)
	}
	if c.WZ != 0x3005 {
		t.Fatalf("WZ = %#x, want 0x3005", c.WZ)
	}
}

func TestIndexedIncIXH(t *testing.T) {
	c := New()
	b := bus.NewTestBus()
	c.IX = 0x12FF
	c.PC = 0x8000
	b.Mem[0x8000] = 0xDD
	b.Mem[0x8001] = 0x24 // INC IXH (undocumented)

	c.Step(b)

	if c.IX != 0x13FF {
		t.Fatalf("IX = %#x, want 0x13FF", c.IX)
	}
}

func TestDDCBBitTest(t *testing.T) {
	c := New()
	b := bus.NewTestBus()
	c.IX = 0x4000
	b.Mem[0x4002] = 0x80 // bit 7 set
	c.PC = 0x9000
	b.Mem[0x9000] = 0xDD
	b.Mem[0x9001] = 0xCB
	b.Mem[0x9002] = 2
	b.Mem[0x9003] = 0x7E // BIT 7,(IX+2)

	tStates := c.Step(b)

	if !c.Flag(FlagS) {
		t.Fatalf("expected S set testing bit 7 of a set bit")
	}
	if c.Flag(FlagZ) {
		t.Fatalf("expected Z clear, bit was set")
	}
	if tStates != 20 {
		t.Fatalf("DDCB BIT took %d T-states, want 20", tStates)
	}
}

func TestDAAAfterAdd(t *testing.T) {
	c := New()
	b := bus.NewTestBus()
	c.A = 0x09
	c.addA(0x08, false)
	b.Mem[0] = 0x27 // DAA

	c.Step(b)

	if c.A != 0x17 {
		t.Fatalf("A = %#x, want 0x17 after DAA", c.A)
	}
}

func TestUndefinedEDOpcodeFallsBackToBasePage(t *testing.T) {
	c := New()
	b := bus.NewTestBus()
	b.Mem[0] = 0xED
	b.Mem[1] = 0x3C // INC A re-decoded on the base page
	c.A = 0x01

	tStates := c.Step(b)

	if c.A != 0x02 {
		t.Fatalf("A = %#x, want 0x02 (INC A re-decoded after undefined ED byte)", c.A)
	}
	if c.PC != 2 {
		t.Fatalf("PC = %d, want 2", c.PC)
	}
	if tStates != 8 {
		t.Fatalf("undefined ED + INC A took %d T-states, want 8", tStates)
	}
}

func TestMaskableInterruptIM1(t *testing.T) {
	c := New()
	b := bus.NewTestBus()
	c.IFF1, c.IFF2 = true, true
	c.IM = IM1
	c.SetIRQLine(true)
	c.PC = 0x1234
	c.SP = 0x8000

	tStates := c.Step(b)

	if c.PC != 0x0038 {
		t.Fatalf("PC = %#x, want 0x0038", c.PC)
	}
	if c.IFF1 || c.IFF2 {
		t.Fatalf("expected IFF1/IFF2 cleared on interrupt acknowledge")
	}
	if tStates != 13 {
		t.Fatalf("IM1 ack took %d T-states, want 13", tStates)
	}
	if c.pop(b) != 0x1234 {
		t.Fatalf("expected return address 0x1234 pushed")
	}
}
