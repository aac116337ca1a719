package sys

import (
	"testing"

	"github.com/possum-systems/possum/pkg/bus"
	"github.com/possum-systems/possum/pkg/z80"
)

type stubDevice struct {
	interrupting bool
	vector       byte
	acked        int
	reads        []byte
	writes       []byte
	ticks        int
	retiTicks    int
}

func (d *stubDevice) Tick(b bus.DeviceBus) {
	d.ticks++
	if b.Reti() {
		d.retiTicks++
	}
}
func (d *stubDevice) Read(port uint16) byte {
	d.reads = append(d.reads, byte(port))
	return byte(port)
}
func (d *stubDevice) Write(port uint16, data byte) { d.writes = append(d.writes, data) }
func (d *stubDevice) Interrupting() bool           { return d.interrupting }
func (d *stubDevice) InterruptVector() byte        { return d.vector }
func (d *stubDevice) AckInterrupt()                { d.acked++ }

func newMachine(ser1, ser2, hd, vdc, kb bus.Device) *Machine {
	return New(z80.New(), ser1, ser2, hd, vdc, kb)
}

func TestBankSwitchLeavesShadowUnaffected(t *testing.T) {
	m := newMachine(nil, nil, nil, nil, nil)
	m.bank.Select(1)
	m.ram[0] = 0x11   // shadow byte, bank-independent
	m.ram[bankSize+0x0500] = 0x22 // bank 1's view of 0x0500

	view := &cpuView{m: m}
	if got := view.Read(0); got != 0x11 {
		t.Fatalf("shadow read = %#x, want 0x11", got)
	}
	if got := view.Read(0x0500); got != 0x22 {
		t.Fatalf("banked read = %#x, want 0x22", got)
	}

	m.bank.Select(0)
	if got := view.Read(0x0500); got != 0x00 {
		t.Fatalf("bank 0 at 0x0500 = %#x, want 0x00 (untouched)", got)
	}
}

func TestBankSelectMasksToFiveBits(t *testing.T) {
	m := newMachine(nil, nil, nil, nil, nil)
	m.bank.Select(0xFF)
	if got := m.bank.Bank(); got != bankMax {
		t.Fatalf("Bank() = %#x, want %#x", got, bankMax)
	}
}

func TestInterruptPriorityPicksHighest(t *testing.T) {
	ser1 := &stubDevice{vector: 0x10}
	hd := &stubDevice{interrupting: true, vector: 0x20}
	vdc := &stubDevice{interrupting: true, vector: 0x40}
	m := newMachine(ser1, nil, hd, vdc, nil)

	view := &cpuView{m: m}
	if got := m.interruptCause(); got != PriorityHD {
		t.Fatalf("interruptCause() = %#x, want PriorityHD (SER1 not interrupting)", got)
	}
	if got := view.InterruptVector(); got != 0x20 {
		t.Fatalf("InterruptVector() = %#x, want HD's 0x20", got)
	}

	ser1.interrupting = true
	if got := m.interruptCause(); got != PrioritySER1 {
		t.Fatalf("interruptCause() = %#x, want PrioritySER1 once it interrupts", got)
	}
}

func TestInterruptCausePortReadsIdleWhenNonePending(t *testing.T) {
	m := newMachine(nil, nil, nil, nil, nil)
	view := &cpuView{m: m}
	if got := view.In(portIC); got != ICIdle {
		t.Fatalf("In(portIC) = %#x, want ICIdle", got)
	}
}

func TestHDPortBlockRoutesToDevice(t *testing.T) {
	hd := &stubDevice{}
	m := newMachine(nil, nil, hd, nil, nil)
	view := &cpuView{m: m}

	view.Out(blockHD|0x07, 0x55)
	if len(hd.writes) != 1 || hd.writes[0] != 0x55 {
		t.Fatalf("hd.writes = %v, want [0x55]", hd.writes)
	}

	view.In(blockHD | 0x02)
	if len(hd.reads) != 1 || hd.reads[0] != byte(blockHD|0x02) {
		t.Fatalf("hd.reads = %v, want [%#x]", hd.reads, blockHD|0x02)
	}
}

func TestStepTicksDevicesByReturnedCycleCount(t *testing.T) {
	ser1 := &stubDevice{}
	m := newMachine(ser1, nil, nil, nil, nil)
	m.LoadROM([]byte{0x00}, 0) // NOP: 4 T-states

	cycles := m.Step()
	if cycles != 4 {
		t.Fatalf("Step() = %d, want 4", cycles)
	}
	if ser1.ticks != 4 {
		t.Fatalf("ser1 ticked %d times, want 4", ser1.ticks)
	}
}

func TestRetiEdgeExposedForExactlyOneTick(t *testing.T) {
	ser1 := &stubDevice{}
	m := newMachine(ser1, nil, nil, nil, nil)
	// ED 4D: RETI. Push a return address first so it has somewhere to go.
	m.LoadROM([]byte{0x21, 0x00, 0x10}, 0) // LD HL,0x1000
	m.LoadROM([]byte{0xE5}, 3)             // PUSH HL
	m.LoadROM([]byte{0xED, 0x4D}, 4)       // RETI

	m.Step() // LD HL,nn
	m.Step() // PUSH HL
	m.Step() // RETI

	if ser1.retiTicks != 1 {
		t.Fatalf("reti-edge ticks = %d, want exactly 1", ser1.retiTicks)
	}
}

func TestLoadROMPlacesBytesAtOffset(t *testing.T) {
	m := newMachine(nil, nil, nil, nil, nil)
	m.LoadROM([]byte{0xAA, 0xBB}, 0x10)
	if m.ram[0x10] != 0xAA || m.ram[0x11] != 0xBB {
		t.Fatalf("ROM not placed at offset: %#x %#x", m.ram[0x10], m.ram[0x11])
	}
}

func TestHaltedReflectsCPUState(t *testing.T) {
	m := newMachine(nil, nil, nil, nil, nil)
	m.LoadROM([]byte{0x76}, 0) // HALT
	m.Step()
	if !m.Halted() {
		t.Fatalf("expected Halted() true after executing HALT")
	}
}
