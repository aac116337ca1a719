// Package sys ties the CPU core and peripherals together into one
// runnable machine: bank-switched RAM, the interrupt-controller port,
// and the Step loop that drives time-based devices off the CPU's own
// T-state count.
package sys

import (
	"github.com/possum-systems/possum/pkg/bus"
	"github.com/possum-systems/possum/pkg/z80"
)

const (
	bankSize       = 0x10000
	bankMax        = 0x1F
	bankShadowSize = 0x0400
)

// I/O port addresses. The high nibble selects a device block, except in
// 0x10-0x1F where bit 3 splits SER1 (0x10-0x17) from SER2 (0x18-0x1F);
// the remaining low bits select a register within the block. IC/BANK/KB
// share one block since none of the three needs more than a handful of
// ports.
const (
	portIC   uint16 = 0x00
	portBank uint16 = 0x01
	portKB   uint16 = 0x02

	blockIC   uint16 = 0x00
	blockSER1 uint16 = 0x10
	blockSER2 uint16 = 0x18
	blockHD   uint16 = 0x20
	blockVDC  uint16 = 0x40
)

// Interrupt priority codes returned by a read of portIC while an
// interrupt is pending; lower wins. ICIdle is returned instead of
// leaving the read undefined when nothing is pending.
const (
	PrioritySER1 byte = 0x00
	PrioritySER2 byte = 0x01
	PriorityHD   byte = 0x02
	PriorityVDC  byte = 0x03

	ICIdle byte = 0xFF
)

// BankSelect holds the current 64KiB bank and the byte offset into RAM
// it corresponds to. Addresses below bankShadowSize always resolve to
// bank 0 regardless of selection, so low memory (vectors, stack) is
// shared across every bank.
type BankSelect struct {
	bank   byte
	offset int
}

func (s *BankSelect) Select(bank byte) {
	s.bank = bank & bankMax
	s.offset = int(s.bank) * bankSize
}

func (s *BankSelect) Bank() byte { return s.bank }

func (s *BankSelect) read(ram []byte, addr uint16) byte {
	if addr < bankShadowSize {
		return ram[addr]
	}
	return ram[int(addr)+s.offset]
}

func (s *BankSelect) write(ram []byte, addr uint16, v byte) {
	if addr < bankShadowSize {
		ram[addr] = v
	} else {
		ram[int(addr)+s.offset] = v
	}
}

// Machine is a complete possum system: CPU, bank-switched RAM, and the
// fixed set of peripherals spec §4.8 names.
type Machine struct {
	cpu  *z80.CPU
	bank BankSelect
	ram  []byte

	ser1 bus.Device
	ser2 bus.Device
	hd   bus.Device // may be nil: no CompactFlash card attached
	vdc  bus.Device
	kb   bus.Device
}

// New returns a Machine with 32 banks of 64KiB RAM (2MiB total) and the
// given peripherals wired in.
func New(cpu *z80.CPU, ser1, ser2, hd, vdc, kb bus.Device) *Machine {
	return &Machine{
		cpu:  cpu,
		ram:  make([]byte, bankSize*(bankMax+1)),
		ser1: ser1,
		ser2: ser2,
		hd:   hd,
		vdc:  vdc,
		kb:   kb,
	}
}

// LoadROM copies data into the flat RAM store starting at byte offset
// (offset 0 is the start of bank 0) — the CLI's way of placing a ROM
// image before execution begins. Nothing wraps: bytes past the end of
// RAM are dropped.
func (m *Machine) LoadROM(data []byte, offset int) {
	copy(m.ram[offset:], data)
}

// Halted reports the CPU's HALT state: set by HALT and cleared when the
// CPU accepts an interrupt.
func (m *Machine) Halted() bool { return m.cpu.Halted }

// Step executes exactly one CPU instruction (or interrupt acknowledge)
// and ticks every device the returned number of T-states, exposing the
// reti edge for precisely one of those ticks.
func (m *Machine) Step() int {
	view := &cpuView{m: m}
	cycles := m.cpu.Step(view)

	reti := m.cpu.Reti()
	for i := 0; i < cycles; i++ {
		tick := &deviceTick{cpuView: view, reti: reti && i == 0}
		if m.ser1 != nil {
			m.ser1.Tick(tick)
		}
		if m.ser2 != nil {
			m.ser2.Tick(tick)
		}
		if m.hd != nil {
			m.hd.Tick(tick)
		}
		if m.vdc != nil {
			m.vdc.Tick(tick)
		}
		if m.kb != nil {
			m.kb.Tick(tick)
		}
	}
	return cycles
}

// cpuView is the Bus the CPU core executes against: RAM through the
// current bank selection, plus the low I/O block (IC/BANK/KB) and the
// four device port blocks (SER1/SER2/HD/VDC).
type cpuView struct {
	m *Machine
}

// portBlock returns the device block an 8-bit port belongs to.
func portBlock(port uint16) uint16 {
	if port&0xF0 == blockSER1 {
		return port & 0xF8
	}
	return port & 0xF0
}

func (v *cpuView) Read(addr uint16) byte  { return v.m.bank.read(v.m.ram, addr) }
func (v *cpuView) Write(addr uint16, d byte) { v.m.bank.write(v.m.ram, addr, d) }

func (v *cpuView) In(port uint16) byte {
	port &= 0xFF
	switch portBlock(port) {
	case blockIC:
		switch port {
		case portIC:
			return v.m.interruptCause()
		case portKB:
			if v.m.kb != nil {
				return v.m.kb.Read(port)
			}
			return 0
		case portBank:
			return v.m.bank.Bank()
		default:
			return 0
		}
	case blockSER1:
		if v.m.ser1 != nil {
			return v.m.ser1.Read(port)
		}
	case blockSER2:
		if v.m.ser2 != nil {
			return v.m.ser2.Read(port)
		}
	case blockHD:
		if v.m.hd != nil {
			return v.m.hd.Read(port)
		}
	case blockVDC:
		if v.m.vdc != nil {
			return v.m.vdc.Read(port)
		}
	}
	return 0
}

func (v *cpuView) Out(port uint16, data byte) {
	port &= 0xFF
	switch portBlock(port) {
	case blockIC:
		switch port {
		case portKB:
			if v.m.kb != nil {
				v.m.kb.Write(port, data)
			}
		case portBank:
			v.m.bank.Select(data)
		}
	case blockSER1:
		if v.m.ser1 != nil {
			v.m.ser1.Write(port, data)
		}
	case blockSER2:
		if v.m.ser2 != nil {
			v.m.ser2.Write(port, data)
		}
	case blockHD:
		if v.m.hd != nil {
			v.m.hd.Write(port, data)
		}
	case blockVDC:
		if v.m.vdc != nil {
			v.m.vdc.Write(port, data)
		}
	}
}

// interruptingDevice returns the highest-priority device with a
// currently-pending interrupt (SER1 > SER2 > HD > VDC, per spec §4.8),
// or nil if none is pending.
func (m *Machine) interruptingDevice() bus.Device {
	switch {
	case m.ser1 != nil && m.ser1.Interrupting():
		return m.ser1
	case m.ser2 != nil && m.ser2.Interrupting():
		return m.ser2
	case m.hd != nil && m.hd.Interrupting():
		return m.hd
	case m.vdc != nil && m.vdc.Interrupting():
		return m.vdc
	default:
		return nil
	}
}

func (m *Machine) interruptCause() byte {
	switch {
	case m.ser1 != nil && m.ser1.Interrupting():
		return PrioritySER1
	case m.ser2 != nil && m.ser2.Interrupting():
		return PrioritySER2
	case m.hd != nil && m.hd.Interrupting():
		return PriorityHD
	case m.vdc != nil && m.vdc.Interrupting():
		return PriorityVDC
	default:
		return ICIdle
	}
}

func (v *cpuView) Interrupted() bool { return v.m.interruptingDevice() != nil }

func (v *cpuView) InterruptVector() byte {
	if d := v.m.interruptingDevice(); d != nil {
		return d.InterruptVector()
	}
	return 0xFF
}

func (v *cpuView) AckInterrupt() {
	if d := v.m.interruptingDevice(); d != nil {
		d.AckInterrupt()
	}
}

// deviceTick is the DeviceBus devices see on Tick: the same cpuView
// plus the reti edge for the first tick after a RETI instruction.
type deviceTick struct {
	*cpuView
	reti bool
}

func (t *deviceTick) Reti() bool { return t.reti }
