// Package cf emulates a Class 1 CompactFlash card in 8-bit ATA/LBA mode,
// presented as a bus.Device over eight task-file ports.
package cf

import "github.com/possum-systems/possum/pkg/bus"

// Status register bits.
const (
	StatusErr  byte = 0x01
	StatusCorr byte = 0x04
	StatusDRQ  byte = 0x08
	StatusDSC  byte = 0x10
	StatusDWF  byte = 0x20
	StatusRDY  byte = 0x40
	StatusBusy byte = 0x80
)

// Error register bits.
const (
	ErrAMNF byte = 0x01
	ErrABRT byte = 0x04
	ErrIDNF byte = 0x10
	ErrUNC  byte = 0x40
	ErrBBK  byte = 0x80
)

type commandState int

const (
	stateNone commandState = iota
	stateEraseSectors
	stateIdentifyDevice
	stateReadSectors
	stateWriteSectors
)

// MemoryMap is the byte-addressable backing store a Card reads and
// writes sectors through.
type MemoryMap interface {
	Read(offset int) byte
	Write(offset int, v byte)
	Flush() error
	Len() int
}

// Card is a single CF/ATA device on the shared CardBus. Two cards share
// the same port range; only the one selected by the drive/head register
// acts on a command write, though both still latch register writes.
type Card struct {
	mmap       MemoryMap
	isDrive1   bool
	deviceInfo [512]byte

	interrupt        bool
	interruptEnabled bool
	interruptVector  byte
	is8Bit           bool

	state        commandState
	feature      byte
	errorReg     byte
	status       byte
	sectorCount  byte
	sectorNumber byte
	cylinderLow  byte
	cylinderHigh byte
	driveHead    byte

	lbaLatch     uint32
	sectorOffset int
}

// Primary returns the drive-0 card on the bus.
func Primary(mmap MemoryMap) *Card { return newCard(false, mmap) }

// Secondary returns the drive-1 card on the bus.
func Secondary(mmap MemoryMap) *Card { return newCard(true, mmap) }

func newCard(isDrive1 bool, mmap MemoryMap) *Card {
	c := &Card{
		mmap:     mmap,
		isDrive1: isDrive1,
		status:   StatusRDY | StatusDSC,
	}
	c.buildIdentifyBlock(mmap.Len())
	return c
}

// EnableInterrupt arms this card's interrupt line; devices default to
// disabled until wired into an interrupt controller.
func (c *Card) EnableInterrupt(vector byte) {
	c.interruptEnabled = true
	c.interruptVector = vector
}

func (c *Card) buildIdentifyBlock(diskSize int) {
	var info [512]byte
	putLE16(info[0:2], 0x848A)

	sectorCount := uint32(diskSize / 512)
	putLE32(info[14:18], sectorCount)

	serial := []byte("possum-cf-123456")
	for i, b := range serial {
		info[39-(len(serial)-1-i)] = b
	}

	info[44] = 0x04

	copy(info[46:54], "poss01")
	copy(info[54:94], "possum-cf-123456")

	putLE16(info[94:96], 0x0001)
	info[99] = 0x02
	info[118] = 0x01
	info[119] = 0x00
	putLE32(info[120:124], sectorCount)

	c.deviceInfo = info
}

func putLE16(b []byte, v uint16) { b[0] = byte(v); b[1] = byte(v >> 8) }
func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func (c *Card) Tick(b bus.DeviceBus) {}

// Read implements bus.Device. The low 3 bits of the port select one of
// the eight task-file registers (spec §4.8).
func (c *Card) Read(port uint16) byte {
	if c.status&StatusBusy != 0 {
		if port&0x07 == 7 {
			return c.status
		}
		return 0
	}

	switch port & 0x07 {
	case 0:
		return c.readData()
	case 1:
		return c.errorReg
	case 2:
		return c.sectorCount
	case 3:
		return c.sectorNumber
	case 4:
		return c.cylinderLow
	case 5:
		return c.cylinderHigh
	case 6:
		return c.driveHead
	default: // 7
		c.interrupt = false
		return c.status
	}
}

func (c *Card) readData() byte {
	switch c.state {
	case stateIdentifyDevice:
		data := c.deviceInfo[c.sectorOffset]
		c.sectorOffset++
		if c.sectorOffset == 512 {
			c.errorReg = 0
			c.status &^= StatusBusy | StatusDRQ
		}
		return data
	case stateReadSectors:
		offset := int(c.lbaLatch)*512 + c.sectorOffset
		data := c.mmap.Read(offset)
		c.sectorOffset++
		if c.sectorOffset == 512 {
			c.status &^= StatusBusy | StatusDRQ
		}
		return data
	default:
		return 0
	}
}

// Write implements bus.Device.
func (c *Card) Write(port uint16, data byte) {
	if c.status&StatusBusy != 0 {
		return
	}

	switch port & 0x07 {
	case 0:
		c.writeData(data)
	case 1:
		c.feature = data
	case 2:
		c.sectorCount = data
	case 3:
		c.sectorNumber = data
	case 4:
		c.cylinderLow = data
	case 5:
		c.cylinderHigh = data
	case 6:
		c.driveHead = data
	default: // 7
		c.writeCommand(data)
	}
}

func (c *Card) writeData(data byte) {
	if c.state != stateWriteSectors {
		return
	}
	offset := int(c.lbaLatch)*512 + c.sectorOffset
	c.mmap.Write(offset, data)
	c.sectorOffset++
	if c.sectorOffset == 512 {
		if err := c.mmap.Flush(); err != nil {
			c.errorReg |= ErrAMNF | ErrBBK
			c.status &^= StatusBusy | StatusDRQ
			c.status |= StatusErr
		}
	}
}

func (c *Card) writeCommand(cmd byte) {
	if c.isDrive1 != (c.driveHead&0x10 != 0) {
		return
	}

	c.lbaLatch = uint32(c.sectorNumber) |
		uint32(c.cylinderLow)<<8 |
		uint32(c.cylinderHigh)<<16 |
		uint32(c.driveHead&0x0F)<<24

	c.errorReg = 0
	c.status &^= StatusErr

	lbaMode := c.driveHead&0x40 != 0

	switch cmd {
	case 0x90: // Execute drive diagnostic
		c.errorReg = 0x01
		c.status |= StatusRDY

	case 0xC0: // Erase sectors
		if !lbaMode {
			c.abort(ErrIDNF)
			return
		}
		c.sectorOffset = 0
		c.status |= StatusRDY
		c.state = stateEraseSectors
		offset := int(c.lbaLatch) * 512
		for i := 0; i < 512; i++ {
			c.mmap.Write(offset+i, 0xFF)
		}
		if err := c.mmap.Flush(); err != nil {
			c.errorReg |= ErrAMNF | ErrBBK
			c.status |= StatusErr
		}

	case 0xEC: // Identify device
		c.interrupt = true
		c.sectorOffset = 0
		c.status |= StatusRDY | StatusDRQ
		c.state = stateIdentifyDevice

	case 0x00: // Nop: always aborts
		c.abort(ErrABRT)

	case 0x20, 0x21: // Read sectors
		if !lbaMode {
			c.abort(ErrIDNF)
			return
		}
		c.interrupt = true
		c.sectorOffset = 0
		c.status |= StatusRDY | StatusDRQ
		c.state = stateReadSectors
		offset := int(c.lbaLatch) * 512
		if offset > c.mmap.Len() {
			c.errorReg |= ErrAMNF | ErrIDNF
			c.status &^= StatusBusy | StatusDRQ
			c.status |= StatusErr
		}

	case 0x40, 0x41: // Verify
		if !lbaMode {
			c.abort(ErrIDNF)
			return
		}
		c.interrupt = true
		c.status |= StatusRDY

	case 0x30, 0x31, 0x38, 0x3C: // Write sectors
		if !lbaMode {
			c.abort(ErrIDNF)
			return
		}
		c.sectorOffset = 0
		c.status |= StatusRDY | StatusDRQ
		c.state = stateWriteSectors

	case 0xEF: // Set features
		switch c.feature {
		case 0x01:
			c.is8Bit = true
		case 0x02:
			c.is8Bit = false
		default:
			c.abort(ErrABRT)
		}

	default:
		c.abort(ErrAMNF | ErrABRT)
	}
}

func (c *Card) abort(errBits byte) {
	c.status |= StatusRDY | StatusErr
	c.errorReg |= errBits
}

func (c *Card) Interrupting() bool {
	return c.interruptEnabled && c.interrupt
}

func (c *Card) InterruptVector() byte { return c.interruptVector }

func (c *Card) AckInterrupt() { c.interrupt = false }
