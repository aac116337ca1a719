// Package uart emulates a 16550-style serial port backed by an
// underlying byte stream (the host TTY, in the reference CLI).
package uart

import "github.com/possum-systems/possum/pkg/bus"

// Interrupt enable register bits.
const (
	IERxReady      byte = 0x01
	IETxEmpty      byte = 0x02
	IERxStatus     byte = 0x04
	IEModemStatus  byte = 0x08
)

// Interrupt status codes; spec priority rule is "lowest code wins".
const (
	ISModemStatus byte = 0x00
	ISNone        byte = 0x01
	ISTxEmpty     byte = 0x02
	ISRxReady     byte = 0x04
	ISRxStatus    byte = 0x06
)

const fifoDepth = 16

// Stream is the non-blocking byte source/sink a UART ticks against: a
// host TTY, a pipe, or a test double. ReadByte returning (0, false) means no
// data is currently available, not EOF.
type Stream interface {
	ReadByte() (byte, bool)
	WriteByte(b byte) bool
}

// UART implements bus.Device for a single 16550-style serial port.
type UART struct {
	stream Stream

	txFIFO []byte
	rxFIFO []byte

	interruptEnable byte
	fifoControl     byte
	lineControl     byte
	modemControl    byte
	lineStatus      byte
	modemStatus     byte
	divisorLatch    uint16

	lineStatusError bool
	txEmptyPending  bool
	vector          byte
}

// New returns a UART reading from and writing to stream.
func New(stream Stream, vector byte) *UART {
	return &UART{stream: stream, vector: vector, txEmptyPending: true}
}

func (u *UART) dlab() bool { return u.lineControl&0x80 != 0 }

// Tick refills the RX FIFO from the stream (when empty) and drains one
// queued byte to the stream, per spec §4.9's non-blocking device rule.
func (u *UART) Tick(b bus.DeviceBus) {
	if len(u.rxFIFO) == 0 {
		for len(u.rxFIFO) < fifoDepth {
			v, ok := u.stream.ReadByte()
			if !ok {
				break
			}
			u.rxFIFO = append(u.rxFIFO, v)
		}
	}

	if len(u.txFIFO) > 0 {
		if u.stream.WriteByte(u.txFIFO[0]) {
			u.txFIFO = u.txFIFO[1:]
			if len(u.txFIFO) == 0 {
				u.txEmptyPending = true
			}
		}
	}
}

func (u *UART) Read(port uint16) byte {
	switch port & 0x07 {
	case 0:
		if u.dlab() {
			return byte(u.divisorLatch)
		}
		if len(u.rxFIFO) == 0 {
			return 0
		}
		v := u.rxFIFO[0]
		u.rxFIFO = u.rxFIFO[1:]
		return v
	case 1:
		if u.dlab() {
			return byte(u.divisorLatch >> 8)
		}
		return u.interruptEnable
	case 2:
		status := u.interruptStatus()
		if status == ISTxEmpty {
			u.txEmptyPending = false
		}
		return status
	case 3:
		return u.lineControl
	case 4:
		return u.modemControl
	case 5:
		return u.lineStatus
	default: // 6, 7
		return u.modemStatus
	}
}

func (u *UART) Write(port uint16, data byte) {
	switch port & 0x07 {
	case 0:
		if u.dlab() {
			u.divisorLatch = (u.divisorLatch & 0xFF00) | uint16(data)
			return
		}
		if len(u.txFIFO) < fifoDepth {
			u.txFIFO = append(u.txFIFO, data)
			u.txEmptyPending = false
		}
	case 1:
		if u.dlab() {
			u.divisorLatch = (u.divisorLatch & 0x00FF) | uint16(data)<<8
			return
		}
		u.interruptEnable = data
	case 2:
		u.fifoControl = data
	case 3:
		u.lineControl = data
	case 4:
		u.modemControl = data
	}
}

// interruptStatus picks the highest-precedence (lowest numeric code)
// currently active and enabled cause, per spec §4.8.
func (u *UART) interruptStatus() byte {
	best := byte(0xFF) // no active cause yet
	if u.interruptEnable&IERxStatus != 0 && u.lineStatusError {
		best = min2(best, ISRxStatus)
	}
	if u.interruptEnable&IERxReady != 0 && len(u.rxFIFO) > 0 {
		best = min2(best, ISRxReady)
	}
	if u.interruptEnable&IETxEmpty != 0 && u.txEmptyPending {
		best = min2(best, ISTxEmpty)
	}
	if best == 0xFF {
		return ISNone
	}
	return best
}

func min2(a, b byte) byte {
	if b < a {
		return b
	}
	return a
}

func (u *UART) Interrupting() bool { return u.interruptStatus() != ISNone }

func (u *UART) InterruptVector() byte { return u.vector }

func (u *UART) AckInterrupt() {}
