// Package kb implements a minimal ASCII keyboard device: a single status
// and data port fed from a non-blocking byte stream (host stdin, in the
// reference CLI).
package kb

import "github.com/possum-systems/possum/pkg/bus"

// Stream is the non-blocking input source a Keyboard ticks against.
// ReadByte returning false means no key is currently available, not EOF.
type Stream interface {
	ReadByte() (byte, bool)
}

// Keyboard exposes two ports: 0 is data (the next queued keystroke, or 0
// if none is pending), 1 is status (bit 0 set while a keystroke is
// queued). Absent input yields zero rather than blocking, per spec §5.
type Keyboard struct {
	stream Stream
	queued []byte
}

// New returns a Keyboard reading from stream.
func New(stream Stream) *Keyboard {
	return &Keyboard{stream: stream}
}

func (k *Keyboard) Tick(b bus.DeviceBus) {
	for {
		v, ok := k.stream.ReadByte()
		if !ok {
			return
		}
		k.queued = append(k.queued, v)
	}
}

func (k *Keyboard) Read(port uint16) byte {
	switch port & 0x01 {
	case 0:
		if len(k.queued) == 0 {
			return 0
		}
		v := k.queued[0]
		k.queued = k.queued[1:]
		return v
	default:
		if len(k.queued) > 0 {
			return 0x01
		}
		return 0
	}
}

func (k *Keyboard) Write(port uint16, data byte) {}

func (k *Keyboard) Interrupting() bool     { return false }
func (k *Keyboard) InterruptVector() byte  { return 0xFF }
func (k *Keyboard) AckInterrupt()          {}
