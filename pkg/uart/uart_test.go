package uart

import "testing"

type fakeStream struct {
	in  []byte
	out []byte
}

func (s *fakeStream) ReadByte() (byte, bool) {
	if len(s.in) == 0 {
		return 0, false
	}
	v := s.in[0]
	s.in = s.in[1:]
	return v, true
}

func (s *fakeStream) WriteByte(b byte) bool {
	s.out = append(s.out, b)
	return true
}

func newTestUART(in string) (*UART, *fakeStream) {
	s := &fakeStream{in: []byte(in)}
	u := New(s, 0x20)
	return u, s
}

func TestRXRoundTrip(t *testing.T) {
	u, _ := newTestUART("hi")
	u.Tick(nil)

	if got := u.Read(0); got != 'h' {
		t.Fatalf("first RX byte = %q, want 'h'", got)
	}
	if got := u.Read(0); got != 'i' {
		t.Fatalf("second RX byte = %q, want 'i'", got)
	}
}

func TestTXDrainsToStream(t *testing.T) {
	u, s := newTestUART("")
	u.Write(0, 'x')
	u.Tick(nil)

	if len(s.out) != 1 || s.out[0] != 'x' {
		t.Fatalf("stream output = %v, want [x]", s.out)
	}
}

func TestDivisorLatchBehindDLAB(t *testing.T) {
	u, _ := newTestUART("")
	u.Write(3, 0x80) // set DLAB
	u.Write(0, 0x0C)
	u.Write(1, 0x00)

	if u.divisorLatch != 0x000C {
		t.Fatalf("divisorLatch = %#x, want 0x000C", u.divisorLatch)
	}

	u.Write(3, 0x00) // clear DLAB
	u.Write(0, 'z')
	if len(u.txFIFO) != 1 || u.txFIFO[0] != 'z' {
		t.Fatalf("expected 'z' queued to TX FIFO once DLAB cleared")
	}
}

func TestRxReadyInterruptWhenEnabled(t *testing.T) {
	u, _ := newTestUART("a")
	u.Tick(nil)

	if u.Interrupting() {
		t.Fatalf("expected no interrupt before IER enables RX ready")
	}
	u.Write(1, IERxReady)
	if !u.Interrupting() {
		t.Fatalf("expected RX ready interrupt once enabled and data is queued")
	}
}

func TestReadingIIRClearsTxEmptyInterrupt(t *testing.T) {
	u, _ := newTestUART("")
	u.Write(1, IETxEmpty)
	if !u.Interrupting() {
		t.Fatalf("expected TX-empty interrupt pending from reset")
	}
	u.Read(2)
	if u.Interrupting() {
		t.Fatalf("expected TX-empty interrupt cleared after reading IIR")
	}
}
