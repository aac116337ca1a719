package bus

// TestBus is a flat 64KiB memory/IO bus for unit tests.
type TestBus struct {
	Mem       [0x10000]byte
	IO        [0x10000]byte
	RetiEdge  bool
	IntrPend  bool
	IntrVec   byte
	AckCalled int
}

func NewTestBus() *TestBus { return &TestBus{} }

func (b *TestBus) Read(addr uint16) byte       { return b.Mem[addr] }
func (b *TestBus) Write(addr uint16, d byte)   { b.Mem[addr] = d }
func (b *TestBus) In(port uint16) byte         { return b.IO[port] }
func (b *TestBus) Out(port uint16, d byte)     { b.IO[port] = d }
func (b *TestBus) Reti() bool                  { return b.RetiEdge }
func (b *TestBus) Interrupted() bool           { return b.IntrPend }
func (b *TestBus) InterruptVector() byte       { return b.IntrVec }
func (b *TestBus) AckInterrupt()               { b.AckCalled++; b.IntrPend = false }
