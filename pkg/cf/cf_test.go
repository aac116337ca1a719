package cf

import "testing"

func selectDrive0(c *Card) {
	c.Write(6, 0x40) // LBA mode, drive 0
}

func latchLBA(c *Card, lba uint32) {
	c.Write(3, byte(lba))
	c.Write(4, byte(lba>>8))
	c.Write(5, byte(lba>>16))
}

func TestSectorRoundTrip(t *testing.T) {
	mmap := make(ByteSliceMap, 512*4)
	c := Primary(mmap)

	selectDrive0(c)
	latchLBA(c, 2)
	c.Write(7, 0x30) // write sectors

	var want [512]byte
	for i := range want {
		want[i] = byte(i)
		c.Write(0, want[i])
	}

	selectDrive0(c)
	latchLBA(c, 2)
	c.Write(7, 0x20) // read sectors

	for i := 0; i < 512; i++ {
		if got := c.Read(0); got != want[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, got, want[i])
		}
	}
}

func TestIdentifyDeviceStreamsBlock(t *testing.T) {
	mmap := make(ByteSliceMap, 512*4)
	c := Primary(mmap)

	selectDrive0(c)
	c.Write(7, 0xEC) // identify

	if c.status&StatusDRQ == 0 {
		t.Fatalf("expected DRQ set after IDENTIFY")
	}
	first := c.Read(0)
	second := c.Read(0)
	if uint16(first)|uint16(second)<<8 != 0x848A {
		t.Fatalf("identify signature = %#x%02x, want 0x848A", second, first)
	}
}

func TestReadBeyondDiskSetsError(t *testing.T) {
	mmap := make(ByteSliceMap, 512)
	c := Primary(mmap)

	selectDrive0(c)
	latchLBA(c, 5) // out of range for a 1-sector disk
	c.Write(7, 0x20)

	if c.status&StatusErr == 0 {
		t.Fatalf("expected ERR set reading beyond disk bounds")
	}
	if c.errorReg&(ErrAMNF|ErrIDNF) == 0 {
		t.Fatalf("expected AMNF|IDNF set, got %#x", c.errorReg)
	}
}

func TestUnknownCommandAborts(t *testing.T) {
	mmap := make(ByteSliceMap, 512)
	c := Primary(mmap)

	selectDrive0(c)
	c.Write(7, 0xFF)

	if c.status&StatusErr == 0 {
		t.Fatalf("expected ERR set for unknown command")
	}
}

func TestNonSelectedDriveIgnoresCommand(t *testing.T) {
	mmap := make(ByteSliceMap, 512)
	c := Secondary(mmap) // is_drive_1 = true

	selectDrive0(c) // selects drive 0; c is drive 1
	c.Write(7, 0xEC)

	if c.state != stateNone {
		t.Fatalf("expected command ignored since drive 1 wasn't selected")
	}
}
