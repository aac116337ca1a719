package kb

import "testing"

type fakeStream struct{ in []byte }

func (s *fakeStream) ReadByte() (byte, bool) {
	if len(s.in) == 0 {
		return 0, false
	}
	v := s.in[0]
	s.in = s.in[1:]
	return v, true
}

func TestAbsentInputYieldsZero(t *testing.T) {
	k := New(&fakeStream{})
	k.Tick(nil)

	if got := k.Read(0); got != 0 {
		t.Fatalf("Read(data) = %#x, want 0 with no input queued", got)
	}
	if got := k.Read(1); got != 0 {
		t.Fatalf("Read(status) = %#x, want 0 with no input queued", got)
	}
}

func TestQueuedKeystrokeDrains(t *testing.T) {
	k := New(&fakeStream{in: []byte("Z")})
	k.Tick(nil)

	if got := k.Read(1); got != 0x01 {
		t.Fatalf("Read(status) = %#x, want 0x01 with a keystroke queued", got)
	}
	if got := k.Read(0); got != 'Z' {
		t.Fatalf("Read(data) = %q, want 'Z'", got)
	}
	if got := k.Read(1); got != 0 {
		t.Fatalf("Read(status) = %#x, want 0 once drained", got)
	}
}
