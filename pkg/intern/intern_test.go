package intern

import "testing"

func TestInternerDeterminism(t *testing.T) {
	words := []string{"hello", "shoes", "socks", "shirts"}
	in := NewStrings()
	handles := make([]Handle, len(words))
	for i, w := range words {
		handles[i] = in.Intern(w)
		for j := 0; j <= i; j++ {
			if got := in.Get(handles[j]); got != words[j] {
				t.Fatalf("after interning %q, Get(%q handle) = %q, want %q", w, words[j], got, words[j])
			}
		}
	}
}

func TestInternerEqualContentSameHandle(t *testing.T) {
	in := New()
	a := in.Intern([]byte("repeat"))
	b := in.Intern([]byte("repeat"))
	if a != b {
		t.Fatalf("Intern(\"repeat\") twice gave different handles: %v != %v", a, b)
	}
}

func TestInternerGrowthChaining(t *testing.T) {
	in := New()
	var handles []Handle
	var want [][]byte
	for i := 0; i < 2000; i++ {
		b := []byte{byte(i), byte(i >> 8), byte(i % 251)}
		handles = append(handles, in.Intern(b))
		want = append(want, b)
	}
	for i, h := range handles {
		got := in.Get(h)
		if len(got) != len(want[i]) || got[0] != want[i][0] || got[1] != want[i][1] || got[2] != want[i][2] {
			t.Fatalf("entry %d corrupted after growth: got %v, want %v", i, got, want[i])
		}
	}
}

func TestPathsAbsolutize(t *testing.T) {
	p := NewPaths()
	h1 := p.Intern("/foo", "./hello")
	if got := p.Get(h1); got != "/foo/hello" {
		t.Fatalf("intern(/foo, ./hello) = %q, want /foo/hello", got)
	}
	h2 := p.Intern("/foo", "../shoes")
	if got := p.Get(h2); got != "/shoes" {
		t.Fatalf("intern(/foo, ../shoes) = %q, want /shoes", got)
	}
}
