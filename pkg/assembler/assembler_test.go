package assembler

import (
	"io"
	"strings"
	"testing"

	"github.com/possum-systems/possum/pkg/linker"
)

// memFS is an in-memory fileman.FileSystem for tests that never touch disk.
type memFS struct{ files map[string]string }

func (fs *memFS) IsDir(path string) bool { return false }

func (fs *memFS) IsFile(path string) bool {
	_, ok := fs.files[path]
	return ok
}

func (fs *memFS) Open(path string) (io.ReadCloser, error) {
	s, ok := fs.files[path]
	if !ok {
		return nil, &fsNotFoundError{path}
	}
	return io.NopCloser(strings.NewReader(s)), nil
}

type fsNotFoundError struct{ path string }

func (e *fsNotFoundError) Error() string { return "not found: " + e.path }

func assembleString(t *testing.T, src string) []byte {
	t.Helper()
	fs := &memFS{files: map[string]string{"/root/main.asm": src}}
	m, err := run("/root", "main.asm", nil, fs)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	img, err := linker.Link(m)
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	return img
}

func TestADCRoundTrip(t *testing.T) {
	src := "adc a,a\nadc a,$42\nadc a,(ix+1)\nadc hl,bc\n@dw @here\n"
	img := assembleString(t, src)
	want := []byte{0x8F, 0xCE, 0x42, 0xDD, 0x8E, 0x01, 0xED, 0x4A, 0x08, 0x00}
	if len(img) != len(want) {
		t.Fatalf("image = % X, want % X", img, want)
	}
	for i := range want {
		if img[i] != want[i] {
			t.Fatalf("image = % X, want % X", img, want)
		}
	}
}

func TestForwardLabelJR(t *testing.T) {
	src := "jr z,target\nnop\nnop\ntarget:\nhalt\n"
	img := assembleString(t, src)
	want := []byte{0x28, 0x02, 0x00, 0x00, 0x76}
	if len(img) != len(want) {
		t.Fatalf("image = % X, want % X", img, want)
	}
	for i := range want {
		if img[i] != want[i] {
			t.Fatalf("image = % X, want % X", img, want)
		}
	}
}

func TestBackwardLabelDJNZ(t *testing.T) {
	src := "loop:\nnop\ndjnz loop\n"
	img := assembleString(t, src)
	want := []byte{0x00, 0x10, 0xFD}
	if len(img) != len(want) {
		t.Fatalf("image = % X, want % X", img, want)
	}
	for i := range want {
		if img[i] != want[i] {
			t.Fatalf("image = % X, want % X", img, want)
		}
	}
}

func TestSpaceAndAssert(t *testing.T) {
	src := "@space 3, $AA\n@assert $AA == $AA\n"
	img := assembleString(t, src)
	want := []byte{0xAA, 0xAA, 0xAA}
	if len(img) != len(want) || img[0] != want[0] || img[1] != want[1] || img[2] != want[2] {
		t.Fatalf("image = % X, want % X", img, want)
	}
}

func TestAssertFailureReportsMessage(t *testing.T) {
	fs := &memFS{files: map[string]string{"/root/main.asm": "@assert 1 == 2, \"oops\"\n"}}
	m, err := run("/root", "main.asm", nil, fs)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	_, err = linker.Link(m)
	if err == nil {
		t.Fatalf("expected assertion failure")
	}
	if !strings.Contains(err.Error(), "oops") {
		t.Fatalf("error = %v, want it to mention 'oops'", err)
	}
}

func TestMacroExpansion(t *testing.T) {
	src := "@macro add3\nld a,\\1\nadd a,\\2\nadd a,\\3\n@endmacro\nadd3 5,6,7\n"
	img := assembleString(t, src)
	want := []byte{0x3E, 0x05, 0xC6, 0x06, 0xC6, 0x07}
	if len(img) != len(want) {
		t.Fatalf("image = % X, want % X", img, want)
	}
	for i := range want {
		if img[i] != want[i] {
			t.Fatalf("image = % X, want % X", img, want)
		}
	}
}

func TestIncludeDirective(t *testing.T) {
	fs := &memFS{files: map[string]string{
		"/root/main.asm": "@include \"lib.asm\"\nhalt\n",
		"/root/lib.asm":  "nop\n",
	}}
	m, err := run("/root", "main.asm", nil, fs)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	img, err := linker.Link(m)
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	want := []byte{0x00, 0x76}
	if len(img) != len(want) || img[0] != want[0] || img[1] != want[1] {
		t.Fatalf("image = % X, want % X", img, want)
	}
}

func TestUndefinedSymbolError(t *testing.T) {
	fs := &memFS{files: map[string]string{"/root/main.asm": "jp nowhere\n"}}
	m, err := run("/root", "main.asm", nil, fs)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	_, err = linker.Link(m)
	if err == nil {
		t.Fatalf("expected undefined-symbol error")
	}
}

func TestCBIndexedBit(t *testing.T) {
	src := "bit 3,(ix+2)\nset 0,(iy-1)\n"
	img := assembleString(t, src)
	want := []byte{0xDD, 0xCB, 0x02, 0x5E, 0xFD, 0xCB, 0xFF, 0xC6}
	if len(img) != len(want) {
		t.Fatalf("image = % X, want % X", img, want)
	}
	for i := range want {
		if img[i] != want[i] {
			t.Fatalf("image = % X, want % X", img, want)
		}
	}
}

func TestPushPopIndexed(t *testing.T) {
	src := "push ix\npop iy\npush af\n"
	img := assembleString(t, src)
	want := []byte{0xDD, 0xE5, 0xFD, 0xE1, 0xF5}
	if len(img) != len(want) {
		t.Fatalf("image = % X, want % X", img, want)
	}
	for i := range want {
		if img[i] != want[i] {
			t.Fatalf("image = % X, want % X", img, want)
		}
	}
}
