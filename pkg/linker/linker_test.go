package linker

import (
	"strings"
	"testing"

	"github.com/possum-systems/possum/pkg/expr"
	"github.com/possum-systems/possum/pkg/intern"
	"github.com/possum-systems/possum/pkg/lexer"
	"github.com/possum-systems/possum/pkg/symtab"
)

func newTestModule(t *testing.T, imageLen int) (*Module, *intern.Strings) {
	t.Helper()
	strs := intern.NewStrings()
	paths := intern.NewPaths()
	files := lexer.NewFileTable(paths)
	files.Add(paths.Intern("/", "test.asm"))
	return &Module{
		Image:  make([]byte, imageLen),
		Symtab: symtab.New(),
		Files:  files,
		Strs:   func(h intern.Handle) []byte { return []byte(strs.Get(h)) },
	}, strs
}

func valueExpr(v int64) *expr.Expr {
	return &expr.Expr{Nodes: []expr.Node{{Op: expr.OpValue, Value: v}}}
}

func TestLinkByteAndWord(t *testing.T) {
	m, _ := newTestModule(t, 4)
	loc := lexer.SourceLoc{File: 0, Line: 1, Column: 1}
	m.Links = []Link{
		NewByte(0, valueExpr(0x8F), loc),
		NewWord(1, valueExpr(0x1234), loc),
	}
	out, err := Link(m)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if out[0] != 0x8F || out[1] != 0x34 || out[2] != 0x12 {
		t.Fatalf("got %X, want 8F 34 12 ..", out)
	}
}

func TestLinkByteOutOfRange(t *testing.T) {
	m, _ := newTestModule(t, 1)
	loc := lexer.SourceLoc{File: 0, Line: 3, Column: 5}
	m.Links = []Link{NewByte(0, valueExpr(300), loc)}
	_, err := Link(m)
	if err == nil {
		t.Fatalf("expected range error")
	}
	if !strings.Contains(err.Error(), "test.asm:3:5") {
		t.Fatalf("error missing location: %v", err)
	}
}

func TestLinkSignedByteRange(t *testing.T) {
	m, _ := newTestModule(t, 1)
	loc := lexer.SourceLoc{File: 0, Line: 1, Column: 1}
	m.Links = []Link{NewSignedByte(0, valueExpr(-1), loc)}
	out, err := Link(m)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if out[0] != 0xFF {
		t.Fatalf("got %X, want FF", out[0])
	}

	m2, _ := newTestModule(t, 1)
	m2.Links = []Link{NewSignedByte(0, valueExpr(128), loc)}
	if _, err := Link(m2); err == nil {
		t.Fatalf("expected range error for 128")
	}
}

func TestLinkUndefinedSymbol(t *testing.T) {
	m, strs := newTestModule(t, 1)
	h := strs.Intern("missing")
	loc := lexer.SourceLoc{File: 0, Line: 2, Column: 1}
	m.Symtab.Touch(h, loc)
	e := &expr.Expr{Nodes: []expr.Node{{Op: expr.OpLabel, Label: h}}}
	m.Links = []Link{NewByte(0, e, loc)}

	_, err := Link(m)
	if err == nil {
		t.Fatalf("expected undefined symbol error")
	}
	if !strings.Contains(err.Error(), "Undefined symbol") || !strings.Contains(err.Error(), "missing") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLinkAssertFailure(t *testing.T) {
	m, strs := newTestModule(t, 0)
	loc := lexer.SourceLoc{File: 0, Line: 1, Column: 1}
	msg := strs.Intern("must be nonzero")
	m.Links = []Link{NewAssert(msg, true, valueExpr(0), loc)}
	_, err := Link(m)
	if err == nil || !strings.Contains(err.Error(), "must be nonzero") {
		t.Fatalf("got %v, want assertion failure with custom message", err)
	}
}

func TestLinkSpaceFills(t *testing.T) {
	m, _ := newTestModule(t, 5)
	loc := lexer.SourceLoc{File: 0, Line: 1, Column: 1}
	m.Links = []Link{NewSpace(1, 3, valueExpr(0x90), loc)}
	out, err := Link(m)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	want := []byte{0, 0x90, 0x90, 0x90, 0}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("got %X, want %X", out, want)
		}
	}
}
