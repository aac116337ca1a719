package symtab

import (
	"testing"

	"github.com/possum-systems/possum/pkg/expr"
	"github.com/possum-systems/possum/pkg/intern"
	"github.com/possum-systems/possum/pkg/lexer"
)

func TestDefineAndGet(t *testing.T) {
	tab := New()
	h := intern.Handle(1)
	tab.Define(h, 42)
	v, ok := tab.Value(h)
	if !ok || v != 42 {
		t.Fatalf("got %d, %v, want 42, true", v, ok)
	}
}

func TestExpressionIndirection(t *testing.T) {
	tab := New()
	a, b := intern.Handle(1), intern.Handle(2)
	tab.Define(a, 10)
	tab.DefineExpr(b, &expr.Expr{Nodes: []expr.Node{
		{Op: expr.OpLabel, Label: a},
		{Op: expr.OpValue, Value: 5},
		{Op: expr.OpAdd, Lhs: 0, Rhs: 1},
	}})
	v, ok := tab.Value(b)
	if !ok || v != 15 {
		t.Fatalf("got %d, %v, want 15, true", v, ok)
	}
}

func TestFirstReferenceOnlyRecordsFirst(t *testing.T) {
	tab := New()
	h := intern.Handle(1)
	first := lexer.SourceLoc{Line: 1, Column: 1}
	second := lexer.SourceLoc{Line: 2, Column: 1}
	tab.Touch(h, first)
	tab.Touch(h, second)
	loc, ok := tab.FirstReference(h)
	if !ok || loc != first {
		t.Fatalf("got %+v, want %+v", loc, first)
	}
}

func TestUndefinedLabelUnresolved(t *testing.T) {
	tab := New()
	_, ok := tab.Value(intern.Handle(99))
	if ok {
		t.Fatalf("expected undefined label to be unresolved")
	}
}
