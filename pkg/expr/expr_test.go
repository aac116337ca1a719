package expr

import (
	"testing"

	"github.com/possum-systems/possum/pkg/intern"
)

type fakeSyms map[intern.Handle]int64

func (f fakeSyms) Value(h intern.Handle) (int64, bool) {
	v, ok := f[h]
	return v, ok
}

func TestEvaluateValueOnly(t *testing.T) {
	e := &Expr{Nodes: []Node{
		{Op: OpValue, Value: 2},
		{Op: OpValue, Value: 3},
		{Op: OpAdd, Lhs: 0, Rhs: 1},
	}}
	v, ok := e.Evaluate(fakeSyms{})
	if !ok || v != 5 {
		t.Fatalf("2+3 = %d, ok=%v, want 5, true", v, ok)
	}
}

func TestEvaluateUnresolvedLabelPropagates(t *testing.T) {
	e := &Expr{Nodes: []Node{
		{Op: OpValue, Value: 10},
		{Op: OpLabel, Label: intern.Handle(1)},
		{Op: OpAdd, Lhs: 0, Rhs: 1},
	}}
	_, ok := e.Evaluate(fakeSyms{})
	if ok {
		t.Fatalf("expected unresolved when label has no value")
	}
}

func TestEvaluateNeverMutatesSymtab(t *testing.T) {
	syms := fakeSyms{intern.Handle(1): 7}
	e := &Expr{Nodes: []Node{
		{Op: OpLabel, Label: intern.Handle(1)},
	}}
	before := len(syms)
	v, ok := e.Evaluate(syms)
	if !ok || v != 7 {
		t.Fatalf("got %d, %v, want 7, true", v, ok)
	}
	if len(syms) != before {
		t.Fatalf("evaluation mutated the symbol table")
	}
}

func TestTernary(t *testing.T) {
	e := &Expr{Nodes: []Node{
		{Op: OpValue, Value: 1},
		{Op: OpValue, Value: 100},
		{Op: OpValue, Value: 200},
		{Op: OpTernary, Cond: 0, Then: 1, Else: 2},
	}}
	v, ok := e.Evaluate(fakeSyms{})
	if !ok || v != 100 {
		t.Fatalf("ternary(1, 100, 200) = %d, want 100", v)
	}
}

func TestTernaryRequiresBothBranchesResolved(t *testing.T) {
	e := &Expr{Nodes: []Node{
		{Op: OpValue, Value: 1},
		{Op: OpValue, Value: 100},
		{Op: OpLabel, Label: intern.Handle(1)},
		{Op: OpTernary, Cond: 0, Then: 1, Else: 2},
	}}
	_, ok := e.Evaluate(fakeSyms{})
	if ok {
		t.Fatalf("expected unresolved: untaken else branch references an undefined label")
	}
}

func TestShiftMasksTo32Bits(t *testing.T) {
	e := &Expr{Nodes: []Node{
		{Op: OpValue, Value: 1},
		{Op: OpValue, Value: 33},
		{Op: OpShl, Lhs: 0, Rhs: 1},
	}}
	v, _ := e.Evaluate(fakeSyms{})
	if v != 2 {
		t.Fatalf("1 << 33 masked to 1<<1 = %d, want 2", v)
	}
}
