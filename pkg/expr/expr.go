// Package expr models assembler expressions as a flat, post-order list of
// nodes and evaluates them against a symbol table without ever mutating
// it.
package expr

import "github.com/possum-systems/possum/pkg/intern"

// Op tags a node's operator.
type Op int

const (
	OpValue Op = iota
	OpLabel

	OpInvert // bitwise complement
	OpNot    // logical not
	OpNeg    // arithmetic negation

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpShl
	OpShr
	OpAnd
	OpOr
	OpXor
	OpLogAnd
	OpLogOr
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe

	OpTernary
)

// Node is one entry in an Expr's post-order node list. Lhs/Rhs/Child/Cond
// are indices into the same list, always referring to earlier positions.
type Node struct {
	Op    Op
	Value int64
	Label intern.Handle
	Child int
	Lhs   int
	Rhs   int
	Cond  int
	Then  int
	Else  int
}

// Expr is a post-order node list; the last entry is the root.
type Expr struct {
	Nodes []Node
}

// Root returns the index of the final (root) node.
func (e *Expr) Root() int { return len(e.Nodes) - 1 }

// Symbols resolves a label handle to a value, reporting ok=false when the
// label is undefined or still unresolved.
type Symbols interface {
	Value(h intern.Handle) (v int64, ok bool)
}

// Evaluate walks e against syms and returns the root node's value, or
// ok=false if any referenced label is unresolved. It never mutates syms.
func (e *Expr) Evaluate(syms Symbols) (int64, bool) {
	if len(e.Nodes) == 0 {
		return 0, false
	}
	return e.eval(syms, e.Root())
}

func (e *Expr) eval(syms Symbols, idx int) (int64, bool) {
	n := e.Nodes[idx]
	switch n.Op {
	case OpValue:
		return n.Value, true

	case OpLabel:
		return syms.Value(n.Label)

	case OpInvert:
		v, ok := e.eval(syms, n.Child)
		return ^v, ok

	case OpNot:
		v, ok := e.eval(syms, n.Child)
		if v == 0 {
			return 1, ok
		}
		return 0, ok

	case OpNeg:
		v, ok := e.eval(syms, n.Child)
		return -v, ok

	case OpTernary:
		c, okc := e.eval(syms, n.Cond)
		t, okt := e.eval(syms, n.Then)
		f, okf := e.eval(syms, n.Else)
		if !okc || !okt || !okf {
			return 0, false
		}
		if c != 0 {
			return t, true
		}
		return f, true
	}

	lhs, ok1 := e.eval(syms, n.Lhs)
	rhs, ok2 := e.eval(syms, n.Rhs)
	if !ok1 || !ok2 {
		return 0, false
	}
	return evalBinary(n.Op, lhs, rhs), true
}

func evalBinary(op Op, lhs, rhs int64) int64 {
	switch op {
	case OpAdd:
		return lhs + rhs
	case OpSub:
		return lhs - rhs
	case OpMul:
		return lhs * rhs
	case OpDiv:
		if rhs == 0 {
			return 0
		}
		return lhs / rhs
	case OpMod:
		if rhs == 0 {
			return 0
		}
		return lhs % rhs
	case OpShl:
		return lhs << (uint64(rhs) & 31)
	case OpShr:
		return lhs >> (uint64(rhs) & 31)
	case OpAnd:
		return lhs & rhs
	case OpOr:
		return lhs | rhs
	case OpXor:
		return lhs ^ rhs
	case OpLogAnd:
		return boolInt(lhs != 0 && rhs != 0)
	case OpLogOr:
		return boolInt(lhs != 0 || rhs != 0)
	case OpLt:
		return boolInt(lhs < rhs)
	case OpLe:
		return boolInt(lhs <= rhs)
	case OpGt:
		return boolInt(lhs > rhs)
	case OpGe:
		return boolInt(lhs >= rhs)
	case OpEq:
		return boolInt(lhs == rhs)
	case OpNe:
		return boolInt(lhs != rhs)
	default:
		return 0
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
