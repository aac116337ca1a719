// Package symtab maps label handles to resolved values or unresolved
// expressions, and records the source location of each label's first
// reference for error reporting.
package symtab

import (
	"github.com/possum-systems/possum/pkg/expr"
	"github.com/possum-systems/possum/pkg/intern"
	"github.com/possum-systems/possum/pkg/lexer"
)

// Symbol is either a resolved integer value or an expression still
// awaiting resolution.
type Symbol struct {
	Value    int64
	Expr     *expr.Expr
	Resolved bool
}

// Table is a label symbol table.
type Table struct {
	symbols map[intern.Handle]Symbol
	hits    map[intern.Handle]lexer.SourceLoc
}

// New returns an empty Table.
func New() *Table {
	return &Table{
		symbols: make(map[intern.Handle]Symbol),
		hits:    make(map[intern.Handle]lexer.SourceLoc),
	}
}

// Define records a resolved value for key.
func (t *Table) Define(key intern.Handle, value int64) {
	t.symbols[key] = Symbol{Value: value, Resolved: true}
}

// DefineExpr records an unresolved expression for key.
func (t *Table) DefineExpr(key intern.Handle, e *expr.Expr) {
	t.symbols[key] = Symbol{Expr: e, Resolved: false}
}

// Touch records loc as key's first-reference location, if it doesn't
// already have one.
func (t *Table) Touch(key intern.Handle, loc lexer.SourceLoc) {
	if _, ok := t.hits[key]; !ok {
		t.hits[key] = loc
	}
}

// FirstReference returns the first-reference location for key, if any.
func (t *Table) FirstReference(key intern.Handle) (lexer.SourceLoc, bool) {
	loc, ok := t.hits[key]
	return loc, ok
}

// Get returns key's symbol, if defined.
func (t *Table) Get(key intern.Handle) (Symbol, bool) {
	s, ok := t.symbols[key]
	return s, ok
}

// Value implements expr.Symbols: it resolves key either directly (if
// already a resolved value) or by evaluating its expression against this
// same table.
func (t *Table) Value(key intern.Handle) (int64, bool) {
	s, ok := t.symbols[key]
	if !ok {
		return 0, false
	}
	if s.Resolved {
		return s.Value, true
	}
	return s.Expr.Evaluate(t)
}

// References iterates every label handle with a recorded first-reference
// location.
func (t *Table) References(fn func(key intern.Handle, loc lexer.SourceLoc)) {
	for key, loc := range t.hits {
		fn(key, loc)
	}
}
