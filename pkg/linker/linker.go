// Package linker implements assembler pass two: it resolves fixups left
// by pass one, range-checks and evaluates assertions, and writes the
// final flat image.
package linker

import (
	"fmt"
	"path/filepath"

	"github.com/possum-systems/possum/pkg/expr"
	"github.com/possum-systems/possum/pkg/intern"
	"github.com/possum-systems/possum/pkg/lexer"
	"github.com/possum-systems/possum/pkg/symtab"
)

// Kind tags a Link's variant.
type Kind int

const (
	Byte Kind = iota
	SignedByte
	Word
	Space
	Assert
)

// Link is a pending write into the output image, recorded by pass one and
// resolved here in pass two.
type Link struct {
	Kind   Kind
	Offset int
	Len    int // Space only
	Msg    intern.Handle
	HasMsg bool // Assert only
	Expr   *expr.Expr
	Loc    lexer.SourceLoc
}

func NewByte(offset int, e *expr.Expr, loc lexer.SourceLoc) Link {
	return Link{Kind: Byte, Offset: offset, Expr: e, Loc: loc}
}

func NewSignedByte(offset int, e *expr.Expr, loc lexer.SourceLoc) Link {
	return Link{Kind: SignedByte, Offset: offset, Expr: e, Loc: loc}
}

func NewWord(offset int, e *expr.Expr, loc lexer.SourceLoc) Link {
	return Link{Kind: Word, Offset: offset, Expr: e, Loc: loc}
}

func NewSpace(offset, length int, e *expr.Expr, loc lexer.SourceLoc) Link {
	return Link{Kind: Space, Offset: offset, Len: length, Expr: e, Loc: loc}
}

func NewAssert(msg intern.Handle, hasMsg bool, e *expr.Expr, loc lexer.SourceLoc) Link {
	return Link{Kind: Assert, Msg: msg, HasMsg: hasMsg, Expr: e, Loc: loc}
}

// Module is everything pass one produced for one assembly run: the
// in-progress output image, the recorded fixups, and the symbol table
// they reference against.
type Module struct {
	Image  []byte
	Links  []Link
	Symtab *symtab.Table
	Files  *lexer.FileTable
	Strs   func(intern.Handle) []byte // resolves Assert message handles
}

// Error is a fatal, user-facing linker diagnostic carrying a source
// location, formatted per the `In "<path>"\n\n<basename>:<line>:<col>:
// <message>` convention.
type Error struct {
	Path    string
	Loc     lexer.SourceLoc
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("In %q\n\n%s:%d:%d: %s", e.Path, filepath.Base(e.Path), e.Loc.Line, e.Loc.Column, e.Message)
}

// Link resolves every reference and fixup in m and returns the finished
// image. It fails on the first undefined symbol, out-of-range value, or
// failed assertion.
func Link(m *Module) ([]byte, error) {
	var undefined error
	m.Symtab.References(func(key intern.Handle, loc lexer.SourceLoc) {
		if undefined != nil {
			return
		}
		if _, ok := m.Symtab.Value(key); !ok {
			undefined = &Error{
				Path:    m.Files.Path(loc.File),
				Loc:     loc,
				Message: fmt.Sprintf("Undefined symbol: %q", string(m.Strs(key))),
			}
		}
	})
	if undefined != nil {
		return nil, undefined
	}

	for _, link := range m.Links {
		if err := apply(m, link); err != nil {
			return nil, err
		}
	}
	return m.Image, nil
}

func apply(m *Module, l Link) error {
	path := m.Files.Path(l.Loc.File)

	value, ok := l.Expr.Evaluate(m.Symtab)
	if !ok {
		return &Error{Path: path, Loc: l.Loc, Message: "Unresolved expression"}
	}

	switch l.Kind {
	case Byte:
		if value < 0 || value > 255 {
			return rangeError(path, l.Loc, value, 0, 255)
		}
		m.Image[l.Offset] = byte(value)

	case SignedByte:
		if value < -128 || value > 127 {
			return rangeError(path, l.Loc, value, -128, 127)
		}
		m.Image[l.Offset] = byte(int8(value))

	case Word:
		if value < 0 || value > 65535 {
			return rangeError(path, l.Loc, value, 0, 65535)
		}
		m.Image[l.Offset] = byte(value)
		m.Image[l.Offset+1] = byte(value >> 8)

	case Space:
		if value < 0 || value > 255 {
			return rangeError(path, l.Loc, value, 0, 255)
		}
		for i := 0; i < l.Len; i++ {
			m.Image[l.Offset+i] = byte(value)
		}

	case Assert:
		if value == 0 {
			msg := "Assertion failed"
			if l.HasMsg {
				msg = string(m.Strs(l.Msg))
			}
			return &Error{Path: path, Loc: l.Loc, Message: msg}
		}
	}
	return nil
}

func rangeError(path string, loc lexer.SourceLoc, value int64, lo, hi int64) error {
	return &Error{
		Path:    path,
		Loc:     loc,
		Message: fmt.Sprintf("value %d out of range [%d, %d]", value, lo, hi),
	}
}
