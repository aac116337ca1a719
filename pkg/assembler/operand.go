package assembler

import (
	"fmt"
	"strings"

	"github.com/possum-systems/possum/pkg/expr"
	"github.com/possum-systems/possum/pkg/lexer"
)

// opParser walks one already-buffered instruction line, token by token,
// with arbitrary lookahead — the whole line was read before parsing
// began, so backtracking-free disambiguation (register "c" vs condition
// "c") just falls out of which caller is asking.
type opParser struct {
	a    *Assembler
	line []lexer.Token
	pos  int
	loc  lexer.SourceLoc
}

func (p *opParser) peek() (lexer.Token, bool) {
	if p.pos < len(p.line) {
		return p.line[p.pos], true
	}
	return lexer.Token{}, false
}

func (p *opParser) next() (lexer.Token, bool) {
	t, ok := p.peek()
	if ok {
		p.pos++
	}
	return t, ok
}

func (p *opParser) atEnd() bool { return p.pos >= len(p.line) }

func (p *opParser) peekPunct2(r1, r2 rune) bool {
	if p.pos+1 >= len(p.line) {
		return false
	}
	t1, t2 := p.line[p.pos], p.line[p.pos+1]
	return t1.Kind == lexer.Punct && t1.Punct == r1 && t2.Kind == lexer.Punct && t2.Punct == r2
}

func (p *opParser) expectPunct(r rune) error {
	t, ok := p.next()
	if !ok || t.Kind != lexer.Punct || t.Punct != r {
		return p.errf("expected %q", string(r))
	}
	return nil
}

func (p *opParser) consumeComma() bool {
	t, ok := p.peek()
	if ok && t.Kind == lexer.Punct && t.Punct == ',' {
		p.next()
		return true
	}
	return false
}

func (p *opParser) identText() (string, bool) {
	t, ok := p.peek()
	if !ok || t.Kind != lexer.Ident {
		return "", false
	}
	return strings.ToLower(p.a.strs.Get(t.Ident)), true
}

func (p *opParser) errf(format string, args ...interface{}) error {
	return &Error{Loc: p.loc, Files: p.a.files, Message: fmt.Sprintf(format, args...)}
}

// opKind tags the operand sum type.
type opKind int

const (
	opReg8 opKind = iota // reg field 0-7; 6 is (HL)
	opReg16              // 0-3: BC DE HL SP
	opRegAF
	opRegIX
	opRegIY
	opRegI
	opRegR
	opIndirectBC
	opIndirectDE
	opIndirectSP
	opIndirectC
	opIndirectIndexed // isIX, disp (disp nil means no displacement given)
	opIndirectNN      // e: the address expression
	opImm             // e: the value expression
)

type operand struct {
	kind opKind
	reg  int
	isIX bool
	disp *expr.Expr
	e    *expr.Expr
}

var condNames = map[string]int{
	"nz": 0, "z": 1, "nc": 2, "c": 3, "po": 4, "pe": 5, "p": 6, "m": 7,
}

var reg8Names = map[string]int{
	"b": 0, "c": 1, "d": 2, "e": 3, "h": 4, "l": 5, "a": 7,
}

var reg16Names = map[string]int{
	"bc": 0, "de": 1, "hl": 2, "sp": 3,
}

// parseCondAt consumes a leading condition-code identifier (jp/call/jr/ret
// share this); it does not consume anything if the next token isn't one.
func parseCondAt(p *opParser) (int, bool) {
	txt, ok := p.identText()
	if !ok {
		return 0, false
	}
	idx, ok := condNames[txt]
	if !ok {
		return 0, false
	}
	p.next()
	return idx, true
}

func parseOperand(p *opParser) (operand, error) {
	t, ok := p.peek()
	if !ok {
		return operand{}, p.errf("expected an operand")
	}

	if t.Kind == lexer.Punct && t.Punct == '(' {
		p.next()
		if txt, ok := p.identText(); ok {
			switch txt {
			case "hl":
				p.next()
				if err := p.expectPunct(')'); err != nil {
					return operand{}, err
				}
				return operand{kind: opReg8, reg: 6}, nil
			case "bc":
				p.next()
				if err := p.expectPunct(')'); err != nil {
					return operand{}, err
				}
				return operand{kind: opIndirectBC}, nil
			case "de":
				p.next()
				if err := p.expectPunct(')'); err != nil {
					return operand{}, err
				}
				return operand{kind: opIndirectDE}, nil
			case "sp":
				p.next()
				if err := p.expectPunct(')'); err != nil {
					return operand{}, err
				}
				return operand{kind: opIndirectSP}, nil
			case "c":
				p.next()
				if err := p.expectPunct(')'); err != nil {
					return operand{}, err
				}
				return operand{kind: opIndirectC}, nil
			case "ix", "iy":
				p.next()
				isIX := txt == "ix"
				var disp *expr.Expr
				if pt, ok := p.peek(); ok && pt.Kind == lexer.Punct && (pt.Punct == '+' || pt.Punct == '-') {
					neg := pt.Punct == '-'
					p.next()
					e, err := p.a.parseExpr(p)
					if err != nil {
						return operand{}, err
					}
					if neg {
						e = negateExpr(e)
					}
					disp = e
				}
				if err := p.expectPunct(')'); err != nil {
					return operand{}, err
				}
				return operand{kind: opIndirectIndexed, isIX: isIX, disp: disp}, nil
			}
		}
		e, err := p.a.parseExpr(p)
		if err != nil {
			return operand{}, err
		}
		if err := p.expectPunct(')'); err != nil {
			return operand{}, err
		}
		return operand{kind: opIndirectNN, e: e}, nil
	}

	if t.Kind == lexer.Ident {
		txt := strings.ToLower(p.a.strs.Get(t.Ident))
		switch txt {
		case "af":
			p.next()
			return operand{kind: opRegAF}, nil
		case "ix":
			p.next()
			return operand{kind: opRegIX}, nil
		case "iy":
			p.next()
			return operand{kind: opRegIY}, nil
		case "i":
			p.next()
			return operand{kind: opRegI}, nil
		case "r":
			p.next()
			return operand{kind: opRegR}, nil
		}
		if reg, ok := reg16Names[txt]; ok {
			p.next()
			return operand{kind: opReg16, reg: reg}, nil
		}
		if reg, ok := reg8Names[txt]; ok {
			p.next()
			return operand{kind: opReg8, reg: reg}, nil
		}
	}

	e, err := p.a.parseExpr(p)
	if err != nil {
		return operand{}, err
	}
	return operand{kind: opImm, e: e}, nil
}

func negateExpr(e *expr.Expr) *expr.Expr {
	root := e.Root()
	e.Nodes = append(e.Nodes, expr.Node{Op: expr.OpNeg, Child: root})
	return e
}

func indexedPrefix(isIX bool) byte {
	if isIX {
		return 0xDD
	}
	return 0xFD
}

func ixPrefixFromKind(k opKind) byte {
	if k == opRegIX {
		return 0xDD
	}
	return 0xFD
}
