package assembler

import (
	"strings"

	"github.com/possum-systems/possum/pkg/expr"
	"github.com/possum-systems/possum/pkg/lexer"
)

// exprBuilder accumulates nodes into one expr.Expr as the recursive
// descent parser below folds operators, always appending the combining
// node after both of its operands so the last node stays the root.
type exprBuilder struct{ e *expr.Expr }

// parseExpr parses one full expression (the lowest-precedence ternary
// level down to primaries) starting at p's current position.
func (a *Assembler) parseExpr(p *opParser) (*expr.Expr, error) {
	b := &exprBuilder{e: &expr.Expr{}}
	if _, err := a.parseTernary(p, b); err != nil {
		return nil, err
	}
	return b.e, nil
}

func (a *Assembler) parseTernary(p *opParser, b *exprBuilder) (int, error) {
	cond, err := a.parseLogOr(p, b)
	if err != nil {
		return 0, err
	}
	if t, ok := p.peek(); ok && t.Kind == lexer.Punct && t.Punct == '?' {
		p.next()
		then, err := a.parseTernary(p, b)
		if err != nil {
			return 0, err
		}
		if err := p.expectPunct(':'); err != nil {
			return 0, err
		}
		els, err := a.parseTernary(p, b)
		if err != nil {
			return 0, err
		}
		idx := len(b.e.Nodes)
		b.e.Nodes = append(b.e.Nodes, expr.Node{Op: expr.OpTernary, Cond: cond, Then: then, Else: els})
		return idx, nil
	}
	return cond, nil
}

func (a *Assembler) parseLogOr(p *opParser, b *exprBuilder) (int, error) {
	lhs, err := a.parseLogAnd(p, b)
	if err != nil {
		return 0, err
	}
	for p.peekPunct2('|', '|') {
		p.next()
		p.next()
		rhs, err := a.parseLogAnd(p, b)
		if err != nil {
			return 0, err
		}
		lhs = bin(b, expr.OpLogOr, lhs, rhs)
	}
	return lhs, nil
}

func (a *Assembler) parseLogAnd(p *opParser, b *exprBuilder) (int, error) {
	lhs, err := a.parseBitOr(p, b)
	if err != nil {
		return 0, err
	}
	for p.peekPunct2('&', '&') {
		p.next()
		p.next()
		rhs, err := a.parseBitOr(p, b)
		if err != nil {
			return 0, err
		}
		lhs = bin(b, expr.OpLogAnd, lhs, rhs)
	}
	return lhs, nil
}

func (a *Assembler) parseBitOr(p *opParser, b *exprBuilder) (int, error) {
	lhs, err := a.parseBitXor(p, b)
	if err != nil {
		return 0, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.Kind != lexer.Punct || t.Punct != '|' || p.peekPunct2('|', '|') {
			break
		}
		p.next()
		rhs, err := a.parseBitXor(p, b)
		if err != nil {
			return 0, err
		}
		lhs = bin(b, expr.OpOr, lhs, rhs)
	}
	return lhs, nil
}

func (a *Assembler) parseBitXor(p *opParser, b *exprBuilder) (int, error) {
	lhs, err := a.parseBitAnd(p, b)
	if err != nil {
		return 0, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.Kind != lexer.Punct || t.Punct != '^' {
			break
		}
		p.next()
		rhs, err := a.parseBitAnd(p, b)
		if err != nil {
			return 0, err
		}
		lhs = bin(b, expr.OpXor, lhs, rhs)
	}
	return lhs, nil
}

func (a *Assembler) parseBitAnd(p *opParser, b *exprBuilder) (int, error) {
	lhs, err := a.parseEquality(p, b)
	if err != nil {
		return 0, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.Kind != lexer.Punct || t.Punct != '&' || p.peekPunct2('&', '&') {
			break
		}
		p.next()
		rhs, err := a.parseEquality(p, b)
		if err != nil {
			return 0, err
		}
		lhs = bin(b, expr.OpAnd, lhs, rhs)
	}
	return lhs, nil
}

func (a *Assembler) parseEquality(p *opParser, b *exprBuilder) (int, error) {
	lhs, err := a.parseRelational(p, b)
	if err != nil {
		return 0, err
	}
	for {
		if p.peekPunct2('=', '=') {
			p.next()
			p.next()
			rhs, err := a.parseRelational(p, b)
			if err != nil {
				return 0, err
			}
			lhs = bin(b, expr.OpEq, lhs, rhs)
			continue
		}
		if p.peekPunct2('!', '=') {
			p.next()
			p.next()
			rhs, err := a.parseRelational(p, b)
			if err != nil {
				return 0, err
			}
			lhs = bin(b, expr.OpNe, lhs, rhs)
			continue
		}
		break
	}
	return lhs, nil
}

func (a *Assembler) parseRelational(p *opParser, b *exprBuilder) (int, error) {
	lhs, err := a.parseShift(p, b)
	if err != nil {
		return 0, err
	}
	for {
		if p.peekPunct2('<', '=') {
			p.next()
			p.next()
			rhs, err := a.parseShift(p, b)
			if err != nil {
				return 0, err
			}
			lhs = bin(b, expr.OpLe, lhs, rhs)
			continue
		}
		if p.peekPunct2('>', '=') {
			p.next()
			p.next()
			rhs, err := a.parseShift(p, b)
			if err != nil {
				return 0, err
			}
			lhs = bin(b, expr.OpGe, lhs, rhs)
			continue
		}
		if t, ok := p.peek(); ok && t.Kind == lexer.Punct && t.Punct == '<' && !p.peekPunct2('<', '<') {
			p.next()
			rhs, err := a.parseShift(p, b)
			if err != nil {
				return 0, err
			}
			lhs = bin(b, expr.OpLt, lhs, rhs)
			continue
		}
		if t, ok := p.peek(); ok && t.Kind == lexer.Punct && t.Punct == '>' && !p.peekPunct2('>', '>') {
			p.next()
			rhs, err := a.parseShift(p, b)
			if err != nil {
				return 0, err
			}
			lhs = bin(b, expr.OpGt, lhs, rhs)
			continue
		}
		break
	}
	return lhs, nil
}

func (a *Assembler) parseShift(p *opParser, b *exprBuilder) (int, error) {
	lhs, err := a.parseAdd(p, b)
	if err != nil {
		return 0, err
	}
	for {
		if p.peekPunct2('<', '<') {
			p.next()
			p.next()
			rhs, err := a.parseAdd(p, b)
			if err != nil {
				return 0, err
			}
			lhs = bin(b, expr.OpShl, lhs, rhs)
			continue
		}
		if p.peekPunct2('>', '>') {
			p.next()
			p.next()
			rhs, err := a.parseAdd(p, b)
			if err != nil {
				return 0, err
			}
			lhs = bin(b, expr.OpShr, lhs, rhs)
			continue
		}
		break
	}
	return lhs, nil
}

func (a *Assembler) parseAdd(p *opParser, b *exprBuilder) (int, error) {
	lhs, err := a.parseMul(p, b)
	if err != nil {
		return 0, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.Kind != lexer.Punct || (t.Punct != '+' && t.Punct != '-') {
			break
		}
		op := expr.OpAdd
		if t.Punct == '-' {
			op = expr.OpSub
		}
		p.next()
		rhs, err := a.parseMul(p, b)
		if err != nil {
			return 0, err
		}
		lhs = bin(b, op, lhs, rhs)
	}
	return lhs, nil
}

func (a *Assembler) parseMul(p *opParser, b *exprBuilder) (int, error) {
	lhs, err := a.parseUnary(p, b)
	if err != nil {
		return 0, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.Kind != lexer.Punct {
			break
		}
		var op expr.Op
		switch t.Punct {
		case '*':
			op = expr.OpMul
		case '/':
			op = expr.OpDiv
		case '%':
			op = expr.OpMod
		default:
			return lhs, nil
		}
		p.next()
		rhs, err := a.parseUnary(p, b)
		if err != nil {
			return 0, err
		}
		lhs = bin(b, op, lhs, rhs)
	}
	return lhs, nil
}

func (a *Assembler) parseUnary(p *opParser, b *exprBuilder) (int, error) {
	if t, ok := p.peek(); ok && t.Kind == lexer.Punct {
		switch t.Punct {
		case '!':
			p.next()
			c, err := a.parseUnary(p, b)
			if err != nil {
				return 0, err
			}
			return un(b, expr.OpNot, c), nil
		case '~':
			p.next()
			c, err := a.parseUnary(p, b)
			if err != nil {
				return 0, err
			}
			return un(b, expr.OpInvert, c), nil
		case '-':
			p.next()
			c, err := a.parseUnary(p, b)
			if err != nil {
				return 0, err
			}
			return un(b, expr.OpNeg, c), nil
		case '+':
			p.next()
			return a.parseUnary(p, b)
		}
	}
	return a.parsePrimary(p, b)
}

func (a *Assembler) parsePrimary(p *opParser, b *exprBuilder) (int, error) {
	t, ok := p.next()
	if !ok {
		return 0, p.errf("unexpected end of expression")
	}
	switch t.Kind {
	case lexer.Int:
		idx := len(b.e.Nodes)
		b.e.Nodes = append(b.e.Nodes, expr.Node{Op: expr.OpValue, Value: t.Int})
		return idx, nil
	case lexer.Ident:
		text := a.strs.Get(t.Ident)
		if strings.EqualFold(text, "@here") {
			idx := len(b.e.Nodes)
			b.e.Nodes = append(b.e.Nodes, expr.Node{Op: expr.OpValue, Value: int64(a.pc)})
			return idx, nil
		}
		a.symtab.Touch(t.Ident, t.Loc)
		idx := len(b.e.Nodes)
		b.e.Nodes = append(b.e.Nodes, expr.Node{Op: expr.OpLabel, Label: t.Ident})
		return idx, nil
	case lexer.Punct:
		if t.Punct == '(' {
			idx, err := a.parseTernary(p, b)
			if err != nil {
				return 0, err
			}
			if err := p.expectPunct(')'); err != nil {
				return 0, err
			}
			return idx, nil
		}
	}
	return 0, p.errf("unexpected token in expression")
}

func bin(b *exprBuilder, op expr.Op, lhs, rhs int) int {
	idx := len(b.e.Nodes)
	b.e.Nodes = append(b.e.Nodes, expr.Node{Op: op, Lhs: lhs, Rhs: rhs})
	return idx
}

func un(b *exprBuilder, op expr.Op, child int) int {
	idx := len(b.e.Nodes)
	b.e.Nodes = append(b.e.Nodes, expr.Node{Op: op, Child: child})
	return idx
}
