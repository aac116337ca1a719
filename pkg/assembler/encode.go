package assembler

import (
	"github.com/possum-systems/possum/pkg/lexer"
)

// encodeInstruction dispatches on the lower-cased mnemonic and parses its
// operands straight out of the buffered line, starting at idx.
func (a *Assembler) encodeInstruction(mnemonic string, line []lexer.Token, idx int, loc lexer.SourceLoc) error {
	p := &opParser{a: a, line: line, pos: idx, loc: loc}
	switch mnemonic {
	case "nop":
		return a.emit0(0x00)
	case "halt":
		return a.emit0(0x76)
	case "di":
		return a.emit0(0xF3)
	case "ei":
		return a.emit0(0xFB)
	case "exx":
		return a.emit0(0xD9)
	case "rlca":
		return a.emit0(0x07)
	case "rrca":
		return a.emit0(0x0F)
	case "rla":
		return a.emit0(0x17)
	case "rra":
		return a.emit0(0x1F)
	case "daa":
		return a.emit0(0x27)
	case "cpl":
		return a.emit0(0x2F)
	case "scf":
		return a.emit0(0x37)
	case "ccf":
		return a.emit0(0x3F)
	case "neg":
		return a.emitED(0x44)
	case "retn":
		return a.emitED(0x45)
	case "reti":
		return a.emitED(0x4D)
	case "rrd":
		return a.emitED(0x67)
	case "rld":
		return a.emitED(0x6F)
	case "ldi":
		return a.emitED(0xA0)
	case "cpi":
		return a.emitED(0xA1)
	case "ini":
		return a.emitED(0xA2)
	case "outi":
		return a.emitED(0xA3)
	case "ldd":
		return a.emitED(0xA8)
	case "cpd":
		return a.emitED(0xA9)
	case "ind":
		return a.emitED(0xAA)
	case "outd":
		return a.emitED(0xAB)
	case "ldir":
		return a.emitED(0xB0)
	case "cpir":
		return a.emitED(0xB1)
	case "inir":
		return a.emitED(0xB2)
	case "otir":
		return a.emitED(0xB3)
	case "lddr":
		return a.emitED(0xB8)
	case "cpdr":
		return a.emitED(0xB9)
	case "indr":
		return a.emitED(0xBA)
	case "otdr":
		return a.emitED(0xBB)

	case "ex":
		return a.encodeEX(p)
	case "push":
		return a.encodePushPop(p, true)
	case "pop":
		return a.encodePushPop(p, false)
	case "inc":
		return a.encodeIncDec(p, true)
	case "dec":
		return a.encodeIncDec(p, false)
	case "add":
		return a.encodeAddAdcSbc(p, 0, -1)
	case "adc":
		return a.encodeAddAdcSbc(p, 1, 0x4A)
	case "sbc":
		return a.encodeAddAdcSbc(p, 3, 0x42)
	case "sub":
		return a.encodeAluImplicitA(p, 2)
	case "and":
		return a.encodeAluImplicitA(p, 4)
	case "xor":
		return a.encodeAluImplicitA(p, 5)
	case "or":
		return a.encodeAluImplicitA(p, 6)
	case "cp":
		return a.encodeAluImplicitA(p, 7)
	case "ld":
		return a.encodeLD(p)
	case "jp":
		return a.encodeJP(p)
	case "jr":
		return a.encodeJR(p)
	case "djnz":
		return a.encodeDJNZ(p)
	case "call":
		return a.encodeCALL(p)
	case "ret":
		return a.encodeRET(p)
	case "rst":
		return a.encodeRST(p)
	case "in":
		return a.encodeIN(p)
	case "out":
		return a.encodeOUT(p)
	case "im":
		return a.encodeIM(p)
	case "rlc", "rrc", "rl", "rr", "sla", "sra", "sll", "srl":
		return a.encodeCBRotate(p, mnemonic)
	case "bit":
		return a.encodeCBBitLike(p, 0x40)
	case "res":
		return a.encodeCBBitLike(p, 0x80)
	case "set":
		return a.encodeCBBitLike(p, 0xC0)
	}
	return p.errf("unknown mnemonic %q", mnemonic)
}

func (a *Assembler) emit0(op byte) error {
	a.image = append(a.image, op)
	a.pc++
	return nil
}

func (a *Assembler) emitED(op byte) error {
	a.image = append(a.image, 0xED, op)
	a.pc += 2
	return nil
}

func (a *Assembler) encodePushPop(p *opParser, push bool) error {
	op, err := parseOperand(p)
	if err != nil {
		return err
	}
	base := byte(0xC1)
	if push {
		base = 0xC5
	}
	switch op.kind {
	case opReg16:
		if op.reg == 3 {
			return p.errf("sp is not valid for push/pop, use af")
		}
		a.image = append(a.image, base+byte(op.reg)*16)
		a.pc++
		return nil
	case opRegAF:
		a.image = append(a.image, base+3*16)
		a.pc++
		return nil
	case opRegIX, opRegIY:
		a.image = append(a.image, ixPrefixFromKind(op.kind), base+2*16)
		a.pc += 2
		return nil
	}
	return p.errf("invalid operand for push/pop")
}

func (a *Assembler) encodeIncDec(p *opParser, inc bool) error {
	op, err := parseOperand(p)
	if err != nil {
		return err
	}
	switch op.kind {
	case opReg8:
		base := byte(0x04)
		if !inc {
			base = 0x05
		}
		a.image = append(a.image, base+byte(op.reg)*8)
		a.pc++
		return nil
	case opReg16:
		base := byte(0x03)
		if !inc {
			base = 0x0B
		}
		a.image = append(a.image, base+byte(op.reg)*16)
		a.pc++
		return nil
	case opRegIX, opRegIY:
		base := byte(0x23)
		if !inc {
			base = 0x2B
		}
		a.image = append(a.image, ixPrefixFromKind(op.kind), base)
		a.pc += 2
		return nil
	case opIndirectIndexed:
		base := byte(0x34)
		if !inc {
			base = 0x35
		}
		a.image = append(a.image, indexedPrefix(op.isIX), base)
		a.pc += 2
		a.emitDisp(op.disp, p.loc)
		return nil
	}
	return p.errf("invalid operand for inc/dec")
}

func (a *Assembler) emitAlu(aluIdx int, op operand, loc lexer.SourceLoc) error {
	switch op.kind {
	case opReg8:
		a.image = append(a.image, 0x80+byte(aluIdx)*8+byte(op.reg))
		a.pc++
		return nil
	case opIndirectIndexed:
		a.image = append(a.image, indexedPrefix(op.isIX), 0x86+byte(aluIdx)*8)
		a.pc += 2
		a.emitDisp(op.disp, loc)
		return nil
	case opImm:
		a.image = append(a.image, 0xC6+byte(aluIdx)*8)
		a.pc++
		a.emitByteExpr(op.e, loc)
		return nil
	}
	return &Error{Loc: loc, Files: a.files, Message: "invalid operand for arithmetic instruction"}
}

func (a *Assembler) encodeAluImplicitA(p *opParser, aluIdx int) error {
	first, err := parseOperand(p)
	if err != nil {
		return err
	}
	op := first
	if first.kind == opReg8 && first.reg == 7 && p.consumeComma() {
		op, err = parseOperand(p)
		if err != nil {
			return err
		}
	}
	return a.emitAlu(aluIdx, op, p.loc)
}

// encodeAddAdcSbc handles ADD/ADC/SBC, which share both an 8-bit "A,x"
// form and (ADD only, plus ADC/SBC's ED-prefixed HL,rp form) a 16-bit
// register-pair form. edBase < 0 means ADD's own non-ED 16-bit encoding.
func (a *Assembler) encodeAddAdcSbc(p *opParser, aluIdx int, edBase int) error {
	first, err := parseOperand(p)
	if err != nil {
		return err
	}
	switch first.kind {
	case opReg16:
		if first.reg != 2 {
			return p.errf("only hl is valid here among 16-bit register pairs")
		}
		if !p.consumeComma() {
			return p.errf("expected ','")
		}
		second, err := parseOperand(p)
		if err != nil {
			return err
		}
		if second.kind != opReg16 {
			return p.errf("expected a 16-bit register pair")
		}
		if edBase < 0 {
			a.image = append(a.image, 0x09+byte(second.reg)*16)
			a.pc++
		} else {
			a.image = append(a.image, 0xED, byte(edBase)+byte(second.reg)*16)
			a.pc += 2
		}
		return nil
	case opRegIX, opRegIY:
		if edBase >= 0 {
			return p.errf("only add supports ix/iy as a 16-bit destination")
		}
		if !p.consumeComma() {
			return p.errf("expected ','")
		}
		second, err := parseOperand(p)
		if err != nil {
			return err
		}
		var rp int
		switch second.kind {
		case opReg16:
			if second.reg == 2 {
				return p.errf("use ix/iy itself, not hl, as the other operand")
			}
			rp = second.reg
		case opRegIX, opRegIY:
			if second.kind != first.kind {
				return p.errf("add ix,iy and add iy,ix are not valid")
			}
			rp = 2
		default:
			return p.errf("expected a 16-bit register pair")
		}
		a.image = append(a.image, ixPrefixFromKind(first.kind), 0x09+byte(rp)*16)
		a.pc += 2
		return nil
	case opReg8:
		if first.reg != 7 {
			return p.errf("expected 'a,' before the operand")
		}
		if !p.consumeComma() {
			return p.errf("expected ','")
		}
		op, err := parseOperand(p)
		if err != nil {
			return err
		}
		return a.emitAlu(aluIdx, op, p.loc)
	}
	return p.errf("invalid operands")
}

func (a *Assembler) encodeEX(p *opParser) error {
	first, err := parseOperand(p)
	if err != nil {
		return err
	}
	if !p.consumeComma() {
		return p.errf("expected ','")
	}
	switch first.kind {
	case opReg16:
		if first.reg != 1 {
			return p.errf("ex requires de,hl")
		}
		second, err := parseOperand(p)
		if err != nil {
			return err
		}
		if second.kind != opReg16 || second.reg != 2 {
			return p.errf("ex de,hl expected")
		}
		a.image = append(a.image, 0xEB)
		a.pc++
		return nil
	case opRegAF:
		second, err := parseOperand(p)
		if err != nil {
			return err
		}
		if second.kind != opRegAF {
			return p.errf("ex af,af' expected")
		}
		if t, ok := p.peek(); ok && t.Kind == lexer.Punct && t.Punct == '\'' {
			p.next()
		}
		a.image = append(a.image, 0x08)
		a.pc++
		return nil
	case opIndirectSP:
		second, err := parseOperand(p)
		if err != nil {
			return err
		}
		switch second.kind {
		case opReg16:
			if second.reg != 2 {
				return p.errf("ex (sp),hl expected")
			}
			a.image = append(a.image, 0xE3)
			a.pc++
		case opRegIX:
			a.image = append(a.image, 0xDD, 0xE3)
			a.pc += 2
		case opRegIY:
			a.image = append(a.image, 0xFD, 0xE3)
			a.pc += 2
		default:
			return p.errf("invalid ex (sp), operand")
		}
		return nil
	}
	return p.errf("invalid ex operands")
}

func (a *Assembler) encodeLD(p *opParser) error {
	dst, err := parseOperand(p)
	if err != nil {
		return err
	}
	if !p.consumeComma() {
		return p.errf("expected ','")
	}
	src, err := parseOperand(p)
	if err != nil {
		return err
	}
	loc := p.loc

	switch dst.kind {
	case opReg8:
		switch src.kind {
		case opReg8:
			if dst.reg == 6 && src.reg == 6 {
				return p.errf("ld (hl),(hl) does not exist (that's halt)")
			}
			a.image = append(a.image, 0x40+byte(dst.reg)*8+byte(src.reg))
			a.pc++
			return nil
		case opImm:
			base := byte(0x06)
			a.image = append(a.image, base+byte(dst.reg)*8)
			a.pc++
			a.emitByteExpr(src.e, loc)
			return nil
		case opIndirectIndexed:
			a.image = append(a.image, indexedPrefix(src.isIX), 0x46+byte(dst.reg)*8)
			a.pc += 2
			a.emitDisp(src.disp, loc)
			return nil
		case opIndirectBC:
			if dst.reg != 7 {
				return p.errf("ld a,(bc) only")
			}
			a.image = append(a.image, 0x0A)
			a.pc++
			return nil
		case opIndirectDE:
			if dst.reg != 7 {
				return p.errf("ld a,(de) only")
			}
			a.image = append(a.image, 0x1A)
			a.pc++
			return nil
		case opIndirectNN:
			if dst.reg != 7 {
				return p.errf("ld a,(nn) only")
			}
			a.image = append(a.image, 0x3A)
			a.pc++
			a.emitWordExpr(src.e, loc)
			return nil
		case opRegI:
			if dst.reg != 7 {
				return p.errf("ld a,i only")
			}
			return a.emitED(0x57)
		case opRegR:
			if dst.reg != 7 {
				return p.errf("ld a,r only")
			}
			return a.emitED(0x5F)
		}
	case opIndirectIndexed:
		switch src.kind {
		case opReg8:
			a.image = append(a.image, indexedPrefix(dst.isIX), 0x70+byte(src.reg))
			a.pc += 2
			a.emitDisp(dst.disp, loc)
			return nil
		case opImm:
			a.image = append(a.image, indexedPrefix(dst.isIX), 0x36)
			a.pc += 2
			a.emitDisp(dst.disp, loc)
			a.emitByteExpr(src.e, loc)
			return nil
		}
	case opIndirectBC:
		if src.kind == opReg8 && src.reg == 7 {
			a.image = append(a.image, 0x02)
			a.pc++
			return nil
		}
	case opIndirectDE:
		if src.kind == opReg8 && src.reg == 7 {
			a.image = append(a.image, 0x12)
			a.pc++
			return nil
		}
	case opIndirectNN:
		switch src.kind {
		case opReg8:
			if src.reg != 7 {
				return p.errf("ld (nn),a only")
			}
			a.image = append(a.image, 0x32)
			a.pc++
			a.emitWordExpr(dst.e, loc)
			return nil
		case opReg16:
			if src.reg == 2 {
				a.image = append(a.image, 0x22)
				a.pc++
			} else {
				a.image = append(a.image, 0xED, 0x43+byte(src.reg)*16)
				a.pc += 2
			}
			a.emitWordExpr(dst.e, loc)
			return nil
		case opRegIX, opRegIY:
			a.image = append(a.image, ixPrefixFromKind(src.kind), 0x22)
			a.pc += 2
			a.emitWordExpr(dst.e, loc)
			return nil
		}
	case opReg16:
		switch src.kind {
		case opImm:
			a.image = append(a.image, 0x01+byte(dst.reg)*16)
			a.pc++
			a.emitWordExpr(src.e, loc)
			return nil
		case opIndirectNN:
			if dst.reg == 2 {
				a.image = append(a.image, 0x2A)
				a.pc++
			} else {
				a.image = append(a.image, 0xED, 0x4B+byte(dst.reg)*16)
				a.pc += 2
			}
			a.emitWordExpr(src.e, loc)
			return nil
		case opReg16:
			if dst.reg == 3 && src.reg == 2 {
				a.image = append(a.image, 0xF9)
				a.pc++
				return nil
			}
		case opRegIX, opRegIY:
			if dst.reg == 3 {
				a.image = append(a.image, ixPrefixFromKind(src.kind), 0xF9)
				a.pc += 2
				return nil
			}
		}
	case opRegIX, opRegIY:
		switch src.kind {
		case opImm:
			a.image = append(a.image, ixPrefixFromKind(dst.kind), 0x21)
			a.pc += 2
			a.emitWordExpr(src.e, loc)
			return nil
		case opIndirectNN:
			a.image = append(a.image, ixPrefixFromKind(dst.kind), 0x2A)
			a.pc += 2
			a.emitWordExpr(src.e, loc)
			return nil
		}
	case opRegI:
		if src.kind == opReg8 && src.reg == 7 {
			return a.emitED(0x47)
		}
	case opRegR:
		if src.kind == opReg8 && src.reg == 7 {
			return a.emitED(0x4F)
		}
	}
	return p.errf("invalid ld operands")
}

func (a *Assembler) encodeJP(p *opParser) error {
	if cc, ok := parseCondAt(p); ok {
		if !p.consumeComma() {
			return p.errf("expected ','")
		}
		target, err := parseOperand(p)
		if err != nil {
			return err
		}
		if target.kind != opImm {
			return p.errf("expected an address")
		}
		a.image = append(a.image, 0xC2+byte(cc)*8)
		a.pc++
		a.emitWordExpr(target.e, p.loc)
		return nil
	}
	op, err := parseOperand(p)
	if err != nil {
		return err
	}
	switch op.kind {
	case opImm:
		a.image = append(a.image, 0xC3)
		a.pc++
		a.emitWordExpr(op.e, p.loc)
		return nil
	case opReg8:
		if op.reg != 6 {
			return p.errf("jp (hl) expected")
		}
		a.image = append(a.image, 0xE9)
		a.pc++
		return nil
	case opIndirectIndexed:
		a.image = append(a.image, indexedPrefix(op.isIX), 0xE9)
		a.pc += 2
		return nil
	}
	return p.errf("invalid jp operand")
}

func (a *Assembler) encodeJR(p *opParser) error {
	if cc, ok := parseCondAt(p); ok {
		if cc > 3 {
			return p.errf("jr only takes nz, z, nc, or c")
		}
		if !p.consumeComma() {
			return p.errf("expected ','")
		}
		target, err := parseOperand(p)
		if err != nil {
			return err
		}
		if target.kind != opImm {
			return p.errf("expected an address")
		}
		a.image = append(a.image, 0x20+byte(cc)*8)
		a.pc++
		a.emitSignedByteExpr(a.relExpr(target.e, a.pc+1), p.loc)
		return nil
	}
	op, err := parseOperand(p)
	if err != nil {
		return err
	}
	if op.kind != opImm {
		return p.errf("expected an address")
	}
	a.image = append(a.image, 0x18)
	a.pc++
	a.emitSignedByteExpr(a.relExpr(op.e, a.pc+1), p.loc)
	return nil
}

func (a *Assembler) encodeDJNZ(p *opParser) error {
	op, err := parseOperand(p)
	if err != nil {
		return err
	}
	if op.kind != opImm {
		return p.errf("expected an address")
	}
	a.image = append(a.image, 0x10)
	a.pc++
	a.emitSignedByteExpr(a.relExpr(op.e, a.pc+1), p.loc)
	return nil
}

func (a *Assembler) encodeCALL(p *opParser) error {
	if cc, ok := parseCondAt(p); ok {
		if !p.consumeComma() {
			return p.errf("expected ','")
		}
		target, err := parseOperand(p)
		if err != nil {
			return err
		}
		if target.kind != opImm {
			return p.errf("expected an address")
		}
		a.image = append(a.image, 0xC4+byte(cc)*8)
		a.pc++
		a.emitWordExpr(target.e, p.loc)
		return nil
	}
	op, err := parseOperand(p)
	if err != nil {
		return err
	}
	if op.kind != opImm {
		return p.errf("expected an address")
	}
	a.image = append(a.image, 0xCD)
	a.pc++
	a.emitWordExpr(op.e, p.loc)
	return nil
}

func (a *Assembler) encodeRET(p *opParser) error {
	if p.atEnd() {
		a.image = append(a.image, 0xC9)
		a.pc++
		return nil
	}
	cc, ok := parseCondAt(p)
	if !ok {
		return p.errf("expected a condition code")
	}
	a.image = append(a.image, 0xC0+byte(cc)*8)
	a.pc++
	return nil
}

func (a *Assembler) encodeRST(p *opParser) error {
	op, err := parseOperand(p)
	if err != nil {
		return err
	}
	if op.kind != opImm {
		return p.errf("expected a restart vector")
	}
	v, ok := op.e.Evaluate(a.symtab)
	if !ok || v < 0 || v > 0x38 || v%8 != 0 {
		return p.errf("rst operand must be a known multiple of 8 from 0 to 56")
	}
	a.image = append(a.image, 0xC7+byte(v))
	a.pc++
	return nil
}

func (a *Assembler) encodeIN(p *opParser) error {
	dst, err := parseOperand(p)
	if err != nil {
		return err
	}
	if !p.consumeComma() {
		return p.errf("expected ','")
	}
	src, err := parseOperand(p)
	if err != nil {
		return err
	}
	switch src.kind {
	case opIndirectNN:
		if dst.kind != opReg8 || dst.reg != 7 {
			return p.errf("in a,(n) only")
		}
		a.image = append(a.image, 0xDB)
		a.pc++
		a.emitByteExpr(src.e, p.loc)
		return nil
	case opIndirectC:
		if dst.kind != opReg8 {
			return p.errf("expected a register")
		}
		a.image = append(a.image, 0xED, 0x40+byte(dst.reg)*8)
		a.pc += 2
		return nil
	}
	return p.errf("invalid in operands")
}

func (a *Assembler) encodeOUT(p *opParser) error {
	dst, err := parseOperand(p)
	if err != nil {
		return err
	}
	if !p.consumeComma() {
		return p.errf("expected ','")
	}
	src, err := parseOperand(p)
	if err != nil {
		return err
	}
	switch dst.kind {
	case opIndirectNN:
		if src.kind != opReg8 || src.reg != 7 {
			return p.errf("out (n),a only")
		}
		a.image = append(a.image, 0xD3)
		a.pc++
		a.emitByteExpr(dst.e, p.loc)
		return nil
	case opIndirectC:
		if src.kind != opReg8 {
			return p.errf("expected a register")
		}
		a.image = append(a.image, 0xED, 0x41+byte(src.reg)*8)
		a.pc += 2
		return nil
	}
	return p.errf("invalid out operands")
}

func (a *Assembler) encodeIM(p *opParser) error {
	op, err := parseOperand(p)
	if err != nil {
		return err
	}
	if op.kind != opImm {
		return p.errf("expected 0, 1, or 2")
	}
	v, ok := op.e.Evaluate(a.symtab)
	if !ok {
		return p.errf("im operand must be known at assembly time")
	}
	switch v {
	case 0:
		return a.emitED(0x46)
	case 1:
		return a.emitED(0x56)
	case 2:
		return a.emitED(0x5E)
	}
	return p.errf("im operand must be 0, 1, or 2")
}

var cbShiftIdx = map[string]int{
	"rlc": 0, "rrc": 1, "rl": 2, "rr": 3, "sla": 4, "sra": 5, "sll": 6, "srl": 7,
}

func (a *Assembler) encodeCBRotate(p *opParser, mnemonic string) error {
	idx := cbShiftIdx[mnemonic]
	op, err := parseOperand(p)
	if err != nil {
		return err
	}
	switch op.kind {
	case opReg8:
		a.image = append(a.image, 0xCB, byte(idx)*8+byte(op.reg))
		a.pc += 2
		return nil
	case opIndirectIndexed:
		a.image = append(a.image, indexedPrefix(op.isIX), 0xCB)
		a.pc += 2
		a.emitDisp(op.disp, p.loc)
		a.image = append(a.image, byte(idx)*8+6)
		a.pc++
		return nil
	}
	return p.errf("invalid operand")
}

func (a *Assembler) encodeCBBitLike(p *opParser, base byte) error {
	bitOp, err := parseOperand(p)
	if err != nil {
		return err
	}
	if bitOp.kind != opImm {
		return p.errf("expected a bit number")
	}
	n, ok := bitOp.e.Evaluate(a.symtab)
	if !ok || n < 0 || n > 7 {
		return p.errf("bit number must be 0-7 and known at assembly time")
	}
	if !p.consumeComma() {
		return p.errf("expected ','")
	}
	op, err := parseOperand(p)
	if err != nil {
		return err
	}
	switch op.kind {
	case opReg8:
		a.image = append(a.image, 0xCB, base+byte(n)*8+byte(op.reg))
		a.pc += 2
		return nil
	case opIndirectIndexed:
		a.image = append(a.image, indexedPrefix(op.isIX), 0xCB)
		a.pc += 2
		a.emitDisp(op.disp, p.loc)
		a.image = append(a.image, base+byte(n)*8+6)
		a.pc++
		return nil
	}
	return p.errf("invalid operand")
}
