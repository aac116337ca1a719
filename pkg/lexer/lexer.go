// Package lexer turns assembly source bytes into a token stream,
// decoding UTF-8 one scalar at a time through a rotating 4-byte window
// and tracking (file, line, column) for every token it produces.
package lexer

import (
	"io"
	"unicode"

	"github.com/possum-systems/possum/pkg/intern"
)

// Error is a fatal lexing error tied to a source location.
type Error struct {
	Loc SourceLoc
	Err error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Lexer produces a forward-only stream of Tokens from one source file.
type Lexer struct {
	cr       *charReader
	file     FileID
	line     int
	col      int
	strs     *intern.Strings
	bytes    *intern.Interner
	lookhead rune
	haveLook bool
	eofAt    bool
	done     bool
}

// New returns a Lexer reading r, tagging every token with file. strs
// interns identifiers; bytes interns string-literal contents.
func New(r io.Reader, file FileID, strs *intern.Strings, bytes *intern.Interner) *Lexer {
	return &Lexer{
		cr:    newCharReader(r),
		file:  file,
		line:  1,
		col:   1,
		strs:  strs,
		bytes: bytes,
	}
}

func (l *Lexer) loc() SourceLoc { return SourceLoc{File: l.file, Line: l.line, Column: l.col} }

func (l *Lexer) peekRune() (rune, bool) {
	if l.haveLook {
		return l.lookhead, true
	}
	r, err := l.cr.next()
	if err != nil {
		return 0, false
	}
	l.lookhead = r
	l.haveLook = true
	return r, true
}

func (l *Lexer) advance() (rune, bool) {
	r, ok := l.peekRune()
	if !ok {
		return 0, false
	}
	l.haveLook = false
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r, true
}

// Next returns the next token. After the first EOF token it continues to
// return EOF tokens at the same location.
func (l *Lexer) Next() (Token, error) {
	if l.done {
		return Token{Kind: EOF, Loc: l.loc()}, nil
	}

	for {
		r, ok := l.peekRune()
		if !ok {
			l.done = true
			return Token{Kind: EOF, Loc: l.loc()}, nil
		}

		switch {
		case r == '\n':
			loc := l.loc()
			l.advance()
			return Token{Kind: EOL, Loc: loc}, nil

		case r == ' ' || r == '\t' || r == '\r':
			l.advance()
			continue

		case r == ';':
			for {
				r, ok := l.peekRune()
				if !ok || r == '\n' {
					break
				}
				l.advance()
			}
			continue

		case r == '\\':
			return l.lexParam()

		case r == '"':
			return l.lexString()

		case r == '$':
			return l.lexHex('$')

		case r == '%':
			return l.lexBinary()

		case unicode.IsDigit(r):
			return l.lexNumber()

		case isIdentStart(r):
			return l.lexIdent()

		default:
			loc := l.loc()
			l.advance()
			return Token{Kind: Punct, Loc: loc, Punct: r}, nil
		}
	}
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_' || r == '.' || r == '@'
}

func isIdentCont(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.'
}

func (l *Lexer) lexIdent() (Token, error) {
	loc := l.loc()
	first, _ := l.advance() // already checked by isIdentStart; may be '@'
	sb := []rune{first}
	for {
		r, ok := l.peekRune()
		if !ok || !isIdentCont(r) {
			break
		}
		l.advance()
		sb = append(sb, r)
	}
	h := l.strs.Intern(string(sb))
	return Token{Kind: Ident, Loc: loc, Ident: h}, nil
}

func (l *Lexer) lexNumber() (Token, error) {
	loc := l.loc()
	var sb []rune
	for {
		r, ok := l.peekRune()
		if !ok || (!unicode.IsDigit(r) && r != '_') {
			break
		}
		l.advance()
		if r != '_' {
			sb = append(sb, r)
		}
	}
	// Only decimal digits are read here; there is no trailing 'h' suffix
	// form (e.g. 0FFh). Hex and binary use their prefix forms ($, %, 0x).
	if r, ok := l.peekRune(); ok && (r == 'x' || r == 'X') && len(sb) == 1 && sb[0] == '0' {
		l.advance()
		return l.lexHexDigits(loc)
	}
	v, err := parseDecimal(sb)
	if err != nil {
		return Token{}, &Error{Loc: loc, Err: err}
	}
	return Token{Kind: Int, Loc: loc, Int: v}, nil
}

func (l *Lexer) lexHex(prefix rune) (Token, error) {
	loc := l.loc()
	l.advance() // consume prefix
	return l.lexHexDigits(loc)
}

func (l *Lexer) lexHexDigits(loc SourceLoc) (Token, error) {
	var sb []rune
	for {
		r, ok := l.peekRune()
		if !ok || !isHexDigit(r) {
			break
		}
		l.advance()
		sb = append(sb, r)
	}
	v, err := parseHex(sb)
	if err != nil {
		return Token{}, &Error{Loc: loc, Err: err}
	}
	return Token{Kind: Int, Loc: loc, Int: v}, nil
}

func (l *Lexer) lexBinary() (Token, error) {
	loc := l.loc()
	l.advance() // consume '%'
	var sb []rune
	for {
		r, ok := l.peekRune()
		if !ok || (r != '0' && r != '1') {
			break
		}
		l.advance()
		sb = append(sb, r)
	}
	v, err := parseBinary(sb)
	if err != nil {
		return Token{}, &Error{Loc: loc, Err: err}
	}
	return Token{Kind: Int, Loc: loc, Int: v}, nil
}

func (l *Lexer) lexString() (Token, error) {
	loc := l.loc()
	l.advance() // consume opening quote
	var raw []byte
	for {
		r, ok := l.peekRune()
		if !ok {
			return Token{}, &Error{Loc: loc, Err: errUnterminatedString}
		}
		if r == '"' {
			l.advance()
			break
		}
		if r == '\\' {
			l.advance()
			esc, ok := l.advance()
			if !ok {
				return Token{}, &Error{Loc: loc, Err: errUnterminatedString}
			}
			raw = appendRune(raw, unescape(esc))
			continue
		}
		l.advance()
		raw = appendRune(raw, r)
	}
	h := l.bytes.Intern(raw)
	return Token{Kind: Str, Loc: loc, Str: h}, nil
}

func (l *Lexer) lexParam() (Token, error) {
	loc := l.loc()
	l.advance() // consume backslash
	r, ok := l.peekRune()
	if !ok || !unicode.IsDigit(r) {
		return Token{}, &Error{Loc: loc, Err: errBadParamRef}
	}
	l.advance()
	return Token{Kind: Param, Loc: loc, Int: int64(r - '0')}, nil
}

func appendRune(b []byte, r rune) []byte {
	var buf [4]byte
	n := encodeRune(buf[:], r)
	return append(b, buf[:n]...)
}
