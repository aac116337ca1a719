// Package assembler implements pass one of the macro assembler: it turns
// a token stream into an in-progress output image plus a list of fixups
// (linker.Link) for anything that could not be resolved immediately,
// driven by assemble(cwd, path, out).
package assembler

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/possum-systems/possum/pkg/expr"
	"github.com/possum-systems/possum/pkg/fileman"
	"github.com/possum-systems/possum/pkg/intern"
	"github.com/possum-systems/possum/pkg/lexer"
	"github.com/possum-systems/possum/pkg/linker"
	"github.com/possum-systems/possum/pkg/symtab"
)

// Error is a fatal, source-located assembler diagnostic, formatted the
// same way as a linker.Error.
type Error struct {
	Loc     lexer.SourceLoc
	Files   *lexer.FileTable
	Message string
}

func (e *Error) Error() string {
	path := "<unknown>"
	if e.Files != nil {
		path = e.Files.Path(e.Loc.File)
	}
	return fmt.Sprintf("In %q\n\n%s:%d:%d: %s", path, filepath.Base(path), e.Loc.Line, e.Loc.Column, e.Message)
}

// frame is one entry on the assembler's token source stack: either a live
// file lexer (for the root file or an @include) or a pre-expanded macro
// body's token slice.
type frame struct {
	lx     *lexer.Lexer
	tokens []lexer.Token
	pos    int
}

type macroDef struct {
	body []lexer.Token
}

// Assembler holds all state for one assembly run: the interners, the
// token-source stack, the in-progress output image and fixups, and the
// symbol table they reference against.
type Assembler struct {
	cwd string
	fm  *fileman.Manager
	fs  fileman.FileSystem

	strs  *intern.Strings
	bytes *intern.Interner
	paths *intern.Paths
	files *lexer.FileTable

	symtab *symtab.Table
	macros map[intern.Handle]*macroDef

	frames  []*frame
	closers []io.Closer

	pc    int
	image []byte
	links []linker.Link
}

func newAssembler(cwd string, fs fileman.FileSystem) *Assembler {
	paths := intern.NewPaths()
	return &Assembler{
		cwd:    cwd,
		fs:     fs,
		fm:     fileman.New(fs, paths),
		strs:   intern.NewStrings(),
		bytes:  intern.New(),
		paths:  paths,
		files:  lexer.NewFileTable(paths),
		symtab: symtab.New(),
		macros: make(map[intern.Handle]*macroDef),
	}
}

// Run drives pass one against the real filesystem: it resolves rootPath
// (searched first against cwd, then each of includeDirs), expands macros
// and includes, encodes every instruction and directive, and returns the
// resulting linker.Module ready for pass two (linker.Link).
func Run(cwd, rootPath string, includeDirs []string) (*linker.Module, error) {
	return run(cwd, rootPath, includeDirs, fileman.OSFileSystem{})
}

func run(cwd, rootPath string, includeDirs []string, fs fileman.FileSystem) (*linker.Module, error) {
	a := newAssembler(cwd, fs)
	for _, dir := range includeDirs {
		if err := a.fm.AddSearchPath(cwd, dir); err != nil {
			return nil, err
		}
	}

	rc, abs, ok := a.fm.Reader(cwd, rootPath)
	if !ok {
		return nil, fmt.Errorf("cannot open %q", rootPath)
	}
	a.closers = append(a.closers, rc)
	defer a.closeAll()

	fid := a.files.Add(abs)
	a.frames = append(a.frames, &frame{lx: lexer.New(rc, fid, a.strs, a.bytes)})

	for {
		line, eof, err := a.readLine()
		if err != nil {
			return nil, err
		}
		if len(line) > 0 {
			if err := a.processLine(line); err != nil {
				return nil, err
			}
		}
		if eof {
			break
		}
	}

	return &linker.Module{
		Image:  a.image,
		Links:  a.links,
		Symtab: a.symtab,
		Files:  a.files,
		Strs:   a.bytes.Get,
	}, nil
}

// Assemble runs pass one against rootPath and then pass two (linker.Link)
// against the result, writing the final flat image to out.
func Assemble(cwd, rootPath string, includeDirs []string, out io.Writer) error {
	m, err := Run(cwd, rootPath, includeDirs)
	if err != nil {
		return err
	}
	img, err := linker.Link(m)
	if err != nil {
		return err
	}
	_, err = out.Write(img)
	return err
}

func (a *Assembler) closeAll() {
	for _, c := range a.closers {
		c.Close()
	}
}

// nextToken draws from the top of the frame stack, popping exhausted
// macro-token frames and exhausted include-file lexers (an EOF from any
// lexer but the outermost one ends that file, not the whole assembly).
func (a *Assembler) nextToken() (lexer.Token, error) {
	for {
		if len(a.frames) == 0 {
			return lexer.Token{Kind: lexer.EOF}, nil
		}
		top := a.frames[len(a.frames)-1]
		if top.lx != nil {
			tok, err := top.lx.Next()
			if err != nil {
				if le, ok := err.(*lexer.Error); ok {
					return lexer.Token{}, &Error{Loc: le.Loc, Files: a.files, Message: le.Err.Error()}
				}
				return lexer.Token{}, err
			}
			if tok.Kind == lexer.EOF && len(a.frames) > 1 {
				a.frames = a.frames[:len(a.frames)-1]
				continue
			}
			return tok, nil
		}
		if top.pos >= len(top.tokens) {
			a.frames = a.frames[:len(a.frames)-1]
			continue
		}
		t := top.tokens[top.pos]
		top.pos++
		return t, nil
	}
}

// readLine collects one logical line's tokens (everything up to EOL or
// EOF). eof is true once the underlying root lexer has nothing left;
// line may still be non-empty on that same call if the file's last line
// has no trailing newline.
func (a *Assembler) readLine() (line []lexer.Token, eof bool, err error) {
	for {
		tok, err := a.nextToken()
		if err != nil {
			return nil, false, err
		}
		switch tok.Kind {
		case lexer.EOF:
			return line, true, nil
		case lexer.EOL:
			return line, false, nil
		default:
			line = append(line, tok)
		}
	}
}

func (a *Assembler) processLine(line []lexer.Token) error {
	idx := 0
	for idx+1 < len(line) && line[idx].Kind == lexer.Ident &&
		line[idx+1].Kind == lexer.Punct && line[idx+1].Punct == ':' {
		a.symtab.Define(line[idx].Ident, int64(a.pc))
		idx += 2
	}
	if idx >= len(line) {
		return nil
	}

	tok := line[idx]
	if tok.Kind != lexer.Ident {
		return &Error{Loc: tok.Loc, Files: a.files, Message: "expected a label, directive, or mnemonic"}
	}
	text := a.strs.Get(tok.Ident)
	lower := strings.ToLower(text)

	if strings.HasPrefix(lower, "@") {
		return a.processDirective(lower, text, line, idx+1, tok.Loc)
	}
	if m, ok := a.macros[tok.Ident]; ok {
		return a.invokeMacro(m, line, idx+1)
	}
	return a.encodeInstruction(lower, line, idx+1, tok.Loc)
}

func (a *Assembler) processDirective(lower, text string, line []lexer.Token, idx int, loc lexer.SourceLoc) error {
	switch lower {
	case "@include":
		return a.includeFile(line, idx, loc)
	case "@macro":
		return a.defineMacro(line[idx:])
	case "@endmacro":
		return &Error{Loc: loc, Files: a.files, Message: "@endmacro without a matching @macro"}
	case "@db", "@byte":
		return a.parseDB(&opParser{a: a, line: line, pos: idx, loc: loc}, loc)
	case "@dw", "@word":
		return a.parseDW(&opParser{a: a, line: line, pos: idx, loc: loc}, loc)
	case "@space", "@ds":
		return a.parseSpace(&opParser{a: a, line: line, pos: idx, loc: loc}, loc)
	case "@assert":
		return a.parseAssert(&opParser{a: a, line: line, pos: idx, loc: loc}, loc)
	default:
		return &Error{Loc: loc, Files: a.files, Message: fmt.Sprintf("unknown directive %q", text)}
	}
}

func (a *Assembler) includeFile(line []lexer.Token, idx int, loc lexer.SourceLoc) error {
	if idx >= len(line) || line[idx].Kind != lexer.Str {
		return &Error{Loc: loc, Files: a.files, Message: "@include expects a string path"}
	}
	path := string(a.bytes.Get(line[idx].Str))
	rc, abs, ok := a.fm.Reader(a.cwd, path)
	if !ok {
		return &Error{Loc: loc, Files: a.files, Message: fmt.Sprintf("cannot open include %q", path)}
	}
	a.closers = append(a.closers, rc)
	fid := a.files.Add(abs)
	a.frames = append(a.frames, &frame{lx: lexer.New(rc, fid, a.strs, a.bytes)})
	return nil
}

func (a *Assembler) defineMacro(nameLine []lexer.Token) error {
	if len(nameLine) == 0 || nameLine[0].Kind != lexer.Ident {
		return &Error{Files: a.files, Message: "@macro expects a name"}
	}
	name := nameLine[0].Ident

	var body []lexer.Token
	for {
		bodyLine, eof, err := a.readLine()
		if err != nil {
			return err
		}
		if len(bodyLine) > 0 && bodyLine[0].Kind == lexer.Ident &&
			strings.EqualFold(a.strs.Get(bodyLine[0].Ident), "@endmacro") {
			break
		}
		body = append(body, bodyLine...)
		body = append(body, lexer.Token{Kind: lexer.EOL})
		if eof {
			return &Error{Files: a.files, Message: "unterminated @macro"}
		}
	}
	a.macros[name] = &macroDef{body: body}
	return nil
}

// invokeMacro splits the invocation's remaining tokens on top-level
// commas into argument token lists, substitutes them for \1..\9 parameter
// references in the macro's recorded body, and pushes the expansion as a
// new token frame so it's read before the rest of the enclosing source.
func (a *Assembler) invokeMacro(m *macroDef, line []lexer.Token, idx int) error {
	var args [][]lexer.Token
	var cur []lexer.Token
	for _, t := range line[idx:] {
		if t.Kind == lexer.Punct && t.Punct == ',' {
			args = append(args, cur)
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	if len(cur) > 0 || len(args) > 0 {
		args = append(args, cur)
	}

	var expanded []lexer.Token
	for _, t := range m.body {
		if t.Kind == lexer.Param {
			n := int(t.Int) - 1
			if n < 0 || n >= len(args) {
				return &Error{Loc: t.Loc, Files: a.files, Message: fmt.Sprintf("macro parameter \\%d has no matching argument", t.Int)}
			}
			expanded = append(expanded, args[n]...)
			continue
		}
		expanded = append(expanded, t)
	}
	a.frames = append(a.frames, &frame{tokens: expanded})
	return nil
}

func (a *Assembler) parseDB(p *opParser, loc lexer.SourceLoc) error {
	for {
		if t, ok := p.peek(); ok && t.Kind == lexer.Str {
			p.next()
			for _, bb := range a.bytes.Get(t.Str) {
				a.image = append(a.image, bb)
				a.pc++
			}
		} else {
			e, err := a.parseExpr(p)
			if err != nil {
				return err
			}
			a.emitByteExpr(e, loc)
		}
		if !p.consumeComma() {
			return nil
		}
	}
}

func (a *Assembler) parseDW(p *opParser, loc lexer.SourceLoc) error {
	for {
		e, err := a.parseExpr(p)
		if err != nil {
			return err
		}
		a.emitWordExpr(e, loc)
		if !p.consumeComma() {
			return nil
		}
	}
}

func (a *Assembler) parseSpace(p *opParser, loc lexer.SourceLoc) error {
	lenExpr, err := a.parseExpr(p)
	if err != nil {
		return err
	}
	n, ok := lenExpr.Evaluate(a.symtab)
	if !ok {
		return &Error{Loc: loc, Files: a.files, Message: "@space length must be known in pass one"}
	}
	fill := zeroExpr()
	if p.consumeComma() {
		fill, err = a.parseExpr(p)
		if err != nil {
			return err
		}
	}
	offset := len(a.image)
	for i := int64(0); i < n; i++ {
		a.image = append(a.image, 0)
	}
	a.links = append(a.links, linker.NewSpace(offset, int(n), fill, loc))
	a.pc += int(n)
	return nil
}

func (a *Assembler) parseAssert(p *opParser, loc lexer.SourceLoc) error {
	e, err := a.parseExpr(p)
	if err != nil {
		return err
	}
	var msg intern.Handle
	hasMsg := false
	if p.consumeComma() {
		t, ok := p.peek()
		if !ok || t.Kind != lexer.Str {
			return &Error{Loc: loc, Files: a.files, Message: "@assert message must be a string literal"}
		}
		p.next()
		msg, hasMsg = t.Str, true
	}
	a.links = append(a.links, linker.NewAssert(msg, hasMsg, e, loc))
	return nil
}

func (a *Assembler) emitByteExpr(e *expr.Expr, loc lexer.SourceLoc) {
	offset := len(a.image)
	a.image = append(a.image, 0)
	a.links = append(a.links, linker.NewByte(offset, e, loc))
	a.pc++
}

func (a *Assembler) emitSignedByteExpr(e *expr.Expr, loc lexer.SourceLoc) {
	offset := len(a.image)
	a.image = append(a.image, 0)
	a.links = append(a.links, linker.NewSignedByte(offset, e, loc))
	a.pc++
}

func (a *Assembler) emitWordExpr(e *expr.Expr, loc lexer.SourceLoc) {
	offset := len(a.image)
	a.image = append(a.image, 0, 0)
	a.links = append(a.links, linker.NewWord(offset, e, loc))
	a.pc += 2
}

func (a *Assembler) emitDisp(disp *expr.Expr, loc lexer.SourceLoc) {
	if disp == nil {
		disp = zeroExpr()
	}
	a.emitSignedByteExpr(disp, loc)
}

func zeroExpr() *expr.Expr { return &expr.Expr{Nodes: []expr.Node{{Op: expr.OpValue, Value: 0}}} }

// relExpr builds target-afterAddr, the signed displacement a relative
// jump/DJNZ needs, without mutating target's own node list.
func (a *Assembler) relExpr(target *expr.Expr, afterAddr int) *expr.Expr {
	e := &expr.Expr{}
	rhsIdx := len(e.Nodes)
	e.Nodes = append(e.Nodes, expr.Node{Op: expr.OpValue, Value: int64(afterAddr)})
	lhsIdx := splice(e, target)
	e.Nodes = append(e.Nodes, expr.Node{Op: expr.OpSub, Lhs: lhsIdx, Rhs: rhsIdx})
	return e
}

// splice appends src's node list onto dst, rebasing every index field by
// dst's prior length, and returns src's root's new index within dst.
func splice(dst *expr.Expr, src *expr.Expr) int {
	offset := len(dst.Nodes)
	for _, n := range src.Nodes {
		n.Child += offset
		n.Lhs += offset
		n.Rhs += offset
		n.Cond += offset
		n.Then += offset
		n.Else += offset
		dst.Nodes = append(dst.Nodes, n)
	}
	return offset + src.Root()
}
