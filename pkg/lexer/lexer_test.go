package lexer

import (
	"strings"
	"testing"

	"github.com/possum-systems/possum/pkg/intern"
)

func lexAll(t *testing.T, src string) []Token {
	t.Helper()
	strs := intern.NewStrings()
	bs := intern.New()
	lx := New(strings.NewReader(src), 0, strs, bs)
	var toks []Token
	for {
		tok, err := lx.Next()
		if err != nil {
			t.Fatalf("lex error: %v", err)
		}
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks
		}
	}
}

func TestLexIdentAndInt(t *testing.T) {
	strs2 := intern.NewStrings()
	bs := intern.New()
	lx := New(strings.NewReader("label $1F 42 %101"), 0, strs2, bs)
	tok, _ := lx.Next()
	if tok.Kind != Ident || strs2.Get(tok.Ident) != "label" {
		t.Fatalf("want ident 'label', got %+v", tok)
	}
	tok, _ = lx.Next()
	if tok.Kind != Int || tok.Int != 0x1F {
		t.Fatalf("want int 0x1F, got %+v", tok)
	}
	tok, _ = lx.Next()
	if tok.Kind != Int || tok.Int != 42 {
		t.Fatalf("want int 42, got %+v", tok)
	}
	tok, _ = lx.Next()
	if tok.Kind != Int || tok.Int != 5 {
		t.Fatalf("want int 5 (%%101), got %+v", tok)
	}
}

func TestLexPunctAndEOL(t *testing.T) {
	toks := lexAll(t, "ld a,b\n")
	kinds := make([]Kind, len(toks))
	for i, tok := range toks {
		kinds[i] = tok.Kind
	}
	want := []Kind{Ident, Ident, Punct, Ident, EOL, EOF}
	if len(kinds) != len(want) {
		t.Fatalf("got %d tokens %+v, want %d", len(kinds), toks, len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("token %d kind = %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestLexCommentSkipped(t *testing.T) {
	toks := lexAll(t, "nop ; a comment\nhalt")
	if toks[0].Kind != Ident || toks[1].Kind != EOL || toks[2].Kind != Ident || toks[3].Kind != EOF {
		t.Fatalf("comment not skipped correctly: %+v", toks)
	}
}

func TestLexParamRef(t *testing.T) {
	toks := lexAll(t, "\\1 \\9")
	if toks[0].Kind != Param || toks[0].Int != 1 {
		t.Fatalf("want param 1, got %+v", toks[0])
	}
	if toks[1].Kind != Param || toks[1].Int != 9 {
		t.Fatalf("want param 9, got %+v", toks[1])
	}
}

func TestLexString(t *testing.T) {
	bs := intern.New()
	strs := intern.NewStrings()
	lx := New(strings.NewReader(`"hi\n"`), 0, strs, bs)
	tok, err := lx.Next()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	if tok.Kind != Str {
		t.Fatalf("want string token, got %+v", tok)
	}
	if got := string(bs.Get(tok.Str)); got != "hi\n" {
		t.Fatalf("got %q, want %q", got, "hi\n")
	}
}
