package lexer

import "github.com/possum-systems/possum/pkg/intern"

// Kind tags the variant of a Token.
type Kind int

const (
	// Ident is an identifier or mnemonic.
	Ident Kind = iota
	// Int is an integer literal; Token.Int holds its value.
	Int
	// Str is a string literal; Token.Str holds a byte-slice handle.
	Str
	// Punct is a single punctuation character (',', '(', ')', ':', '+',
	// '-', etc.); Token.Punct holds it.
	Punct
	// EOL marks the end of a logical source line.
	EOL
	// EOF marks the end of the token stream; once it is reached,
	// Lexer.Next keeps returning EOF.
	EOF
	// Param is a macro parameter reference (`\1`..`\9`) written in a
	// macro body; Token.Int holds the 1-based parameter index.
	Param
)

// Token is a tagged lexical unit with its source location.
type Token struct {
	Kind  Kind
	Loc   SourceLoc
	Ident intern.Handle // valid when Kind == Ident
	Int   int64         // valid when Kind == Int
	Str   intern.Handle // valid when Kind == Str (into a bytes interner)
	Punct rune          // valid when Kind == Punct
}
