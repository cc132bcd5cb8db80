package patch

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// sourceLexer tokenises C-family source text. It only needs to be precise
// enough to tell declarations apart from comments, strings and expressions;
// anything it does not recognise falls through to Other.
var sourceLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "LineComment", Pattern: `//[^\n]*`},
	{Name: "BlockComment", Pattern: `/\*[\s\S]*?\*/`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\\n])*"`},
	{Name: "Char", Pattern: `'(?:\\.|[^'\\\n])*'`},
	{Name: "Hex", Pattern: `0[xX][0-9a-fA-F]+`},
	{Name: "Number", Pattern: `(?:\d+\.\d*|\.\d+|\d+)(?:[eE][-+]?\d+)?[fFlL]?`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Newline", Pattern: `\n`},
	{Name: "Whitespace", Pattern: `[ \t\r\f\v]+`},
	{Name: "Punct", Pattern: `[-+*/%=<>!&|^~?:;,.(){}\[\]#@$\\]`},
	{Name: "Other", Pattern: `.`},
})

var (
	identType   = tokenType("Ident")
	numberType  = tokenType("Number")
	punctType   = tokenType("Punct")
	newlineType = tokenType("Newline")
	skipTypes   = map[lexer.TokenType]bool{
		tokenType("Whitespace"):   true,
		tokenType("LineComment"):  true,
		tokenType("BlockComment"): true,
	}
)

func tokenType(name string) lexer.TokenType {
	t, ok := sourceLexer.Symbols()[name]
	if !ok {
		panic("patch: unknown token type " + name)
	}
	return t
}

// tokenize returns the significant tokens of src: whitespace and comments are
// dropped, newlines are kept because they terminate a declaration.
func tokenize(src []byte) ([]lexer.Token, error) {
	lex, err := sourceLexer.LexString("", string(src))
	if err != nil {
		return nil, err
	}
	all, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil, err
	}
	toks := all[:0]
	for _, t := range all {
		if !skipTypes[t.Type] {
			toks = append(toks, t)
		}
	}
	return toks, nil
}
