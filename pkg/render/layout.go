package render

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/matzehuels/layouttune/pkg/errors"
	"github.com/matzehuels/layouttune/pkg/params"
)

// pointsPerInch converts layout parameters (points) to Graphviz units.
const pointsPerInch = 72.0

// dotLexer splits DOT source just enough to find the graph body braces.
var dotLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*|#[^\n]*|/\*(?:[^*]|\*+[^*/])*\*+/`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "HTML", Pattern: `<[^<>]*>`},
	{Name: "Brace", Pattern: `[{}]`},
	{Name: "Text", Pattern: `[^{}"/#<]+`},
	{Name: "Char", Pattern: `[/#<]`},
})

// WithLayout returns a copy of dot with the layout parameters of set applied
// to the top-level graph.
//
// Node size defaults are inserted at the start of the graph body so they
// apply to every node that does not set its own size. Graph attributes
// (nodesep, ranksep, pad) are repeated at the end of the body, where the last
// assignment wins.
func WithLayout(dot []byte, set params.Set) ([]byte, error) {
	open, closing, err := graphBody(dot)
	if err != nil {
		return nil, err
	}

	graphAttrs := fmt.Sprintf("  graph [nodesep=%s, ranksep=%s, pad=%s];\n",
		inches(set.HGap), inches(set.VGap), inches(set.Margin))
	nodeAttrs := fmt.Sprintf("  node [width=%s, height=%s, fixedsize=true];\n",
		inches(set.NodeWidth), inches(set.NodeHeight))

	var buf bytes.Buffer
	buf.Grow(len(dot) + len(graphAttrs)*2 + len(nodeAttrs))
	buf.Write(dot[:open+1])
	buf.WriteString("\n")
	buf.WriteString(graphAttrs)
	buf.WriteString(nodeAttrs)
	buf.Write(dot[open+1 : closing])
	buf.WriteString("\n")
	buf.WriteString(graphAttrs)
	buf.Write(dot[closing:])
	return buf.Bytes(), nil
}

// graphBody returns the offsets of the braces enclosing the top-level graph.
func graphBody(dot []byte) (open, closing int, err error) {
	lex, err := dotLexer.LexString("", string(dot))
	if err != nil {
		return 0, 0, errors.Wrap(errors.ErrCodeInvalidFormat, err, "tokenize DOT")
	}
	tokens, err := lexer.ConsumeAll(lex)
	if err != nil {
		return 0, 0, errors.Wrap(errors.ErrCodeInvalidFormat, err, "tokenize DOT")
	}

	brace := dotLexer.Symbols()["Brace"]
	open, depth := -1, 0
	for _, tok := range tokens {
		if tok.Type != brace {
			continue
		}
		switch tok.Value {
		case "{":
			if open < 0 {
				open = tok.Pos.Offset
			}
			depth++
		case "}":
			depth--
			if depth < 0 {
				return 0, 0, errors.New(errors.ErrCodeInvalidFormat, "unbalanced braces in DOT graph")
			}
			if depth == 0 {
				return open, tok.Pos.Offset, nil
			}
		}
	}
	if open < 0 {
		return 0, 0, errors.New(errors.ErrCodeInvalidFormat, "DOT graph has no body")
	}
	return 0, 0, errors.New(errors.ErrCodeInvalidFormat, "unterminated DOT graph body")
}

func inches(points float64) string {
	return strconv.FormatFloat(points/pointsPerInch, 'g', 6, 64)
}
