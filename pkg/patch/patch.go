// Package patch rewrites layout constants in the rendering engine's source.
//
// The engine reads its layout parameters from five declarations of the form
// `name = <numeric literal>` in a source file that is compiled into the
// executable. [Patcher.Apply] replaces the literal of each declaration and
// leaves every other byte untouched, so applying the same [params.Set] twice
// is byte-for-byte identical to applying it once.
//
// Declarations are found on the token stream, not with regular expressions:
// occurrences inside comments or string literals, member accesses such as
// `st.node_w = 1`, comparisons and expressions like `v_gap = 28.0 * 1.75`
// are not declarations and are never rewritten.
package patch

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"github.com/matzehuels/layouttune/pkg/errors"
	"github.com/matzehuels/layouttune/pkg/params"
)

// Declarations names the constant that holds each parameter in the engine
// source.
type Declarations struct {
	NodeWidth  string
	NodeHeight string
	HGap       string
	VGap       string
	Margin     string
}

// DefaultDeclarations returns the names used by the engine's SVG renderer.
func DefaultDeclarations() Declarations {
	return Declarations{
		NodeWidth:  "node_w",
		NodeHeight: "node_h",
		HGap:       "h_gap",
		VGap:       "v_gap",
		Margin:     "margin",
	}
}

// Names returns the declaration names in [params.Names] order.
func (d Declarations) Names() []string {
	return []string{d.NodeWidth, d.NodeHeight, d.HGap, d.VGap, d.Margin}
}

// Span is the byte range of a numeric literal, including a leading sign.
type Span struct {
	Start, End int
	Line       int
	Literal    string
}

// Patcher rewrites declarations in engine source text.
type Patcher struct {
	decls Declarations
}

// New returns a Patcher for decls. Names must be distinct identifiers.
func New(decls Declarations) (*Patcher, error) {
	if err := errors.ValidateDeclarationNames(decls.Names()); err != nil {
		return nil, err
	}
	return &Patcher{decls: decls}, nil
}

// Declarations returns the names this patcher looks for.
func (p *Patcher) Declarations() Declarations {
	return p.decls
}

// Locate returns the literal spans of every declaration found in src, keyed
// by declaration name. Names without a declaration are absent from the map.
func (p *Patcher) Locate(src []byte) (map[string][]Span, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "tokenize engine source")
	}

	wanted := make(map[string]bool, 5)
	for _, n := range p.decls.Names() {
		wanted[n] = true
	}

	found := make(map[string][]Span)
	for i, t := range toks {
		if t.Type != identType || !wanted[t.Value] || isMemberAccess(toks, i) {
			continue
		}
		if span, ok := literalAfter(toks, i); ok {
			found[t.Value] = append(found[t.Value], span)
		}
	}
	return found, nil
}

// Apply returns src with every declaration's literal replaced by the value in
// set. When some declarations are missing the others are still rewritten and
// a PATCH_PATTERN_MISMATCH error naming the missing ones is returned together
// with the partially patched output.
func (p *Patcher) Apply(src []byte, set params.Set) ([]byte, error) {
	for i, v := range set.Values() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return src, errors.New(errors.ErrCodeInvalidInput, "%s: non-finite value %v has no literal form", params.Names[i], v)
		}
	}

	found, err := p.Locate(src)
	if err != nil {
		return src, err
	}

	type edit struct {
		span Span
		text string
	}
	var (
		edits   []edit
		missing []string
	)
	for i, name := range p.decls.Names() {
		spans := found[name]
		if len(spans) == 0 {
			missing = append(missing, name)
			continue
		}
		v := set.Values()[i]
		for _, s := range spans {
			edits = append(edits, edit{span: s, text: formatLiteral(v, s.Literal)})
		}
	}

	slices.SortFunc(edits, func(a, b edit) int { return a.span.Start - b.span.Start })

	var b strings.Builder
	b.Grow(len(src))
	last := 0
	for _, e := range edits {
		b.Write(src[last:e.span.Start])
		b.WriteString(e.text)
		last = e.span.End
	}
	b.Write(src[last:])
	out := []byte(b.String())

	if len(missing) > 0 {
		return out, errors.New(errors.ErrCodePatchMismatch, "no declaration found for %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// isMemberAccess reports whether the identifier at i is the right-hand side
// of `.` or `->`.
func isMemberAccess(toks []lexer.Token, i int) bool {
	j := prevSignificant(toks, i)
	if j < 0 || toks[j].Type != punctType {
		return false
	}
	switch toks[j].Value {
	case ".":
		return true
	case ">":
		k := prevSignificant(toks, j)
		return k >= 0 && toks[k].Value == "-" && toks[k].Pos.Offset+1 == toks[j].Pos.Offset
	}
	return false
}

// literalAfter matches `= [-+]? Number <terminator>` after the identifier at i.
func literalAfter(toks []lexer.Token, i int) (Span, bool) {
	eq := nextSignificant(toks, i)
	if eq < 0 || !isPunct(toks[eq], "=") {
		return Span{}, false
	}
	j := nextSignificant(toks, eq)
	if j < 0 {
		return Span{}, false
	}
	start := toks[j].Pos.Offset
	if isPunct(toks[j], "-") || isPunct(toks[j], "+") {
		j = nextSignificant(toks, j)
		if j < 0 {
			return Span{}, false
		}
	}
	num := toks[j]
	if num.Type != numberType {
		return Span{}, false
	}
	if !terminates(toks, j+1) {
		return Span{}, false
	}
	end := num.Pos.Offset + len(num.Value)
	return Span{Start: start, End: end, Line: num.Pos.Line, Literal: num.Value}, true
}

func terminates(toks []lexer.Token, i int) bool {
	if i >= len(toks) {
		return true
	}
	t := toks[i]
	switch {
	case t.EOF(), t.Type == newlineType:
		return true
	case t.Type == punctType:
		return strings.Contains(";,)}", t.Value)
	}
	return false
}

func isPunct(t lexer.Token, v string) bool {
	return t.Type == punctType && t.Value == v
}

func nextSignificant(toks []lexer.Token, i int) int {
	for j := i + 1; j < len(toks); j++ {
		if toks[j].Type != newlineType {
			if toks[j].EOF() {
				return -1
			}
			return j
		}
	}
	return -1
}

func prevSignificant(toks []lexer.Token, i int) int {
	for j := i - 1; j >= 0; j-- {
		if toks[j].Type != newlineType {
			return j
		}
	}
	return -1
}

// formatLiteral renders v in place of old. Integral values keep an integer
// literal if old was one, otherwise a trailing ".0" keeps the literal
// floating-point. A float suffix on old is carried over.
func formatLiteral(v float64, old string) string {
	suffix := ""
	if n := len(old); n > 0 && strings.ContainsRune("fFlL", rune(old[n-1])) {
		suffix = old[n-1:]
	}
	digits := strings.TrimRight(old, "fFlL")
	intLiteral := !strings.ContainsAny(digits, ".eE")

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") && (!intLiteral || suffix != "") {
		s += ".0"
	}
	return s + suffix
}
