package esparse

import (
	"context"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/pkggate/pkggate/pkg/ast"
)

type grammar int

const (
	grammarTypeScript grammar = iota
	grammarTSX
	grammarJavaScript
)

// TreeSitter is the default Parser, backed by tree-sitter grammars.
// Parsers are pooled per grammar; a TreeSitter value is safe for
// concurrent use.
type TreeSitter struct {
	pools [3]sync.Pool
}

// NewTreeSitter returns a ready parser.
func NewTreeSitter() *TreeSitter {
	p := &TreeSitter{}
	for g, lang := range map[grammar]*sitter.Language{
		grammarTypeScript: typescript.GetLanguage(),
		grammarTSX:        tsx.GetLanguage(),
		grammarJavaScript: javascript.GetLanguage(),
	} {
		lang := lang
		p.pools[g].New = func() any {
			sp := sitter.NewParser()
			sp.SetLanguage(lang)

			return sp
		}
	}

	return p
}

func grammarFor(media ast.MediaType) grammar {
	switch media {
	case ast.MediaTsx:
		return grammarTSX
	case ast.MediaJavaScript, ast.MediaMjs, ast.MediaCjs, ast.MediaJsx:
		return grammarJavaScript
	default:
		return grammarTypeScript
	}
}

// Parse parses src into the syntactic model. Non-parseable media types and
// files with syntax errors yield a ParseError.
func (p *TreeSitter) Parse(ctx context.Context, specifier string, src []byte, media ast.MediaType) (*ast.Module, error) {
	if !media.IsParseable() {
		return nil, &ParseError{Specifier: specifier, Msg: "media type " + media.String() + " is not parseable"}
	}

	// Retired assert attributes are rewritten in place to the with keyword
	// so the grammar accepts them; byte offsets are unchanged and the
	// rewrite positions mark the attributes as legacy.
	source, legacyAsserts := rewriteLegacyAssert(src)

	g := grammarFor(media)
	parser := p.pools[g].Get().(*sitter.Parser)
	defer p.pools[g].Put(parser)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, &ParseError{Specifier: specifier, Msg: err.Error()}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		line, col := firstErrorPosition(root)
		return nil, &ParseError{Specifier: specifier, Line: line, Column: col, Msg: "syntax error"}
	}

	return newLowering(source, legacyAsserts).module(root), nil
}

// rewriteLegacyAssert replaces assert import-attribute keywords with a
// same-width with keyword. Returns the source to parse and the byte
// offsets that were rewritten. The input slice is never modified.
func rewriteLegacyAssert(src []byte) ([]byte, map[uint32]bool) {
	var (
		out   []byte
		spots map[uint32]bool
	)

	for i := 0; i+6 <= len(src); i++ {
		if src[i] != 'a' || string(src[i:i+6]) != "assert" {
			continue
		}

		if !precededByQuote(src, i) || !followedByBrace(src, i+6) {
			continue
		}

		if out == nil {
			out = append([]byte(nil), src...)
			spots = map[uint32]bool{}
		}

		copy(out[i:i+6], "with  ")
		spots[uint32(i)] = true
		i += 5
	}

	if out == nil {
		return src, nil
	}

	return out, spots
}

func precededByQuote(src []byte, i int) bool {
	for j := i - 1; j >= 0; j-- {
		switch src[j] {
		case ' ', '\t':
			continue
		case '"', '\'':
			return true
		default:
			return false
		}
	}

	return false
}

func followedByBrace(src []byte, i int) bool {
	for j := i; j < len(src); j++ {
		switch src[j] {
		case ' ', '\t', '\n', '\r':
			continue
		case '{':
			return true
		default:
			return false
		}
	}

	return false
}

func firstErrorPosition(root *sitter.Node) (line, col uint32) {
	var found *sitter.Node

	var walk func(n *sitter.Node) bool
	walk = func(n *sitter.Node) bool {
		if n.Type() == "ERROR" || n.IsMissing() {
			found = n
			return true
		}

		if !n.HasError() {
			return false
		}

		for i := 0; i < int(n.ChildCount()); i++ {
			if walk(n.Child(i)) {
				return true
			}
		}

		found = n

		return true
	}
	walk(root)

	if found == nil {
		found = root
	}

	point := found.StartPoint()

	return point.Row + 1, point.Column + 1
}
