// Package esparse turns raw module source into the ast model consumed by
// the publish gate. The default implementation parses TypeScript, TSX and
// JavaScript through tree-sitter grammars; the Parser interface keeps the
// graph builder independent of the parsing backend.
package esparse

import (
	"context"
	"errors"
	"fmt"

	"github.com/pkggate/pkggate/pkg/ast"
)

// ErrParse marks any module parse failure. Match with errors.Is.
var ErrParse = errors.New("parse failed")

// ParseError reports the first syntax error in a module.
type ParseError struct {
	Specifier string
	Line      uint32
	Column    uint32
	Msg       string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parsing %s failed at %d:%d: %s", e.Specifier, e.Line, e.Column, e.Msg)
	}

	return fmt.Sprintf("parsing %s failed: %s", e.Specifier, e.Msg)
}

// Is reports whether target is ErrParse, so errors.Is works without
// unwrapping.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// Parser parses one module's source into its syntactic model.
type Parser interface {
	Parse(ctx context.Context, specifier string, src []byte, media ast.MediaType) (*ast.Module, error)
}
