// Package policy enforces the publish-time language policy over a built
// module graph: no CommonJS module formats, no global type augmentation,
// no legacy import attributes, and no triple-slash directives that alter
// the type-checking library set. The first violation found aborts the
// publish.
package policy

import (
	"regexp"

	"github.com/pkggate/pkggate/pkg/ast"
	"github.com/pkggate/pkggate/pkg/diag"
	"github.com/pkggate/pkggate/pkg/graph"
)

// tripleSlashRe matches the text of a lib-altering triple-slash directive.
// Comment text starts after the "//" marker, so the leading "/" here is the
// directive's third slash and must be followed by whitespace.
var tripleSlashRe = regexp.MustCompile(
	`^/\s+<reference\s+(no-default-lib\s*=\s*"true"|lib\s*=\s*("[^"]+"|'[^']+'))\s*/>\s*$`,
)

// CheckGraph validates every package module in discovery order and returns
// the first violation. External modules are outside the package and are
// not checked.
func CheckGraph(g *graph.Graph) error {
	for _, m := range g.Modules() {
		if m.Kind == graph.KindExternal {
			continue
		}

		if err := CheckModule(m); err != nil {
			return err
		}
	}

	return nil
}

// CheckModule validates one module: media type first, then the top-level
// statement walk, then leading comments.
func CheckModule(m *graph.Module) error {
	specifier := m.Specifier.String()

	if m.MediaType.IsLegacyModule() {
		return diag.Errorf(
			diag.KindLegacyModuleFormat, "CommonJS modules are not supported",
		).AtPos(specifier, 0, 0)
	}

	if m.AST == nil || m.Text == nil {
		return nil
	}

	if err := checkStatements(m, specifier); err != nil {
		return err
	}

	return checkLeadingComments(m, specifier)
}

func checkStatements(m *graph.Module, specifier string) error {
	at := func(e *diag.Error, span ast.Span) error {
		line, col := m.Text.PositionAt(span.Start)
		return e.AtPos(specifier, line, col)
	}

	for _, s := range m.AST.Body {
		switch n := s.(type) {
		case *ast.NamespaceExportDecl:
			return at(diag.Errorf(
				diag.KindGlobalTypeAugmentation, `"export as namespace" is not supported`,
			), n.Pos)
		case *ast.ExportAssignment:
			return at(diag.Errorf(
				diag.KindGlobalTypeAugmentation, `"export =" is not supported`,
			), n.Pos)
		case *ast.ImportEqualsDecl:
			if n.Ref.External {
				return at(diag.Errorf(
					diag.KindLegacyModuleFormat, `"import ... = require(...)" is not supported`,
				), n.Pos)
			}
		case *ast.ModuleDecl:
			if n.Name.Global {
				return at(diag.Errorf(
					diag.KindGlobalTypeAugmentation, "global scope augmentation is not supported",
				), n.Pos)
			}

			if n.Name.Quoted {
				return at(diag.Errorf(
					diag.KindGlobalTypeAugmentation, "ambient module %q is not supported", n.Name.Text,
				), n.Name.Pos)
			}
		case *ast.ImportDecl:
			if err := checkAttributes(at, n.Attributes); err != nil {
				return err
			}
		case *ast.ExportNamedDecl:
			if err := checkAttributes(at, n.Attributes); err != nil {
				return err
			}
		case *ast.ExportAllDecl:
			if err := checkAttributes(at, n.Attributes); err != nil {
				return err
			}
		}
	}

	return nil
}

func checkAttributes(at func(*diag.Error, ast.Span) error, attrs *ast.ImportAttributes) error {
	if attrs == nil || !attrs.LegacyAssert {
		return nil
	}

	return at(diag.Errorf(
		diag.KindLegacyImportAttribute,
		`the "assert" keyword is not supported for import attributes, use "with"`,
	), attrs.Pos)
}

// checkLeadingComments scans line comments before the first statement for
// lib-altering triple-slash directives.
func checkLeadingComments(m *graph.Module, specifier string) error {
	limit := uint32(len(m.Source))
	if len(m.AST.Body) > 0 {
		limit = m.AST.Body[0].Span().Start
	}

	for _, c := range m.AST.Comments {
		if c.Block || c.Pos.Start >= limit {
			continue
		}

		if tripleSlashRe.MatchString(c.Text) {
			line, col := m.Text.PositionAt(c.Pos.Start)
			return diag.Errorf(
				diag.KindBannedReferenceComment,
				"triple-slash directives that modify the type-checking libraries are not supported",
			).AtPos(specifier, line, col)
		}
	}

	return nil
}
