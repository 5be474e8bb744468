package esparse

import (
	"strings"

	"github.com/pkggate/pkggate/pkg/ast"
)

// attachDocs pairs JSDoc block comments with the declarations they
// immediately precede, then resolves the module-level doc comment: the
// first JSDoc in the file when it carries an @module tag, stands apart
// from the first statement, or the file has no statements.
func (l *lowering) attachDocs(m *ast.Module) {
	ast.Walk(m.Body, func(s ast.Stmt) bool {
		l.attachDocTo(s)
		return true
	})

	m.Doc = l.moduleDoc(m)
}

func (l *lowering) attachDocTo(s ast.Stmt) {
	doc := l.docBefore(s.Span().Start)
	if doc == nil {
		return
	}

	switch d := s.(type) {
	case *ast.FuncDecl:
		d.Doc = doc
	case *ast.VarDecl:
		d.Doc = doc
	case *ast.ClassDecl:
		d.Doc = doc
	case *ast.InterfaceDecl:
		d.Doc = doc
	case *ast.TypeAliasDecl:
		d.Doc = doc
	case *ast.EnumDecl:
		d.Doc = doc
	case *ast.ModuleDecl:
		d.Doc = doc
	}
}

// docBefore returns the JSDoc ending just before offset start, if the gap
// holds only whitespace without a blank line.
func (l *lowering) docBefore(start uint32) *ast.JSDoc {
	var best *ast.Comment
	for i := range l.comments {
		c := &l.comments[i]
		if c.Pos.End <= start && (best == nil || c.Pos.End > best.Pos.End) {
			best = c
		}
	}

	if best == nil || !best.Block || !strings.HasPrefix(best.Text, "*") {
		return nil
	}

	gap := string(l.src[best.Pos.End:start])
	if strings.TrimSpace(gap) != "" || strings.Count(gap, "\n") > 1 {
		return nil
	}

	return &ast.JSDoc{Text: cleanDoc(best.Text), Pos: best.Pos}
}

func (l *lowering) moduleDoc(m *ast.Module) *ast.JSDoc {
	if len(l.comments) == 0 {
		return nil
	}

	first := l.comments[0]
	if !first.Block || !strings.HasPrefix(first.Text, "*") {
		return nil
	}

	doc := &ast.JSDoc{Text: cleanDoc(first.Text), Pos: first.Pos}
	if strings.Contains(first.Text, "@module") {
		return doc
	}

	if len(m.Body) == 0 {
		return doc
	}

	stmtStart := m.Body[0].Span().Start
	if stmtStart < first.Pos.End {
		return nil
	}

	gap := string(l.src[first.Pos.End:stmtStart])
	if strings.TrimSpace(gap) == "" && strings.Count(gap, "\n") >= 2 {
		return doc
	}

	return nil
}

// cleanDoc strips the leading asterisk rail from a JSDoc body. The input
// is comment text without markers, so it begins with the second asterisk
// of the opener.
func cleanDoc(text string) string {
	text = strings.TrimPrefix(text, "*")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, " \t")
		trimmed := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(trimmed, "*") {
			trimmed = strings.TrimPrefix(trimmed, "*")
			line = strings.TrimPrefix(trimmed, " ")
		}

		lines[i] = line
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}
