package esparse

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/pkggate/pkggate/pkg/ast"
)

// lowering converts one parsed tree into the ast model. It is single-use:
// comments and dynamic imports accumulate during the walk.
type lowering struct {
	src    []byte
	legacy map[uint32]bool

	comments []ast.Comment
	dynamic  []ast.DependencyRef
}

func newLowering(src []byte, legacy map[uint32]bool) *lowering {
	return &lowering{src: src, legacy: legacy}
}

func (l *lowering) module(root *sitter.Node) *ast.Module {
	l.collect(root)

	var body []ast.Stmt
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}

		body = append(body, l.statement(child))
	}

	m := &ast.Module{Body: body, Comments: l.comments, Dynamic: l.dynamic}
	l.attachDocs(m)

	return m
}

// collect gathers comments and statically analyzable dynamic imports from
// the whole tree in source order.
func (l *lowering) collect(n *sitter.Node) {
	switch n.Type() {
	case "comment":
		l.comments = append(l.comments, l.comment(n))
	case "call_expression":
		if fn := n.ChildByFieldName("function"); fn != nil && fn.Type() == "import" {
			if spec, span, ok := l.callStringArgument(n); ok {
				l.dynamic = append(l.dynamic, ast.DependencyRef{
					Specifier: spec,
					Kind:      ast.ImportDynamic,
					Span:      span,
				})
			}
		}
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		l.collect(n.NamedChild(i))
	}
}

func (l *lowering) comment(n *sitter.Node) ast.Comment {
	text := n.Content(l.src)
	block := strings.HasPrefix(text, "/*")
	if block {
		text = strings.TrimPrefix(text, "/*")
		text = strings.TrimSuffix(text, "*/")
	} else {
		text = strings.TrimPrefix(text, "//")
	}

	return ast.Comment{Block: block, Text: text, Pos: spanOf(n)}
}

func (l *lowering) callStringArgument(n *sitter.Node) (string, ast.Span, bool) {
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return "", ast.Span{}, false
	}

	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() == "string" {
			return l.unquote(arg), spanOf(arg), true
		}
	}

	return "", ast.Span{}, false
}

func (l *lowering) statement(n *sitter.Node) ast.Stmt {
	span := spanOf(n)
	switch n.Type() {
	case "import_statement":
		return l.importStatement(n, span)
	case "export_statement":
		return l.exportStatement(n, span)
	case "ambient_declaration":
		return l.ambientDeclaration(n, span)
	case "lexical_declaration", "variable_declaration":
		return l.variableDeclaration(n, span)
	case "function_declaration", "generator_function_declaration", "function_signature":
		return l.functionDeclaration(n, span)
	case "class_declaration", "abstract_class_declaration":
		return l.classDeclaration(n, span)
	case "interface_declaration":
		return &ast.InterfaceDecl{Name: l.fieldContent(n, "name"), Pos: span}
	case "type_alias_declaration":
		return &ast.TypeAliasDecl{Name: l.fieldContent(n, "name"), Pos: span}
	case "enum_declaration":
		return &ast.EnumDecl{Name: l.fieldContent(n, "name"), Pos: span}
	case "module", "internal_module":
		return l.moduleDeclaration(n, span, false)
	case "expression_statement":
		if inner := l.singleModuleChild(n); inner != nil {
			return l.moduleDeclaration(inner, span, false)
		}

		return &ast.OtherStmt{Kind: "expression_statement", Pos: span}
	default:
		return &ast.OtherStmt{Kind: n.Type(), Pos: span}
	}
}

func (l *lowering) importStatement(n *sitter.Node, span ast.Span) ast.Stmt {
	// import name = require("specifier")
	if clause := l.namedChildOfType(n, "import_require_clause"); clause != nil {
		var name, spec string
		for i := 0; i < int(clause.NamedChildCount()); i++ {
			c := clause.NamedChild(i)
			switch c.Type() {
			case "identifier":
				name = c.Content(l.src)
			case "string":
				spec = l.unquote(c)
			}
		}

		return &ast.ImportEqualsDecl{
			Name: name,
			Ref:  ast.ModuleRef{External: true, Specifier: spec},
			Pos:  span,
		}
	}

	src := n.ChildByFieldName("source")
	if src == nil {
		return &ast.OtherStmt{Kind: "import_statement", Pos: span}
	}

	return &ast.ImportDecl{
		Specifier:     l.unquote(src),
		SpecifierSpan: spanOf(src),
		TypeOnly:      l.hasAnonChild(n, "type"),
		Attributes:    l.attributes(n),
		Pos:           span,
	}
}

func (l *lowering) exportStatement(n *sitter.Node, span ast.Span) ast.Stmt {
	// export = expr
	if c := n.Child(1); c != nil && !c.IsNamed() && c.Type() == "=" {
		return &ast.ExportAssignment{Pos: span}
	}

	// export as namespace Name
	if l.hasAnonChild(n, "as") && l.hasAnonChild(n, "namespace") {
		var name string
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if c := n.NamedChild(i); c.Type() == "identifier" {
				name = c.Content(l.src)
			}
		}

		return &ast.NamespaceExportDecl{Name: name, Pos: span}
	}

	if decl := n.ChildByFieldName("declaration"); decl != nil {
		return l.exported(l.statement(decl), span)
	}

	typeOnly := l.hasAnonChild(n, "type")
	if src := n.ChildByFieldName("source"); src != nil {
		attrs := l.attributes(n)
		if l.namedChildOfType(n, "export_clause") != nil {
			return &ast.ExportNamedDecl{
				Specifier:     l.unquote(src),
				HasSpecifier:  true,
				SpecifierSpan: spanOf(src),
				TypeOnly:      typeOnly,
				Attributes:    attrs,
				Pos:           span,
			}
		}

		return &ast.ExportAllDecl{
			Specifier:     l.unquote(src),
			SpecifierSpan: spanOf(src),
			Attributes:    attrs,
			Pos:           span,
		}
	}

	if l.namedChildOfType(n, "export_clause") != nil {
		return &ast.ExportNamedDecl{TypeOnly: typeOnly, Pos: span}
	}

	return &ast.OtherStmt{Kind: "export_statement", Pos: span}
}

// exported marks a mapped declaration as exported and widens its span to
// cover the export keyword.
func (l *lowering) exported(s ast.Stmt, span ast.Span) ast.Stmt {
	switch d := s.(type) {
	case *ast.FuncDecl:
		d.Export = true
		d.Pos = span
	case *ast.VarDecl:
		d.Export = true
		d.Pos = span
	case *ast.ClassDecl:
		d.Export = true
		d.Pos = span
	case *ast.InterfaceDecl:
		d.Export = true
		d.Pos = span
	case *ast.TypeAliasDecl:
		d.Export = true
		d.Pos = span
	case *ast.EnumDecl:
		d.Export = true
		d.Pos = span
	case *ast.ImportEqualsDecl:
		d.Export = true
		d.Pos = span
	case *ast.ModuleDecl:
		d.Export = true
		d.Pos = span
	}

	return s
}

func (l *lowering) ambientDeclaration(n *sitter.Node, span ast.Span) ast.Stmt {
	// declare global { ... }
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if !c.IsNamed() && c.Type() == "global" {
			d := &ast.ModuleDecl{
				Name:    ast.ModuleName{Global: true, Text: "global", Pos: spanOf(c)},
				Declare: true,
				Pos:     span,
			}
			if block := l.namedChildOfType(n, "statement_block"); block != nil {
				d.Body = l.blockStatements(block)
			}

			return d
		}
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "comment" {
			continue
		}

		s := l.statement(c)
		setDeclare(s)

		return widenSpan(s, span)
	}

	return &ast.OtherStmt{Kind: "ambient_declaration", Pos: span}
}

func (l *lowering) moduleDeclaration(n *sitter.Node, span ast.Span, declare bool) *ast.ModuleDecl {
	d := &ast.ModuleDecl{Declare: declare, Pos: span}

	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		if nameNode.Type() == "string" {
			d.Name = ast.ModuleName{Quoted: true, Text: l.unquote(nameNode), Pos: spanOf(nameNode)}
		} else {
			text := nameNode.Content(l.src)
			d.Name = ast.ModuleName{Global: text == "global", Text: text, Pos: spanOf(nameNode)}
		}
	}

	if body := n.ChildByFieldName("body"); body != nil {
		d.Body = l.blockStatements(body)
	}

	return d
}

func (l *lowering) blockStatements(block *sitter.Node) []ast.Stmt {
	var out []ast.Stmt
	for i := 0; i < int(block.NamedChildCount()); i++ {
		c := block.NamedChild(i)
		if c.Type() == "comment" {
			continue
		}

		out = append(out, l.statement(c))
	}

	return out
}

func (l *lowering) variableDeclaration(n *sitter.Node, span ast.Span) *ast.VarDecl {
	kind := "var"
	if c := n.Child(0); c != nil && !c.IsNamed() {
		kind = c.Type()
	}

	d := &ast.VarDecl{Kind: kind, Pos: span}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "variable_declarator" {
			continue
		}

		d.Decls = append(d.Decls, ast.VarDeclarator{
			Name:    l.fieldContent(c, "name"),
			HasType: c.ChildByFieldName("type") != nil,
			Pos:     spanOf(c),
		})
	}

	return d
}

func (l *lowering) functionDeclaration(n *sitter.Node, span ast.Span) *ast.FuncDecl {
	return &ast.FuncDecl{
		Name:          l.fieldContent(n, "name"),
		HasReturnType: n.ChildByFieldName("return_type") != nil,
		Pos:           span,
	}
}

func (l *lowering) classDeclaration(n *sitter.Node, span ast.Span) *ast.ClassDecl {
	d := &ast.ClassDecl{Name: l.fieldContent(n, "name"), Pos: span}

	body := n.ChildByFieldName("body")
	if body == nil {
		return d
	}

	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		switch c.Type() {
		case "method_definition":
			d.Members = append(d.Members, ast.ClassMember{
				Name:    l.fieldContent(c, "name"),
				Method:  true,
				HasType: c.ChildByFieldName("return_type") != nil,
				Private: l.memberPrivate(c),
				Pos:     spanOf(c),
			})
		case "public_field_definition":
			d.Members = append(d.Members, ast.ClassMember{
				Name:    l.fieldContent(c, "name"),
				HasType: c.ChildByFieldName("type") != nil,
				Private: l.memberPrivate(c),
				Pos:     spanOf(c),
			})
		}
	}

	return d
}

func (l *lowering) memberPrivate(n *sitter.Node) bool {
	if name := n.ChildByFieldName("name"); name != nil && name.Type() == "private_property_identifier" {
		return true
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "accessibility_modifier" {
			mod := c.Content(l.src)
			return mod == "private" || mod == "protected"
		}
	}

	return false
}

func (l *lowering) attributes(n *sitter.Node) *ast.ImportAttributes {
	attr := l.namedChildOfType(n, "import_attribute")
	if attr == nil {
		return nil
	}

	return &ast.ImportAttributes{
		LegacyAssert: l.legacy[attr.StartByte()],
		Pos:          spanOf(attr),
	}
}

func (l *lowering) singleModuleChild(n *sitter.Node) *sitter.Node {
	if n.NamedChildCount() != 1 {
		return nil
	}

	c := n.NamedChild(0)
	if c.Type() == "internal_module" || c.Type() == "module" {
		return c
	}

	return nil
}

func (l *lowering) namedChildOfType(n *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == typ {
			return c
		}
	}

	return nil
}

func (l *lowering) hasAnonChild(n *sitter.Node, typ string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); !c.IsNamed() && c.Type() == typ {
			return true
		}
	}

	return false
}

func (l *lowering) fieldContent(n *sitter.Node, field string) string {
	c := n.ChildByFieldName(field)
	if c == nil {
		return ""
	}

	return c.Content(l.src)
}

func (l *lowering) unquote(n *sitter.Node) string {
	text := n.Content(l.src)
	if len(text) >= 2 {
		switch text[0] {
		case '"', '\'', '`':
			return text[1 : len(text)-1]
		}
	}

	return text
}

func setDeclare(s ast.Stmt) {
	switch d := s.(type) {
	case *ast.FuncDecl:
		d.Declare = true
	case *ast.VarDecl:
		d.Declare = true
	case *ast.ClassDecl:
		d.Declare = true
	case *ast.ModuleDecl:
		d.Declare = true
	}
}

func widenSpan(s ast.Stmt, span ast.Span) ast.Stmt {
	switch d := s.(type) {
	case *ast.FuncDecl:
		d.Pos = span
	case *ast.VarDecl:
		d.Pos = span
	case *ast.ClassDecl:
		d.Pos = span
	case *ast.InterfaceDecl:
		d.Pos = span
	case *ast.TypeAliasDecl:
		d.Pos = span
	case *ast.EnumDecl:
		d.Pos = span
	case *ast.ModuleDecl:
		d.Pos = span
	case *ast.OtherStmt:
		d.Pos = span
	}

	return s
}

func spanOf(n *sitter.Node) ast.Span {
	return ast.Span{Start: n.StartByte(), End: n.EndByte()}
}
