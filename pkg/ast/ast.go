// Package ast models the subset of ECMAScript and TypeScript syntax the
// publish gate inspects: import and export forms, type-level declarations,
// module blocks, and comments. Parsers produce Module values; the policy,
// documentation and type-surface passes consume them without touching
// source text again.
package ast

// Module is the parsed form of one source file. Body holds top-level
// statements in source order; Comments holds every comment in the file.
// Doc is the module-level doc comment when the file carries one. Dynamic
// holds import() calls with statically known specifiers, found anywhere
// in the file.
type Module struct {
	Doc      *JSDoc
	Body     []Stmt
	Comments []Comment
	Dynamic  []DependencyRef
}

// Comment is a single source comment. Text excludes the comment markers,
// so a "///" line comment yields text beginning with "/".
type Comment struct {
	Block bool
	Text  string
	Pos   Span
}

// JSDoc is a documentation block attached to a declaration or module.
// Text is the comment body with markers and leading asterisks stripped.
type JSDoc struct {
	Text string
	Pos  Span
}

// Stmt is a top-level statement or declaration.
type Stmt interface {
	Span() Span
	stmtNode()
}

// ImportAttributes is the attribute clause of an import or re-export,
// such as `with { type: "json" }`. LegacyAssert records whether the clause
// was introduced by the retired `assert` keyword instead of `with`.
type ImportAttributes struct {
	LegacyAssert bool
	Pos          Span
}

// ImportDecl is `import ... from "specifier"`.
type ImportDecl struct {
	Specifier     string
	SpecifierSpan Span
	TypeOnly      bool
	Attributes    *ImportAttributes
	Pos           Span
}

// ExportNamedDecl is `export { ... }` with an optional `from "specifier"`.
type ExportNamedDecl struct {
	Specifier     string
	HasSpecifier  bool
	SpecifierSpan Span
	TypeOnly      bool
	Attributes    *ImportAttributes
	Pos           Span
}

// ExportAllDecl is `export * from "specifier"`.
type ExportAllDecl struct {
	Specifier     string
	SpecifierSpan Span
	Attributes    *ImportAttributes
	Pos           Span
}

// ModuleRef is the right-hand side of an import-equals declaration:
// either an external `require("specifier")` or a qualified entity name.
type ModuleRef struct {
	External  bool
	Specifier string
	Path      []string
}

// ImportEqualsDecl is the legacy `import name = ...` form.
type ImportEqualsDecl struct {
	Name   string
	Ref    ModuleRef
	Export bool
	Pos    Span
}

// ExportAssignment is the legacy `export = expr` form.
type ExportAssignment struct {
	Pos Span
}

// NamespaceExportDecl is `export as namespace name`, the UMD global
// declaration form.
type NamespaceExportDecl struct {
	Name string
	Pos  Span
}

// ModuleName is the name of a TypeScript module or namespace block.
// Global marks `declare global`; Quoted marks ambient string names like
// `declare module "foo"`.
type ModuleName struct {
	Global bool
	Quoted bool
	Text   string
	Pos    Span
}

// ModuleDecl is a TypeScript `module`, `namespace` or `declare global`
// block.
type ModuleDecl struct {
	Name    ModuleName
	Export  bool
	Declare bool
	Body    []Stmt
	Doc     *JSDoc
	Pos     Span
}

// FuncDecl is a function declaration.
type FuncDecl struct {
	Name          string
	Export        bool
	Declare       bool
	HasReturnType bool
	Doc           *JSDoc
	Pos           Span
}

// VarDeclarator is a single binding inside a variable declaration.
type VarDeclarator struct {
	Name    string
	HasType bool
	Pos     Span
}

// VarDecl is a `const`, `let` or `var` declaration.
type VarDecl struct {
	Kind    string
	Decls   []VarDeclarator
	Export  bool
	Declare bool
	Doc     *JSDoc
	Pos     Span
}

// ClassMember is a method or property of a class declaration.
type ClassMember struct {
	Name    string
	Method  bool
	HasType bool
	Private bool
	Doc     *JSDoc
	Pos     Span
}

// ClassDecl is a class declaration.
type ClassDecl struct {
	Name    string
	Export  bool
	Declare bool
	Members []ClassMember
	Doc     *JSDoc
	Pos     Span
}

// InterfaceDecl is a TypeScript interface declaration.
type InterfaceDecl struct {
	Name   string
	Export bool
	Doc    *JSDoc
	Pos    Span
}

// TypeAliasDecl is a TypeScript type alias declaration.
type TypeAliasDecl struct {
	Name   string
	Export bool
	Doc    *JSDoc
	Pos    Span
}

// EnumDecl is a TypeScript enum declaration.
type EnumDecl struct {
	Name   string
	Export bool
	Doc    *JSDoc
	Pos    Span
}

// OtherStmt is any statement the analysis has no structured form for.
type OtherStmt struct {
	Kind string
	Pos  Span
}

func (s *ImportDecl) Span() Span          { return s.Pos }
func (s *ExportNamedDecl) Span() Span     { return s.Pos }
func (s *ExportAllDecl) Span() Span       { return s.Pos }
func (s *ImportEqualsDecl) Span() Span    { return s.Pos }
func (s *ExportAssignment) Span() Span    { return s.Pos }
func (s *NamespaceExportDecl) Span() Span { return s.Pos }
func (s *ModuleDecl) Span() Span          { return s.Pos }
func (s *FuncDecl) Span() Span            { return s.Pos }
func (s *VarDecl) Span() Span             { return s.Pos }
func (s *ClassDecl) Span() Span           { return s.Pos }
func (s *InterfaceDecl) Span() Span       { return s.Pos }
func (s *TypeAliasDecl) Span() Span       { return s.Pos }
func (s *EnumDecl) Span() Span            { return s.Pos }
func (s *OtherStmt) Span() Span           { return s.Pos }

func (*ImportDecl) stmtNode()          {}
func (*ExportNamedDecl) stmtNode()     {}
func (*ExportAllDecl) stmtNode()       {}
func (*ImportEqualsDecl) stmtNode()    {}
func (*ExportAssignment) stmtNode()    {}
func (*NamespaceExportDecl) stmtNode() {}
func (*ModuleDecl) stmtNode()          {}
func (*FuncDecl) stmtNode()            {}
func (*VarDecl) stmtNode()             {}
func (*ClassDecl) stmtNode()           {}
func (*InterfaceDecl) stmtNode()       {}
func (*TypeAliasDecl) stmtNode()       {}
func (*EnumDecl) stmtNode()            {}
func (*OtherStmt) stmtNode()           {}

// Walk calls fn for every statement in pre-order, descending into module
// blocks. Returning false stops the descent below that statement.
func Walk(stmts []Stmt, fn func(Stmt) bool) {
	for _, s := range stmts {
		if !fn(s) {
			continue
		}

		if m, ok := s.(*ModuleDecl); ok {
			Walk(m.Body, fn)
		}
	}
}
