// Package docs extracts documentation nodes from parsed root modules.
// Each node records one top-level symbol with its declaration kind,
// source location and attached JSDoc text. The scorer consumes the nodes
// directly; the registry stores their JSON form and a lightweight search
// index derived from them.
package docs

import (
	"fmt"
	"strings"

	"github.com/pkggate/pkggate/pkg/ast"
	"github.com/pkggate/pkggate/pkg/graph"
)

// NodeKind names the documented symbol's declaration form.
type NodeKind string

// Node kinds.
const (
	KindModuleDoc NodeKind = "moduleDoc"
	KindFunction  NodeKind = "function"
	KindVariable  NodeKind = "variable"
	KindClass     NodeKind = "class"
	KindInterface NodeKind = "interface"
	KindTypeAlias NodeKind = "typeAlias"
	KindEnum      NodeKind = "enum"
	KindNamespace NodeKind = "namespace"
)

// DeclarationKind is the visibility of a documented symbol.
type DeclarationKind string

// Declaration kinds. Non-exported module-local symbols are private;
// ambient declarations keep their own kind.
const (
	DeclExport  DeclarationKind = "export"
	DeclDeclare DeclarationKind = "declare"
	DeclPrivate DeclarationKind = "private"
)

// Location is a 1-based source position.
type Location struct {
	Filename string `json:"filename"`
	Line     uint32 `json:"line"`
	Column   uint32 `json:"col"`
}

// Node is one documentation node.
type Node struct {
	Kind            NodeKind        `json:"kind"`
	Name            string          `json:"name,omitempty"`
	DeclarationKind DeclarationKind `json:"declarationKind,omitempty"`
	Location        Location        `json:"location"`
	JSDoc           string          `json:"jsDoc,omitempty"`
}

// Documented reports whether the node carries doc text.
func (n Node) Documented() bool { return strings.TrimSpace(n.JSDoc) != "" }

// ByModule groups doc nodes by module specifier, preserving root order.
type ByModule struct {
	urls  []string
	nodes map[string][]Node
}

// NewByModule returns an empty collection.
func NewByModule() *ByModule {
	return &ByModule{nodes: map[string][]Node{}}
}

// Add records the nodes of one module. A specifier already present keeps
// its first recording.
func (d *ByModule) Add(specifier string, nodes []Node) {
	if _, ok := d.nodes[specifier]; ok {
		return
	}

	d.urls = append(d.urls, specifier)
	d.nodes[specifier] = nodes
}

// Modules returns the recorded specifiers in insertion order.
func (d *ByModule) Modules() []string {
	out := make([]string, len(d.urls))
	copy(out, d.urls)

	return out
}

// Nodes returns the doc nodes of one module.
func (d *ByModule) Nodes(specifier string) []Node {
	return d.nodes[specifier]
}

// Len returns the number of recorded modules.
func (d *ByModule) Len() int { return len(d.urls) }

// ExtractGraph collects doc nodes for every root module of a valid graph.
func ExtractGraph(g *graph.Graph) (*ByModule, error) {
	out := NewByModule()

	for _, root := range g.Roots() {
		m, ok := g.Module(root)
		if !ok {
			return nil, fmt.Errorf("root %s not in graph", root)
		}

		out.Add(root.String(), Extract(m))
	}

	return out, nil
}

// Extract lists the doc nodes of one module: the module doc when present,
// then one node per top-level declaration in source order. Modules without
// a syntax tree (JSON, external) have no nodes.
func Extract(m *graph.Module) []Node {
	if m.AST == nil || m.Text == nil {
		return nil
	}

	specifier := m.Specifier.String()
	var nodes []Node

	at := func(span ast.Span) Location {
		line, col := m.Text.PositionAt(span.Start)
		return Location{Filename: specifier, Line: line, Column: col}
	}

	if m.AST.Doc != nil {
		nodes = append(nodes, Node{
			Kind:     KindModuleDoc,
			Location: at(m.AST.Doc.Pos),
			JSDoc:    m.AST.Doc.Text,
		})
	}

	for _, s := range m.AST.Body {
		switch n := s.(type) {
		case *ast.FuncDecl:
			nodes = append(nodes, Node{
				Kind:            KindFunction,
				Name:            n.Name,
				DeclarationKind: declKind(n.Export, n.Declare),
				Location:        at(n.Pos),
				JSDoc:           docText(n.Doc),
			})
		case *ast.VarDecl:
			for _, decl := range n.Decls {
				nodes = append(nodes, Node{
					Kind:            KindVariable,
					Name:            decl.Name,
					DeclarationKind: declKind(n.Export, n.Declare),
					Location:        at(decl.Pos),
					JSDoc:           docText(n.Doc),
				})
			}
		case *ast.ClassDecl:
			nodes = append(nodes, Node{
				Kind:            KindClass,
				Name:            n.Name,
				DeclarationKind: declKind(n.Export, n.Declare),
				Location:        at(n.Pos),
				JSDoc:           docText(n.Doc),
			})
		case *ast.InterfaceDecl:
			nodes = append(nodes, Node{
				Kind:            KindInterface,
				Name:            n.Name,
				DeclarationKind: declKind(n.Export, false),
				Location:        at(n.Pos),
				JSDoc:           docText(n.Doc),
			})
		case *ast.TypeAliasDecl:
			nodes = append(nodes, Node{
				Kind:            KindTypeAlias,
				Name:            n.Name,
				DeclarationKind: declKind(n.Export, false),
				Location:        at(n.Pos),
				JSDoc:           docText(n.Doc),
			})
		case *ast.EnumDecl:
			nodes = append(nodes, Node{
				Kind:            KindEnum,
				Name:            n.Name,
				DeclarationKind: declKind(n.Export, false),
				Location:        at(n.Pos),
				JSDoc:           docText(n.Doc),
			})
		case *ast.ModuleDecl:
			if n.Name.Global || n.Name.Quoted {
				continue
			}

			nodes = append(nodes, Node{
				Kind:            KindNamespace,
				Name:            n.Name.Text,
				DeclarationKind: declKind(n.Export, n.Declare),
				Location:        at(n.Pos),
				JSDoc:           docText(n.Doc),
			})
		}
	}

	return nodes
}

func declKind(export, declare bool) DeclarationKind {
	switch {
	case export:
		return DeclExport
	case declare:
		return DeclDeclare
	default:
		return DeclPrivate
	}
}

func docText(doc *ast.JSDoc) string {
	if doc == nil {
		return ""
	}

	return doc.Text
}
