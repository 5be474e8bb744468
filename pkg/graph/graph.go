// Package graph builds and validates the module dependency graph of a
// package version. Starting from the export map roots it loads every
// reachable module through a Loader, parses ECMAScript sources, resolves
// import specifiers through a Resolver, and records per-module and
// per-edge failures for deterministic reporting.
package graph

import (
	"net/url"

	"github.com/pkggate/pkggate/pkg/ast"
	"github.com/pkggate/pkggate/pkg/diag"
)

// Kind classifies a graph module.
type Kind string

// Module kinds.
const (
	// KindESM is a parsed JavaScript or TypeScript module.
	KindESM Kind = "esm"

	// KindJSON is a JSON module; it has content but no dependencies.
	KindJSON Kind = "json"

	// KindExternal is a module outside the package, identified by scheme:
	// registry packages, node builtins, and remote URLs. External modules
	// are graph leaves.
	KindExternal Kind = "external"
)

// Dependency is one resolved import edge of a module.
type Dependency struct {
	Specifier string
	Kind      ast.ImportKind
	TypeOnly  bool
	Span      ast.Span
	Resolved  *url.URL
	Err       *diag.Error
}

// Module is one node of the graph. Err carries the module-level failure
// (missing, unparseable, unsupported) discovered during the build; a graph
// holding modules with errors fails Valid.
type Module struct {
	Specifier       *url.URL
	Kind            Kind
	MediaType       ast.MediaType
	Source          []byte
	AST             *ast.Module
	Text            *ast.SourceText
	Dependencies    []Dependency
	TypesDependency *url.URL
	Err             *diag.Error
}

// Graph is the immutable result of a build. Module iteration follows
// discovery order, which is deterministic for a given root list.
type Graph struct {
	roots   []*url.URL
	modules map[string]*Module
	order   []string
}

// Roots returns the root specifiers in declaration order.
func (g *Graph) Roots() []*url.URL {
	out := make([]*url.URL, len(g.roots))
	copy(out, g.roots)

	return out
}

// Module returns the graph node for specifier.
func (g *Graph) Module(specifier *url.URL) (*Module, bool) {
	m, ok := g.modules[specifier.String()]
	return m, ok
}

// Modules returns all nodes in discovery order.
func (g *Graph) Modules() []*Module {
	out := make([]*Module, 0, len(g.order))
	for _, key := range g.order {
		out = append(out, g.modules[key])
	}

	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.order) }

// Valid walks the graph from its roots in breadth-first order and returns
// the first module or edge failure found, or nil when every reachable
// module loaded, parsed and resolved cleanly.
func (g *Graph) Valid() error {
	visited := map[string]bool{}
	queue := make([]string, 0, len(g.roots))
	for _, root := range g.roots {
		key := root.String()
		if !visited[key] {
			visited[key] = true
			queue = append(queue, key)
		}
	}

	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]

		m, ok := g.modules[key]
		if !ok {
			return diag.Errorf(diag.KindGraphError, "module not found").At(key)
		}

		if m.Err != nil {
			return m.Err
		}

		for _, dep := range m.Dependencies {
			if dep.Err != nil {
				return dep.Err
			}

			if dep.Resolved == nil {
				continue
			}

			depKey := dep.Resolved.String()
			if !visited[depKey] {
				visited[depKey] = true
				queue = append(queue, depKey)
			}
		}
	}

	return nil
}
