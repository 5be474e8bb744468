// Package fastcheck decides whether package modules expose a fully
// declared type surface. A module passes when every exported symbol
// carries explicit type annotations, so consumers can be type checked
// against the surface alone without inferring through function bodies.
// Modules backed by declaration files or a types dependency are already
// externally typed. Failures never abort a publish; they feed the
// quality score.
package fastcheck

import (
	"context"

	"github.com/pkggate/pkggate/pkg/ast"
	"github.com/pkggate/pkggate/pkg/diag"
	"github.com/pkggate/pkggate/pkg/graph"
)

// Status is the per-module outcome.
type Status string

// Statuses.
const (
	// StatusChecked marks a module whose exported surface is explicitly
	// typed.
	StatusChecked Status = "checked"

	// StatusExternallyTyped marks a module whose types come from a
	// declaration file or a types dependency.
	StatusExternallyTyped Status = "externally-typed"

	// StatusUnchecked marks a module with at least one exported symbol
	// whose type must be inferred.
	StatusUnchecked Status = "unchecked"

	// StatusSkipped marks modules with no checkable surface, such as JSON.
	StatusSkipped Status = "skipped"
)

// Finding names the first inference-requiring symbol of a module.
type Finding struct {
	Specifier string
	Symbol    string
	Reason    string
	Pos       diag.Position
}

// Result holds per-module statuses for one graph.
type Result struct {
	statuses map[string]Status
	findings []Finding
}

// Status returns the outcome for specifier, StatusSkipped when unknown.
func (r *Result) Status(specifier string) Status {
	if s, ok := r.statuses[specifier]; ok {
		return s
	}

	return StatusSkipped
}

// Findings returns the first finding of every unchecked module, in graph
// discovery order.
func (r *Result) Findings() []Finding {
	out := make([]Finding, len(r.findings))
	copy(out, r.findings)

	return out
}

// AllRoots reports whether every root script module of the graph is
// checked or externally typed. Non-script roots do not count.
func (r *Result) AllRoots(g *graph.Graph) bool {
	for _, root := range g.Roots() {
		m, ok := g.Module(root)
		if !ok {
			return false
		}

		if m.Kind != graph.KindESM {
			continue
		}

		switch r.Status(root.String()) {
		case StatusChecked, StatusExternallyTyped:
		default:
			return false
		}
	}

	return true
}

// Checker runs the type-surface pass over a validated graph.
type Checker interface {
	Check(ctx context.Context, g *graph.Graph) (*Result, error)
}

// SymbolChecker is the default Checker. It inspects exported top-level
// declarations for explicit annotations; it performs no type inference.
type SymbolChecker struct{}

// Check implements Checker over every package module of the graph.
func (SymbolChecker) Check(_ context.Context, g *graph.Graph) (*Result, error) {
	res := &Result{statuses: map[string]Status{}}

	for _, m := range g.Modules() {
		if m.Specifier.Scheme != "file" {
			continue
		}

		status, finding := checkModule(m)
		res.statuses[m.Specifier.String()] = status
		if finding != nil {
			res.findings = append(res.findings, *finding)
		}
	}

	return res, nil
}

func checkModule(m *graph.Module) (Status, *Finding) {
	if m.MediaType.IsDeclaration() || m.TypesDependency != nil {
		return StatusExternallyTyped, nil
	}

	if m.Kind != graph.KindESM || m.AST == nil || m.Text == nil {
		return StatusSkipped, nil
	}

	specifier := m.Specifier.String()

	if !m.MediaType.IsTypeScript() {
		return StatusUnchecked, &Finding{
			Specifier: specifier,
			Reason:    "JavaScript module without a types declaration",
		}
	}

	if f := checkStmts(m, m.AST.Body, ""); f != nil {
		return StatusUnchecked, f
	}

	return StatusChecked, nil
}

// checkStmts walks exported declarations, descending into exported
// namespaces, and returns the first symbol needing inference.
func checkStmts(m *graph.Module, stmts []ast.Stmt, prefix string) *Finding {
	finding := func(symbol, reason string, span ast.Span) *Finding {
		line, col := m.Text.PositionAt(span.Start)
		return &Finding{
			Specifier: m.Specifier.String(),
			Symbol:    prefix + symbol,
			Reason:    reason,
			Pos:       diag.Position{Line: line, Column: col},
		}
	}

	for _, s := range stmts {
		switch n := s.(type) {
		case *ast.FuncDecl:
			if n.Export && !n.HasReturnType {
				return finding(n.Name, "missing explicit return type", n.Pos)
			}
		case *ast.VarDecl:
			if !n.Export {
				continue
			}

			for _, decl := range n.Decls {
				if !decl.HasType {
					return finding(decl.Name, "missing explicit type annotation", decl.Pos)
				}
			}
		case *ast.ClassDecl:
			if !n.Export {
				continue
			}

			for _, member := range n.Members {
				if member.Private || member.Name == "constructor" || member.HasType {
					continue
				}

				reason := "missing explicit type annotation"
				if member.Method {
					reason = "missing explicit return type"
				}

				return finding(n.Name+"."+member.Name, reason, member.Pos)
			}
		case *ast.ModuleDecl:
			if !n.Export || n.Name.Global || n.Name.Quoted {
				continue
			}

			if f := checkStmts(m, n.Body, prefix+n.Name.Text+"."); f != nil {
				return f
			}
		}
	}

	return nil
}
