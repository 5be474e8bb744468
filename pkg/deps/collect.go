package deps

import (
	"github.com/pkggate/pkggate/pkg/diag"
	"github.com/pkggate/pkggate/pkg/graph"
)

// skippedSchemes are resolved specifier schemes that never produce a
// dependency: package files, inline data, and runtime builtins.
var skippedSchemes = map[string]bool{
	"file":       true,
	"data":       true,
	"node":       true,
	"bun":        true,
	"virtual":    true,
	"cloudflare": true,
}

// Collect walks every resolved edge of the graph and produces the external
// dependency set. Registry references must parse and carry a real version
// constraint; plain web imports and unknown schemes are rejected.
func Collect(g *graph.Graph) (*Set, error) {
	set := NewSet()

	for _, m := range g.Modules() {
		if m.Kind != graph.KindESM || m.Err != nil {
			continue
		}

		for _, dep := range m.Dependencies {
			if dep.Resolved == nil {
				continue
			}

			if err := collectEdge(set, m, dep); err != nil {
				return nil, err
			}
		}
	}

	return set, nil
}

func collectEdge(set *Set, m *graph.Module, dep graph.Dependency) error {
	resolved := dep.Resolved
	scheme := resolved.Scheme

	switch {
	case skippedSchemes[scheme]:
		return nil
	case scheme == "jsr" || scheme == "npm":
		ref, err := ParseRef(resolved.String())
		if err != nil {
			return edgeError(m, dep, diag.Errorf(
				diag.KindInvalidDependencySpecifier,
				"invalid %s specifier %q", scheme, resolved.String(),
			).Wrap(err))
		}

		if ref.Wild() {
			return edgeError(m, dep, diag.Errorf(
				diag.KindMissingVersionConstraint,
				"%s dependency %q is missing a version constraint", scheme, ref.Name,
			))
		}

		set.Add(Dependency{Registry: ref.Registry, Name: ref.Name, Constraint: ref.Constraint})

		return nil
	case scheme == "http" || scheme == "https":
		return edgeError(m, dep, diag.Errorf(
			diag.KindDisallowedExternalImport,
			"http(s) imports are not allowed: %q", resolved.String(),
		))
	default:
		return edgeError(m, dep, diag.Errorf(
			diag.KindDisallowedExternalImport,
			"unsupported scheme %q in %q", scheme, resolved.String(),
		))
	}
}

// edgeError anchors a finding to the import site when the edge has a
// source span.
func edgeError(m *graph.Module, dep graph.Dependency, e *diag.Error) error {
	if m.Text != nil && dep.Span.End > dep.Span.Start {
		line, col := m.Text.PositionAt(dep.Span.Start)
		return e.AtPos(m.Specifier.String(), line, col)
	}

	return e.At(m.Specifier.String())
}
