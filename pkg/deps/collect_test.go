package deps_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkggate/pkggate/pkg/ast"
	"github.com/pkggate/pkggate/pkg/deps"
	"github.com/pkggate/pkggate/pkg/diag"
	"github.com/pkggate/pkggate/pkg/graph"
)

type memLoader struct {
	files map[string][]byte
}

func (l *memLoader) Load(_ context.Context, u *url.URL) (graph.LoadResult, error) {
	if u.Scheme != "file" {
		return graph.LoadResult{Kind: graph.LoadExternal}, nil
	}

	if content, ok := l.files[u.String()]; ok {
		return graph.LoadResult{Kind: graph.LoadModule, Content: content}, nil
	}

	return graph.LoadResult{Kind: graph.LoadNotFound}, nil
}

type stubParser struct {
	modules map[string]*ast.Module
}

func (p *stubParser) Parse(_ context.Context, specifier string, _ []byte, _ ast.MediaType) (*ast.Module, error) {
	if m, ok := p.modules[specifier]; ok {
		return m, nil
	}

	return &ast.Module{}, nil
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()

	u, err := url.Parse(raw)
	require.NoError(t, err)

	return u
}

func importOf(specifier string, start, end uint32) ast.Stmt {
	return &ast.ImportDecl{
		Specifier:     specifier,
		SpecifierSpan: ast.Span{Start: start, End: end},
		Pos:           ast.Span{Start: start, End: end},
	}
}

func buildGraph(t *testing.T, b *graph.Builder, root string) *graph.Graph {
	t.Helper()

	g, err := b.Build(context.Background(), []*url.URL{mustURL(t, root)})
	require.NoError(t, err)

	return g
}

func TestCollectGathersRegistryDependencies(t *testing.T) {
	t.Parallel()

	b := &graph.Builder{
		Loader: &memLoader{files: map[string][]byte{
			"file:///mod.ts":  []byte(`import "npm:chalk@^5.0.0"; import "jsr:@luca/flag@^1.0.0"; import "node:fs"; import "./util.ts";`),
			"file:///util.ts": []byte(`import "npm:chalk@^5.0.0";`),
		}},
		Parser: &stubParser{modules: map[string]*ast.Module{
			"file:///mod.ts": {Body: []ast.Stmt{
				importOf("npm:chalk@^5.0.0", 0, 0),
				importOf("jsr:@luca/flag@^1.0.0", 0, 0),
				importOf("node:fs", 0, 0),
				importOf("./util.ts", 0, 0),
			}},
			"file:///util.ts": {Body: []ast.Stmt{
				importOf("npm:chalk@^5.0.0", 0, 0),
			}},
		}},
	}

	g := buildGraph(t, b, "file:///mod.ts")

	set, err := deps.Collect(g)
	require.NoError(t, err)

	list := set.List()
	require.Len(t, list, 2)
	assert.Equal(t, deps.Dependency{Registry: deps.RegistryNpm, Name: "chalk", Constraint: "^5.0.0"}, list[0])
	assert.Equal(t, deps.Dependency{Registry: deps.RegistryJSR, Name: "@luca/flag", Constraint: "^1.0.0"}, list[1])
}

func TestCollectRejectsWildcardConstraint(t *testing.T) {
	t.Parallel()

	b := &graph.Builder{
		Loader: &memLoader{files: map[string][]byte{
			"file:///mod.ts": []byte(`import "npm:chalk";`),
		}},
		Parser: &stubParser{modules: map[string]*ast.Module{
			"file:///mod.ts": {Body: []ast.Stmt{
				importOf("npm:chalk", 7, 18),
			}},
		}},
	}

	g := buildGraph(t, b, "file:///mod.ts")

	_, err := deps.Collect(g)
	require.Error(t, err)

	de, ok := diag.As(err)
	require.True(t, ok)
	assert.Equal(t, diag.KindMissingVersionConstraint, de.Kind)
	assert.Contains(t, de.Detail, `"chalk" is missing a version constraint`)
	require.NotNil(t, de.Pos)
	assert.Equal(t, uint32(1), de.Pos.Line)
	assert.Equal(t, uint32(8), de.Pos.Column)
}

func TestCollectRejectsExplicitStarConstraint(t *testing.T) {
	t.Parallel()

	b := &graph.Builder{
		Loader: &memLoader{files: map[string][]byte{
			"file:///mod.ts": []byte(`import "jsr:@std/fs@*";`),
		}},
		Parser: &stubParser{modules: map[string]*ast.Module{
			"file:///mod.ts": {Body: []ast.Stmt{
				importOf("jsr:@std/fs@*", 0, 0),
			}},
		}},
	}

	g := buildGraph(t, b, "file:///mod.ts")

	_, err := deps.Collect(g)
	assert.Equal(t, diag.KindMissingVersionConstraint, diag.KindOf(err))
}

func TestCollectRejectsWebImports(t *testing.T) {
	t.Parallel()

	b := &graph.Builder{
		Loader: &memLoader{files: map[string][]byte{
			"file:///mod.ts": []byte(`import "https://esm.sh/preact";`),
		}},
		Parser: &stubParser{modules: map[string]*ast.Module{
			"file:///mod.ts": {Body: []ast.Stmt{
				importOf("https://esm.sh/preact", 0, 0),
			}},
		}},
	}

	g := buildGraph(t, b, "file:///mod.ts")

	_, err := deps.Collect(g)
	require.Error(t, err)

	de, ok := diag.As(err)
	require.True(t, ok)
	assert.Equal(t, diag.KindDisallowedExternalImport, de.Kind)
	assert.Contains(t, de.Detail, "http(s) imports are not allowed")
}

func TestCollectRejectsUnknownScheme(t *testing.T) {
	t.Parallel()

	b := &graph.Builder{
		Loader: &memLoader{files: map[string][]byte{
			"file:///mod.ts": []byte(`import "git://example.com/repo";`),
		}},
		Parser: &stubParser{modules: map[string]*ast.Module{
			"file:///mod.ts": {Body: []ast.Stmt{
				importOf("git://example.com/repo", 0, 0),
			}},
		}},
	}

	g := buildGraph(t, b, "file:///mod.ts")

	_, err := deps.Collect(g)
	require.Error(t, err)
	assert.Equal(t, diag.KindDisallowedExternalImport, diag.KindOf(err))
	assert.Contains(t, err.Error(), `unsupported scheme "git"`)
}

func TestCollectRejectsMalformedRegistryRef(t *testing.T) {
	t.Parallel()

	b := &graph.Builder{
		Loader: &memLoader{files: map[string][]byte{
			"file:///mod.ts": []byte(`import "jsr:nope";`),
		}},
		Parser: &stubParser{modules: map[string]*ast.Module{
			"file:///mod.ts": {Body: []ast.Stmt{
				importOf("jsr:nope", 0, 0),
			}},
		}},
	}

	g := buildGraph(t, b, "file:///mod.ts")

	_, err := deps.Collect(g)
	require.Error(t, err)
	assert.Equal(t, diag.KindInvalidDependencySpecifier, diag.KindOf(err))
	assert.ErrorIs(t, err, deps.ErrInvalidRef)
}

func TestCollectSkipsSelfReferences(t *testing.T) {
	t.Parallel()

	b := &graph.Builder{
		Loader: &memLoader{files: map[string][]byte{
			"file:///mod.ts": []byte(`import "jsr:@std/path@^1.0.0"; import "npm:chalk@^5.0.0";`),
		}},
		Parser: &stubParser{modules: map[string]*ast.Module{
			"file:///mod.ts": {Body: []ast.Stmt{
				importOf("jsr:@std/path@^1.0.0", 0, 0),
				importOf("npm:chalk@^5.0.0", 0, 0),
			}},
		}},
		Resolver: &deps.WorkspaceResolver{Member: testMember(t)},
	}

	g := buildGraph(t, b, "file:///mod.ts")

	set, err := deps.Collect(g)
	require.NoError(t, err)

	list := set.List()
	require.Len(t, list, 1)
	assert.Equal(t, "chalk", list[0].Name)
}
