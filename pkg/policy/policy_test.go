package policy_test

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkggate/pkggate/pkg/ast"
	"github.com/pkggate/pkggate/pkg/diag"
	"github.com/pkggate/pkggate/pkg/graph"
	"github.com/pkggate/pkggate/pkg/policy"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()

	u, err := url.Parse(raw)
	require.NoError(t, err)

	return u
}

func fileModule(t *testing.T, media ast.MediaType, src string, m *ast.Module) *graph.Module {
	t.Helper()

	return &graph.Module{
		Specifier: mustURL(t, "file:///mod.ts"),
		Kind:      graph.KindESM,
		MediaType: media,
		Source:    []byte(src),
		AST:       m,
		Text:      ast.NewSourceText(src),
	}
}

func TestCheckModuleMediaType(t *testing.T) {
	t.Parallel()

	for _, media := range []ast.MediaType{ast.MediaCjs, ast.MediaCts} {
		err := policy.CheckModule(fileModule(t, media, "let x = 1;", &ast.Module{}))
		require.Error(t, err, media)

		de, ok := diag.As(err)
		require.True(t, ok)
		assert.Equal(t, diag.KindLegacyModuleFormat, de.Kind)
		require.NotNil(t, de.Pos)
		assert.Equal(t, uint32(0), de.Pos.Line)
		assert.Equal(t, uint32(0), de.Pos.Column)
	}

	for _, media := range []ast.MediaType{
		ast.MediaTypeScript, ast.MediaMts, ast.MediaDts, ast.MediaDcts, ast.MediaJavaScript, ast.MediaMjs,
	} {
		assert.NoError(t, policy.CheckModule(fileModule(t, media, "let x = 1;", &ast.Module{})), media)
	}
}

func TestCheckModuleBannedStatements(t *testing.T) {
	t.Parallel()

	pos := ast.Span{Start: 11, End: 20}

	tests := []struct {
		name string
		body []ast.Stmt
		want diag.Kind
	}{
		{
			name: "plain declarations pass",
			body: []ast.Stmt{&ast.VarDecl{Kind: "let", Pos: pos}},
		},
		{
			name: "global block",
			body: []ast.Stmt{&ast.ModuleDecl{Name: ast.ModuleName{Global: true, Text: "global"}, Pos: pos}},
			want: diag.KindGlobalTypeAugmentation,
		},
		{
			name: "global block after other statements",
			body: []ast.Stmt{
				&ast.VarDecl{Kind: "let", Pos: ast.Span{Start: 0, End: 10}},
				&ast.ModuleDecl{Name: ast.ModuleName{Global: true, Text: "global"}, Pos: pos},
			},
			want: diag.KindGlobalTypeAugmentation,
		},
		{
			name: "bare ambient module passes",
			body: []ast.Stmt{&ast.ModuleDecl{Name: ast.ModuleName{Text: "foo"}, Declare: true, Pos: pos}},
		},
		{
			name: "quoted ambient module",
			body: []ast.Stmt{&ast.ModuleDecl{
				Name:    ast.ModuleName{Quoted: true, Text: "x", Pos: ast.Span{Start: 15, End: 18}},
				Declare: true,
				Pos:     pos,
			}},
			want: diag.KindGlobalTypeAugmentation,
		},
		{
			name: "plain import passes",
			body: []ast.Stmt{&ast.ImportDecl{Specifier: "foo", Pos: pos}},
		},
		{
			name: "namespace export",
			body: []ast.Stmt{&ast.NamespaceExportDecl{Name: "React", Pos: pos}},
			want: diag.KindGlobalTypeAugmentation,
		},
		{
			name: "export assignment",
			body: []ast.Stmt{&ast.ExportAssignment{Pos: pos}},
			want: diag.KindGlobalTypeAugmentation,
		},
		{
			name: "import equals require",
			body: []ast.Stmt{&ast.ImportEqualsDecl{
				Name: "express",
				Ref:  ast.ModuleRef{External: true, Specifier: "foo"},
				Pos:  pos,
			}},
			want: diag.KindLegacyModuleFormat,
		},
		{
			name: "import equals namespace passes",
			body: []ast.Stmt{&ast.ImportEqualsDecl{
				Name: "express",
				Ref:  ast.ModuleRef{Path: []string{"React", "foo"}},
				Pos:  pos,
			}},
		},
		{
			name: "import with assert attribute",
			body: []ast.Stmt{&ast.ImportDecl{
				Specifier:  "./data.json",
				Attributes: &ast.ImportAttributes{LegacyAssert: true, Pos: ast.Span{Start: 25, End: 45}},
				Pos:        pos,
			}},
			want: diag.KindLegacyImportAttribute,
		},
		{
			name: "named re-export with assert attribute",
			body: []ast.Stmt{&ast.ExportNamedDecl{
				Specifier:    "./data.json",
				HasSpecifier: true,
				Attributes:   &ast.ImportAttributes{LegacyAssert: true, Pos: ast.Span{Start: 25, End: 45}},
				Pos:          pos,
			}},
			want: diag.KindLegacyImportAttribute,
		},
		{
			name: "wildcard re-export with assert attribute",
			body: []ast.Stmt{&ast.ExportAllDecl{
				Specifier:  "./data.json",
				Attributes: &ast.ImportAttributes{LegacyAssert: true, Pos: ast.Span{Start: 25, End: 45}},
				Pos:        pos,
			}},
			want: diag.KindLegacyImportAttribute,
		},
		{
			name: "wildcard re-export with modern attribute passes",
			body: []ast.Stmt{&ast.ExportAllDecl{
				Specifier:  "./data.json",
				Attributes: &ast.ImportAttributes{Pos: ast.Span{Start: 25, End: 45}},
				Pos:        pos,
			}},
		},
	}

	src := strings.Repeat(" ", 80)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := policy.CheckModule(fileModule(t, ast.MediaTypeScript, src, &ast.Module{Body: tt.body}))
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Equal(t, tt.want, diag.KindOf(err))
		})
	}
}

func TestCheckModuleBannedStatementPositions(t *testing.T) {
	t.Parallel()

	src := "let x = 1;\nexport = {};\n"
	m := fileModule(t, ast.MediaTypeScript, src, &ast.Module{Body: []ast.Stmt{
		&ast.VarDecl{Kind: "let", Pos: ast.Span{Start: 0, End: 10}},
		&ast.ExportAssignment{Pos: ast.Span{Start: 11, End: 23}},
	}})

	err := policy.CheckModule(m)
	require.Error(t, err)

	de, ok := diag.As(err)
	require.True(t, ok)
	assert.Equal(t, "file:///mod.ts", de.Specifier)
	require.NotNil(t, de.Pos)
	assert.Equal(t, uint32(2), de.Pos.Line)
	assert.Equal(t, uint32(1), de.Pos.Column)
}

func TestCheckModuleTripleSlashDirectives(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		banned bool
	}{
		{name: "lib dom", text: `/ <reference lib="dom" />`, banned: true},
		{name: "no-default-lib", text: `/ <reference no-default-lib="true" />`, banned: true},
		{name: "extra spacing", text: `/   <reference   no-default-lib="true"/>`, banned: true},
		{name: "spaced equals", text: `/   <reference   no-default-lib = "true"/>`, banned: true},
		{name: "lib spaced equals", text: `/ <reference   lib = "dom"/>`, banned: true},
		{name: "single quotes", text: `/   <reference   lib = 'dom'/>`, banned: true},
		{name: "space before slash", text: `  /   <reference   lib = 'dom'/>`},
		{name: "trailing garbage", text: `/   <reference   lib = 'dom'/>  asdasd`},
		{name: "text before slash", text: `some text here/   <reference   lib = 'dom'/>`},
		{name: "types directive allowed", text: `/ <reference types="./mod.d.ts" />`},
		{name: "path directive allowed", text: `/ <reference path="./mod.ts" />`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := fileModule(t, ast.MediaTypeScript, strings.Repeat(" ", 80), &ast.Module{
				Comments: []ast.Comment{{Text: tt.text, Pos: ast.Span{Start: 0, End: 40}}},
			})

			err := policy.CheckModule(m)
			if !tt.banned {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Equal(t, diag.KindBannedReferenceComment, diag.KindOf(err))
		})
	}
}

func TestCheckModuleTripleSlashScope(t *testing.T) {
	t.Parallel()

	banned := `/ <reference lib="dom" />`

	t.Run("block comment ignored", func(t *testing.T) {
		t.Parallel()

		m := fileModule(t, ast.MediaTypeScript, strings.Repeat(" ", 80), &ast.Module{
			Comments: []ast.Comment{{Block: true, Text: banned, Pos: ast.Span{Start: 0, End: 30}}},
		})
		assert.NoError(t, policy.CheckModule(m))
	})

	t.Run("comment after first statement ignored", func(t *testing.T) {
		t.Parallel()

		m := fileModule(t, ast.MediaTypeScript, strings.Repeat(" ", 80), &ast.Module{
			Body:     []ast.Stmt{&ast.VarDecl{Kind: "let", Pos: ast.Span{Start: 0, End: 10}}},
			Comments: []ast.Comment{{Text: banned, Pos: ast.Span{Start: 20, End: 50}}},
		})
		assert.NoError(t, policy.CheckModule(m))
	})

	t.Run("comment-only file checked", func(t *testing.T) {
		t.Parallel()

		src := `/// <reference lib="dom" />`
		m := fileModule(t, ast.MediaTypeScript, src, &ast.Module{
			Comments: []ast.Comment{{Text: banned, Pos: ast.Span{Start: 0, End: uint32(len(src))}}},
		})

		err := policy.CheckModule(m)
		require.Error(t, err)

		de, ok := diag.As(err)
		require.True(t, ok)
		assert.Equal(t, diag.KindBannedReferenceComment, de.Kind)
		require.NotNil(t, de.Pos)
		assert.Equal(t, uint32(1), de.Pos.Line)
		assert.Equal(t, uint32(1), de.Pos.Column)
	})
}

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

func TestCheckGraphFlagsLegacyModule(t *testing.T) {
	t.Parallel()

	b := &graph.Builder{
		Loader: &memLoader{files: map[string][]byte{
			"file:///mod.ts":     []byte(`import "./legacy.cts"; import "npm:chalk@^5.0.0";`),
			"file:///legacy.cts": []byte(`let x = 1;`),
		}},
		Parser: &stubParser{modules: map[string]*ast.Module{
			"file:///mod.ts": {Body: []ast.Stmt{
				&ast.ImportDecl{Specifier: "./legacy.cts", Pos: ast.Span{Start: 0, End: 22}},
				&ast.ImportDecl{Specifier: "npm:chalk@^5.0.0", Pos: ast.Span{Start: 23, End: 49}},
			}},
			"file:///legacy.cts": {},
		}},
	}

	g, err := b.Build(context.Background(), []*url.URL{mustURL(t, "file:///mod.ts")})
	require.NoError(t, err)
	require.NoError(t, g.Valid())

	err = policy.CheckGraph(g)
	require.Error(t, err)

	de, ok := diag.As(err)
	require.True(t, ok)
	assert.Equal(t, diag.KindLegacyModuleFormat, de.Kind)
	assert.Equal(t, "file:///legacy.cts", de.Specifier)
}

func TestCheckGraphPassesCleanGraph(t *testing.T) {
	t.Parallel()

	b := &graph.Builder{
		Loader: &memLoader{files: map[string][]byte{
			"file:///mod.ts": []byte(`export const x = 1;`),
		}},
		Parser: &stubParser{modules: map[string]*ast.Module{
			"file:///mod.ts": {Body: []ast.Stmt{
				&ast.VarDecl{Kind: "const", Export: true, Pos: ast.Span{Start: 0, End: 19}},
			}},
		}},
	}

	g, err := b.Build(context.Background(), []*url.URL{mustURL(t, "file:///mod.ts")})
	require.NoError(t, err)

	assert.NoError(t, policy.CheckGraph(g))
}
