package source_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkggate/pkggate/pkg/ast"
	"github.com/pkggate/pkggate/pkg/graph"
	"github.com/pkggate/pkggate/pkg/ids"
	"github.com/pkggate/pkggate/pkg/source"
)

func load(t *testing.T, l graph.Loader, raw string) graph.LoadResult {
	t.Helper()

	u, err := url.Parse(raw)
	require.NoError(t, err)

	res, err := l.Load(context.Background(), u)
	require.NoError(t, err)

	return res
}

func TestMemoryLoaderFiles(t *testing.T) {
	t.Parallel()

	files := ids.NewFileSet()
	require.NoError(t, files.Add(ids.MustPackagePath("/mod.ts"), []byte("export {}")))

	l := &source.MemoryLoader{Files: files}

	res := load(t, l, "file:///mod.ts")
	assert.Equal(t, graph.LoadModule, res.Kind)
	assert.Equal(t, "export {}", string(res.Content))

	// Case folds like the file set.
	res = load(t, l, "file:///MOD.TS")
	assert.Equal(t, graph.LoadModule, res.Kind)

	res = load(t, l, "file:///missing.ts")
	assert.Equal(t, graph.LoadNotFound, res.Kind)

	// Paths that fail validation behave like missing files.
	res = load(t, l, "file:///a/../mod.ts")
	assert.Equal(t, graph.LoadNotFound, res.Kind)
}

func TestMemoryLoaderExternalSchemes(t *testing.T) {
	t.Parallel()

	l := &source.MemoryLoader{Files: ids.NewFileSet()}

	for _, raw := range []string{
		"npm:chalk@^5",
		"jsr:@std/path@^1.0.0",
		"node:fs",
		"https://deno.land/x/mod.ts",
		"bun:sqlite",
	} {
		res := load(t, l, raw)
		assert.Equal(t, graph.LoadExternal, res.Kind, raw)
	}

	res := load(t, l, "ftp://example.com/mod.ts")
	assert.Equal(t, graph.LoadNotFound, res.Kind)
}

func TestMemoryLoaderDataURL(t *testing.T) {
	t.Parallel()

	l := &source.MemoryLoader{Files: ids.NewFileSet()}

	res := load(t, l, "data:application/typescript;base64,ZXhwb3J0IHt9")
	assert.Equal(t, graph.LoadModule, res.Kind)
	assert.Equal(t, "export {}", string(res.Content))
	assert.Equal(t, ast.MediaTypeScript, res.MediaType)

	res = load(t, l, "data:application/javascript,console.log(1)%3B")
	assert.Equal(t, graph.LoadModule, res.Kind)
	assert.Equal(t, "console.log(1);", string(res.Content))
	assert.Equal(t, ast.MediaJavaScript, res.MediaType)

	res = load(t, l, "data:application/typescript;base64,!!!")
	assert.Equal(t, graph.LoadNotFound, res.Kind)
}
