package ids_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkggate/pkggate/pkg/ids"
)

func TestFileSetAddGet(t *testing.T) {
	t.Parallel()

	fs := ids.NewFileSet()
	require.NoError(t, fs.Add(ids.MustPackagePath("/mod.ts"), []byte("export {}")))
	require.NoError(t, fs.Add(ids.MustPackagePath("/util.ts"), nil))

	content, ok := fs.Get(ids.MustPackagePath("/mod.ts"))
	require.True(t, ok)
	assert.Equal(t, "export {}", string(content))

	// Lookup folds case.
	_, ok = fs.Get(ids.MustPackagePath("/MOD.TS"))
	assert.True(t, ok)
	assert.True(t, fs.Contains(ids.MustPackagePath("/Util.Ts")))
	assert.Equal(t, 2, fs.Len())
}

func TestFileSetRejectsCaseCollision(t *testing.T) {
	t.Parallel()

	fs := ids.NewFileSet()
	require.NoError(t, fs.Add(ids.MustPackagePath("/mod.ts"), nil))

	err := fs.Add(ids.MustPackagePath("/MOD.ts"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ids.ErrDuplicatePath)
}

func TestFileSetPathsOrder(t *testing.T) {
	t.Parallel()

	fs := ids.NewFileSet()
	require.NoError(t, fs.Add(ids.MustPackagePath("/z.ts"), nil))
	require.NoError(t, fs.Add(ids.MustPackagePath("/a.ts"), nil))

	assert.Equal(t, []ids.PackagePath{"/z.ts", "/a.ts"}, fs.Paths())
}

func TestFileSetReadme(t *testing.T) {
	t.Parallel()

	fs := ids.NewFileSet()
	require.NoError(t, fs.Add(ids.MustPackagePath("/mod.ts"), nil))

	_, _, ok := fs.Readme()
	assert.False(t, ok)

	require.NoError(t, fs.Add(ids.MustPackagePath("/ReadMe.md"), []byte("# hi")))

	path, content, ok := fs.Readme()
	require.True(t, ok)
	assert.Equal(t, ids.PackagePath("/ReadMe.md"), path)
	assert.Equal(t, "# hi", string(content))
}

func TestPathSet(t *testing.T) {
	t.Parallel()

	s := ids.PathSetOf(
		ids.MustPackagePath("/mod.ts"),
		ids.MustPackagePath("/deps.ts"),
	)

	assert.True(t, s.Contains(ids.MustPackagePath("/MOD.TS")))
	assert.False(t, s.Contains(ids.MustPackagePath("/other.ts")))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []ids.PackagePath{"/mod.ts", "/deps.ts"}, s.Paths())

	err := s.Add(ids.MustPackagePath("/Mod.Ts"))
	assert.ErrorIs(t, err, ids.ErrDuplicatePath)
}
