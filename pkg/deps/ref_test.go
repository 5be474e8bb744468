package deps_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkggate/pkggate/pkg/deps"
)

func TestParseRef(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		spec string
		want deps.Ref
	}{
		{
			name: "jsr full",
			spec: "jsr:@std/path@^1.0.0/join",
			want: deps.Ref{Registry: deps.RegistryJSR, Name: "@std/path", Constraint: "^1.0.0", Subpath: "join"},
		},
		{
			name: "jsr no constraint",
			spec: "jsr:@std/path",
			want: deps.Ref{Registry: deps.RegistryJSR, Name: "@std/path", Constraint: "*"},
		},
		{
			name: "jsr leading slash",
			spec: "jsr:/@std/fs@1",
			want: deps.Ref{Registry: deps.RegistryJSR, Name: "@std/fs", Constraint: "1"},
		},
		{
			name: "jsr subpath without constraint",
			spec: "jsr:@std/path/join",
			want: deps.Ref{Registry: deps.RegistryJSR, Name: "@std/path", Constraint: "*", Subpath: "join"},
		},
		{
			name: "npm bare name",
			spec: "npm:chalk@5.2.0",
			want: deps.Ref{Registry: deps.RegistryNpm, Name: "chalk", Constraint: "5.2.0"},
		},
		{
			name: "npm scoped with subpath",
			spec: "npm:@types/node@*/fs",
			want: deps.Ref{Registry: deps.RegistryNpm, Name: "@types/node", Constraint: "*", Subpath: "fs"},
		},
		{
			name: "npm missing constraint",
			spec: "npm:preact/hooks",
			want: deps.Ref{Registry: deps.RegistryNpm, Name: "preact", Constraint: "*", Subpath: "hooks"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := deps.ParseRef(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRefErrors(t *testing.T) {
	t.Parallel()

	for _, spec := range []string{
		"jsr:",
		"jsr:chalk",
		"jsr:@std",
		"jsr:@/path",
		"npm:",
		"npm:chalk@",
		"npm:chalk@not^a^constraint",
		"./relative.ts",
		"http://example.com/mod.ts",
	} {
		_, err := deps.ParseRef(spec)
		assert.ErrorIs(t, err, deps.ErrInvalidRef, spec)
	}
}

func TestRefWildAndString(t *testing.T) {
	t.Parallel()

	wild, err := deps.ParseRef("npm:chalk")
	require.NoError(t, err)
	assert.True(t, wild.Wild())
	assert.Equal(t, "npm:chalk", wild.String())

	pinned, err := deps.ParseRef("jsr:@std/path@^1.0.0/join")
	require.NoError(t, err)
	assert.False(t, pinned.Wild())
	assert.Equal(t, "jsr:@std/path@^1.0.0/join", pinned.String())

	star, err := deps.ParseRef("npm:left-pad@*")
	require.NoError(t, err)
	assert.True(t, star.Wild())
}

func TestDependencySet(t *testing.T) {
	t.Parallel()

	s := deps.NewSet()
	chalk := deps.Dependency{Registry: deps.RegistryNpm, Name: "chalk", Constraint: "^5.0.0"}

	s.Add(chalk)
	s.Add(chalk)
	s.Add(deps.Dependency{Registry: deps.RegistryJSR, Name: "@std/path", Constraint: "^1.0.0"})

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains(chalk))

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "chalk", list[0].Name)
	assert.Equal(t, "@std/path", list[1].Name)
}
