package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkggate/pkggate/internal/manifest"
	"github.com/pkggate/pkggate/pkg/analysis"
	"github.com/pkggate/pkggate/pkg/deps"
	"github.com/pkggate/pkggate/pkg/ids"
	"github.com/pkggate/pkggate/pkg/score"
	"github.com/pkggate/pkggate/pkg/tarball"
)

const flagManifest = `{
  "name": "@luca/flag",
  "version": "1.0.0",
  "exports": {".": "./mod.ts"}
}`

const flagModule = `/** Flag helpers. */

export const flag: string = "--verbose";
`

// writePackageDir builds a package directory with a manifest and files.
// File names use forward slashes relative to the package root.
func writePackageDir(t *testing.T, manifestJSON string, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, manifest.Filename), []byte(manifestJSON), 0o600))

	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	return dir
}

func TestCollectFiles_SkipsVCSAndNodeModules(t *testing.T) {
	t.Parallel()

	dir := writePackageDir(t, flagManifest, map[string]string{
		"mod.ts":                "export {};\n",
		".git/config":           "[core]\n",
		"node_modules/x/idx.js": "module.exports = {};\n",
	})

	files, err := collectFiles(dir)
	require.NoError(t, err)

	assert.Equal(t, 2, files.Len())
	assert.True(t, files.Contains("/mod.ts"))
	assert.True(t, files.Contains("/"+manifest.Filename))
	assert.False(t, files.Contains("/.git/config"))
	assert.False(t, files.Contains("/node_modules/x/idx.js"))
}

func TestCollectFiles_NestedFilesKeepForwardSlashPaths(t *testing.T) {
	t.Parallel()

	dir := writePackageDir(t, flagManifest, map[string]string{
		"mod.ts":      "export {};\n",
		"lib/util.ts": "export {};\n",
	})

	files, err := collectFiles(dir)
	require.NoError(t, err)

	assert.True(t, files.Contains("/lib/util.ts"))
}

// Full-command tests run serially: telemetry setup swaps the global
// OpenTelemetry providers and --no-color writes a package-level global.

func TestAnalyzeCommand_TextOutput(t *testing.T) {
	dir := writePackageDir(t, flagManifest, map[string]string{"mod.ts": flagModule})

	var stdout, stderr bytes.Buffer

	cmd := NewAnalyzeCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{dir, "--no-color"})

	err := cmd.Execute()
	require.NoError(t, err)

	out := stdout.String()
	assert.Contains(t, out, "@luca/flag@1.0.0 passed publish analysis")
	assert.Contains(t, out, "main entrypoint")
	assert.Contains(t, out, "file:///mod.ts")
	assert.Contains(t, out, "tarball sha512")
}

func TestAnalyzeCommand_JSONOutput(t *testing.T) {
	dir := writePackageDir(t, flagManifest, map[string]string{"mod.ts": flagModule})

	var stdout bytes.Buffer

	cmd := NewAnalyzeCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{dir, "--format", "json"})

	err := cmd.Execute()
	require.NoError(t, err)

	var report Report
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))

	assert.Equal(t, "@luca/flag", report.Package)
	assert.Equal(t, "1.0.0", report.Version)
	assert.Equal(t, "file:///mod.ts", report.MainEntrypoint)
	assert.Equal(t, 1, report.Modules)
	assert.True(t, report.Score.AllFastCheck)
	assert.NotEmpty(t, report.Tarball.SHA512)
	assert.Positive(t, report.Tarball.Size)
}

func TestAnalyzeCommand_WritesTarball(t *testing.T) {
	dir := writePackageDir(t, flagManifest, map[string]string{"mod.ts": flagModule})
	tarballPath := filepath.Join(t.TempDir(), "flag.tgz")

	cmd := NewAnalyzeCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{dir, "--tarball", tarballPath})

	err := cmd.Execute()
	require.NoError(t, err)

	data, readErr := os.ReadFile(tarballPath)
	require.NoError(t, readErr)
	require.Greater(t, len(data), 2)

	// gzip magic bytes.
	assert.Equal(t, byte(0x1f), data[0])
	assert.Equal(t, byte(0x8b), data[1])
}

func TestAnalyzeCommand_MissingEntrypointIsRejected(t *testing.T) {
	missingManifest := `{
  "name": "@luca/flag",
  "version": "1.0.0",
  "exports": {".": "./missing.ts"}
}`
	dir := writePackageDir(t, missingManifest, map[string]string{"mod.ts": flagModule})

	var stderr bytes.Buffer

	cmd := NewAnalyzeCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{dir, "--no-color"})

	err := cmd.Execute()
	require.ErrorIs(t, err, ErrRejected)

	assert.Contains(t, stderr.String(), "publish rejected: exports-invalid")
}

func TestAnalyzeCommand_MissingManifest(t *testing.T) {
	t.Parallel()

	cmd := NewAnalyzeCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{t.TempDir()})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read manifest")
}

func TestAnalyzeCommand_UnknownFormat(t *testing.T) {
	t.Parallel()

	cmd := NewAnalyzeCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{t.TempDir(), "--format", "xml"})

	err := cmd.Execute()
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestBuildReport_MapsOutput(t *testing.T) {
	t.Parallel()

	member := &ids.Member{
		Scope:   "luca",
		Name:    "flag",
		Version: ids.MustVersion("1.0.0"),
		Exports: ids.ExportsFromPairs(".", "./mod.ts"),
	}

	out := &analysis.Output{
		MainEntrypoint: "file:///mod.ts",
		ModuleGraph: map[string]analysis.ModuleSnapshot{
			"/mod.ts": {},
			"/dep.ts": {},
		},
		Dependencies: []deps.Dependency{
			{Registry: deps.RegistryNpm, Name: "chalk", Constraint: "^5"},
		},
		ReadmePath: "/README.md",
		Score: score.Metrics{
			HasReadme:                   true,
			PercentageDocumentedSymbols: 0.5,
			AllFastCheck:                true,
		},
		Tarball: &tarball.Tarball{Size: 42, SHA1: "aa", SHA512: "bb"},
	}

	report := buildReport(member, out)

	assert.Equal(t, "@luca/flag", report.Package)
	assert.Equal(t, "1.0.0", report.Version)
	assert.Equal(t, 2, report.Modules)
	assert.Equal(t, "/README.md", report.ReadmePath)
	assert.Equal(t, []ReportDep{{Kind: "npm", Name: "chalk", Constraint: "^5"}}, report.Dependencies)
	assert.True(t, report.Score.HasReadme)
	assert.InDelta(t, 0.5, report.Score.PercentageDocumented, 0.001)
	assert.Equal(t, int64(42), report.Tarball.Size)
	assert.Equal(t, "bb", report.Tarball.SHA512)
}

func TestWriteReport_YAML(t *testing.T) {
	t.Parallel()

	report := Report{
		Package: "@luca/flag",
		Version: "1.0.0",
		Tarball: ReportTarball{Size: 42, SHA1: "aa", SHA512: "bb"},
	}

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, FormatYAML, report))

	out := buf.String()
	assert.Contains(t, out, "version: 1.0.0")
	assert.Contains(t, out, "sha512: bb")
}
