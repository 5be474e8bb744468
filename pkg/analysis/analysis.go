// Package analysis runs the publish-time pipeline for one package
// version: module graph construction and validation, type surface
// checking, dependency collection, language policy enforcement,
// documentation extraction and scoring, and npm tarball assembly.
//
// Pipeline failures split two ways. Rejections of the uploaded package
// are *diag.Error values and identify what the publisher must fix;
// infrastructure failures (storage, cancellation) are plain errors and
// mean the run can be retried.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pkggate/pkggate/pkg/ast"
	"github.com/pkggate/pkggate/pkg/deps"
	"github.com/pkggate/pkggate/pkg/docs"
	"github.com/pkggate/pkggate/pkg/esparse"
	"github.com/pkggate/pkggate/pkg/fastcheck"
	"github.com/pkggate/pkggate/pkg/graph"
	"github.com/pkggate/pkggate/pkg/ids"
	"github.com/pkggate/pkggate/pkg/policy"
	"github.com/pkggate/pkggate/pkg/score"
	"github.com/pkggate/pkggate/pkg/source"
	"github.com/pkggate/pkggate/pkg/tarball"
)

// defaultManifestPath anchors export map rejections when the request does
// not name its manifest.
const defaultManifestPath = "/pkggate.json"

// Request describes one publish analysis run.
type Request struct {
	// RegistryURL is the public base URL of the registry.
	RegistryURL string

	// Member is the package version being published, including its export
	// map.
	Member *ids.Member

	// Files holds the uploaded file contents.
	Files *ids.FileSet

	// ManifestPath names the manifest file export map errors point at.
	// Empty selects /pkggate.json.
	ManifestPath string
}

// ModuleSnapshot is the stored per-module record of the validated graph,
// keyed by package path in Output.ModuleGraph.
type ModuleSnapshot struct {
	MediaType       ast.MediaType        `json:"mediaType"`
	Dependencies    []SnapshotDependency `json:"dependencies,omitempty"`
	TypesDependency string               `json:"typesDependency,omitempty"`
}

// SnapshotDependency is one resolved import edge of a stored module.
type SnapshotDependency struct {
	Specifier string `json:"specifier"`
	Resolved  string `json:"resolved,omitempty"`
	TypeOnly  bool   `json:"typeOnly,omitempty"`
	Dynamic   bool   `json:"dynamic,omitempty"`
}

// Output carries everything a successful analysis produced.
type Output struct {
	// MainEntrypoint is the module URL of the "." export, or empty when
	// the export map has no main entry.
	MainEntrypoint string

	// Graph is the validated module graph.
	Graph *graph.Graph

	// ModuleGraph is the path-keyed snapshot of every package-internal
	// module, the shape stored alongside the version.
	ModuleGraph map[string]ModuleSnapshot

	// Dependencies is the validated external dependency list in
	// first-seen order.
	Dependencies []deps.Dependency

	// FastCheck is the per-module type surface outcome.
	FastCheck *fastcheck.Result

	// AllFastCheck reports whether every script root has a checkable or
	// externally typed surface.
	AllFastCheck bool

	// Docs holds the extracted documentation nodes per module.
	Docs *docs.ByModule

	// DocsJSON is the stored documentation artifact.
	DocsJSON json.RawMessage

	// SearchJSON is the derived search index fragment.
	SearchJSON json.RawMessage

	// Tarball is the packed npm-compatible archive.
	Tarball *tarball.Tarball

	// ReadmePath is the package path of the readme, or empty.
	ReadmePath string

	// Score holds the documentation quality metrics.
	Score score.Metrics
}

// Analyzer runs analyses. The zero value is usable; fields override the
// collaborators one at a time.
type Analyzer struct {
	// Parser overrides the syntax parser.
	Parser esparse.Parser

	// Checker overrides the type surface checker.
	Checker fastcheck.Checker

	// Packer overrides the tarball packer.
	Packer tarball.Packer

	// Workers bounds graph build concurrency; zero selects the builder
	// default.
	Workers int

	// Logger receives per-phase debug records. Nil selects slog.Default.
	Logger *slog.Logger
}

var sharedParser = esparse.NewTreeSitter()

func (a *Analyzer) parser() esparse.Parser {
	if a.Parser != nil {
		return a.Parser
	}

	return sharedParser
}

func (a *Analyzer) checker() fastcheck.Checker {
	if a.Checker != nil {
		return a.Checker
	}

	return fastcheck.SymbolChecker{}
}

func (a *Analyzer) packer() tarball.Packer {
	if a.Packer != nil {
		return a.Packer
	}

	return tarball.NpmPacker{}
}

func (a *Analyzer) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}

	return slog.Default()
}

// AnalyzePackage runs the full publish pipeline over an uploaded file
// set. The first rejection aborts the run and is returned as a
// *diag.Error.
func (a *Analyzer) AnalyzePackage(ctx context.Context, req Request) (*Output, error) {
	log := a.logger().With(
		"package", req.Member.DisplayName(),
		"version", req.Member.Version.String(),
	)

	manifest := req.ManifestPath
	if manifest == "" {
		manifest = defaultManifestPath
	}

	roots, main, rewrite, err := entrypoints(req.Member.Exports, req.Files.Contains, manifest)
	if err != nil {
		return nil, err
	}

	log.Debug("building module graph", "roots", len(roots), "files", req.Files.Len())

	b := &graph.Builder{
		Loader:   &source.MemoryLoader{Files: req.Files},
		Resolver: &deps.WorkspaceResolver{Member: req.Member},
		Parser:   a.parser(),
		Workers:  a.Workers,
	}

	g, err := b.Build(ctx, roots)
	if err != nil {
		return nil, fmt.Errorf("building module graph: %w", err)
	}

	if err := g.Valid(); err != nil {
		return nil, err
	}

	fc, err := a.checker().Check(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("checking type surface: %w", err)
	}

	set, err := deps.Collect(g)
	if err != nil {
		return nil, err
	}

	if err := policy.CheckGraph(g); err != nil {
		return nil, err
	}

	allFastCheck := fc.AllRoots(g)

	log.Debug("validated module graph",
		"modules", g.Len(),
		"dependencies", set.Len(),
		"fast_check", allFastCheck,
	)

	docNodes, err := docs.ExtractGraph(g)
	if err != nil {
		return nil, fmt.Errorf("extracting documentation: %w", err)
	}

	tb, err := a.packer().Pack(ctx, tarball.Options{
		RegistryURL:  req.RegistryURL,
		Member:       req.Member,
		Files:        tarball.MemoryFiles{Set: req.Files},
		Dependencies: set.List(),
	})
	if err != nil {
		return nil, fmt.Errorf("packing npm tarball: %w", err)
	}

	readmePath, readme, hasReadme := req.Files.Readme()
	if hasReadme && readme == nil {
		readme = []byte{}
	}

	metrics := score.Evaluate(main, docNodes, readme, allFastCheck)

	docsJSON, err := json.Marshal(docNodes)
	if err != nil {
		return nil, fmt.Errorf("encoding documentation: %w", err)
	}

	searchJSON, err := json.Marshal(docs.SearchIndex(docNodes, rewrite))
	if err != nil {
		return nil, fmt.Errorf("encoding search index: %w", err)
	}

	out := &Output{
		MainEntrypoint: main,
		Graph:          g,
		ModuleGraph:    snapshotGraph(g),
		Dependencies:   set.List(),
		FastCheck:      fc,
		AllFastCheck:   allFastCheck,
		Docs:           docNodes,
		DocsJSON:       docsJSON,
		SearchJSON:     searchJSON,
		Tarball:        tb,
		Score:          metrics,
	}
	if hasReadme {
		out.ReadmePath = readmePath.String()
	}

	log.Debug("analysis complete",
		"tarball_bytes", tb.Size,
		"doc_modules", docNodes.Len(),
		"readme", out.ReadmePath,
	)

	return out, nil
}

// snapshotGraph reduces a validated graph to the stored module records.
// Only package-internal modules appear; externals are reachable through
// the recorded edges.
func snapshotGraph(g *graph.Graph) map[string]ModuleSnapshot {
	out := make(map[string]ModuleSnapshot)

	for _, m := range g.Modules() {
		if m.Specifier.Scheme != "file" {
			continue
		}

		snap := ModuleSnapshot{MediaType: m.MediaType}
		if m.TypesDependency != nil {
			snap.TypesDependency = m.TypesDependency.String()
		}

		for _, dep := range m.Dependencies {
			sd := SnapshotDependency{
				Specifier: dep.Specifier,
				TypeOnly:  dep.TypeOnly,
				Dynamic:   dep.Kind == ast.ImportDynamic,
			}
			if dep.Resolved != nil {
				sd.Resolved = dep.Resolved.String()
			}

			snap.Dependencies = append(snap.Dependencies, sd)
		}

		out[m.Specifier.Path] = snap
	}

	return out
}
