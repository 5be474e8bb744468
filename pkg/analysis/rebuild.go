package analysis

import (
	"context"
	"fmt"

	"github.com/pkggate/pkggate/pkg/deps"
	"github.com/pkggate/pkggate/pkg/graph"
	"github.com/pkggate/pkggate/pkg/ids"
	"github.com/pkggate/pkggate/pkg/source"
	"github.com/pkggate/pkggate/pkg/tarball"
)

// RebuildRequest describes a tarball rebuild for an already-published
// version. The dependency list was validated at publish time and is
// passed through to the manifest unchanged.
type RebuildRequest struct {
	// RegistryURL is the public base URL of the registry.
	RegistryURL string

	// Member is the published package version.
	Member *ids.Member

	// Paths is the declared file list of the version.
	Paths *ids.PathSet

	// Store holds the version's file contents.
	Store source.ObjectStore

	// StorePrefix locates the version inside the store. Empty selects
	// "@scope/name/version".
	StorePrefix string

	// CacheSize bounds the in-run content cache; zero selects the loader
	// default.
	CacheSize int

	// Dependencies is the dependency list recorded at publish time.
	Dependencies []deps.Dependency
}

// RebuildTarball reassembles the npm tarball of a published version from
// object storage. The graph is rebuilt and revalidated so a corrupted
// store surfaces here rather than in the packed artifact, but policy and
// dependency checks are not repeated.
func (a *Analyzer) RebuildTarball(ctx context.Context, req RebuildRequest) (*tarball.Tarball, error) {
	log := a.logger().With(
		"package", req.Member.DisplayName(),
		"version", req.Member.Version.String(),
	)

	prefix := req.StorePrefix
	if prefix == "" {
		prefix = req.Member.DisplayName() + "/" + req.Member.Version.String()
	}

	roots, _, _, err := entrypoints(req.Member.Exports, nil, defaultManifestPath)
	if err != nil {
		return nil, err
	}

	loader, err := source.NewBucketLoader(req.Paths, req.Store, prefix, req.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("opening stored version: %w", err)
	}

	b := &graph.Builder{
		Loader:   loader,
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

	log.Debug("rebuilt module graph", "modules", g.Len(), "fast_check", fc.AllRoots(g))

	// The loader doubles as the file provider so blobs fetched for the
	// graph are not downloaded again for packing.
	return a.packer().Pack(ctx, tarball.Options{
		RegistryURL:  req.RegistryURL,
		Member:       req.Member,
		Files:        loader,
		Dependencies: req.Dependencies,
	})
}
