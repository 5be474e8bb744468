package tarball

import (
	"context"
	"fmt"

	"github.com/pkggate/pkggate/pkg/ids"
)

// FileProvider supplies the contents packed into a tarball. Fresh
// publishes read from an in-memory file set; rebuilds read from object
// storage through the same loader that fed the module graph.
type FileProvider interface {
	Paths() []ids.PackagePath
	Read(ctx context.Context, path ids.PackagePath) ([]byte, error)
}

// MemoryFiles serves a FileSet already held in memory.
type MemoryFiles struct {
	Set *ids.FileSet
}

// Paths implements FileProvider.
func (f MemoryFiles) Paths() []ids.PackagePath { return f.Set.Paths() }

// Read implements FileProvider.
func (f MemoryFiles) Read(_ context.Context, path ids.PackagePath) ([]byte, error) {
	content, ok := f.Set.Get(path)
	if !ok {
		return nil, fmt.Errorf("file %s is not in the set", path)
	}

	return content, nil
}
