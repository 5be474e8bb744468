package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pkggate/pkggate/pkg/graph"
	"github.com/pkggate/pkggate/pkg/ids"
)

const defaultCacheSize = 256

// BucketLoader serves file specifiers for an already-published version out
// of object storage. Membership is checked against the declared path set
// before any fetch, so specifiers outside the version never touch the
// store. An absent object reports the module as not found; only storage
// failures abort the build.
type BucketLoader struct {
	paths  *ids.PathSet
	store  ObjectStore
	prefix string
	cache  *lru.Cache[string, []byte]
}

// NewBucketLoader builds a loader for the version stored under prefix,
// such as "@std/path/1.0.0". cacheSize bounds the content cache; zero
// selects the default.
func NewBucketLoader(paths *ids.PathSet, store ObjectStore, prefix string, cacheSize int) (*BucketLoader, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}

	cache, err := lru.New[string, []byte](cacheSize)
	if err != nil {
		return nil, err
	}

	return &BucketLoader{paths: paths, store: store, prefix: prefix, cache: cache}, nil
}

// Load implements graph.Loader.
func (l *BucketLoader) Load(ctx context.Context, specifier *url.URL) (graph.LoadResult, error) {
	switch {
	case specifier.Scheme == "file":
		path, err := ids.NewPackagePath(specifier.Path)
		if err != nil {
			return graph.LoadResult{Kind: graph.LoadNotFound}, nil
		}

		if !l.paths.Contains(path) {
			return graph.LoadResult{Kind: graph.LoadNotFound}, nil
		}

		key := l.prefix + path.String()
		if content, ok := l.cache.Get(key); ok {
			return graph.LoadResult{Kind: graph.LoadModule, Content: content}, nil
		}

		content, err := l.store.Get(ctx, key)
		if errors.Is(err, ErrObjectNotFound) {
			return graph.LoadResult{Kind: graph.LoadNotFound}, nil
		} else if err != nil {
			return graph.LoadResult{}, fmt.Errorf("fetching %s: %w", path, err)
		}

		l.cache.Add(key, content)

		return graph.LoadResult{Kind: graph.LoadModule, Content: content}, nil
	case externalSchemes[specifier.Scheme]:
		return graph.LoadResult{Kind: graph.LoadExternal}, nil
	case specifier.Scheme == "data":
		return loadDataURL(specifier), nil
	default:
		return graph.LoadResult{Kind: graph.LoadNotFound}, nil
	}
}

// Paths returns the declared paths of the stored version.
func (l *BucketLoader) Paths() []ids.PackagePath { return l.paths.Paths() }

// Read fetches one declared file, reusing the loader's content cache.
// Unlike Load, a missing object is an error: callers read paths the
// version declares, so every one of them must exist.
func (l *BucketLoader) Read(ctx context.Context, path ids.PackagePath) ([]byte, error) {
	if !l.paths.Contains(path) {
		return nil, fmt.Errorf("path %s is not declared by the version", path)
	}

	key := l.prefix + path.String()
	if content, ok := l.cache.Get(key); ok {
		return content, nil
	}

	content, err := l.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}

	l.cache.Add(key, content)

	return content, nil
}
