package graph

import (
	"context"
	"net/url"

	"github.com/pkggate/pkggate/pkg/ast"
)

// LoadKind is the outcome class of a Loader call.
type LoadKind int

// Load outcomes.
const (
	// LoadModule means content was produced and the specifier belongs to
	// the graph as a concrete module.
	LoadModule LoadKind = iota

	// LoadExternal means the specifier lives outside the package and is
	// kept as a leaf node.
	LoadExternal

	// LoadNotFound means the specifier matched nothing.
	LoadNotFound
)

// LoadResult is a successful Loader response. MediaType is set only when
// the loader knows better than the specifier path, such as for data URLs.
type LoadResult struct {
	Kind      LoadKind
	Content   []byte
	MediaType ast.MediaType
}

// Loader fetches module content by specifier. Implementations route on
// scheme: package files, external registries, inline data. An error return
// is infrastructural and aborts the build; absence is expressed through
// LoadNotFound.
type Loader interface {
	Load(ctx context.Context, specifier *url.URL) (LoadResult, error)
}

// Resolver turns a raw import specifier into an absolute module URL
// against the importing module.
type Resolver interface {
	Resolve(specifier string, referrer *url.URL) (*url.URL, error)
}
