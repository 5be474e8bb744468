// Package source provides the module loaders behind graph construction:
// an in-memory loader over an uploaded file set, and an object-store
// loader used when rebuilding artifacts for already-published versions.
// Both route external schemes the same way, so graphs look identical no
// matter where bytes come from.
package source

import (
	"context"
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/pkggate/pkggate/pkg/ast"
	"github.com/pkggate/pkggate/pkg/graph"
	"github.com/pkggate/pkggate/pkg/ids"
)

// externalSchemes lists specifier schemes resolved outside the package.
var externalSchemes = map[string]bool{
	"http":       true,
	"https":      true,
	"node":       true,
	"npm":        true,
	"jsr":        true,
	"bun":        true,
	"virtual":    true,
	"cloudflare": true,
}

// MemoryLoader serves file specifiers straight from the uploaded file set.
type MemoryLoader struct {
	Files *ids.FileSet
}

// Load implements graph.Loader.
func (l *MemoryLoader) Load(_ context.Context, specifier *url.URL) (graph.LoadResult, error) {
	switch {
	case specifier.Scheme == "file":
		path, err := ids.NewPackagePath(specifier.Path)
		if err != nil {
			return graph.LoadResult{Kind: graph.LoadNotFound}, nil
		}

		content, ok := l.Files.Get(path)
		if !ok {
			return graph.LoadResult{Kind: graph.LoadNotFound}, nil
		}

		return graph.LoadResult{Kind: graph.LoadModule, Content: content}, nil
	case externalSchemes[specifier.Scheme]:
		return graph.LoadResult{Kind: graph.LoadExternal}, nil
	case specifier.Scheme == "data":
		return loadDataURL(specifier), nil
	default:
		return graph.LoadResult{Kind: graph.LoadNotFound}, nil
	}
}

// loadDataURL decodes an inline data specifier. Malformed payloads behave
// like missing modules.
func loadDataURL(u *url.URL) graph.LoadResult {
	meta, payload, ok := strings.Cut(u.Opaque, ",")
	if !ok {
		return graph.LoadResult{Kind: graph.LoadNotFound}
	}

	isBase64 := strings.HasSuffix(meta, ";base64")
	meta = strings.TrimSuffix(meta, ";base64")

	mime := meta
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}

	var content []byte
	if isBase64 {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return graph.LoadResult{Kind: graph.LoadNotFound}
		}

		content = decoded
	} else {
		decoded, err := url.PathUnescape(payload)
		if err != nil {
			return graph.LoadResult{Kind: graph.LoadNotFound}
		}

		content = []byte(decoded)
	}

	return graph.LoadResult{
		Kind:      graph.LoadModule,
		Content:   content,
		MediaType: mediaForMime(mime),
	}
}

func mediaForMime(mime string) ast.MediaType {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "application/typescript", "text/typescript":
		return ast.MediaTypeScript
	case "application/javascript", "text/javascript", "application/ecmascript", "text/ecmascript":
		return ast.MediaJavaScript
	case "application/json", "text/json":
		return ast.MediaJSON
	case "text/jsx":
		return ast.MediaJsx
	case "text/tsx":
		return ast.MediaTsx
	default:
		return ast.MediaUnknown
	}
}
