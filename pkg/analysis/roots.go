package analysis

import (
	"net/url"
	"strings"

	"github.com/pkggate/pkggate/pkg/diag"
	"github.com/pkggate/pkggate/pkg/ids"
)

// entrypoints turns the export map into graph roots in declaration order.
// It returns the root URLs, the main entrypoint URL (empty without a "."
// export), and the URL-to-export-key rewrite map used by the search
// index. contains, when non-nil, requires every entrypoint to exist in
// the uploaded set; rebuilds pass nil and let the graph build surface
// missing files.
func entrypoints(
	exports *ids.ExportsMap,
	contains func(ids.PackagePath) bool,
	manifest string,
) (roots []*url.URL, main string, rewrite map[string]string, err error) {
	rewrite = make(map[string]string, exports.Len())

	for _, key := range exports.Keys() {
		target, _ := exports.Get(key)

		path, err := ids.NewPackagePath(strings.TrimPrefix(target, "."))
		if err != nil {
			e := diag.Errorf(diag.KindInvalidPath, "export %q references an invalid entrypoint %q", key, target)
			return nil, "", nil, e.Wrap(err).At(manifest)
		}

		if contains != nil && !contains(path) {
			e := diag.Errorf(diag.KindExportsInvalid, "export %q references entrypoint %q which does not exist", key, target)
			return nil, "", nil, e.At(manifest)
		}

		u := &url.URL{Scheme: "file", Path: path.String()}
		roots = append(roots, u)
		rewrite[u.String()] = key

		if key == "." {
			main = u.String()
		}
	}

	return roots, main, rewrite, nil
}
