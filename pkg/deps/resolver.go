package deps

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/pkggate/pkggate/pkg/graph"
	"github.com/pkggate/pkggate/pkg/ids"
)

// WorkspaceResolver resolves registry references to the package being
// published back into its own files, so self-imports type check against
// the uploaded sources instead of a registry fetch. Everything else falls
// through to plain URL resolution.
type WorkspaceResolver struct {
	Member *ids.Member
}

// Resolve implements graph.Resolver.
func (r *WorkspaceResolver) Resolve(specifier string, referrer *url.URL) (*url.URL, error) {
	if target, ok, err := r.resolveSelf(specifier); err != nil {
		return nil, err
	} else if ok {
		return target, nil
	}

	return graph.ResolveSpecifier(specifier, referrer)
}

// resolveSelf maps a matching self-reference through the export map. A
// reference matches when it names this package and its constraint admits
// this version. References that match but name an undeclared export are
// errors; everything else falls through.
func (r *WorkspaceResolver) resolveSelf(specifier string) (*url.URL, bool, error) {
	if !strings.HasPrefix(specifier, "jsr:") {
		return nil, false, nil
	}

	ref, err := ParseRef(specifier)
	if err != nil || ref.Name != r.Member.DisplayName() {
		return nil, false, nil
	}

	if !r.constraintAdmits(ref.Constraint) {
		return nil, false, nil
	}

	exportKey := ids.MainExport
	if ref.Subpath != "" {
		exportKey = "./" + ref.Subpath
	}

	target, ok := r.Member.Exports.Get(exportKey)
	if !ok {
		return nil, false, fmt.Errorf(
			"export %q not found in jsr:%s", exportKey, r.Member.DisplayName(),
		)
	}

	base := &url.URL{Scheme: "file", Path: "/"}
	resolved, err := base.Parse(target)
	if err != nil {
		return nil, false, fmt.Errorf("resolving export %q: %w", exportKey, err)
	}

	return resolved, true, nil
}

func (r *WorkspaceResolver) constraintAdmits(constraint string) bool {
	if r.Member.Version.IsZero() {
		return true
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false
	}

	return c.Check(r.Member.Version.Semver())
}
