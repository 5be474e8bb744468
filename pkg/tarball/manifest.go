package tarball

import (
	"encoding/json"
	"strings"

	"github.com/pkggate/pkggate/pkg/deps"
	"github.com/pkggate/pkggate/pkg/ids"
)

// compatScope is the npm scope that carries registry packages. A registry
// package @scope/name is published to npm as @jsr/scope__name, so one
// scope mapping in a consumer's npmrc covers every registry dependency.
const compatScope = "@jsr"

type manifest struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Homepage     string            `json:"homepage,omitempty"`
	Type         string            `json:"type"`
	Exports      *ids.ExportsMap   `json:"exports"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

func buildManifest(opts Options) ([]byte, error) {
	m := manifest{
		Name:    CompatName(opts.Member.Scope, opts.Member.Name),
		Version: opts.Member.Version.String(),
		Type:    "module",
		Exports: opts.Member.Exports,
	}

	if opts.RegistryURL != "" {
		m.Homepage = strings.TrimSuffix(opts.RegistryURL, "/") + "/" + opts.Member.DisplayName()
	}

	if len(opts.Dependencies) > 0 {
		m.Dependencies = make(map[string]string, len(opts.Dependencies))
		for _, d := range opts.Dependencies {
			name := dependencyName(d)
			if _, ok := m.Dependencies[name]; ok {
				continue
			}

			m.Dependencies[name] = d.Constraint
		}
	}

	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}

	return append(out, '\n'), nil
}

// CompatName returns the npm package name a registry package is published
// under, such as @jsr/std__path for @std/path.
func CompatName(scope ids.ScopeName, name ids.PackageName) string {
	return compatScope + "/" + string(scope) + "__" + string(name)
}

func dependencyName(d deps.Dependency) string {
	if d.Registry == deps.RegistryJSR {
		return compatScope + "/" + strings.ReplaceAll(strings.TrimPrefix(d.Name, "@"), "/", "__")
	}

	return d.Name
}
