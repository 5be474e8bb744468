// Package manifest loads and validates pkggate.json, the per-package
// manifest declaring a workspace member's name, version, and export map.
// Documents are checked against an embedded JSON schema before the
// identifier types apply their stricter rules.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/pkggate/pkggate/pkg/ids"
)

// Filename is the manifest file name at the package root.
const Filename = "pkggate.json"

// schemaFile is the embedded schema file name.
const schemaFile = "schema.json"

// schema is compiled once at package load.
var schema = mustCompileSchema()

func mustCompileSchema() *gojsonschema.Schema {
	raw, err := SchemaFS.ReadFile(schemaFile)
	if err != nil {
		panic(err)
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		panic(err)
	}

	return compiled
}

// document mirrors the manifest JSON shape. Exports stays raw because the
// field accepts both the string shorthand and the object form.
type document struct {
	Name    string          `json:"name"`
	Version string          `json:"version"`
	Exports json.RawMessage `json:"exports"`
}

// Load reads the manifest at path and parses it into a workspace member.
func Load(path string) (*ids.Member, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return Parse(data)
}

// Parse validates data against the manifest schema and converts it into a
// workspace member.
func Parse(data []byte) (*ids.Member, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var doc document

	unmarshalErr := json.Unmarshal(data, &doc)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("parse manifest: %w", unmarshalErr)
	}

	scopeRaw, nameRaw, ok := splitScopedName(doc.Name)
	if !ok {
		return nil, fmt.Errorf("manifest name %q must be of the form @scope/name", doc.Name)
	}

	scope, err := ids.NewScopeName(scopeRaw)
	if err != nil {
		return nil, err
	}

	name, err := ids.NewPackageName(nameRaw)
	if err != nil {
		return nil, err
	}

	version, err := ids.NewVersion(doc.Version)
	if err != nil {
		return nil, err
	}

	exports, err := parseExports(doc.Exports)
	if err != nil {
		return nil, err
	}

	return &ids.Member{Scope: scope, Name: name, Version: version, Exports: exports}, nil
}

func validateSchema(data []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate manifest: %w", err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		msgs = append(msgs, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
	}

	return fmt.Errorf("manifest does not match schema: %s", strings.Join(msgs, "; "))
}

// parseExports accepts both manifest export forms: a bare string naming the
// main entrypoint, or an object mapping export keys to entrypoints.
func parseExports(raw json.RawMessage) (*ids.ExportsMap, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var target string

		unmarshalErr := json.Unmarshal(trimmed, &target)
		if unmarshalErr != nil {
			return nil, fmt.Errorf("parse exports: %w", unmarshalErr)
		}

		m := ids.NewExportsMap()
		if err := m.Set(ids.MainExport, target); err != nil {
			return nil, err
		}

		return m, nil
	}

	m := ids.NewExportsMap()

	unmarshalErr := json.Unmarshal(trimmed, m)
	if unmarshalErr != nil {
		return nil, unmarshalErr
	}

	return m, nil
}

func splitScopedName(scoped string) (scope, name string, ok bool) {
	rest, found := strings.CutPrefix(scoped, "@")
	if !found {
		return "", "", false
	}

	scope, name, found = strings.Cut(rest, "/")
	if !found || scope == "" || name == "" {
		return "", "", false
	}

	return scope, name, true
}
