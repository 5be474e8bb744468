package ids

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for export map validation.
var (
	ErrExportKeyInvalid    = errors.New("invalid export key")
	ErrExportTargetInvalid = errors.New("invalid export target")
)

// MainExport is the export key naming the package main entrypoint.
const MainExport = "."

// ExportsMap is an ordered mapping from export key to entrypoint path.
// Keys are "." for the main entrypoint or "./sub/path" for subpath exports;
// targets are "./relative.ts" style paths within the package. Iteration and
// JSON encoding preserve insertion order.
type ExportsMap struct {
	keys    []string
	targets map[string]string
}

// NewExportsMap returns an empty export map.
func NewExportsMap() *ExportsMap {
	return &ExportsMap{targets: map[string]string{}}
}

// ExportsFromPairs builds an export map from alternating key, target pairs.
// Intended for tests.
func ExportsFromPairs(pairs ...string) *ExportsMap {
	if len(pairs)%2 != 0 {
		panic("ids: odd pair count")
	}

	m := NewExportsMap()
	for i := 0; i < len(pairs); i += 2 {
		if err := m.Set(pairs[i], pairs[i+1]); err != nil {
			panic(err)
		}
	}

	return m
}

// Set validates and inserts an export. Re-setting an existing key keeps its
// original position.
func (m *ExportsMap) Set(key, target string) error {
	if err := checkExportKey(key); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrExportKeyInvalid, key, err)
	}

	if err := checkExportTarget(target); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrExportTargetInvalid, target, err)
	}

	if _, ok := m.targets[key]; !ok {
		m.keys = append(m.keys, key)
	}

	m.targets[key] = target

	return nil
}

// Get returns the target for key.
func (m *ExportsMap) Get(key string) (string, bool) {
	t, ok := m.targets[key]
	return t, ok
}

// Main returns the main entrypoint target, if declared.
func (m *ExportsMap) Main() (string, bool) {
	return m.Get(MainExport)
}

// Keys returns the export keys in insertion order.
func (m *ExportsMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)

	return out
}

// Len returns the number of exports.
func (m *ExportsMap) Len() int { return len(m.keys) }

// Clone returns an independent copy preserving order.
func (m *ExportsMap) Clone() *ExportsMap {
	out := NewExportsMap()
	out.keys = append(out.keys, m.keys...)
	for k, v := range m.targets {
		out.targets[k] = v
	}

	return out
}

// MarshalJSON encodes the map as a JSON object in insertion order.
func (m *ExportsMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}

		vb, err := json.Marshal(m.targets[k])
		if err != nil {
			return nil, err
		}

		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, preserving the key order of the
// document.
func (m *ExportsMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}

	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("ids: exports must be a JSON object")
	}

	m.keys = nil
	m.targets = map[string]string{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}

		key, ok := keyTok.(string)
		if !ok {
			return errors.New("ids: export key must be a string")
		}

		var target string
		if err := dec.Decode(&target); err != nil {
			return fmt.Errorf("ids: export %q: target must be a string: %w", key, err)
		}

		if err := m.Set(key, target); err != nil {
			return err
		}
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	return nil
}

func checkExportKey(key string) error {
	if key == MainExport {
		return nil
	}

	if !strings.HasPrefix(key, "./") {
		return errors.New("must be \".\" or start with \"./\"")
	}

	rest := key[2:]
	if rest == "" {
		return errors.New("empty subpath")
	}

	for _, seg := range strings.Split(rest, "/") {
		switch seg {
		case "":
			return errors.New("empty path segment")
		case ".", "..":
			return errors.New("relative path segment")
		}
	}

	return nil
}

func checkExportTarget(target string) error {
	if !strings.HasPrefix(target, "./") {
		return errors.New("must start with \"./\"")
	}

	if target == "./" {
		return errors.New("empty path")
	}

	for _, seg := range strings.Split(target[2:], "/") {
		switch seg {
		case "":
			return errors.New("empty path segment")
		case ".", "..":
			return errors.New("relative path segment")
		}
	}

	return nil
}
