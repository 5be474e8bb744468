package docs

import (
	"bytes"
	"encoding/json"
	"strings"
)

// MarshalJSON encodes the collection as a JSON object keyed by module
// specifier, in root order.
func (d *ByModule) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, u := range d.urls {
		if i > 0 {
			buf.WriteByte(',')
		}

		kb, err := json.Marshal(u)
		if err != nil {
			return nil, err
		}

		nodes := d.nodes[u]
		if nodes == nil {
			nodes = []Node{}
		}

		vb, err := json.Marshal(nodes)
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

// SearchRecord is one search-index entry: enough to find and rank a
// symbol without carrying its full doc node.
type SearchRecord struct {
	Name     string   `json:"name"`
	Kind     NodeKind `json:"kind"`
	File     string   `json:"file"`
	Doc      string   `json:"doc,omitempty"`
	Location Location `json:"location"`
}

// SearchIndex derives search records for every public symbol, in module
// then declaration order. rewrite maps module specifiers to the export
// key users import them by; unmapped modules keep their specifier.
func SearchIndex(d *ByModule, rewrite map[string]string) []SearchRecord {
	records := []SearchRecord{}

	for _, u := range d.urls {
		file := u
		if mapped, ok := rewrite[u]; ok {
			file = mapped
		}

		for _, n := range d.nodes[u] {
			if n.Kind == KindModuleDoc || n.DeclarationKind == DeclPrivate {
				continue
			}

			records = append(records, SearchRecord{
				Name:     n.Name,
				Kind:     n.Kind,
				File:     file,
				Doc:      docSummary(n.JSDoc),
				Location: n.Location,
			})
		}
	}

	return records
}

// docSummary reduces doc text to its first non-empty line.
func docSummary(doc string) string {
	for _, line := range strings.Split(doc, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}

	return ""
}
