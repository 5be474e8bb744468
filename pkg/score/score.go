// Package score computes the documentation-quality metrics of a package
// version from its doc nodes, its readme, and the type-surface outcome.
// The metrics feed the registry's package score; they never fail a
// publish.
package score

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/pkggate/pkggate/pkg/docs"
)

// indentedCodeBlockRe finds a markdown indented code block: a blank line
// followed by a line starting with four spaces or a tab.
var indentedCodeBlockRe = regexp.MustCompile("\n\\s*?\n( {4}|\t)[^\\S\n]*\\S")

// Metrics is the quality record stored with a published version.
type Metrics struct {
	HasReadme                   bool    `json:"has_readme"`
	HasReadmeExamples           bool    `json:"has_readme_examples"`
	AllEntrypointsDocs          bool    `json:"all_entrypoints_docs"`
	PercentageDocumentedSymbols float32 `json:"percentage_documented_symbols"`
	AllFastCheck                bool    `json:"all_fast_check"`
	HasProvenance               bool    `json:"has_provenance"`
}

// Evaluate computes the metrics. mainEntrypoint is the specifier of the
// "." export, or empty when the package has none. readme is the readme
// file's content; nil means the package ships no readme (empty content
// still counts as shipping one). HasProvenance is decided after publish
// and always starts false.
func Evaluate(mainEntrypoint string, nodes *docs.ByModule, readme []byte, allFastCheck bool) Metrics {
	hasReadme := readme != nil
	mainDoc, hasMainDoc := mainModuleDoc(mainEntrypoint, nodes)

	return Metrics{
		HasReadme:                   hasReadme || (hasMainDoc && mainDoc != ""),
		HasReadmeExamples:           hasExamples(readme, mainDoc, hasMainDoc),
		AllEntrypointsDocs:          allEntrypointsHaveDocs(nodes, mainEntrypoint, hasReadme),
		PercentageDocumentedSymbols: percentageDocumented(nodes),
		AllFastCheck:                allFastCheck,
	}
}

// mainModuleDoc returns the module doc text of the main entrypoint.
func mainModuleDoc(mainEntrypoint string, nodes *docs.ByModule) (string, bool) {
	if mainEntrypoint == "" {
		return "", false
	}

	for _, n := range nodes.Nodes(mainEntrypoint) {
		if n.Kind == docs.KindModuleDoc {
			return n.JSDoc, true
		}
	}

	return "", false
}

// hasExamples reports whether the readme or the main module doc carries a
// code example: a fenced block, an indented block (readme only), or an
// @example tag (module doc only).
func hasExamples(readme []byte, mainDoc string, hasMainDoc bool) bool {
	if readme != nil {
		if bytes.Contains(readme, []byte("```")) || bytes.Contains(readme, []byte("~~~")) {
			return true
		}

		if indentedCodeBlockRe.Match(readme) {
			return true
		}
	}

	if hasMainDoc {
		if strings.Contains(mainDoc, "```") || strings.Contains(mainDoc, "~~~") {
			return true
		}

		if hasExampleTag(mainDoc) {
			return true
		}
	}

	return false
}

// hasExampleTag reports whether doc text carries a JSDoc @example tag.
func hasExampleTag(doc string) bool {
	for _, line := range strings.Split(doc, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "@example" || strings.HasPrefix(trimmed, "@example ") {
			return true
		}
	}

	return false
}

// allEntrypointsHaveDocs reports whether every entrypoint module carries
// a module doc. The main entrypoint may substitute a readme for its
// module doc.
func allEntrypointsHaveDocs(nodes *docs.ByModule, mainEntrypoint string, hasReadme bool) bool {
modules:
	for _, specifier := range nodes.Modules() {
		for _, n := range nodes.Nodes(specifier) {
			if n.Kind == docs.KindModuleDoc {
				continue modules
			}
		}

		if specifier == mainEntrypoint && hasReadme {
			continue
		}

		return false
	}

	return true
}

// percentageDocumented is the share of public symbols with doc text.
// Module docs and private declarations are not symbols; zero eligible
// symbols count as fully documented.
func percentageDocumented(nodes *docs.ByModule) float32 {
	var total, documented int

	for _, specifier := range nodes.Modules() {
		for _, n := range nodes.Nodes(specifier) {
			if n.Kind == docs.KindModuleDoc || n.DeclarationKind == docs.DeclPrivate {
				continue
			}

			total++

			if n.Documented() {
				documented++
			}
		}
	}

	if total == 0 {
		return 1.0
	}

	return float32(documented) / float32(total)
}
