package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/pkggate/pkggate/pkg/analysis"
	"github.com/pkggate/pkggate/pkg/ids"
)

// Format mode constants.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

const (
	percentageValue = 100
	yamlIndent      = 2
)

// ErrUnknownFormat indicates a --format value outside text, json, yaml.
var ErrUnknownFormat = errors.New("unknown output format")

func checkFormat(format string) error {
	switch format {
	case FormatText, FormatJSON, FormatYAML:
		return nil
	default:
		return fmt.Errorf("%w: %q (expected text, json, or yaml)", ErrUnknownFormat, format)
	}
}

// Report summarizes a successful publish analysis for rendering.
type Report struct {
	Package        string        `json:"package"                   yaml:"package"`
	Version        string        `json:"version"                   yaml:"version"`
	MainEntrypoint string        `json:"main_entrypoint,omitempty" yaml:"main_entrypoint,omitempty"`
	Modules        int           `json:"modules"                   yaml:"modules"`
	ReadmePath     string        `json:"readme_path,omitempty"     yaml:"readme_path,omitempty"`
	Dependencies   []ReportDep   `json:"dependencies"              yaml:"dependencies"`
	Score          ReportScore   `json:"score"                     yaml:"score"`
	Tarball        ReportTarball `json:"tarball"                   yaml:"tarball"`
}

// ReportDep is one external dependency row.
type ReportDep struct {
	Kind       string `json:"kind"       yaml:"kind"`
	Name       string `json:"name"       yaml:"name"`
	Constraint string `json:"constraint" yaml:"constraint"`
}

// ReportScore mirrors the stored documentation-quality metrics.
type ReportScore struct {
	HasReadme            bool    `json:"has_readme"                    yaml:"has_readme"`
	HasReadmeExamples    bool    `json:"has_readme_examples"           yaml:"has_readme_examples"`
	AllEntrypointsDocs   bool    `json:"all_entrypoints_docs"          yaml:"all_entrypoints_docs"`
	PercentageDocumented float32 `json:"percentage_documented_symbols" yaml:"percentage_documented_symbols"`
	AllFastCheck         bool    `json:"all_fast_check"                yaml:"all_fast_check"`
}

// ReportTarball describes the packed npm archive.
type ReportTarball struct {
	Size   int64  `json:"size"   yaml:"size"`
	SHA1   string `json:"sha1"   yaml:"sha1"`
	SHA512 string `json:"sha512" yaml:"sha512"`
}

// buildReport flattens an analysis output into the rendered shape.
func buildReport(member *ids.Member, out *analysis.Output) Report {
	deps := make([]ReportDep, 0, len(out.Dependencies))
	for _, d := range out.Dependencies {
		deps = append(deps, ReportDep{
			Kind:       string(d.Registry),
			Name:       d.Name,
			Constraint: d.Constraint,
		})
	}

	return Report{
		Package:        member.DisplayName(),
		Version:        member.Version.String(),
		MainEntrypoint: out.MainEntrypoint,
		Modules:        len(out.ModuleGraph),
		ReadmePath:     out.ReadmePath,
		Dependencies:   deps,
		Score: ReportScore{
			HasReadme:            out.Score.HasReadme,
			HasReadmeExamples:    out.Score.HasReadmeExamples,
			AllEntrypointsDocs:   out.Score.AllEntrypointsDocs,
			PercentageDocumented: out.Score.PercentageDocumentedSymbols,
			AllFastCheck:         out.Score.AllFastCheck,
		},
		Tarball: ReportTarball{
			Size:   out.Tarball.Size,
			SHA1:   out.Tarball.SHA1,
			SHA512: out.Tarball.SHA512,
		},
	}
}

// writeReport renders the report in the requested format.
func writeReport(writer io.Writer, format string, report Report) error {
	switch format {
	case FormatJSON:
		return writeJSONReport(writer, report)
	case FormatYAML:
		return writeYAMLReport(writer, report)
	default:
		return writeTextReport(writer, report)
	}
}

func writeJSONReport(writer io.Writer, report Report) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(report)
}

func writeYAMLReport(writer io.Writer, report Report) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(yamlIndent)

	err := encoder.Encode(report)
	if err != nil {
		return err
	}

	return encoder.Close()
}

func writeTextReport(writer io.Writer, report Report) error {
	color.New(color.FgGreen).Fprintf(writer, "%s@%s passed publish analysis\n\n", report.Package, report.Version)

	fmt.Fprintln(writer, renderSummaryTable(report))

	if len(report.Dependencies) > 0 {
		fmt.Fprintln(writer)
		fmt.Fprintln(writer, renderDependencyTable(report.Dependencies))
	}

	return nil
}

func renderSummaryTable(report Report) string {
	tbl := newPlainTable()

	mainEntry := report.MainEntrypoint
	if mainEntry == "" {
		mainEntry = "(none)"
	}

	readme := report.ReadmePath
	if readme == "" {
		readme = "(none)"
	}

	tbl.AppendRows([]table.Row{
		{"main entrypoint", mainEntry},
		{"modules", report.Modules},
		{"readme", readme},
		{"type surface checked", yesNo(report.Score.AllFastCheck)},
		{"entrypoints documented", yesNo(report.Score.AllEntrypointsDocs)},
		{"symbols documented", fmt.Sprintf("%.0f%%", report.Score.PercentageDocumented*percentageValue)},
		{"tarball size", fmt.Sprintf("%d bytes", report.Tarball.Size)},
		{"tarball sha512", report.Tarball.SHA512},
	})

	return tbl.Render()
}

func renderDependencyTable(deps []ReportDep) string {
	tbl := newPlainTable()
	tbl.AppendHeader(table.Row{"kind", "name", "constraint"})

	for _, d := range deps {
		tbl.AppendRow(table.Row{d.Kind, d.Name, d.Constraint})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d dependencies", len(deps))})

	return tbl.Render()
}

func newPlainTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateHeader = false

	return tbl
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}

	return "no"
}
