package ast

// ImportKind distinguishes the syntactic forms that pull in another module.
type ImportKind string

// Import kinds.
const (
	ImportStatic         ImportKind = "import"
	ImportReExport       ImportKind = "re-export"
	ImportRequire        ImportKind = "require"
	ImportDynamic        ImportKind = "dynamic"
	ImportTypesReference ImportKind = "types-reference"
)

// DependencyRef is one static reference from a module to another specifier.
type DependencyRef struct {
	Specifier  string
	Kind       ImportKind
	TypeOnly   bool
	Span       Span
	Attributes *ImportAttributes
}

// Dependencies returns the module's dependency references: import
// declarations, re-exports with a source, and external import-equals
// declarations in source order, followed by dynamic imports with
// statically known specifiers.
func (m *Module) Dependencies() []DependencyRef {
	var out []DependencyRef
	for _, s := range m.Body {
		switch d := s.(type) {
		case *ImportDecl:
			out = append(out, DependencyRef{
				Specifier:  d.Specifier,
				Kind:       ImportStatic,
				TypeOnly:   d.TypeOnly,
				Span:       d.SpecifierSpan,
				Attributes: d.Attributes,
			})
		case *ExportNamedDecl:
			if !d.HasSpecifier {
				continue
			}

			out = append(out, DependencyRef{
				Specifier:  d.Specifier,
				Kind:       ImportReExport,
				TypeOnly:   d.TypeOnly,
				Span:       d.SpecifierSpan,
				Attributes: d.Attributes,
			})
		case *ExportAllDecl:
			out = append(out, DependencyRef{
				Specifier:  d.Specifier,
				Kind:       ImportReExport,
				Span:       d.SpecifierSpan,
				Attributes: d.Attributes,
			})
		case *ImportEqualsDecl:
			if !d.Ref.External {
				continue
			}

			out = append(out, DependencyRef{
				Specifier: d.Ref.Specifier,
				Kind:      ImportRequire,
				Span:      d.Pos,
			})
		}
	}

	return append(out, m.Dynamic...)
}
