package ids

// Member identifies the package version being analyzed: its scoped name,
// version, and declared export map.
type Member struct {
	Scope   ScopeName
	Name    PackageName
	Version Version
	Exports *ExportsMap
}

// DisplayName returns the canonical "@scope/name" form.
func (m *Member) DisplayName() string {
	return ScopedName(m.Scope, m.Name)
}
