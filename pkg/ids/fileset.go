package ids

import (
	"errors"
	"fmt"
)

// ErrDuplicatePath is returned when two files collide case-insensitively.
var ErrDuplicatePath = errors.New("duplicate package path")

type fileEntry struct {
	path    PackagePath
	content []byte
}

// FileSet is the immutable-after-build set of files in a package version:
// validated path to raw content. Lookup is case insensitive and iteration
// follows insertion order.
type FileSet struct {
	entries map[string]fileEntry
	order   []PackagePath
}

// NewFileSet returns an empty file set.
func NewFileSet() *FileSet {
	return &FileSet{entries: map[string]fileEntry{}}
}

// Add inserts a file. Paths that collide case-insensitively with an
// existing entry are rejected.
func (fs *FileSet) Add(path PackagePath, content []byte) error {
	key := path.Fold()
	if prev, ok := fs.entries[key]; ok {
		return fmt.Errorf("%w: %q collides with %q", ErrDuplicatePath, path, prev.path)
	}

	fs.entries[key] = fileEntry{path: path, content: content}
	fs.order = append(fs.order, path)

	return nil
}

// Get returns the content stored under path, matched case-insensitively.
func (fs *FileSet) Get(path PackagePath) ([]byte, bool) {
	e, ok := fs.entries[path.Fold()]
	if !ok {
		return nil, false
	}

	return e.content, true
}

// Contains reports whether path is present, matched case-insensitively.
func (fs *FileSet) Contains(path PackagePath) bool {
	_, ok := fs.entries[path.Fold()]
	return ok
}

// Len returns the number of files.
func (fs *FileSet) Len() int { return len(fs.order) }

// Paths returns the stored paths in insertion order.
func (fs *FileSet) Paths() []PackagePath {
	out := make([]PackagePath, len(fs.order))
	copy(out, fs.order)

	return out
}

// Readme returns the first root-level readme file in insertion order.
func (fs *FileSet) Readme() (PackagePath, []byte, bool) {
	for _, p := range fs.order {
		if p.IsReadme() {
			content, _ := fs.Get(p)
			return p, content, true
		}
	}

	return "", nil, false
}

// PathSet is a content-free set of package paths with case-insensitive
// membership. Used when rebuilding artifacts from stored objects, where
// only the file listing is known up front.
type PathSet struct {
	members map[string]PackagePath
	order   []PackagePath
}

// NewPathSet returns an empty path set.
func NewPathSet() *PathSet {
	return &PathSet{members: map[string]PackagePath{}}
}

// PathSetOf builds a set from paths. Intended for tests.
func PathSetOf(paths ...PackagePath) *PathSet {
	s := NewPathSet()
	for _, p := range paths {
		if err := s.Add(p); err != nil {
			panic(err)
		}
	}

	return s
}

// Add inserts a path, rejecting case-insensitive duplicates.
func (s *PathSet) Add(path PackagePath) error {
	key := path.Fold()
	if prev, ok := s.members[key]; ok {
		return fmt.Errorf("%w: %q collides with %q", ErrDuplicatePath, path, prev)
	}

	s.members[key] = path
	s.order = append(s.order, path)

	return nil
}

// Contains reports whether path is a member, matched case-insensitively.
func (s *PathSet) Contains(path PackagePath) bool {
	_, ok := s.members[path.Fold()]
	return ok
}

// Len returns the number of members.
func (s *PathSet) Len() int { return len(s.order) }

// Paths returns the members in insertion order.
func (s *PathSet) Paths() []PackagePath {
	out := make([]PackagePath, len(s.order))
	copy(out, s.order)

	return out
}
