// Package deps handles external registry dependencies: parsing package
// reference specifiers, resolving self-references against the package
// being published, and collecting the validated dependency set from a
// module graph.
package deps

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Registry names a package registry scheme.
type Registry string

// Supported registries.
const (
	RegistryJSR Registry = "jsr"
	RegistryNpm Registry = "npm"
)

// ErrInvalidRef is returned when a registry specifier fails to parse.
var ErrInvalidRef = errors.New("invalid package specifier")

// Wildcard is the constraint meaning any version. References without an
// explicit constraint carry it.
const Wildcard = "*"

// Ref is a parsed registry package reference such as
// "jsr:@std/path@^1.0.0/join" or "npm:chalk@5".
type Ref struct {
	Registry   Registry
	Name       string
	Constraint string
	Subpath    string
}

// Wild reports whether the reference carries the wildcard constraint,
// explicit or implied.
func (r Ref) Wild() bool { return r.Constraint == Wildcard }

// String renders the canonical specifier form.
func (r Ref) String() string {
	s := string(r.Registry) + ":" + r.Name
	if r.Constraint != Wildcard {
		s += "@" + r.Constraint
	}

	if r.Subpath != "" {
		s += "/" + r.Subpath
	}

	return s
}

// ParseRef parses a registry specifier. JSR names must be scoped; npm
// names may be bare. Constraints must be valid semver ranges; a missing
// constraint becomes the wildcard.
func ParseRef(specifier string) (Ref, error) {
	scheme, rest, ok := strings.Cut(specifier, ":")
	if !ok {
		return Ref{}, fmt.Errorf("%w: %q has no scheme", ErrInvalidRef, specifier)
	}

	var registry Registry
	switch scheme {
	case "jsr":
		registry = RegistryJSR
	case "npm":
		registry = RegistryNpm
	default:
		return Ref{}, fmt.Errorf("%w: %q has scheme %q", ErrInvalidRef, specifier, scheme)
	}

	rest = strings.TrimPrefix(rest, "/")

	name, rest, err := cutName(rest)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %q: %w", ErrInvalidRef, specifier, err)
	}

	if registry == RegistryJSR && !strings.HasPrefix(name, "@") {
		return Ref{}, fmt.Errorf("%w: %q must use a scoped name", ErrInvalidRef, specifier)
	}

	ref := Ref{Registry: registry, Name: name, Constraint: Wildcard}

	if strings.HasPrefix(rest, "@") {
		constraint := rest[1:]
		constraint, rest, _ = strings.Cut(constraint, "/")
		if constraint == "" {
			return Ref{}, fmt.Errorf("%w: %q has an empty version constraint", ErrInvalidRef, specifier)
		}

		if _, err := semver.NewConstraint(constraint); err != nil {
			return Ref{}, fmt.Errorf(
				"%w: %q has invalid version constraint %q", ErrInvalidRef, specifier, constraint,
			)
		}

		ref.Constraint = constraint
		ref.Subpath = rest
	} else {
		ref.Subpath = strings.TrimPrefix(rest, "/")
	}

	return ref, nil
}

// cutName splits the leading package name from rest of the specifier,
// handling the scoped "@scope/name" form.
func cutName(s string) (name, rest string, err error) {
	if s == "" {
		return "", "", errors.New("empty package name")
	}

	if strings.HasPrefix(s, "@") {
		slash := strings.IndexByte(s, '/')
		if slash <= 1 {
			return "", "", errors.New("scoped name must be @scope/name")
		}

		scope := s[:slash]
		tail := s[slash+1:]

		end := len(tail)
		for i := 0; i < len(tail); i++ {
			if tail[i] == '@' || tail[i] == '/' {
				end = i
				break
			}
		}

		if end == 0 {
			return "", "", errors.New("scoped name must be @scope/name")
		}

		return scope + "/" + tail[:end], tail[end:], nil
	}

	end := len(s)
	for i := 0; i < len(s); i++ {
		if s[i] == '@' || s[i] == '/' {
			end = i
			break
		}
	}

	if end == 0 {
		return "", "", errors.New("empty package name")
	}

	return s[:end], s[end:], nil
}

// Dependency is one external dependency of a package version. Identity is
// registry, name and constraint; subpaths do not distinguish dependencies.
type Dependency struct {
	Registry   Registry `json:"kind"`
	Name       string   `json:"name"`
	Constraint string   `json:"constraint"`
}

// Set is an insertion-ordered dependency set.
type Set struct {
	order []Dependency
	seen  map[Dependency]bool
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{seen: map[Dependency]bool{}}
}

// Add inserts d unless present.
func (s *Set) Add(d Dependency) {
	if s.seen[d] {
		return
	}

	s.seen[d] = true
	s.order = append(s.order, d)
}

// Contains reports membership.
func (s *Set) Contains(d Dependency) bool { return s.seen[d] }

// Len returns the number of dependencies.
func (s *Set) Len() int { return len(s.order) }

// List returns dependencies in first-seen order.
func (s *Set) List() []Dependency {
	out := make([]Dependency, len(s.order))
	copy(out, s.order)

	return out
}
