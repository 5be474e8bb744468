// Package ids provides the validated identifier types shared across the
// publish pipeline: package scope, package name, version, in-package file
// paths, and the export map. Construction validates; once built, values are
// immutable.
package ids

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Sentinel errors for identifier validation.
var (
	ErrScopeInvalid   = errors.New("invalid scope name")
	ErrNameInvalid    = errors.New("invalid package name")
	ErrVersionInvalid = errors.New("invalid version")
)

const (
	minScopeLen = 2
	maxScopeLen = 32
	minNameLen  = 2
	maxNameLen  = 58
)

// ScopeName is a validated registry scope ("std" in "@std/path").
type ScopeName string

// NewScopeName validates and returns a scope name. Scopes are lowercase
// alphanumerics and hyphens, 2-32 characters, and may not start or end with
// a hyphen.
func NewScopeName(raw string) (ScopeName, error) {
	if err := checkIdentSegment(raw, minScopeLen, maxScopeLen); err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrScopeInvalid, raw, err)
	}

	return ScopeName(raw), nil
}

func (s ScopeName) String() string { return string(s) }

// PackageName is a validated package name ("path" in "@std/path").
type PackageName string

// NewPackageName validates and returns a package name. Names follow the same
// character rules as scopes but allow up to 58 characters.
func NewPackageName(raw string) (PackageName, error) {
	if err := checkIdentSegment(raw, minNameLen, maxNameLen); err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrNameInvalid, raw, err)
	}

	return PackageName(raw), nil
}

func (n PackageName) String() string { return string(n) }

// ScopedName renders the canonical "@scope/name" form used in specifiers
// and workspace member identities.
func ScopedName(scope ScopeName, name PackageName) string {
	return "@" + string(scope) + "/" + string(name)
}

func checkIdentSegment(raw string, minLen, maxLen int) error {
	if len(raw) < minLen {
		return errors.New("too short")
	}

	if len(raw) > maxLen {
		return errors.New("too long")
	}

	if strings.HasPrefix(raw, "-") || strings.HasSuffix(raw, "-") {
		return errors.New("leading or trailing hyphen")
	}

	for _, c := range raw {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			return fmt.Errorf("character %q not allowed", c)
		}
	}

	return nil
}

// Version is a validated semantic version.
type Version struct {
	v *semver.Version
}

// NewVersion parses a strict semantic version ("1.2.3", optionally with
// prerelease and build metadata).
func NewVersion(raw string) (Version, error) {
	parsed, err := semver.StrictNewVersion(raw)
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q: %w", ErrVersionInvalid, raw, err)
	}

	return Version{v: parsed}, nil
}

// MustVersion is NewVersion that panics on error. Intended for tests and
// compile-time constants.
func MustVersion(raw string) Version {
	v, err := NewVersion(raw)
	if err != nil {
		panic(err)
	}

	return v
}

// IsZero reports whether the version is the uninitialized zero value.
func (v Version) IsZero() bool { return v.v == nil }

func (v Version) String() string {
	if v.v == nil {
		return ""
	}

	return v.v.String()
}

// Semver exposes the underlying parsed version for constraint matching.
// Nil for the zero value.
func (v Version) Semver() *semver.Version { return v.v }

// Equal reports whether two versions compare equal. Two zero versions are
// equal.
func (v Version) Equal(other Version) bool {
	if v.v == nil || other.v == nil {
		return v.v == other.v
	}

	return v.v.Equal(other.v)
}
