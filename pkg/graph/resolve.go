package graph

import (
	"fmt"
	"net/url"
	"strings"
)

// ResolveSpecifier resolves a raw import specifier against a referrer URL:
// absolute URLs pass through, relative paths join onto the referrer, and
// bare specifiers are rejected the way the ECMAScript resolution algorithm
// requires.
func ResolveSpecifier(specifier string, referrer *url.URL) (*url.URL, error) {
	if u, err := url.Parse(specifier); err == nil && u.IsAbs() {
		return u, nil
	}

	if !strings.HasPrefix(specifier, "/") &&
		!strings.HasPrefix(specifier, "./") &&
		!strings.HasPrefix(specifier, "../") {
		return nil, fmt.Errorf(
			"relative import path %q not prefixed with / or ./ or ../", specifier,
		)
	}

	resolved, err := referrer.Parse(specifier)
	if err != nil {
		return nil, fmt.Errorf("resolving %q against %s: %w", specifier, referrer, err)
	}

	return resolved, nil
}

// DefaultResolver resolves specifiers with ResolveSpecifier and nothing
// else. Registry-aware resolution wraps this.
type DefaultResolver struct{}

// Resolve implements Resolver.
func (DefaultResolver) Resolve(specifier string, referrer *url.URL) (*url.URL, error) {
	return ResolveSpecifier(specifier, referrer)
}
